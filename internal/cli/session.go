package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/reservation"
	"github.com/region23/navatar/internal/scheduler"
	"github.com/region23/navatar/pkg/logger"
)

func newSessionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Stay running and remind you before your next booking starts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			state := scheduler.NewReminderState()
			a, err := newApp(ctx, cmd, opts, reservation.WithReminders(state))
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.owner.OwnerID(ctx)
			if err != nil {
				return fmt.Errorf("resolve owner (set --owner, OWNER_ID or OWNER_TOKEN): %w", err)
			}

			if err := a.service.Refresh(ctx); err != nil {
				a.log.Warn("Initial refresh failed, will retry", logger.Error(err))
			}
			printNext(a, owner)

			r := a.cfg.Reminder
			s := scheduler.New(owner, a.service, a.notifier, state,
				scheduler.WithInterval(r.Interval),
				scheduler.WithTolerance(r.Tolerance),
				scheduler.WithThresholds(r.Thresholds...),
				scheduler.WithResourceName(r.ResourceName),
				scheduler.WithLocation(a.cfg.Location),
				scheduler.WithLogger(a.log),
			)
			if err := s.Start(ctx); err != nil {
				return err
			}
			a.log.Info("Reminder session started",
				logger.String("owner", owner),
				logger.Duration("interval", r.Interval),
			)

			<-ctx.Done()
			if err := s.Stop(); err != nil {
				return err
			}
			a.log.Info("Reminder session stopped")
			return nil
		},
	}
}

func printNext(a *app, owner string) {
	upcoming := booking.Upcoming(a.service.Latest(), owner, a.now())
	if len(upcoming) == 0 {
		fmt.Fprintln(a.out, "No upcoming bookings.")
		return
	}
	next := upcoming[0]
	fmt.Fprintf(a.out, "Next booking: %s from %s to %s\n", booking.FormatDate(next.Date), next.StartTime, next.EndTime)
}
