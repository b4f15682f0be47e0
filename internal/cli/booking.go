package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/region23/navatar/internal/booking"
)

// slotFlags дата и интервал кандидата
type slotFlags struct {
	date  string
	start string
	end   string
}

func (f *slotFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "date in YYYY-MM-DD")
	cmd.Flags().StringVar(&f.start, "start", "", "start time HH:MM")
	cmd.Flags().StringVar(&f.end, "end", "", "end time HH:MM (24:00 allowed)")
}

func (f *slotFlags) candidate() booking.Reservation {
	return booking.Reservation{Date: f.date, StartTime: f.start, EndTime: f.end}
}

func newCheckCmd(opts *globalOptions) *cobra.Command {
	var slot slotFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a slot is free without booking it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			candidate := slot.candidate()
			// владелец нужен только для текста о своем пересечении
			if owner, err := a.owner.OwnerID(ctx); err == nil {
				candidate.OwnerID = owner
			}

			res, err := a.service.CheckAvailability(ctx, candidate)
			if err != nil {
				return shownError{err}
			}
			if !res.OK() {
				return shownError{res.Err(candidate.OwnerID)}
			}
			return nil
		},
	}
	slot.register(cmd)
	return cmd
}

func newBookCmd(opts *globalOptions) *cobra.Command {
	var slot slotFlags

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a slot for the current owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.owner.OwnerID(ctx)
			if err != nil {
				return fmt.Errorf("resolve owner (set --owner, OWNER_ID or OWNER_TOKEN): %w", err)
			}

			created, err := a.service.Confirm(ctx, slot.candidate(), owner)
			if err != nil {
				return shownError{err}
			}
			fmt.Fprintf(a.out, "id: %s\n", created.ID)
			return nil
		},
	}
	slot.register(cmd)
	return cmd
}

func newCancelCmd(opts *globalOptions) *cobra.Command {
	var (
		slot slotFlags
		id   string
	)

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel one of your bookings by --id or by --date/--start/--end",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := slot.candidate()
			target.ID = id
			if id == "" && (target.Date == "" || target.StartTime == "" || target.EndTime == "") {
				return fmt.Errorf("either --id or all of --date, --start and --end are required")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.owner.OwnerID(ctx)
			if err != nil {
				return fmt.Errorf("resolve owner (set --owner, OWNER_ID or OWNER_TOKEN): %w", err)
			}

			if err := a.service.Cancel(ctx, owner, target); err != nil {
				return shownError{err}
			}
			return nil
		},
	}
	slot.register(cmd)
	cmd.Flags().StringVar(&id, "id", "", "booking id")
	return cmd
}
