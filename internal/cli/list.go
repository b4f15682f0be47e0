package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/reservation"
	"github.com/region23/navatar/internal/storage/cache"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var (
		all     bool
		offline bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List upcoming bookings (yours by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if offline {
				return listOffline(cmd, opts, asJSON)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			owner := ""
			if !all {
				if owner, err = a.owner.OwnerID(ctx); err != nil {
					return fmt.Errorf("resolve owner (set --owner, OWNER_ID or OWNER_TOKEN, or pass --all): %w", err)
				}
			}

			items, err := a.service.MyBookings(ctx, owner)
			if err != nil {
				return err
			}
			// снимок для --offline
			if a.cfg.Storage.CacheFile != "" {
				_ = a.service.Refresh(ctx)
			}
			if asJSON {
				return writeJSON(a.out, items)
			}
			return printBookings(a.out, items)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list bookings of every owner")
	cmd.Flags().BoolVar(&offline, "offline", false, "read the last snapshot from CACHE_FILE instead of the store")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// listOffline печатает снимок из файла без обращения к хранилищу
func listOffline(cmd *cobra.Command, opts *globalOptions, asJSON bool) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.CacheFile == "" {
		return fmt.Errorf("--offline needs CACHE_FILE to be set")
	}
	items, err := cache.New(cfg.Storage.CacheFile).Load()
	if err != nil {
		return err
	}
	booking.SortByStart(items)

	out := make([]reservation.Booking, 0, len(items))
	for _, r := range items {
		if opts.owner != "" && r.OwnerID != opts.owner {
			continue
		}
		out = append(out, reservation.Booking{Reservation: r})
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	return printBookings(cmd.OutOrStdout(), out)
}

func printBookings(w io.Writer, items []reservation.Booking) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No upcoming bookings.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSTART\tEND\tOWNER\tSTATUS")
	for _, b := range items {
		status := ""
		if b.Ongoing {
			status = "ongoing"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", b.ID, b.Date, b.StartTime, b.EndTime, b.OwnerID, status)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
