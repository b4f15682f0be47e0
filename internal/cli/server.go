package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/region23/navatar/internal/config"
	"github.com/region23/navatar/internal/server"
	"github.com/region23/navatar/pkg/logger"
)

func newServerCmd(opts *globalOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the booking store HTTP service (/bookings, /health, /metrics)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver == config.DriverRemote {
				return fmt.Errorf("server needs a local store: STORAGE_DRIVER=remote would point the service at itself")
			}
			if port != "" {
				cfg.Server.Port = port
			}
			log := logger.NewWithWriter(cfg.LogLevel, cmd.ErrOrStderr())

			codec, err := tokenCodec(cfg)
			if err != nil {
				return err
			}

			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("store ping: %w", err)
			}

			srvOpts := []server.Option{server.WithVersion(Version)}
			if codec != nil {
				srvOpts = append(srvOpts, server.WithTokenCodec(codec))
				log.Info("Bearer tokens required for changes")
			}

			return server.New(cfg, log, store, srvOpts...).Start(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}
