package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/region23/navatar/internal/config"
	"github.com/region23/navatar/internal/identity"
	"github.com/region23/navatar/internal/notify"
	"github.com/region23/navatar/internal/reservation"
	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/internal/storage/cache"
	"github.com/region23/navatar/pkg/logger"
)

// tokenTTL срок жизни выпускаемых токенов владельца
const tokenTTL = 30 * 24 * time.Hour

type globalOptions struct {
	envFile string
	owner   string
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	if o.envFile != "" {
		return config.Load(o.envFile)
	}
	return config.Load()
}

// app собранные зависимости одной команды
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    storage.ReservationStore
	notifier *notify.Combined
	service  *reservation.Service
	owner    identity.Provider
	out      io.Writer
}

func (a *app) now() time.Time {
	return time.Now().In(a.cfg.Location)
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("Failed to close store", logger.Error(err))
		}
	}
}

// newApp загружает конфигурацию, открывает хранилище и собирает сервис
func newApp(ctx context.Context, cmd *cobra.Command, opts *globalOptions, svcOpts ...reservation.Option) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	log := logger.NewWithWriter(cfg.LogLevel, cmd.ErrOrStderr())

	codec, err := tokenCodec(cfg)
	if err != nil {
		return nil, err
	}
	owner := ownerProvider(cfg, codec, opts.owner)

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	alerts, err := alertSink(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	notifier := notify.Combine(notify.NewConsoleSink(out), alerts, log)

	base := []reservation.Option{
		reservation.WithLocation(cfg.Location),
		reservation.WithGranularity(cfg.SlotGranularityMins),
	}
	if cfg.Storage.CacheFile != "" {
		base = append(base, reservation.WithCache(cache.New(cfg.Storage.CacheFile)))
	}
	service := reservation.NewService(store, notifier, log, append(base, svcOpts...)...)

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		notifier: notifier,
		service:  service,
		owner:    owner,
		out:      out,
	}, nil
}

// tokenCodec nil, если ключи не заданы
func tokenCodec(cfg *config.Config) (*identity.TokenCodec, error) {
	if !cfg.Identity.Enabled() {
		return nil, nil
	}
	codec, err := identity.NewTokenCodecFromBase64(cfg.Identity.HashKey, cfg.Identity.BlockKey, tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token keys: %w", err)
	}
	return codec, nil
}

// ownerProvider --owner, затем OWNER_TOKEN, затем OWNER_ID
func ownerProvider(cfg *config.Config, codec *identity.TokenCodec, flagOwner string) identity.Provider {
	switch {
	case flagOwner != "":
		return identity.Static(flagOwner)
	case cfg.Identity.OwnerToken != "" && codec != nil:
		return identity.Token{Codec: codec, Value: cfg.Identity.OwnerToken}
	default:
		return identity.Static(cfg.Identity.OwnerID)
	}
}

// alertSink канал Telegram, если он настроен
func alertSink(cfg *config.Config) (notify.AlertSink, error) {
	if !cfg.Telegram.AlertsEnabled() {
		return nil, nil
	}
	sink, err := notify.NewTelegramSink(cfg.Telegram.Token, cfg.Telegram.AlertChatID)
	if err != nil {
		return nil, err
	}
	return sink, nil
}
