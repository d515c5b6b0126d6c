// Command tabloader runs the tab loading engine behind the browser
// extension bridge and the local control API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/tabloader/pkg/bridge"
	"github.com/dmitrymomot/tabloader/pkg/broadcast"
	"github.com/dmitrymomot/tabloader/pkg/clientip"
	"github.com/dmitrymomot/tabloader/pkg/config"
	"github.com/dmitrymomot/tabloader/pkg/httpserver"
	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/requestid"
	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/svc/controlapi"
	"github.com/dmitrymomot/tabloader/svc/engine"
	"github.com/dmitrymomot/tabloader/svc/presenter"
)

const serviceName = "tabloader"

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL"`

	// AllowRemote serves the API and the bridge to non-loopback clients.
	AllowRemote bool `env:"ALLOW_REMOTE" envDefault:"false"`

	Settings storeConfig
	HTTP     httpserver.Config
	Bridge   bridge.Config
}

func main() {
	if err := run(); err != nil {
		slog.Error("tabloader stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, serviceName),
		logger.WithContextExtractors(requestid.LoggerExtractor(), clientip.LoggerExtractor()),
	}
	if lvl, ok := logger.ParseLevel(cfg.LogLevel); ok {
		opts = append(opts, logger.WithLevel(lvl))
	}
	log := logger.New(opts...)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openStore(ctx, cfg.Settings, log)
	if err != nil {
		return fmt.Errorf("settings store: %w", err)
	}
	defer backend.close()

	br := bridge.New(cfg.Bridge, bridge.WithLogger(log))
	updates := broadcast.NewMemoryBroadcaster[presenter.Presentation](4)
	defer updates.Close()

	eng := engine.New(br, backend.store,
		presenter.Multi{
			presenter.ToolbarSink{T: br},
			presenter.BroadcastSink{B: updates},
			presenter.LogSink{Log: log},
		},
		engine.WithLogger(log),
		engine.WithOnSettings(func(ctx context.Context, s settings.Settings) {
			if err := br.PushSettings(ctx, s.Raw()); err != nil && !errors.Is(err, bridge.ErrNotConnected) {
				log.Warn("failed to push settings to the extension", logger.Error(err))
			}
		}),
	)
	br.SetHandler(eng)
	br.OnMessage(func(ctx context.Context, m bridge.Message) {
		_ = eng.HandleMessage(ctx, m.Action, m.URL, m.SenderTabID)
	})
	br.OnConnect(eng.SyncBrowser)

	checks := []httpserver.Check{br.Ping}
	if backend.check != nil {
		checks = append(checks, backend.check)
	}
	api := controlapi.New(eng,
		controlapi.WithLogger(log),
		controlapi.WithUpdates(updates),
		controlapi.WithReadinessChecks(checks...),
		controlapi.WithMount(br.Path(), br),
		controlapi.WithAllowRemote(cfg.AllowRemote),
	)

	srv := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		// Upgraded connections are not tracked by http.Server.Shutdown.
		httpserver.WithOnShutdown(func() { _ = br.Close() }),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx, api.Handle()) })

	log.Info("tabloader started",
		slog.String("addr", cfg.HTTP.Addr),
		slog.String("bridge_path", br.Path()),
		slog.String("settings_backend", cfg.Settings.Backend),
	)
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("tabloader stopped")
	return nil
}
