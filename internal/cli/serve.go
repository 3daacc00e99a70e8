package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/threadreel/internal/api"
	"github.com/forPelevin/threadreel/internal/intake"
	"github.com/forPelevin/threadreel/internal/log"
	"github.com/forPelevin/threadreel/internal/pipeline"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and render workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd)
		},
	}
	cmd.Flags().String("addr", ":8000", "Listen address")
	cmd.Flags().String("output", "videos", "Directory for rendered videos")
	cmd.Flags().String("db", "threadreel.db", "SQLite database path")
	cmd.Flags().String("intake", "", "Drop folder watched for .txt narrations (disabled when empty)")
	return cmd
}

func serve(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	overrideString(cmd, "addr", &cfg.Server.Addr)
	overrideString(cmd, "output", &cfg.Paths.Output)
	overrideString(cmd, "db", &cfg.Paths.Database)
	overrideString(cmd, "intake", &cfg.Paths.Intake)

	logger := log.WithComponent("serve")
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := pipeline.Build(ctx, pipeline.Config{Config: cfg, Logger: log.Base()})
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error().Err(err).Msg("close pipeline")
		}
	}()

	srv := api.New(api.Deps{
		Creator: app.Usecase,
		Store:   app.Store,
		Health:  func() any { return app.Health() },
		Logger:  log.Base(),
	}, api.Config{
		VideoDir:            cfg.Paths.Output,
		CreateRatePerMinute: cfg.Server.CreateRatePerMinute,
		Captions:            app.JobsConfig.CaptionOptions(),
	})
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.Jobs.Run(gctx) })
	g.Go(func() error {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info().Msg("shutting down http server")
		return httpSrv.Shutdown(shutdownCtx)
	})

	if cfg.Paths.Intake != "" {
		w, err := intake.New(cfg.Paths.Intake, intake.TextHandler(app.Usecase), log.Base(), intake.Options{
			MaxConcurrent: cfg.Jobs.Workers,
		})
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			defer w.Stop()
			return w.Start(gctx)
		})
	}

	return g.Wait()
}
