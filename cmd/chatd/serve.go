package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chatd/internal/config"
	"chatd/internal/httpapi"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		addr        string
		corsOrigins string
		shutdown    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the executor to one WebSocket client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, config.Config{Addr: addr, CORSOrigins: splitCSV(corsOrigins)})
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, shutdown)
		},
	}
	def := os.Getenv("CHATD_ADDR")
	cmd.Flags().StringVar(&addr, "addr", def, "HTTP listen address (default 127.0.0.1:8080)")
	cmd.Flags().StringVar(&corsOrigins, "cors-origins", "", "comma-separated origins allowed for CORS and WebSocket upgrades")
	cmd.Flags().DurationVar(&shutdown, "shutdown-timeout", 5*time.Second, "grace period for in-flight requests")
	return cmd
}

func runServe(parent context.Context, cfg config.Config, grace time.Duration) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := newLogger(os.Stderr, cfg.LogLevel)
	cat, err := buildCatalog(cfg, log)
	if err != nil {
		return err
	}
	exec, err := buildExecutor(cfg, cat, log)
	if err != nil {
		return err
	}

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(ctx)
	if len(cfg.CORSOrigins) > 0 {
		httpapi.SetCORSOptions(true, cfg.CORSOrigins, nil, nil)
	}
	bridge := httpapi.NewBridge(exec, cat)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(bridge),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := exec.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		bridge.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Int("models", len(cat.Models())).Msg("chatd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown")
		}
		return nil
	})
	err = g.Wait()
	log.Info().Msg("chatd stopped")
	return err
}
