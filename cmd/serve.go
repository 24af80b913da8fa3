package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imsight/visitlog/internal/enrich"
	"github.com/imsight/visitlog/internal/property"
	"github.com/imsight/visitlog/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the property map and enrichment API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initFullEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.cache.Migrate(ctx); err != nil {
			return err
		}
		if err := env.props.Migrate(ctx); err != nil {
			return err
		}

		orch := enrich.NewOrchestrator(newKakaoClient(), env.cache, env.props, enrichOptions())
		pool := enrich.NewPool(orch, cfg.Enrich.Workers, cfg.Enrich.QueueCapacity)
		pool.Start(ctx)
		defer pool.Close()

		// Periodic purge of soft-deleted properties past retention.
		go func() {
			interval := time.Duration(cfg.Cleanup.IntervalHours) * time.Hour
			retention := time.Duration(cfg.Cleanup.RetentionDays) * 24 * time.Hour
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					n, err := env.props.PurgeDeleted(ctx, time.Now().UTC().Add(-retention))
					if err != nil {
						zap.L().Error("purge sweep failed", zap.Error(err))
						continue
					}
					zap.L().Info("purge sweep complete", zap.Int64("removed", n))
				}
			}
		}()

		queries := property.NewMapService(env.props, env.cache)
		handler := server.New(pool, queries).Handler()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: handler,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
