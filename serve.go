package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"eamhc/controllers"
	"eamhc/db"
	"eamhc/emotion"
	"eamhc/router"
	"eamhc/workers"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var noDB bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&noDB, "no-db", false, "run without a database (persistence endpoints answer 503)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts, err := bridgeOptions(conf)
	if err != nil {
		return err
	}
	bridge, err := emotion.New(opts, log, emotion.NewMetrics(registry))
	if err != nil {
		return err
	}
	defer bridge.Close()

	var (
		database *gorm.DB
		recorder controllers.Recorder
	)
	if !noDB {
		database, err = db.Connect(conf, log)
		if err != nil {
			return err
		}
		defer database.Close()

		rec := workers.NewPredictionRecorder(database, conf.Recorder.QueueSize, log)
		rec.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := rec.Stop(stopCtx); err != nil {
				log.Warn("recorder did not drain", zap.Error(err), zap.Int("pending", rec.Pending()))
			}
		}()
		recorder = rec
	}

	if conf.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	router.Initialize(r, conf, router.Dependencies{
		Bridge:   bridge,
		DB:       database,
		Recorder: recorder,
		Gatherer: registry,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:              ":" + conf.ApiPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("classifier", bridge.Backend()),
			zap.Int("max_concurrent", bridge.Limiter().Limit()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	// Give in-flight classifications their full timeout to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Classifier.Timeout()+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	log.Info("server exited")
	return nil
}
