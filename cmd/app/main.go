package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/api"
	"github.com/local/pdftoolkit/internal/assembler"
	"github.com/local/pdftoolkit/internal/cleanup"
	cfgpkg "github.com/local/pdftoolkit/internal/config"
	"github.com/local/pdftoolkit/internal/filetype"
	"github.com/local/pdftoolkit/internal/health"
	"github.com/local/pdftoolkit/internal/limiter"
	logpkg "github.com/local/pdftoolkit/internal/logger"
	"github.com/local/pdftoolkit/internal/metrics"
	"github.com/local/pdftoolkit/internal/operation"
	"github.com/local/pdftoolkit/internal/storage"
	"github.com/local/pdftoolkit/internal/store"
	"github.com/local/pdftoolkit/internal/verify"
)

func main() {
	cfg, err := cfgpkg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := logpkg.Init(logpkg.OptionsFrom(cfg)); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
	}
	defer logpkg.Close()
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis is optional; status tracking and the redis result backend need it.
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		rdb, err = store.Connect(ctx, cfg.Redis.URL, 30*time.Second)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
	}

	checks := map[string]health.Pinger{}
	deps := api.Dependencies{
		Detector:       filetype.New(),
		MaxUploadBytes: cfg.Limits.MaxUploadBytes,
		Timeout:        cfg.Limits.Timeout,
		Slots: limiter.New(limiter.Options{Limits: map[string]int{
			string(operation.TagCompress): cfg.Limits.HeavySlots,
			string(operation.TagMerge):    cfg.Limits.HeavySlots,
		}}),
	}
	if rdb != nil {
		rs := store.NewRedisStatus(rdb, cfg.Redis.StatusTTL)
		deps.Status = rs
		checks["redis"] = rs
	}

	switch cfg.Storage.Backend {
	case "", "none":
	case "local":
		local, err := storage.NewLocal(cfg.Storage.Dir)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init local result store")
		}
		deps.Results = local
	case "redis":
		if rdb == nil {
			log.Fatal().Msg("RESULT_BACKEND=redis requires REDIS_URL")
		}
		deps.Results = store.NewRedisResults(rdb, cfg.Storage.ResultTTL)
	case "s3":
		if cfg.Storage.Bucket == "" {
			log.Fatal().Msg("RESULT_BACKEND=s3 requires S3_BUCKET")
		}
		cli, err := storage.NewS3Client(ctx, cfg.Storage.Region, cfg.Storage.AccessKey, cfg.Storage.SecretKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init S3 client")
		}
		s3 := storage.NewS3(cli, cfg.Storage.Bucket, cfg.Storage.Prefix, cfg.Storage.Secret)
		deps.Results = s3
		checks["s3"] = s3
	default:
		log.Fatal().Str("backend", cfg.Storage.Backend).Msg("unknown RESULT_BACKEND")
	}
	deps.Health = health.New(checks)

	opts := []assembler.Option{}
	if cfg.Verify.Enabled {
		opts = append(opts, assembler.WithVerifier(verify.New()))
	}
	deps.Processor = assembler.New(assembler.Limits{
		MaxFileBytes:   cfg.Limits.MaxFileBytes,
		MaxMergePages:  cfg.Limits.MaxMergePages,
		MaxOutputBytes: cfg.Limits.MaxOutputBytes,
	}, opts...)

	go cleanup.New(cfg.Server.TempMaxAge, cfg.Server.SweepInterval).Run(ctx)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.New(deps).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("results", cfg.Storage.Backend).Bool("verify", cfg.Verify.Enabled).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("shutdown complete")
}
