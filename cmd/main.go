package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"heartrisk/config"
	"heartrisk/db"
	qhttp "heartrisk/http"
	"heartrisk/ml"
	"heartrisk/monitoring"
	"heartrisk/pipeline"
	"heartrisk/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	envFile := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := monitoring.NewLogger(monitoring.LogConfig{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Fit preprocessor and load model
	svc, closeStore := initializeServices(ctx, cfg)
	defer closeStore()

	// 3. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:         cfg.Http.Port,
		Timeout:      cfg.Http.Timeout,
		APIKey:       cfg.Auth.APIKey,
		MaxBodyBytes: cfg.Http.MaxBodyBytes,
	}, svc)
	go func() {
		if err := server.Start(); err != nil {
			zap.L().Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 4. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down...")

	if err := server.Stop(); err != nil {
		zap.L().Error("Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Exiting")
}

func initializeServices(ctx context.Context, cfg *config.Config) (*service.Service, func()) {
	samples, _, err := pipeline.LoadDataset(cfg.Data.Path)
	if err != nil {
		zap.L().Fatal("Failed to load dataset", zap.Error(err))
	}

	preprocessor := ml.NewPreprocessor()
	if err := preprocessor.Fit(samples); err != nil {
		zap.L().Fatal("Failed to fit preprocessor", zap.Error(err))
	}

	version, err := ml.LookupVersion(cfg.ML.ModelVersion)
	if err != nil {
		zap.L().Fatal("Failed to select model version",
			zap.Error(err),
			zap.Strings("available", ml.Versions()))
	}

	var opts []ml.ModelOption
	if cfg.ML.CacheArtifacts {
		cache, err := ml.NewArtifactCache(cfg.ML.CacheSize)
		if err != nil {
			zap.L().Fatal("Failed to create artifact cache", zap.Error(err))
		}
		if err := cache.Watch(ctx, cfg.ML.ModelPath); err != nil {
			zap.L().Fatal("Failed to watch model directory", zap.Error(err))
		}
		opts = append(opts, ml.WithArtifactCache(cache))
	}
	model := ml.NewModel(version, cfg.ML.ModelPath, preprocessor, opts...)
	if _, err := model.LoadModel(); err != nil {
		zap.L().Fatal("Failed to load model", zap.Error(err))
	}
	zap.L().Info("Model ready",
		zap.String("version", version.ID),
		zap.String("artifact", model.ArtifactPath()))

	var svcOpts []service.Option
	closeStore := func() {}
	if cfg.Database.Path != "" {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			zap.L().Fatal("Failed to open audit database", zap.Error(err))
		}
		svcOpts = append(svcOpts, service.WithAuditStore(store))
		closeStore = func() { store.Close() }
		zap.L().Info("Audit database initialized", zap.String("path", cfg.Database.Path))
	}

	return service.New(model, preprocessor, svcOpts...), closeStore
}
