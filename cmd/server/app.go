package main

import (
	"fmt"

	"github.com/Brownie44l1/sign-api/internal/config"
	"github.com/Brownie44l1/sign-api/internal/handlers"
	"github.com/Brownie44l1/sign-api/internal/logger"
	"github.com/Brownie44l1/sign-api/internal/model"
	"github.com/Brownie44l1/sign-api/internal/preprocess"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app holds everything loaded once at startup.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	model   *model.Server
	handler *handlers.Handler
}

func newApp() (*app, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	log.Info("loading model",
		zap.String("model", cfg.ModelPath),
		zap.String("manifest", cfg.ManifestPath))

	manifest, err := model.LoadManifest(cfg.ManifestPath)
	if err != nil {
		return nil, err
	}

	pipeline, err := preprocess.FromManifest(manifest)
	if err != nil {
		return nil, err
	}

	modelServer, err := model.NewServer(cfg.ModelPath, manifest, cfg.OnnxRuntimeLib)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model server: %w", err)
	}

	log.Info("model loaded",
		zap.String("architecture", manifest.Architecture),
		zap.Strings("classes", manifest.Classes),
		zap.Int("image_size", manifest.ImageSize),
		zap.Float64("confidence_threshold", manifest.ConfidenceThreshold))

	classifier := model.NewClassifier(modelServer, manifest)

	return &app{
		cfg:     cfg,
		log:     log,
		model:   modelServer,
		handler: handlers.NewHandler(classifier, pipeline, log),
	}, nil
}

func (a *app) Close() {
	a.model.Close()
	_ = a.log.Sync()
}
