package logger

import (
	"github.com/Brownie44l1/sign-api/internal/config"

	"go.uber.org/zap"
)

const name = "signserve"

// NewLogger picks the zap preset for the configured environment. Every entry
// carries the environment and the model file it serves.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	switch cfg.Environment {
	case config.EnvProd:
		l, err = zap.NewProduction()
	case config.EnvTest:
		l = zap.NewExample()
	default:
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}

	return l.Named(name).With(
		zap.String("env", cfg.Environment),
		zap.String("model", cfg.ModelPath),
	), nil
}
