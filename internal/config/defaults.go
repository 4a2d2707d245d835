package config

import "errors"

const envPrefix = "SIGN"

const (
	EnvDev  = "dev"
	EnvTest = "test"
	EnvProd = "prod"
)

const (
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 8000
	DefaultEnvironment   = EnvDev
	DefaultModelPath     = "models/sign_language_model.onnx"
	DefaultManifestPath  = "models/sign_language_model.json"
	DefaultAllowedOrigin = "http://localhost:5173"
	DefaultEnvFile       = ".env"
)

var (
	ErrInvalidPort        = errors.New("port must be between 1 and 65535")
	ErrInvalidEnvironment = errors.New("environment must be one of dev, test, prod")
	ErrMissingModelPath   = errors.New("model path is not set")
	ErrMissingManifest    = errors.New("manifest path is not set")
	ErrNoAllowedOrigins   = errors.New("at least one allowed origin is required")
)
