package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	ModelPath      string   `mapstructure:"model_path"`
	ManifestPath   string   `mapstructure:"manifest_path"`
	OnnxRuntimeLib string   `mapstructure:"onnxruntime_lib"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SetupViper sets the defaults and the SIGN_ environment binding on v.
func SetupViper(v *viper.Viper) {
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("environment", DefaultEnvironment)
	v.SetDefault("model_path", DefaultModelPath)
	v.SetDefault("manifest_path", DefaultManifestPath)
	v.SetDefault("onnxruntime_lib", "")
	v.SetDefault("allowed_origins", []string{DefaultAllowedOrigin})

	// Example: SIGN_MODEL_PATH
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(`-`, `_`, `.`, `_`))
	v.AutomaticEnv()
}

// LoadEnvAndConfigFiles loads the .env file (when present) into the process
// environment and reads the optional YAML config file into v.
func LoadEnvAndConfigFiles(v *viper.Viper, envFile, configFile string) error {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat env file: %w", err)
	}

	if configFile == "" {
		return nil
	}

	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}

	return nil
}

// FromViper unmarshals, resolves and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	cfg.ModelPath = resolvePath(root, cfg.ModelPath)
	cfg.ManifestPath = resolvePath(root, cfg.ManifestPath)
	cfg.OnnxRuntimeLib = resolvePath(root, cfg.OnnxRuntimeLib)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, ErrInvalidPort)
	}
	switch c.Environment {
	case EnvDev, EnvTest, EnvProd:
	default:
		errs = append(errs, ErrInvalidEnvironment)
	}
	if c.ModelPath == "" {
		errs = append(errs, ErrMissingModelPath)
	}
	if c.ManifestPath == "" {
		errs = append(errs, ErrMissingManifest)
	}

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.AllowedOrigins = origins
	if len(c.AllowedOrigins) == 0 {
		errs = append(errs, ErrNoAllowedOrigins)
	}

	return errors.Join(errs...)
}

// projectRoot is the working directory, or two levels up when started from
// cmd/server.
func projectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	if filepath.Base(wd) == "server" && filepath.Base(filepath.Dir(wd)) == "cmd" {
		wd = filepath.Join(wd, "../..")
	}

	return wd, nil
}

func resolvePath(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
