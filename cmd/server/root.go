package main

import (
	"github.com/Brownie44l1/sign-api/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:          "signserve",
	Short:        "Sign language recognition backend",
	Long:         "Serves a pretrained hand-sign classifier over HTTP: POST a data-URL encoded image to /predict to get the recognized sign.",
	SilenceUsage: true,

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.SetupViper(viper.GetViper())

		return config.LoadEnvAndConfigFiles(viper.GetViper(),
			viper.GetString("env_file"), viper.GetString("config_file"))
	},
	RunE: runServe,
}

func init() {
	pflags := rootCmd.PersistentFlags()

	pflags.String("config-file", "", "Path to a YAML config file")
	pflags.String("env-file", "", "Path to the env file (default .env when present)")
	pflags.String("environment", config.DefaultEnvironment, "Environment: dev, test or prod")
	pflags.String("model-path", config.DefaultModelPath, "Path to the ONNX model weights")
	pflags.String("manifest-path", config.DefaultManifestPath, "Path to the model manifest (labels, shapes, normalization)")
	pflags.String("onnxruntime-lib", "", "Path to the ONNX Runtime shared library")

	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))
	viper.BindPFlag("environment", pflags.Lookup("environment"))
	viper.BindPFlag("model_path", pflags.Lookup("model-path"))
	viper.BindPFlag("manifest_path", pflags.Lookup("manifest-path"))
	viper.BindPFlag("onnxruntime_lib", pflags.Lookup("onnxruntime-lib"))

	pflags.String("host", config.DefaultHost, "Host to run the server on")
	pflags.Int("port", config.DefaultPort, "Port to run the server on")
	pflags.StringSlice("allowed-origins", []string{config.DefaultAllowedOrigin}, "Origins allowed to call the API from a browser")

	viper.BindPFlag("host", pflags.Lookup("host"))
	viper.BindPFlag("port", pflags.Lookup("port"))
	viper.BindPFlag("allowed_origins", pflags.Lookup("allowed-origins"))

	rootCmd.AddCommand(serveCmd, predictCmd)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}
