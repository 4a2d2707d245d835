package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict <image-file>",
	Short: "Classify a local image file and print the response",
	Args:  cobra.ExactArgs(1),
	RunE:  runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	prediction, err := app.handler.RunImage(data)
	if err != nil {
		return fmt.Errorf("error processing image: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(prediction.Response())
}
