package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"clientatech-agent/internal/app"
	"clientatech-agent/internal/common/config"
	apperrors "clientatech-agent/internal/common/errors"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/models"
)

var (
	configPath string
	formatFlag string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "ask-cli",
	Short:         "Ask questions about ClientaTech customers",
	Long:          "Runs the query pipeline locally against the configured dataset, model server and cache.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: configs/config.yaml lookup)")
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: text or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level written to stderr")
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// openApp builds the pipeline. Logs go to stderr so answers can be piped.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.NewStructured(logLevel, "console", "stderr")
	return app.Build(ctx, cfg, app.Models{}, log)
}

func printResponse(w io.Writer, resp *models.Response) {
	if formatFlag == "json" {
		b, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Fprintln(w, string(b))
		return
	}
	fmt.Fprintln(w, resp.Text)
	if resp.CacheHit {
		fmt.Fprintln(w, "(cache)")
	}
}

// printFault shows only the user-safe message of a failed question.
func printFault(w io.Writer, err error) {
	fault := apperrors.Normalize(err)
	if formatFlag == "json" {
		b, _ := json.MarshalIndent(map[string]interface{}{
			"error": map[string]string{"code": string(fault.Code), "message": fault.Message},
		}, "", "  ")
		fmt.Fprintln(w, string(b))
		return
	}
	fmt.Fprintf(w, "⚠️ %s\n", fault.Message)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
