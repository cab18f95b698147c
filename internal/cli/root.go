// Package cli implements the plantdoc command line.
package cli

import (
	"net/http"
	"time"

	"plantdoc/internal/config"
	"plantdoc/internal/gateway"
	"plantdoc/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Global flags shared by every command
var (
	configPath  string
	gatewayURL  string
	bearerToken string
	verbose     bool
)

// NewRootCommand creates the 'plantdoc' command tree
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plantdoc",
		Short: "Plant health assessments from the terminal",
		Long: `plantdoc runs plant health questionnaires against the plant-care backend,
submits them for analysis and exports the diagnosis as a PDF report.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVarP(&gatewayURL, "gateway", "g", "", "Backend base URL (overrides config)")
	cmd.PersistentFlags().StringVarP(&bearerToken, "token", "t", "", "Bearer token forwarded to the backend")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log backend calls to stderr")

	cmd.AddCommand(NewAssessCommand())
	cmd.AddCommand(NewReportsCommand())
	cmd.AddCommand(NewTokenCommand())

	return cmd
}

// loadConfig reads the config and applies command line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if gatewayURL != "" {
		cfg.Gateway.BaseURL = gatewayURL
	}
	return cfg, nil
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := logging.New("debug", true)
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// newGateway builds a backend client carrying the bearer token
func newGateway(cfg *config.Config, logger *zap.Logger) *gateway.Client {
	c := gateway.NewClient(cfg.Gateway.BaseURL,
		gateway.WithEndpoints(cfg.Gateway.Endpoints),
		gateway.WithTimeout(cfg.Gateway.Timeout),
		gateway.WithLogger(logger))
	if bearerToken == "" {
		return c
	}
	return c.WithHeader(http.Header{"Authorization": {"Bearer " + bearerToken}})
}

func defaultDelay(cfg *config.Config, flagDelay time.Duration, set bool) time.Duration {
	if set {
		return flagDelay
	}
	return cfg.TransitionDelay
}
