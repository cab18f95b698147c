package cli

import (
	"os"
	"time"

	"plantdoc/internal/export"
	"plantdoc/internal/wizard"

	"github.com/spf13/cobra"
)

var (
	assessOutDir string
	assessDelay  time.Duration
)

// NewAssessCommand creates 'plantdoc assess'
func NewAssessCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Run an interactive plant health assessment",
		RunE:  runAssess,
	}
	cmd.Flags().StringVarP(&assessOutDir, "out", "o", ".", "Directory for exported PDF reports")
	cmd.Flags().DurationVar(&assessDelay, "delay", 0, "Pause after each answer (default from config)")
	return cmd
}

func runAssess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Sync()

	wiz := wizard.New(newGateway(cfg, logger), export.NewExporter(cfg.Export, logger),
		wizard.WithTransitionDelay(defaultDelay(cfg, assessDelay, cmd.Flags().Changed("delay"))),
		wizard.WithLogger(logger))

	p := NewPresenter(wiz, nil, os.Stdout, assessOutDir)
	return p.Run(cmd.Context())
}
