package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewReportsCommand creates 'plantdoc reports'
func NewReportsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Manage saved plant health reports",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved reports",
		RunE:  runReportsList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete a saved report",
		Args:  cobra.ExactArgs(1),
		RunE:  runReportsDelete,
	})
	return cmd
}

func runReportsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reports, err := newGateway(cfg, newLogger()).ListReports(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(reports) == 0 {
		fmt.Fprintln(out, "No saved reports.")
		return nil
	}
	bold := color.New(color.Bold)
	bold.Fprintf(out, "%-6s %-24s %s\n", "ID", "PLANT", "CREATED")
	fmt.Fprintln(out, strings.Repeat("-", 50))
	for _, r := range reports {
		created := "-"
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(out, "%-6d %-24s %s\n", r.ID, r.PlantType.Name, created)
	}
	return nil
}

func runReportsDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid report id %q", args[0])
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := newGateway(cfg, newLogger()).DeleteReport(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete report %d: %w", id, err)
	}
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Deleted report %d\n", id)
	return nil
}
