package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foxzi/copysmith/internal/app"
)

var (
	analyzeUser  string
	analyzeForce bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyze a landing page once and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeUser, "user", "", "user id owning the analysis (required)")
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "re-run the analysis even if one is stored")
	analyzeCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	application, err := app.New(ctx, cfg, app.Options{Version: version, Logger: cliLogger()})
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Shutdown(ctx)

	res, err := application.Service().Analyze(ctx, analyzeUser, args[0], analyzeForce)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"reused": res.Reused,
		"data":   res.Page,
	})
}
