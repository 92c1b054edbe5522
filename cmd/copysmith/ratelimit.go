package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ratelimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Rate limit commands",
}

var ratelimitShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configured analysis limits",
	RunE:  runRatelimitShow,
}

func init() {
	ratelimitCmd.AddCommand(ratelimitShowCmd)
	rootCmd.AddCommand(ratelimitCmd)
}

func runRatelimitShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rl := cfg.RateLimit

	fmt.Println("Rate Limiting Configuration")
	fmt.Println("===========================")
	fmt.Printf("Enabled: %v\n\n", rl.Enabled)

	if !rl.Enabled {
		fmt.Println("Rate limiting is disabled")
		return nil
	}

	fmt.Println("Per-user limits (successful fresh analyses):")
	fmt.Printf("  Analyses per hour: %s\n", limitString(rl.AnalysesPerHour))
	fmt.Printf("  Analyses per day:  %s\n", limitString(rl.AnalysesPerDay))
	fmt.Println()
	fmt.Println("Global limits (all users):")
	fmt.Printf("  Analyses per hour: %s\n", limitString(rl.GlobalAnalysesPerHour))
	fmt.Printf("  Analyses per day:  %s\n", limitString(rl.GlobalAnalysesPerDay))
	fmt.Println()
	fmt.Printf("Counters: %s (flushed every %s)\n", rl.Path, rl.FlushInterval)

	return nil
}

func limitString(n int) string {
	if n <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", n)
}
