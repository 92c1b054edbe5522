package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	initOutput     string
	initDataDir    string
	initSource     string
	initGeneration string
	initJWTSecret  string
	initForce      bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize Copysmith configuration",
	Long: `Interactive wizard to create a Copysmith configuration file.

API keys are not written to the file. Put them in the environment or a .env
file next to the binary (TAVILY_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY).

Examples:
  # Interactive mode - prompts for missing values
  copysmith init

  # Offline demo setup with canned analyses
  copysmith init --source fixture --data-dir ./data -o dev.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "config.yaml", "Output configuration file path")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "/var/lib/copysmith", "Data directory for the database and counters")
	initCmd.Flags().StringVar(&initSource, "source", "", "Content source: live or fixture")
	initCmd.Flags().StringVar(&initGeneration, "generation", "", "Generation provider: openai, gemini or ollama")
	initCmd.Flags().StringVar(&initJWTSecret, "jwt-secret", "", "JWT signing secret (auto-generated if not provided)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Copysmith Configuration Wizard")
	fmt.Println("==============================")
	fmt.Println()

	if initSource == "" {
		initSource = prompt(reader, "Content source (live, fixture)", "live")
	}
	if initSource != "live" && initSource != "fixture" {
		return fmt.Errorf("invalid source: %s (must be live or fixture)", initSource)
	}

	if initSource == "live" && initGeneration == "" {
		initGeneration = prompt(reader, "Generation provider (openai, gemini, ollama)", "openai")
	}
	switch initGeneration {
	case "", "openai", "gemini", "ollama":
	default:
		return fmt.Errorf("invalid generation provider: %s", initGeneration)
	}

	initDataDir = prompt(reader, "Data directory", initDataDir)

	if initJWTSecret == "" {
		initJWTSecret = generateRandomString(64)
		fmt.Println("  Generated JWT secret")
	}

	if !initForce {
		if _, err := os.Stat(initOutput); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", initOutput)
		}
	}

	fmt.Println()
	fmt.Println("Creating configuration...")

	if err := os.MkdirAll(initDataDir, 0755); err != nil {
		fmt.Printf("  Warning: Could not create data directory: %v\n", err)
	}

	if err := os.WriteFile(initOutput, []byte(generateConfig()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("  Configuration saved to: %s\n", initOutput)
	fmt.Println()

	printNextSteps()
	return nil
}

func prompt(reader *bufio.Reader, question, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", question, defaultValue)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}

func generateRandomString(length int) string {
	bytes := make([]byte, length/2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func generateConfig() string {
	liveSection := ""
	if initSource == "live" {
		liveSection = `
extraction:
  provider: "tavily"
  # api_key is read from TAVILY_API_KEY
  search_depth: "advanced"
  max_results: 5
  timeout: 60s

generation:
  provider: "` + initGeneration + `"
  timeout: 60s
`
	}

	return fmt.Sprintf(`# Copysmith configuration

api:
  listen_addr: ":8080"

auth:
  jwt_secret: "%s"
  token_ttl: 24h

database:
  driver: "sqlite"
  path: "%s/copysmith.db"

source:
  mode: "%s"
%s
rate_limit:
  enabled: true
  path: "%s/ratelimit.db"
  analyses_per_hour: 20
  analyses_per_day: 100
  # global_analyses_per_day: 1000

# Uncomment to serialize concurrent analyses of the same page
# redis:
#   addr: "localhost:6379"
#   lock_ttl: 2m

events:
  sink: "none"

metrics:
  enabled: false
  listen_addr: ":9090"
  allowed_ips:
    - "127.0.0.1"

logging:
  level: "info"
  format: "json"
`, initJWTSecret, initDataDir, initSource, liveSection, initDataDir)
}

func printNextSteps() {
	fmt.Println("Next Steps")
	fmt.Println("==========")
	fmt.Println()
	step := 1
	if initSource == "live" {
		fmt.Printf("%d. Export API keys (or put them in .env):\n", step)
		fmt.Println("   export TAVILY_API_KEY=...")
		switch initGeneration {
		case "gemini":
			fmt.Println("   export GEMINI_API_KEY=...")
		case "ollama":
			fmt.Println("   # ollama needs no key, start it with: ollama serve")
		default:
			fmt.Println("   export OPENAI_API_KEY=...")
		}
		fmt.Println()
		step++
	}
	fmt.Printf("%d. Start the server:\n", step)
	fmt.Printf("   copysmith serve -c %s\n", initOutput)
	fmt.Println()
	step++
	fmt.Printf("%d. Mint a token and analyze a page:\n", step)
	fmt.Printf("   TOKEN=$(copysmith token -c %s --user me)\n", initOutput)
	fmt.Println("   curl -X POST http://localhost:8080/api/v1/analyze \\")
	fmt.Println("     -H \"Authorization: Bearer $TOKEN\" \\")
	fmt.Println("     -H \"Content-Type: application/json\" \\")
	fmt.Println("     -d '{\"url\": \"https://example.com/webinar\"}'")
	fmt.Println()
}
