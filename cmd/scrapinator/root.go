// Command scrapinator turns natural-language task descriptions into
// validated, executable browser automation. Each pipeline stage is
// exposed as its own subcommand alongside full end-to-end runs, stored
// run inspection, and an MCP stdio server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"scrapinator/pkg/config"
	"scrapinator/pkg/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	provider string
	model    string
	baseURL  string
	apiKey   string
	debug    bool
}

var rootCmd = &cobra.Command{
	Use:   "scrapinator",
	Short: "Turn natural-language tasks into executable browser automation",
	Long: `Scrapinator analyzes a natural-language task description, explores the
target page in a real browser, generates a validated execution plan, and
executes it step by step with retries, fallback selectors, and run
artifacts.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// A missing .env file is fine; API keys can come from the
		// environment or the config file.
		_ = godotenv.Load()

		if rootFlags.debug {
			if dir, err := logging.GetLogDirectory(); err == nil {
				fmt.Fprintf(os.Stderr, "session %s, logs in %s\n", logging.GetSessionID(), dir)
			}
		}

		configPath, err := config.DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
		if err := config.Initialize(configPath); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.provider, "provider", "", "LLM provider (anthropic or openai)")
	pf.StringVar(&rootFlags.model, "model", "", "Model name (defaults to the provider's default)")
	pf.StringVar(&rootFlags.baseURL, "base-url", "", "API base URL override")
	pf.StringVar(&rootFlags.apiKey, "api-key", "", "API key (defaults to the provider's environment variable)")
	pf.BoolVar(&rootFlags.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exploreCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
