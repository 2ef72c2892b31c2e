package main

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"scrapinator/pkg/logging"
	"scrapinator/pkg/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline as MCP tools over stdio",
	Long: `Serve starts a Model Context Protocol server over stdin/stdout. MCP
hosts can then call analyze_task, explore_page, build_plan,
execute_plan, and list_runs as tools.

Nothing is printed to stdout outside the protocol; diagnostics go to
the session log file.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	app, err := buildApp(appOptions{browser: true})
	if err != nil {
		return err
	}
	defer app.Close()

	logger, _ := logging.NewLogger("mcp")
	server, err := mcp.NewServer(mcp.Config{
		Analyzer: app.analyzer,
		Explorer: app.explorer,
		Pipeline: app.pipe,
		Runs:     app.store,
		Version:  version,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	logger.Infof("starting scrapinator MCP server over stdio")
	return server.Run(cmd.Context(), &sdkmcp.StdioTransport{})
}
