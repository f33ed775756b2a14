// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server for Claude Desktop integration
package cli

import (
	"context"
	"database/sql"

	"github.com/harperreed/salescrm/coach"
	"github.com/harperreed/salescrm/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// MCPCommand starts the MCP server on stdio. Logs go to stderr; stdout
// carries the protocol.
func MCPCommand(ctx context.Context, database *sql.DB, analyzer *coach.Analyzer, log zerolog.Logger) error {
	log.Info().Str("version", handlers.Version).Bool("llm", analyzer.Enabled()).Msg("starting MCP server")

	server := handlers.NewServer(database, analyzer, log)
	return server.Run(ctx, &mcp.StdioTransport{})
}
