package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/doxsearch/mcp-server/internal/config"
	"github.com/doxsearch/mcp-server/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	version     = "0.1.0"
	serverName  = "doxsearch-mcp-server"
	description = "MCP server for searching Doxygen-generated API documentation"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("%s version %s\n", serverName, version)
		os.Exit(0)
	}

	// Set up logging to stderr (MCP uses stdout for protocol)
	log.SetOutput(os.Stderr)
	log.Printf("%s v%s starting...", serverName, version)

	cfg := config.Load()
	tools.Configure(cfg)
	log.Printf("Data directory: %s", cfg.DataDir)

	server := createMCPServer()

	if err := registerTools(server); err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}

	log.Printf("✓ Server ready and waiting for connections")

	// Set up cleanup on shutdown
	defer func() {
		if err := tools.CloseSymbolSearch(); err != nil {
			log.Printf("Error closing symbol search: %v", err)
		}
	}()

	// Run server with stdio transport
	ctx := context.Background()
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Printf("Server error: %v", err)
	}
}

// createMCPServer initializes the MCP server
func createMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version,
		},
		nil, // Default options
	)

	log.Printf("Server initialized: %s v%s", serverName, version)
	return server
}

// registerTools registers all MCP tools
func registerTools(server *mcp.Server) error {
	if err := tools.RegisterSymbolSearchTools(server); err != nil {
		return fmt.Errorf("failed to register symbol search tools: %w", err)
	}

	log.Printf("✓ All tools registered: 5 tools (search + lookup + shards + validate + refresh)")
	return nil
}
