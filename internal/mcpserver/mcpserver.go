// Package mcpserver exposes function review over the Model Context Protocol.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/remark/pkg/config"
)

// Server wraps the MCP server and registers the remark tools.
type Server struct {
	server *mcp.Server
	cfg    *config.Config
}

// NewServer creates a new MCP server. A nil cfg uses the defaults.
func NewServer(version string, cfg *config.Config) *Server {
	if version == "" {
		version = "dev"
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "remark",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, cfg: cfg}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_functions",
		Description: describeAnalyzeFunctions(),
	}, s.handleAnalyzeFunctions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_source",
		Description: describeAnalyzeSource(),
	}, s.handleAnalyzeSource)
}
