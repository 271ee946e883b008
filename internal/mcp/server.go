package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is set at build time.
var Version = "dev"

// Server wraps the application service with MCP protocol handling.
type Server struct {
	svc    Service
	config Config
	server *mcp.Server
}

// New creates a new MCP server wrapping the given service.
func New(svc Service, cfg Config) *Server {
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfig().ConfigPath
	}

	s := &Server{
		svc:    svc,
		config: cfg,
	}
	// Tool and resource capabilities are advertised from what is registered.
	s.server = mcp.NewServer(
		&mcp.Implementation{
			Name:    "covgate",
			Version: Version,
		},
		nil,
	)
	s.registerTools(s.server)
	s.registerResources(s.server)
	return s
}

// Run serves MCP over stdio and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves MCP over the given transport.
func (s *Server) RunTransport(ctx context.Context, transport mcp.Transport) error {
	if err := s.server.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

// registerTools adds all tool handlers to the server.
func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "check",
		Description: "Evaluate the configured changed-line coverage rules against the latest coverage report and the git diff to the baseline ref.",
	}, s.handleCheck)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "lines",
		Description: "List the changed line numbers per file that the coverage rules would evaluate.",
	}, s.handleLines)
}

// registerResources adds all resource handlers to the server.
func (s *Server) registerResources(server *mcp.Server) {
	server.AddResource(&mcp.Resource{
		URI:         "covgate://history",
		Name:        "Check History",
		Description: "Recorded check verdicts, newest first, with the pass rate",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)

	server.AddResource(&mcp.Resource{
		URI:         "covgate://config",
		Name:        "Current Configuration",
		Description: "Returns the current or auto-detected covgate configuration",
		MIMEType:    "application/yaml",
	}, s.handleConfigResource)
}
