package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/infrastructure/config"
)

// handleHistoryResource returns the recorded check verdicts.
func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	result, err := s.svc.History(ctx, application.HistoryOptions{ConfigPath: s.config.ConfigPath})
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleConfigResource returns the current or detected configuration as YAML.
func (s *Server) handleConfigResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	cfg, err := s.currentConfig(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := config.Write(&buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/yaml",
			Text:     buf.String(),
		}},
	}, nil
}

func (s *Server) currentConfig(ctx context.Context) (application.Config, error) {
	loader := config.Loader{}
	ok, err := loader.Exists(s.config.ConfigPath)
	if err != nil {
		return application.Config{}, fmt.Errorf("failed to check config: %w", err)
	}
	if ok {
		cfg, err := loader.Load(s.config.ConfigPath)
		if err != nil {
			return application.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := s.svc.Detect(ctx)
	if err != nil {
		return application.Config{}, fmt.Errorf("failed to detect config: %w", err)
	}
	return cfg, nil
}
