// Package mcpserver exposes every registered command as an MCP tool.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cozy-creator/brandgen/internal/commands"
	"github.com/cozy-creator/brandgen/internal/result"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	ServerName   = "brandgen"
	instructions = "Generate on-brand illustrations and icons using AI"
)

// Server maps MCP tool calls onto the command registry. Every call runs as
// a single user, fixed when the server is built.
type Server struct {
	registry *commands.Registry
	mcp      *server.MCPServer
	tools    map[string]string
	userID   string
	log      *zap.Logger
}

// ToolName turns a command name into a tool name: job.status becomes
// job_status and lora.upload-images becomes lora_upload_images.
func ToolName(command string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(command)
}

func NewServer(registry *commands.Registry, version, userID string, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		registry: registry,
		mcp: server.NewMCPServer(ServerName, version,
			server.WithToolCapabilities(false),
			server.WithInstructions(instructions),
			server.WithRecovery(),
		),
		tools:  make(map[string]string),
		userID: userID,
		log:    logger.Named("mcp"),
	}

	for _, info := range registry.List() {
		schema, err := registry.Schema(info.Name)
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", info.Name, err)
		}
		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", info.Name, err)
		}

		name := ToolName(info.Name)
		s.tools[name] = info.Name
		s.mcp.AddTool(mcp.NewToolWithRawSchema(name, info.Description, raw), s.Handle)
	}

	return s, nil
}

// Tools returns the tool name to command name mapping.
func (s *Server) Tools() map[string]string {
	return s.tools
}

// Handle runs the command behind the requested tool. Failed envelopes are
// still returned as tool results, flagged as errors.
func (s *Server) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = commands.WithUserID(ctx, s.userID)

	var res *result.Result
	if command, ok := s.tools[req.Params.Name]; ok {
		res = s.registry.ExecuteValue(ctx, command, req.GetArguments())
	} else {
		res = result.Fail(result.CodeCommandNotFound, fmt.Sprintf("Unknown tool '%s'", req.Params.Name), "")
	}

	text, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	out := mcp.NewToolResultText(string(text))
	out.IsError = !res.Success
	s.log.Debug("tool call", zap.String("tool", req.Params.Name), zap.Bool("success", res.Success))
	return out, nil
}

// Serve speaks MCP over the given streams until ctx ends or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}
