// Package mcp serves itinerary generation and usage reporting as Model
// Context Protocol tools over line-delimited JSON-RPC on stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tripcraft/tripgen/pkg/logger"
	"github.com/tripcraft/tripgen/pkg/models"
)

// Generator is the subset of the orchestrator the tools call.
type Generator interface {
	GenerateItinerary(ctx context.Context, set models.TripConstraintSet, requestType string) (*models.GenerationResult, error)
	Usage(ctx context.Context, day string) (models.DayUsage, bool, error)
	Status(ctx context.Context) (models.BudgetStatus, error)
}

// AuditSearcher queries the generation audit log.
type AuditSearcher interface {
	Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error)
}

// Server is a minimal MCP server.
type Server struct {
	gen     Generator
	auditor AuditSearcher
	version string
	log     *logger.Logger
}

// New creates a Server. auditor may be nil when auditing is disabled.
func New(gen Generator, auditor AuditSearcher, version string) *Server {
	return &Server{
		gen:     gen,
		auditor: auditor,
		version: version,
		log:     logger.Get().With("component", "mcp"),
	}
}

// Run reads one JSON-RPC request per line from r and writes responses to w.
// It returns when r is exhausted or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.write(w, replyError(nil, CodeParseError, "parse error"))
			continue
		}
		if resp := s.dispatch(ctx, &req); resp != nil {
			s.write(w, resp)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return reply(req.ID, InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      ServerInfo{Name: "tripgen", Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		})
	case "notifications/initialized":
		return nil
	case "tools/list":
		return reply(req.ID, ToolsListResult{Tools: toolDefinitions})
	case "tools/call":
		var params ToolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return replyError(req.ID, CodeInvalidParams, "invalid params")
		}
		handler, ok := toolHandlers[params.Name]
		if !ok {
			return reply(req.ID, errorResult(fmt.Sprintf("unknown tool: %s", params.Name)))
		}
		return reply(req.ID, handler(ctx, s, params.Arguments))
	default:
		if len(req.ID) == 0 {
			return nil
		}
		return replyError(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (s *Server) write(w io.Writer, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Errorw("marshal response", "error", err)
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.log.Errorw("write response", "error", err)
	}
}
