package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	uriScheme = "docqa://"

	mimeJSON = "application/json"
	mimeText = "text/plain"
)

// registerResources exposes collection status and the conversation history.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "status",
		Description: "Number of indexed chunks in the document collection",
		MIMEType:    mimeJSON,
	}, s.handleStatusResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "history",
		Name:        "history",
		Description: "Questions asked in this session and their outcomes",
		MIMEType:    mimeJSON,
	}, s.handleHistoryResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "history/{turn}",
		Name:        "history-turn",
		Description: "Answer text of a single conversation turn, numbered from 1",
		MIMEType:    mimeText,
	}, s.handleTurnResource)
}

type statusInfo struct {
	Root   string   `json:"root"`
	Chunks int      `json:"chunks"`
	Tools  []string `json:"tools"`
}

func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	info := statusInfo{Root: ".", Tools: s.Tools()}
	if s.ports.Index != nil {
		count, err := s.ports.Index.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting chunks: %w", err)
		}
		info.Chunks = count
	}
	return jsonResource(req.Params.URI, info)
}

type turnInfo struct {
	Turn     int       `json:"turn"`
	Question string    `json:"question"`
	Status   string    `json:"status"`
	Sources  []string  `json:"sources,omitempty"`
	At       time.Time `json:"at"`
}

func (s *Server) handleHistoryResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	infos := []turnInfo{}
	if s.ports.History != nil {
		for i, turn := range s.ports.History.History() {
			info := turnInfo{
				Turn:     i + 1,
				Question: turn.Question,
				Status:   string(turn.Status),
				At:       turn.At,
			}
			for _, src := range turn.Sources {
				info.Sources = append(info.Sources, src.Source)
			}
			infos = append(infos, info)
		}
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleTurnResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.History == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	n := extractTurn(req.Params.URI)
	turns := s.ports.History.History()
	if n < 1 || n > len(turns) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: mimeText,
			Text:     turns[n-1].Answer,
		}},
	}, nil
}

// extractTurn parses the turn number from docqa://history/{turn}.
// It returns 0 when the URI does not match.
func extractTurn(uri string) int {
	const prefix = uriScheme + "history/"
	if !strings.HasPrefix(uri, prefix) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return 0
	}
	return n
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}
