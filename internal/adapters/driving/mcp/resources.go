package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for kbnote resources.
	uriScheme = "kbnote://"

	recentNotesLimit = 50
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the most recent notes.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "notes",
		Name:        "notes",
		Description: "The most recently stored notes",
		MIMEType:    "application/json",
	}, s.handleNotesResource)

	// Template for a single rendered note.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "notes/{documentId}",
		Name:        "note",
		Description: "A stored note with its YAML frontmatter",
		MIMEType:    "text/markdown",
	}, s.handleNoteResource)
}

// handleNotesResource lists the most recent notes.
func (s *Server) handleNotesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Notes.List(ctx, "", recentNotesLimit)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	type noteInfo struct {
		ID       string    `json:"id"`
		Title    string    `json:"title"`
		Category string    `json:"category"`
		URI      string    `json:"uri"`
		Created  time.Time `json:"created"`
	}

	infos := make([]noteInfo, len(docs))
	for i := range docs {
		infos[i] = noteInfo{
			ID:       docs[i].ID,
			Title:    docs[i].Title,
			Category: string(docs[i].Category),
			URI:      uriScheme + "notes/" + docs[i].ID,
			Created:  docs[i].CreatedAt,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling notes: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleNoteResource returns the rendered text of one note.
func (s *Server) handleNoteResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Notes.Get(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting note: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     doc.Rendered,
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like kbnote://notes/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "notes/"

	id, ok := strings.CutPrefix(uri, prefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
