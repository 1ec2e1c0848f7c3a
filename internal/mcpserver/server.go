// Package mcpserver exposes the resource directory to LLM clients as MCP
// tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lotas/wegweiser/internal/analyzer"
	"github.com/lotas/wegweiser/internal/export"
	"github.com/lotas/wegweiser/internal/filter"
	"github.com/lotas/wegweiser/internal/pins"
	"github.com/lotas/wegweiser/internal/types"
	"github.com/lotas/wegweiser/internal/view"
)

// Server wraps the MCP server with directory tools.
type Server struct {
	mcp     *server.MCPServer
	dataset []types.Category
	store   *pins.Store

	mu     sync.Mutex
	pinned pins.Set
}

// New creates a new MCP server with all tools registered. Pins are loaded
// from store once and written back on every toggle.
func New(dataset []types.Category, store *pins.Store, version string) *Server {
	s := &Server{dataset: dataset, store: store, pinned: store.Load()}

	s.mcp = server.NewMCPServer(
		"Wegweiser",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_sections",
		mcp.WithDescription("Filter the resource directory. All search terms must appear "+
			"(case-insensitive) in a section's codes, titles, status, description or links."),
		mcp.WithString("query", mcp.Description("Space-separated search terms (empty for all)")),
		mcp.WithString("status", mcp.Description("Year to filter by, e.g. 2023, or \"all\"")),
		mcp.WithString("category", mcp.Description("Category code to restrict to, or \"all\"")),
		mcp.WithBoolean("pinned_only", mcp.Description("Only return pinned sections")),
	), s.searchSections)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List category codes and titles with their section counts."),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("list_years",
		mcp.WithDescription("List the years found in section statuses, newest first."),
	), s.listYears)

	s.mcp.AddTool(mcp.NewTool("global_totals",
		mcp.WithDescription("Directory-wide totals: sections, allocated sections, pins and progress."),
	), s.globalTotals)

	s.mcp.AddTool(mcp.NewTool("toggle_pin",
		mcp.WithDescription("Pin or unpin a section by its key (category code, dash, section code)."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Section key, e.g. A-A1")),
	), s.togglePin)

	s.mcp.AddResource(
		mcp.NewResource("wegweiser://anchors", "Navigation anchors",
			mcp.WithResourceDescription("Section key to category anchor id map."),
			mcp.WithMIMEType("application/json"),
		),
		s.readAnchorsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) currentPins() pins.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinned
}

func (s *Server) searchSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := types.FilterState{
		SearchTerm:     req.GetString("query", ""),
		StatusFilter:   req.GetString("status", types.FilterAll),
		CategoryFilter: req.GetString("category", types.FilterAll),
		ShowPinnedOnly: req.GetBool("pinned_only", false),
	}
	p := view.Project(s.dataset, f, s.currentPins())
	out, err := export.JSON(p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) listCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var lines []string
	for _, cat := range s.dataset {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%d", cat.Code, cat.Title, len(cat.Sections)))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no categories"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listYears(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	years := filter.AvailableYears(s.dataset)
	if len(years) == 0 {
		return mcp.NewToolResultText("no years found"), nil
	}
	return mcp.NewToolResultText(strings.Join(years, "\n")), nil
}

func (s *Server) globalTotals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	totals := analyzer.ComputeGlobalTotals(s.dataset, s.currentPins())
	out, _ := json.MarshalIndent(totals, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) togglePin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := view.Anchors(s.dataset)[key]; !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown section: %s", key)), nil
	}

	s.mu.Lock()
	s.pinned = s.store.Toggle(s.pinned, key)
	pinned := s.pinned.Has(key)
	s.mu.Unlock()

	if pinned {
		return mcp.NewToolResultText("pinned: " + key), nil
	}
	return mcp.NewToolResultText("unpinned: " + key), nil
}

func (s *Server) readAnchorsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.Marshal(view.Anchors(s.dataset))
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "wegweiser://anchors",
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
