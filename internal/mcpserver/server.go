// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes awesome-list queries as tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/awesomeview/internal/collection"
	"github.com/starford/awesomeview/internal/filter"
	"github.com/starford/awesomeview/internal/library"
	"github.com/starford/awesomeview/internal/models"
)

// FormatURI is the resource describing the awesome-list format.
const FormatURI = "awesome://format"

const defaultLimit = 50

// Library is the part of *library.Library the tools use.
type Library interface {
	Collection() *collection.Collection
	LastReport() *library.Report
	Regenerate() (*library.Report, error)
}

// Status is the cache_status result.
type Status struct {
	CachePath     string          `json:"cache_path"`
	Staleness     string          `json:"staleness"`
	Stale         bool            `json:"stale"`
	TotalItems    int             `json:"total_items"`
	ExcludedItems int             `json:"excluded_items"`
	Topics        int             `json:"topics"`
	Tags          int             `json:"tags"`
	Report        *library.Report `json:"report"`
}

// StatusFunc reports whether the cache is stale right now.
type StatusFunc func() (path, strategy string, stale bool)

// Server wraps the MCP server with awesome-list tools.
type Server struct {
	mcp    *server.MCPServer
	lib    Library
	status StatusFunc
}

// New creates a new MCP server with all tools registered. status may be nil.
func New(lib Library, version string, status StatusFunc) *Server {
	s := &Server{lib: lib, status: status}

	s.mcp = server.NewMCPServer(
		"awesome-list-view",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_items",
		mcp.WithDescription("Search the curated items. The query is a case-insensitive substring of the "+
			"title, description or tags. Topics combine with OR; tags combine with the given mode."),
		mcp.WithString("query", mcp.Description("Substring to search for (empty for all)")),
		mcp.WithArray("topics", mcp.Description("Topics to keep"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithArray("tags", mcp.Description("Tags to keep"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("mode", mcp.Description("How several tags combine"), mcp.Enum("or", "and")),
		mcp.WithNumber("limit", mcp.Description("Maximum items to return (default 50)")),
	), s.searchItems)

	s.mcp.AddTool(mcp.NewTool("get_item",
		mcp.WithDescription("Get one item by id, including its description, link, tags and source location."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Item id from search_items")),
	), s.getItem)

	s.mcp.AddTool(mcp.NewTool("list_topics",
		mcp.WithDescription("List topics with item counts."),
		mcp.WithString("query", mcp.Description("Only count items matching this substring")),
	), s.listTopics)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List tags with item counts."),
		mcp.WithString("query", mcp.Description("Only count items matching this substring")),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("cache_status",
		mcp.WithDescription("Report the cache location, whether it is stale and the last load report."),
	), s.cacheStatus)

	s.mcp.AddTool(mcp.NewTool("regenerate_cache",
		mcp.WithDescription("Re-parse every source file, rewrite the cache and reload the items."),
	), s.regenerateCache)

	// Resource: awesome-list format.
	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Awesome List Format",
			mcp.WithResourceDescription("How items, topics and tags are read from the Markdown sources."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) engine(req mcp.CallToolRequest) (*filter.Engine, filter.Unknown, error) {
	mode, err := filter.ParseTagMode(req.GetString("mode", ""))
	if err != nil {
		return nil, filter.Unknown{}, err
	}
	e := filter.New(s.lib.Collection())
	e.SetSearchQuery(req.GetString("query", ""))
	e.SetTagFilterMode(mode)
	unknown := e.Select(req.GetStringSlice("topics", nil), req.GetStringSlice("tags", nil))
	return e, unknown, nil
}

type searchResult struct {
	Status  string          `json:"status"`
	Shown   int             `json:"shown"`
	Items   []models.Item   `json:"items"`
	Ignored *filter.Unknown `json:"ignored,omitempty"`
}

func (s *Server) searchItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, unknown, err := s.engine(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	items := e.FilteredItems()
	res := searchResult{Status: e.Status(), Shown: len(items), Items: items}
	if !unknown.Empty() {
		res.Status += " (ignored " + unknown.String() + ")"
		res.Ignored = &unknown
	}
	if len(res.Items) > limit {
		res.Items = res.Items[:limit]
	}
	return jsonResult(res)
}

func (s *Server) getItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, ok := s.lib.Collection().Item(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: item %d", id)), nil
	}
	return jsonResult(it)
}

func (s *Server) listTopics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, _, err := s.engine(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(e.TopicList())
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, _, err := s.engine(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(e.TagList())
}

func (s *Server) cacheStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c := s.lib.Collection()
	st := Status{
		TotalItems:    c.TotalCount(),
		ExcludedItems: c.ExcludedCount(),
		Topics:        len(c.Topics()),
		Tags:          len(c.Tags()),
		Report:        s.lib.LastReport(),
	}
	if s.status != nil {
		st.CachePath, st.Staleness, st.Stale = s.status()
	}
	return jsonResult(st)
}

func (s *Server) regenerateCache(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.lib.Regenerate()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     FormatContract,
		},
	}, nil
}
