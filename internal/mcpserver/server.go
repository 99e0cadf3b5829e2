// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Raido search tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/cache"
	"github.com/starford/raido/internal/search"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp    *server.MCPServer
	engine *search.Engine
	caches *cache.Service
}

// New creates a new MCP server with all Raido tools registered.
func New(engine *search.Engine, caches *cache.Service) *Server {
	s := &Server{engine: engine, caches: caches}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Search the knowledge graph with a hybrid free-text/boolean query. "+
			"Supports AND/OR composition and structured filters (property:key=value, date:today, "+
			"backlinks:\"Page\", templates:*). Read the raido://query-syntax resource or the "+
			"get_query_syntax tool for the full grammar."),
		mcp.WithString("query", mcp.Description("Query string; empty matches everything")),
		mcp.WithString("target", mcp.Description("One of: pages, blocks, templates, tasks, properties, both (default both)")),
		mcp.WithObject("scope", mcp.Description("Optional scope: namespace, journal, page_titles, tag")),
		mcp.WithObject("filter", mcp.Description("Optional attribute filters: length, properties, tags, timestamps, contains/exclude")),
		mcp.WithString("sort", mcp.Description("One of: relevance, created, updated, title, length (default relevance)")),
		mcp.WithString("order", mcp.Description("asc or desc (default desc)")),
		mcp.WithNumber("limit", mcp.Description("Page size, 1-100 (default 20)")),
		mcp.WithString("cursor", mcp.Description("Continuation token from a previous result")),
	), s.search)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List all template pages discovered in the graph."),
	), s.listTemplates)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all pages whose content links to the specified page."),
		mcp.WithString("page", mcp.Required(), mcp.Description("Name of the page to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("invalidate_cache",
		mcp.WithDescription("Drop cached corpus data after an external edit. "+
			"Invalidating a page also drops the page and template listings and all cached result sets."),
		mcp.WithString("kind", mcp.Required(), mcp.Description(`"page" or "all"`)),
		mcp.WithString("id", mcp.Description("Page name, required when kind is \"page\"")),
	), s.invalidateCache)

	s.mcp.AddTool(mcp.NewTool("get_query_syntax",
		mcp.WithDescription("Returns the query grammar and filter reference. "+
			"Call this before composing non-trivial search queries."),
	), s.getQuerySyntax)

	// Resource: query syntax reference.
	s.mcp.AddResource(
		mcp.NewResource("raido://query-syntax", "Query Syntax Reference",
			mcp.WithResourceDescription("Grammar and filter forms accepted by the search tool."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readQuerySyntaxResource,
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

func (s *Server) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var sreq search.SearchRequest
	if err := json.Unmarshal(raw, &sreq); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid search arguments: %v", err)), nil
	}

	res, err := s.engine.ExecuteSearch(ctx, sreq)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTemplates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := s.engine.Templates(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(templates) == 0 {
		return mcp.NewToolResultText("no templates found"), nil
	}
	out, _ := json.MarshalIndent(templates, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := req.RequireString("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.engine.Backlinks(ctx, page)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	var names []string
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) invalidateCache(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	switch kind {
	case "all":
		s.caches.InvalidateAll()
		return mcp.NewToolResultText("invalidated: all"), nil
	case "page":
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required when kind is \"page\""), nil
		}
		s.caches.InvalidatePage(id)
		return mcp.NewToolResultText(fmt.Sprintf("invalidated: page %s", id)), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q (want \"page\" or \"all\")", kind)), nil
}

func (s *Server) getQuerySyntax(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(QuerySyntaxReference), nil
}

func (s *Server) readQuerySyntaxResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://query-syntax",
			MIMEType: "text/markdown",
			Text:     QuerySyntaxReference,
		},
	}, nil
}
