// Package mcp exposes the knowledge base to AI agents over the Model
// Context Protocol.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/knowledge"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Ingestor is the slice of the ingestion coordinator the tools need.
type Ingestor interface {
	Ingest(ctx context.Context, req knowledge.IngestRequest) (*knowledge.IngestResult, error)
}

// Answerer answers questions from the knowledge base.
type Answerer interface {
	Answer(ctx context.Context, question, proposalID string) (*knowledge.Answer, error)
}

// Server wraps an MCP server that exposes knowledge base tools.
type Server struct {
	ingestor Ingestor
	answerer Answerer
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(ingestor Ingestor, answerer Answerer) *Server {
	s := &Server{
		ingestor: ingestor,
		answerer: answerer,
	}

	s.mcp = server.NewMCPServer(
		"towerbot",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestDocumentTool, s.handleIngestDocument)
	s.mcp.AddTool(askKnowledgeTool, s.handleAskKnowledge)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
