package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/knowledge"
)

// handleIngestDocument adds a piece of content to the knowledge base.
func (s *Server) handleIngestDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := request.GetString("text", "")
	url := request.GetString("url", "")

	if text == "" && url == "" {
		return mcp.NewToolResultError("provide either text or url"), nil
	}
	if text != "" && url != "" {
		return mcp.NewToolResultError("provide either text or url, not both"), nil
	}

	req := knowledge.IngestRequest{
		Source:     text,
		Kind:       knowledge.SourceText,
		Title:      request.GetString("title", ""),
		ProposalID: request.GetString("proposal_id", ""),
	}
	if url != "" {
		req.Source = url
		req.Kind = knowledge.SourceURL
	}

	result, err := s.ingestor.Ingest(ctx, req)
	if err != nil {
		if errors.Is(err, knowledge.ErrNoContent) {
			return mcp.NewToolResultError("no usable content found in the given source"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("ingestion failed: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Stored document %s with %d chunk(s).", result.DocumentID, len(result.ChunkIDs))
	if !result.Searchable {
		sb.WriteString(" The document is not searchable yet; run `towerbot reindex` to repair it.")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleAskKnowledge answers a question grounded in the knowledge base.
func (s *Server) handleAskKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	proposalID := request.GetString("proposal_id", "")

	answer, err := s.answerer.Answer(ctx, question, proposalID)
	if err != nil {
		switch {
		case errors.Is(err, knowledge.ErrNoRelevantContent),
			errors.Is(err, knowledge.ErrNoUsableText),
			errors.Is(err, knowledge.ErrQuestionEmbedding):
			return mcp.NewToolResultText(knowledge.UserMessage(err)), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("answering failed: %v", err)), nil
		}
	}

	return mcp.NewToolResultText(answer.Text), nil
}
