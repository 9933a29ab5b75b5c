package mcp

import "github.com/mark3labs/mcp-go/mcp"

// ingestDocumentTool defines the ingest_document MCP tool.
var ingestDocumentTool = mcp.NewTool("ingest_document",
	mcp.WithDescription("Add a document to the community knowledge base. Provide either raw text or a URL to fetch."),
	mcp.WithString("text",
		mcp.Description("Raw text content to ingest"),
	),
	mcp.WithString("url",
		mcp.Description("URL of a page to fetch and ingest"),
	),
	mcp.WithString("title",
		mcp.Description("Human-readable title for the document"),
	),
	mcp.WithString("proposal_id",
		mcp.Description("Proposal to scope the document to"),
	),
)

// askKnowledgeTool defines the ask_knowledge MCP tool.
var askKnowledgeTool = mcp.NewTool("ask_knowledge",
	mcp.WithDescription("Ask a question answered from the community knowledge base. The answer cites its source documents."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Natural language question"),
	),
	mcp.WithString("proposal_id",
		mcp.Description("Prefer documents scoped to this proposal; falls back to a global search"),
	),
)
