package mcpadapter

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wirerag/ragcore/orchestrator"
	"github.com/wirerag/ragcore/retrieval"
)

const (
	serverName    = "ragcore"
	serverVersion = "v0.1.0"
)

// NewServer builds an MCP server exposing rag_query, rag_ingest,
// rag_feedback, and rag_status over orch/corpus. Callers pick the transport (StdioTransport
// for a subprocess server, a streamable HTTP transport for a network one)
// and call Run themselves.
func NewServer(orch *orchestrator.Orchestrator, corpus *retrieval.Corpus, logger *slog.Logger) *mcp.Server {
	handlers := NewHandlers(orch, corpus, logger)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, &mcp.ServerOptions{
		Instructions: "Use rag_ingest to index a document, then rag_query to answer questions against the indexed corpus. Use rag_feedback to rate a prior answer.",
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rag_query",
		Description: "Answer a question against the indexed corpus using hybrid retrieval and synthesis. Returns the answer plus confidence and passage count.",
	}, handlers.Query)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rag_ingest",
		Description: "Chunk, embed, and index a document so subsequent rag_query calls can retrieve it.",
	}, handlers.Ingest)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rag_feedback",
		Description: "Record user feedback (thumbs up/down or a numeric rating) on a previously returned answer.",
	}, handlers.Feedback)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rag_status",
		Description: "Report the vector store's health: healthy, empty, degraded, or error, plus document count.",
	}, handlers.Status)

	return server
}

// Serve runs server over the stdio transport until the client disconnects
// or ctx is cancelled.
func Serve(ctx context.Context, orch *orchestrator.Orchestrator, corpus *retrieval.Corpus, logger *slog.Logger) error {
	server := NewServer(orch, corpus, logger)
	return server.Run(ctx, &mcp.StdioTransport{})
}
