// Package mcpadapter exposes query and ingest as MCP tools, so an MCP
// client (an IDE, an agent harness) can drive the retrieval/synthesis stack
// the same way it would any other tool server.
package mcpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wirerag/ragcore/orchestrator"
	"github.com/wirerag/ragcore/rag/document"
	"github.com/wirerag/ragcore/recordstore"
	"github.com/wirerag/ragcore/retrieval"
)

func feedbackRecord(args FeedbackArgs) recordstore.FeedbackRecord {
	return recordstore.FeedbackRecord{
		ResultID: args.ResultID,
		Kind:     recordstore.FeedbackKind(args.Kind),
		Value:    args.Value,
		Comment:  args.Comment,
	}
}

// QueryArgs defines the arguments for the rag_query tool.
type QueryArgs struct {
	Question   string `json:"question" jsonschema_description:"Natural-language question to answer"`
	MaxResults int    `json:"max_results,omitempty" jsonschema_description:"Maximum passages to retrieve (default: the configured final_top_k, 5 unless changed)"`
	Variant    string `json:"variant,omitempty" jsonschema_description:"Force a retrieval variant: baseline, reranked, hybrid, or finetuned"`
}

// IngestArgs defines the arguments for the rag_ingest tool.
type IngestArgs struct {
	ID          string `json:"id" jsonschema_description:"Stable identifier for this document"`
	Title       string `json:"title,omitempty" jsonschema_description:"Human-readable document title"`
	Content     string `json:"content" jsonschema_description:"Raw document content"`
	ContentType string `json:"content_type,omitempty" jsonschema_description:"Set to 'html' to strip tags before chunking"`
	Source      string `json:"source,omitempty" jsonschema_description:"Origin of the document (URL, file path, etc.)"`
}

// FeedbackArgs defines the arguments for the rag_feedback tool.
type FeedbackArgs struct {
	ResultID string  `json:"result_id" jsonschema_description:"Identifier of a previously returned answer"`
	Kind     string  `json:"kind" jsonschema_description:"thumbs_up, thumbs_down, or rating"`
	Value    float64 `json:"value,omitempty" jsonschema_description:"Rating value when kind is 'rating'"`
	Comment  string  `json:"comment,omitempty" jsonschema_description:"Optional free-text comment"`
}

// Handlers wraps the orchestrator and corpus and provides MCP tool handlers.
type Handlers struct {
	orch   *orchestrator.Orchestrator
	corpus *retrieval.Corpus
	logger *slog.Logger
}

// NewHandlers constructs Handlers over a running orchestrator and corpus.
func NewHandlers(orch *orchestrator.Orchestrator, corpus *retrieval.Corpus, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{orch: orch, corpus: corpus, logger: logger}
}

// Query handles the rag_query tool call: runs the full synthesis flow and
// returns the answer text plus a compact passage summary.
func (h *Handlers) Query(ctx context.Context, req *mcp.CallToolRequest, args QueryArgs) (*mcp.CallToolResult, any, error) {
	question := strings.TrimSpace(args.Question)
	if question == "" {
		h.logger.Error("rag_query: question is required")
		return nil, nil, fmt.Errorf("question is required")
	}

	h.logger.Debug("rag_query: running", "question", question, "max_results", args.MaxResults)

	answer := h.orch.Run(ctx, orchestrator.Request{
		Question:     question,
		MaxResults:   args.MaxResults,
		ForceVariant: retrieval.Variant(args.Variant),
	})

	if answer.Status != orchestrator.StatusOK {
		h.logger.Error("rag_query: failed", "error", answer.ErrorMessage)
		return nil, nil, fmt.Errorf("query failed: %s", answer.ErrorMessage)
	}

	h.logger.Info("rag_query: success",
		"question", question,
		"passages", len(answer.Passages),
		"confidence", answer.Confidence,
		"cache_hit", answer.CacheHit,
	)

	var sb strings.Builder
	sb.WriteString(answer.Text)
	sb.WriteString(fmt.Sprintf("\n\n(confidence: %.2f, variant: %s, passages: %d, cache_hit: %v)",
		answer.Confidence, answer.Variant, len(answer.Passages), answer.CacheHit))

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: sb.String()}},
	}, answer, nil
}

// Ingest handles the rag_ingest tool call: chunks, embeds, and indexes a
// document so subsequent rag_query calls can retrieve it.
func (h *Handlers) Ingest(ctx context.Context, req *mcp.CallToolRequest, args IngestArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.ID) == "" {
		h.logger.Error("rag_ingest: id is required")
		return nil, nil, fmt.Errorf("id is required")
	}
	if strings.TrimSpace(args.Content) == "" {
		h.logger.Error("rag_ingest: content is required")
		return nil, nil, fmt.Errorf("content is required")
	}

	h.logger.Debug("rag_ingest: ingesting", "id", args.ID, "content_type", args.ContentType)

	doc := document.Document{
		ID:          args.ID,
		Title:       args.Title,
		Content:     args.Content,
		ContentType: args.ContentType,
		Source:      args.Source,
	}

	ids, err := h.corpus.Ingest(ctx, doc)
	if err != nil {
		h.logger.Error("rag_ingest: failed", "id", args.ID, "error", err)
		return nil, nil, err
	}

	h.logger.Info("rag_ingest: success", "id", args.ID, "chunks", len(ids))

	msg := fmt.Sprintf("Indexed document %q into %d chunks (corpus now holds %d chunks total).", args.ID, len(ids), h.corpus.Count())
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}, map[string]any{"chunk_ids": ids}, nil
}

// StatusArgs defines the (empty) arguments for the rag_status tool.
type StatusArgs struct{}

// Status handles the rag_status tool call: reports VectorStoreStatus (§6)
// for the corpus's semantic branch.
func (h *Handlers) Status(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	st := h.corpus.Status()
	msg := fmt.Sprintf("status: %s, document_count: %d, search_working: %v", st.State, st.DocumentCount, st.SearchWorking)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}, st, nil
}

// Feedback handles the rag_feedback tool call: records user feedback on a
// previously returned answer, when a record store is attached to the
// orchestrator. A no-op otherwise.
func (h *Handlers) Feedback(ctx context.Context, req *mcp.CallToolRequest, args FeedbackArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.ResultID) == "" {
		return nil, nil, fmt.Errorf("result_id is required")
	}
	if strings.TrimSpace(args.Kind) == "" {
		return nil, nil, fmt.Errorf("kind is required")
	}

	err := h.orch.SubmitFeedback(ctx, feedbackRecord(args))
	if err != nil {
		h.logger.Error("rag_feedback: failed", "result_id", args.ResultID, "error", err)
		return nil, nil, err
	}

	h.logger.Info("rag_feedback: recorded", "result_id", args.ResultID, "kind", args.Kind)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "feedback recorded"}},
	}, nil, nil
}
