package summarizer

import (
	"context"

	"github.com/wirerag/ragcore/rag/document"
)

type Summarizer interface {
	SummarizeChunks(ctx context.Context, chunks []document.Chunk) ([]document.Summary, error)
}
