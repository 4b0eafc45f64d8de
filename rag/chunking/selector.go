package chunking

import "fmt"

// Semantic and Markdown name the two chunking strategies a Corpus can be
// configured to use.
const (
	StrategySemantic = "semantic"
	StrategyMarkdown = "markdown"
)

// New selects a Chunker by strategy name, sizing it from chunkSize/overlap.
// An empty strategy defaults to "semantic", the §4.2 paragraph->sentence->
// hard-cut chunker. "markdown" selects the heading-aware SimpleChunker
// instead, sized in tokens via a SimpleTokenizer rather than characters.
func New(strategy string, chunkSize, overlap int) (Chunker, error) {
	switch strategy {
	case "", StrategySemantic:
		return NewSemanticChunker(WithChunkSize(chunkSize), WithChunkOverlap(overlap)), nil
	case StrategyMarkdown:
		return NewSimpleChunker(WithMaxToken(chunkSize), WithOverlap(overlap)), nil
	default:
		return nil, fmt.Errorf("chunking: unknown strategy %q", strategy)
	}
}
