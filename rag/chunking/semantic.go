package chunking

import (
	"context"
	"strings"

	"github.com/wirerag/ragcore/rag/document"
)

// SemanticOptions configures a SemanticChunker.
type SemanticOptions struct {
	ChunkSize int // maximum characters per chunk
	Overlap   int // characters of trailing context carried into the next chunk
}

// SemanticOption customizes SemanticOptions.
type SemanticOption func(*SemanticOptions)

// WithChunkSize sets the target maximum chunk length in characters.
func WithChunkSize(n int) SemanticOption {
	return func(o *SemanticOptions) {
		if n >= 1 {
			o.ChunkSize = n
		}
	}
}

// WithChunkOverlap sets how many trailing characters of the previous chunk
// are carried forward into the next one.
func WithChunkOverlap(n int) SemanticOption {
	return func(o *SemanticOptions) {
		if n >= 0 {
			o.Overlap = n
		}
	}
}

var _ Chunker = (*SemanticChunker)(nil)

// SemanticChunker splits documents on paragraph boundaries, falling back to
// sentence boundaries and then a hard character cut when a unit still
// exceeds ChunkSize. Each chunk after the first is prefixed with the last
// Overlap characters of its predecessor.
type SemanticChunker struct {
	chunkSize int
	overlap   int
}

// NewSemanticChunker builds a SemanticChunker with the given options.
// Defaults match the common knowledge-base sizing of 512 characters with a
// 50-character overlap; ChunkSize must be >= 1 and Overlap must be in
// [0, ChunkSize).
func NewSemanticChunker(opts ...SemanticOption) *SemanticChunker {
	cfg := &SemanticOptions{
		ChunkSize: 512,
		Overlap:   50,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = 1
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = 0
	}
	return &SemanticChunker{chunkSize: cfg.ChunkSize, overlap: cfg.Overlap}
}

// Chunk splits doc.Content into bounded, overlapping passages.
func (c *SemanticChunker) Chunk(ctx context.Context, doc document.Document) ([]document.Chunk, error) {
	text := strings.ReplaceAll(normalizeContent(doc), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	units := splitIntoUnits(text, c.chunkSize)
	units = applyCharOverlap(units, c.overlap)

	chunks := make([]document.Chunk, 0, len(units))
	ordinal := 0
	for _, u := range units {
		content := strings.TrimSpace(u)
		if content == "" {
			continue
		}
		chunks = append(chunks, document.Chunk{
			ID:         document.GenChunkID("", doc.ID),
			DocumentID: doc.ID,
			Content:    content,
			Ordinal:    ordinal,
			TokenCount: len([]rune(content)),
			Metadata:   cloneMetadata(doc.Metadata),
		})
		ordinal++
	}
	return chunks, nil
}

// splitIntoUnits produces raw, non-overlapping chunk bodies: paragraphs
// merged up to chunkSize, oversized paragraphs split at sentence
// boundaries, and oversized sentences hard-cut at chunkSize characters.
func splitIntoUnits(text string, chunkSize int) []string {
	paragraphs := splitParagraphsOn(text, "\n\n")
	var units []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			units = append(units, current.String())
			current.Reset()
		}
	}

	for _, para := range paragraphs {
		if len([]rune(para)) > chunkSize {
			flush()
			units = append(units, splitParagraphBySentence(para, chunkSize)...)
			continue
		}
		if current.Len() > 0 && len([]rune(current.String()))+2+len([]rune(para)) > chunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return units
}

func splitParagraphsOn(text, sep string) []string {
	raw := strings.Split(text, sep)
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitParagraphBySentence(para string, chunkSize int) []string {
	sentences := splitSentences(para)
	var out []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			out = append(out, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, sent := range sentences {
		if len([]rune(sent)) > chunkSize {
			flush()
			out = append(out, hardCut(sent, chunkSize)...)
			continue
		}
		if current.Len() > 0 && len([]rune(current.String()))+1+len([]rune(sent)) > chunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
	}
	flush()

	if len(out) == 0 && len(para) > 0 {
		out = hardCut(para, chunkSize)
	}
	return out
}

// splitSentences splits on '.', '!', '?' boundaries, keeping the delimiter
// with the preceding text.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}
	return sentences
}

// hardCut splits text into fixed-size rune windows as a last resort.
func hardCut(text string, chunkSize int) []string {
	runes := []rune(text)
	if chunkSize < 1 {
		chunkSize = 1
	}
	var out []string
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// applyCharOverlap prefixes each chunk (after the first) with the last
// overlap characters of its predecessor's original content.
func applyCharOverlap(units []string, overlap int) []string {
	if overlap <= 0 || len(units) <= 1 {
		return units
	}
	out := make([]string, len(units))
	out[0] = units[0]
	for i := 1; i < len(units); i++ {
		tail := lastNRunes(units[i-1], overlap)
		if tail == "" {
			out[i] = units[i]
			continue
		}
		out[i] = tail + " " + units[i]
	}
	return out
}

func lastNRunes(text string, n int) string {
	runes := []rune(strings.TrimSpace(text))
	if n >= len(runes) {
		return string(runes)
	}
	if n <= 0 {
		return ""
	}
	return string(runes[len(runes)-n:])
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
