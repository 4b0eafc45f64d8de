package prompt

import (
	"fmt"
	"strings"

	"github.com/wirerag/ragcore/message"
	"github.com/wirerag/ragcore/retrieval"
)

// DefaultCharBudget bounds how many characters of numbered context the
// assembler will include before truncating with an ellipsis marker.
const DefaultCharBudget = 2048

const systemInstruction = "Answer the question using only the provided context. " +
	"If the context does not contain enough information to answer confidently, say so explicitly."

// AssemblerOptions configures Assemble.
type AssemblerOptions struct {
	CharBudget int
}

// AssemblerOption customizes AssemblerOptions.
type AssemblerOption func(*AssemblerOptions)

// WithCharBudget overrides the default character budget for the context
// block.
func WithCharBudget(n int) AssemblerOption {
	return func(o *AssemblerOptions) {
		if n > 0 {
			o.CharBudget = n
		}
	}
}

// Assemble builds the 2-message structure C11 sends to the LLM: a system
// instruction to answer only from context, and a user message containing a
// numbered context block (built from passages in order, stopping once the
// character budget is reached) followed by the question.
func Assemble(question string, passages []retrieval.Passage, opts ...AssemblerOption) []*message.Message {
	options := AssemblerOptions{CharBudget: DefaultCharBudget}
	for _, opt := range opts {
		opt(&options)
	}

	contextBlock := buildContextBlock(passages, options.CharBudget)

	userContent := contextBlock + "\n\nQuestion: " + question

	return []*message.Message{
		message.NewMessage(message.RoleSystem, systemInstruction),
		message.NewMessage(message.RoleUser, userContent),
	}
}

func buildContextBlock(passages []retrieval.Passage, charBudget int) string {
	var b strings.Builder
	used := 0
	for i, p := range passages {
		entry := fmt.Sprintf("[%d] %s\n", i+1, p.Chunk.Content)
		if used+len(entry) > charBudget {
			remaining := charBudget - used
			if remaining > 0 {
				b.WriteString(entry[:remaining])
			}
			b.WriteString("...")
			break
		}
		b.WriteString(entry)
		used += len(entry)
	}
	return b.String()
}
