package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/wirerag/ragcore/bm25"
	"github.com/wirerag/ragcore/config"
	"github.com/wirerag/ragcore/rag/chunking"
	"github.com/wirerag/ragcore/rag/document"
	"github.com/wirerag/ragcore/rag/embedder"
	"github.com/wirerag/ragcore/vectorindex"
)

// MemoryChunkStore is the simplest ChunkStore: an in-memory map guarded by a
// mutex, owned by a Corpus alongside its two index branches.
type MemoryChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]document.Chunk
}

// NewMemoryChunkStore constructs an empty store.
func NewMemoryChunkStore() *MemoryChunkStore {
	return &MemoryChunkStore{chunks: make(map[string]document.Chunk)}
}

// Put stores or replaces a chunk.
func (s *MemoryChunkStore) Put(c document.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[c.ID] = c
}

// Chunk implements ChunkStore.
func (s *MemoryChunkStore) Chunk(id string) (document.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	return c, ok
}

// Count returns the number of stored chunks.
func (s *MemoryChunkStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

var _ ChunkStore = (*MemoryChunkStore)(nil)

// Corpus wires a chunker and embedder ahead of the lexical/semantic index
// branches so a caller can ingest whole documents (C2/C3) and immediately
// query them through a Retriever (C6), without having to drive bm25/
// vectorindex/MemoryChunkStore individually.
type Corpus struct {
	chunker chunking.Chunker
	embed   embedder.Embedder
	bm25    *bm25.Index
	vec     *vectorindex.Index
	store   *MemoryChunkStore
}

// NewCorpus constructs a Corpus over fresh, empty index branches.
func NewCorpus(chunker chunking.Chunker, embed embedder.Embedder) *Corpus {
	return &Corpus{
		chunker: chunker,
		embed:   embed,
		bm25:    bm25.New(),
		vec:     vectorindex.New(),
		store:   NewMemoryChunkStore(),
	}
}

// NewCorpusFromConfig builds the chunker named by cfg.ChunkStrategy (C2's
// semantic chunker by default) and wires it into a fresh Corpus.
func NewCorpusFromConfig(cfg config.Config, embed embedder.Embedder) (*Corpus, error) {
	chunker, err := chunking.New(cfg.ChunkStrategy, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("build chunker: %w", err)
	}
	return NewCorpus(chunker, embed), nil
}

// Ingest splits doc into chunks, embeds each one, and adds them to both
// index branches and the chunk store. It returns the chunk ids written.
func (c *Corpus) Ingest(ctx context.Context, doc document.Document) ([]string, error) {
	chunks, err := c.chunker.Chunk(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunk document %s: %w", doc.ID, err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := c.embed.EmbedDocument(ctx, chunk)
		if err != nil {
			return ids, fmt.Errorf("embed chunk %s: %w", chunk.ID, err)
		}
		c.bm25.Add(chunk)
		c.vec.Add(chunk.ID, vec, chunk.Metadata)
		c.store.Put(chunk)
		ids = append(ids, chunk.ID)
	}
	return ids, nil
}

// IngestAll is the Ingest external interface (§6): it clears the backing
// indices first when reset is true, then ingests every document in order,
// returning the total number of chunks inserted across the whole batch. A
// failure partway through still reports the chunks written so far alongside
// the error.
func (c *Corpus) IngestAll(ctx context.Context, docs []document.Document, reset bool) (insertedCount int, err error) {
	if reset {
		c.bm25.Clear()
		c.vec.Clear()
		c.store = NewMemoryChunkStore()
	}

	for _, doc := range docs {
		ids, ierr := c.Ingest(ctx, doc)
		insertedCount += len(ids)
		if ierr != nil {
			return insertedCount, fmt.Errorf("ingest document %s: %w", doc.ID, ierr)
		}
	}
	return insertedCount, nil
}

// Status reports VectorStoreStatus (§6) for the corpus's semantic branch.
func (c *Corpus) Status() Status {
	return c.Retriever().Status()
}

// Retriever builds a Retriever over the corpus's current index state. Safe
// to call repeatedly; it always reflects the latest ingested chunks since
// the branches and store are mutated in place.
func (c *Corpus) Retriever() *Retriever {
	return New(c.bm25, c.vec, c.store, c.embed)
}

// Count returns how many chunks are currently stored.
func (c *Corpus) Count() int {
	return c.store.Count()
}
