package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/llm"
)

// Searcher is the slice of Store the retriever needs.
type Searcher interface {
	SearchSimilar(ctx context.Context, embedding []float32, topK int) ([]Match, error)
}

// RetrievedContext is the material handed to the answer step: the chunks
// nearest to the question, in relevance order.
type RetrievedContext struct {
	Question string
	Matches  []Match
}

// Empty reports whether the search found nothing at all.
func (r RetrievedContext) Empty() bool {
	return len(r.Matches) == 0
}

// Joined concatenates the matched chunk contents into one prompt block.
func (r RetrievedContext) Joined() string {
	parts := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// RetrievalError wraps failures while embedding the question or querying
// the store. An empty result set is not an error.
type RetrievalError struct {
	Question string
	Err      error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve context for %q: %v", e.Question, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Retriever turns a natural-language question into a set of relevant
// document chunks.
type Retriever struct {
	embedder llm.Embedder
	searcher Searcher
	topK     int
}

func NewRetriever(embedder llm.Embedder, searcher Searcher, topK int) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{embedder: embedder, searcher: searcher, topK: topK}
}

// Retrieve embeds the question and returns the nearest stored chunks.
func (r *Retriever) Retrieve(ctx context.Context, question string) (RetrievedContext, error) {
	embeddings, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return RetrievedContext{}, &RetrievalError{Question: question, Err: err}
	}
	if len(embeddings) != 1 {
		return RetrievedContext{}, &RetrievalError{Question: question, Err: fmt.Errorf("expected 1 embedding, got %d", len(embeddings))}
	}

	matches, err := r.searcher.SearchSimilar(ctx, embeddings[0], r.topK)
	if err != nil {
		return RetrievedContext{}, &RetrievalError{Question: question, Err: err}
	}
	return RetrievedContext{Question: question, Matches: matches}, nil
}
