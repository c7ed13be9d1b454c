package ai

import (
	"context"
	"errors"
)

// ErrMalformedOutput indicates the language model returned output that could
// not be parsed as the expected schema even after repair retries. Retrying
// the call will not help; callers should treat this as a content failure
// rather than coercing a silently-empty result.
var ErrMalformedOutput = errors.New("malformed model output")

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ArticleSection is one titled block of article body text as the structurer
// reports it.
type ArticleSection struct {
	// Heading is the section title, possibly empty for lead paragraphs.
	Heading string

	// Text is the section body text.
	Text string
}

// StructuredArticle is the structurer's view of one article.
type StructuredArticle struct {
	// Title is the article title as identified by the model.
	Title string

	// Sections holds the article body split into ordered sections.
	Sections []ArticleSection
}

// Structurer turns clean article text into a structured record using a
// language model. Implementations must be thread-safe for concurrent use.
type Structurer interface {
	// StructureArticle analyzes plain article text and returns its title and
	// ordered body sections. Output that cannot be parsed as the expected
	// schema returns ErrMalformedOutput; transport failures are returned
	// unwrapped so callers can classify them as retryable.
	StructureArticle(ctx context.Context, url, text string) (*StructuredArticle, error)
}

// Answerer produces a natural-language answer to a question given retrieved
// context. Implementations must be thread-safe for concurrent use.
type Answerer interface {
	// Answer generates an answer grounded in the supplied context block.
	// Returns an error if the generation fails; no fallback answer is
	// fabricated locally.
	Answer(ctx context.Context, question, context string) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder, Structurer, and
// Answerer instances, ensuring they share configuration appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Structurer returns the article structuring service.
	// The returned Structurer is safe for concurrent use.
	Structurer() Structurer

	// Answerer returns the answer generation service.
	// The returned Answerer is safe for concurrent use.
	Answerer() Answerer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
