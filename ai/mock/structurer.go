package mock

import (
	"context"
	"strings"

	"github.com/mxmarchal/neuraldocs/ai"
)

// MockStructurer is a test double for ai.Structurer.
// It allows custom behavior injection via function fields.
type MockStructurer struct {
	// StructureArticleFunc is called by StructureArticle if set.
	// If nil, uses default paragraph-splitting behavior.
	StructureArticleFunc func(ctx context.Context, url, text string) (*ai.StructuredArticle, error)

	callCount int
}

// NewMockStructurer creates a mock structurer with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockStructurer().
func NewMockStructurer() *MockStructurer {
	return &MockStructurer{}
}

// StructureArticle produces a simple structured article from text.
// Default behavior: the first line becomes the title and each blank-line
// separated paragraph becomes a section.
func (m *MockStructurer) StructureArticle(ctx context.Context, url, text string) (*ai.StructuredArticle, error) {
	m.callCount++

	if m.StructureArticleFunc != nil {
		return m.StructureArticleFunc(ctx, url, text)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return &ai.StructuredArticle{}, nil
	}

	paragraphs := strings.Split(text, "\n\n")
	structured := &ai.StructuredArticle{
		Sections: make([]ai.ArticleSection, 0, len(paragraphs)),
	}

	title, _, _ := strings.Cut(paragraphs[0], "\n")
	structured.Title = strings.TrimSpace(title)

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		structured.Sections = append(structured.Sections, ai.ArticleSection{Text: p})
	}

	return structured, nil
}

// CallCount returns the number of times StructureArticle was called.
func (m *MockStructurer) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockStructurer) Reset() {
	m.callCount = 0
	m.StructureArticleFunc = nil
}
