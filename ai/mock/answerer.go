package mock

import (
	"context"
	"fmt"
)

// MockAnswerer is a test double for ai.Answerer.
// It allows custom behavior injection via function fields.
type MockAnswerer struct {
	// AnswerFunc is called by Answer if set.
	// If nil, uses default canned-answer behavior.
	AnswerFunc func(ctx context.Context, question, contextBlock string) (string, error)

	callCount int
}

// NewMockAnswerer creates a mock answerer with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockAnswerer().
func NewMockAnswerer() *MockAnswerer {
	return &MockAnswerer{}
}

// Answer returns a deterministic canned answer referencing the question.
func (m *MockAnswerer) Answer(ctx context.Context, question, contextBlock string) (string, error) {
	m.callCount++

	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, question, contextBlock)
	}

	return fmt.Sprintf("Mock answer to: %s", question), nil
}

// CallCount returns the number of times Answer was called.
func (m *MockAnswerer) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockAnswerer) Reset() {
	m.callCount = 0
	m.AnswerFunc = nil
}
