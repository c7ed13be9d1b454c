// Copyright 2025 The neuraldocs Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mxmarchal/neuraldocs/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Structurer implements ai.Structurer using OpenAI-compatible chat APIs.
type Structurer struct {
	client llms.Model
	logger *slog.Logger
}

// section is an internal type used for JSON unmarshaling.
// It matches the structure requested from the LLM.
type section struct {
	Heading string `json:"heading"`
	Text    string `json:"text"`
}

// article is the wrapper structure for the LLM's JSON response.
type article struct {
	Title    string    `json:"title"`
	Sections []section `json:"sections"`
}

// newStructurer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newStructurer(config *ai.Config) (*Structurer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.StructurerModel),
	)
	if err != nil {
		return nil, err
	}

	return &Structurer{
		client: client,
		logger: slog.Default().With("component", "openai-structurer"),
	}, nil
}

// NewStructurer creates a new structurer using the provided configuration.
//
// Returns ai.Structurer interface to enforce abstraction.
func NewStructurer(config *ai.Config) (ai.Structurer, error) {
	return newStructurer(config)
}

// StructureArticle structures plain article text into a title and ordered
// sections using an LLM. Malformed model output is retried with JSON repair
// a bounded number of times before failing with ai.ErrMalformedOutput.
func (s *Structurer) StructureArticle(ctx context.Context, url, text string) (*ai.StructuredArticle, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(structuringSystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildStructuringPrompt(url, text)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result article
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := s.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			s.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			s.logger.Warn("no choices returned from model")
			return nil, fmt.Errorf("%w: empty response", ai.ErrMalformedOutput)
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			s.logger.Warn("error parsing structurer response",
				"attempt", attempt+1,
				"url", url,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		s.logger.Error("failed to parse structurer response after retries", "url", url, "err", lastErr)
		return nil, fmt.Errorf("%w: %v", ai.ErrMalformedOutput, lastErr)
	}

	structured := &ai.StructuredArticle{
		Title:    strings.TrimSpace(result.Title),
		Sections: make([]ai.ArticleSection, 0, len(result.Sections)),
	}
	for _, sec := range result.Sections {
		if strings.TrimSpace(sec.Text) == "" {
			continue
		}
		structured.Sections = append(structured.Sections, ai.ArticleSection{
			Heading: strings.TrimSpace(sec.Heading),
			Text:    strings.TrimSpace(sec.Text),
		})
	}

	s.logger.Debug("structured article",
		"url", url,
		"title", structured.Title,
		"sections", len(structured.Sections))

	return structured, nil
}
