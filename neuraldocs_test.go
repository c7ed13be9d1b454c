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

package neuraldocs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxmarchal/neuraldocs/ai/mock"
	"github.com/mxmarchal/neuraldocs/config"
	"github.com/mxmarchal/neuraldocs/core"
)

type fakeFetcher struct {
	pages map[string][]byte
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	page, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("HTTP 404 for %s", url)
	}
	return page, nil
}

func articlePage(title, body string) []byte {
	return []byte(fmt.Sprintf(
		"<html><head><title>%s</title></head><body><article><p>%s</p></article></body></html>",
		title, body))
}

func newTestService(t *testing.T, pages map[string][]byte) *Service {
	t.Helper()

	svc, err := NewService(config.Default(),
		WithInMemory(),
		WithProvider(mock.NewMockProvider()),
		WithFetcher(&fakeFetcher{pages: pages}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, svc.Close())
	})
	return svc
}

func waitTerminal(t *testing.T, svc *Service, id string) *core.Job {
	t.Helper()

	var job *core.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = svc.TaskStatus(context.Background(), id)
		return err == nil && job.State.Terminal()
	}, 15*time.Second, 5*time.Millisecond)
	return job
}

func TestServiceIngestAndQuery(t *testing.T) {
	url := "https://example.com/go-gc"
	svc := newTestService(t, map[string][]byte{
		url: articlePage("Go GC", "The Go garbage collector is a concurrent mark and sweep collector."),
	})

	id, err := svc.Ingest(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, core.IDFromURL(url), id)

	result, err := svc.Query(context.Background(), "How does the Go garbage collector work?")
	require.NoError(t, err)
	assert.True(t, result.ContextFound)
	assert.NotEmpty(t, result.Answer)
	assert.Contains(t, result.Sources, url)
}

func TestServiceQueryEmptyCorpus(t *testing.T) {
	svc := newTestService(t, nil)

	result, err := svc.Query(context.Background(), "anything at all?")
	require.NoError(t, err)
	assert.False(t, result.ContextFound)
	assert.Equal(t, core.NoContextAnswer, result.Answer)
	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Sources)
}

func TestServiceEnqueueAndStatus(t *testing.T) {
	url := "https://example.com/queued"
	svc := newTestService(t, map[string][]byte{
		url: articlePage("Queued", "An article ingested through the scheduler."),
	})

	taskID, err := svc.EnqueueIngest(context.Background(), url)
	require.NoError(t, err)

	job := waitTerminal(t, svc, taskID)
	assert.Equal(t, core.JobStateSucceeded, job.State)
	assert.Equal(t, core.IDFromURL(url), job.DocumentId)
}

func TestServiceTaskStatusUnknown(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.TaskStatus(context.Background(), "never-issued")
	assert.ErrorIs(t, err, core.ErrUnknownJob)
}

func TestServiceEnqueueFailedJobReportsKind(t *testing.T) {
	svc := newTestService(t, nil) // every fetch 404s

	taskID, err := svc.EnqueueIngest(context.Background(), "https://example.com/missing")
	require.NoError(t, err)

	job := waitTerminal(t, svc, taskID)
	assert.Equal(t, core.JobStateFailed, job.State)
	assert.Equal(t, string(core.ErrorKindTransient), job.ErrorKind)
	assert.NotEmpty(t, job.ErrorMessage)
}

func TestServiceListDocuments(t *testing.T) {
	pages := map[string][]byte{}
	for i := 0; i < 3; i++ {
		url := fmt.Sprintf("https://example.com/doc-%d", i)
		pages[url] = articlePage(fmt.Sprintf("Doc %d", i), "Body text for the listing test.")
	}
	svc := newTestService(t, pages)

	for url := range pages {
		_, err := svc.Ingest(context.Background(), url)
		require.NoError(t, err)
	}

	page, err := svc.ListDocuments(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, PageSize, page.PageSize)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Documents, 3)

	// A page past the end is valid and empty, with the total intact.
	past, err := svc.ListDocuments(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, past.Total)
	assert.Empty(t, past.Documents)

	_, err = svc.ListDocuments(context.Background(), 0)
	assert.Error(t, err)
}

func TestServiceStats(t *testing.T) {
	url := "https://example.com/stats"
	svc := newTestService(t, map[string][]byte{
		url: articlePage("Stats", "A single article to count."),
	})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Documents)
	assert.Equal(t, 0, stats.Vectors)

	_, err = svc.Ingest(context.Background(), url)
	require.NoError(t, err)

	stats, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Greater(t, stats.Vectors, 0)
}

func TestServiceVerifyEmbedding(t *testing.T) {
	svc := newTestService(t, nil)

	require.NoError(t, svc.VerifyEmbedding(context.Background()))
}

func TestServiceVerifyEmbeddingConfigMismatch(t *testing.T) {
	cfg := config.Default()
	cfg.AI.EmbeddingDimensions = 128 // mock embedder produces 384

	svc, err := NewService(cfg,
		WithInMemory(),
		WithProvider(mock.NewMockProvider()),
		WithFetcher(&fakeFetcher{}),
	)
	require.NoError(t, err)
	defer svc.Close()

	err = svc.VerifyEmbedding(context.Background())
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindConfiguration, core.KindOf(err))
}

func TestServiceReindexAll(t *testing.T) {
	pages := map[string][]byte{
		"https://example.com/a": articlePage("A", "First article body."),
		"https://example.com/b": articlePage("B", "Second article body."),
	}
	svc := newTestService(t, pages)

	for url := range pages {
		_, err := svc.Ingest(context.Background(), url)
		require.NoError(t, err)
	}

	before, err := svc.Stats(context.Background())
	require.NoError(t, err)

	count, err := svc.ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	after, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.Vectors, after.Vectors)
}
