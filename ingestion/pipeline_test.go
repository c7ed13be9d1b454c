package ingestion

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxmarchal/neuraldocs/ai"
	"github.com/mxmarchal/neuraldocs/ai/mock"
	"github.com/mxmarchal/neuraldocs/core"
	"github.com/mxmarchal/neuraldocs/storage"
	storagebadger "github.com/mxmarchal/neuraldocs/storage/badger"
)

// fakeFetcher serves canned pages by URL.
type fakeFetcher struct {
	pages map[string][]byte
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("HTTP 404 for %s", url)
	}
	return body, nil
}

const articleHTML = `<html>
<head><title>Go Proverbs</title></head>
<body>
<p>Clear is better than clever.</p>
<p>Errors are values.</p>
</body>
</html>`

func newTestPipeline(t *testing.T, fetcher Fetcher) (*Pipeline, storage.DocumentRepository, storage.VectorRepository) {
	t.Helper()

	docRepo, vectorRepo, jobRepo, backend, err := storagebadger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		jobRepo.Close()
		vectorRepo.Close()
		docRepo.Close()
		backend.Close()
	})

	pipeline, err := NewPipeline(docRepo, vectorRepo, fetcher, mock.NewMockProvider(),
		WithChunking(40, 10))
	require.NoError(t, err)

	return pipeline, docRepo, vectorRepo
}

func TestPipelineIngest(t *testing.T) {
	url := "https://example.com/proverbs"
	fetcher := &fakeFetcher{pages: map[string][]byte{url: []byte(articleHTML)}}
	pipeline, docRepo, vectorRepo := newTestPipeline(t, fetcher)

	ctx := context.Background()

	id, err := pipeline.Ingest(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, core.IDFromURL(url), id)

	doc, err := docRepo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, url, doc.URL)
	assert.NotEmpty(t, doc.Sections)

	count, err := vectorRepo.Count(ctx)
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}

func TestPipelineReingestReplacesVectors(t *testing.T) {
	url := "https://example.com/proverbs"
	fetcher := &fakeFetcher{pages: map[string][]byte{url: []byte(articleHTML)}}
	pipeline, docRepo, vectorRepo := newTestPipeline(t, fetcher)

	ctx := context.Background()

	_, err := pipeline.Ingest(ctx, url)
	require.NoError(t, err)
	firstCount, err := vectorRepo.Count(ctx)
	require.NoError(t, err)

	// Shorter second version: stale vectors from the first run must go
	fetcher.pages[url] = []byte("<html><head><title>Go Proverbs</title></head><body><p>Errors are values.</p></body></html>")

	id, err := pipeline.Ingest(ctx, url)
	require.NoError(t, err)

	secondCount, err := vectorRepo.Count(ctx)
	require.NoError(t, err)
	assert.Less(t, secondCount, firstCount)

	docCount, err := docRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, docCount, "re-ingestion must not duplicate the document")

	doc, err := docRepo.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, doc.Sections, 1)
}

func TestPipelineFetchFailureIsTransient(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	pipeline, _, _ := newTestPipeline(t, fetcher)

	_, err := pipeline.Ingest(context.Background(), "https://example.com/x")

	require.Error(t, err)
	assert.True(t, core.IsTransient(err))
	var se *core.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "fetch", se.Stage)
}

func TestPipelineEmptyExtractionIsContentError(t *testing.T) {
	url := "https://example.com/empty"
	fetcher := &fakeFetcher{pages: map[string][]byte{url: []byte("<html><body><script>x()</script></body></html>")}}
	pipeline, _, _ := newTestPipeline(t, fetcher)

	_, err := pipeline.Ingest(context.Background(), url)

	require.Error(t, err)
	assert.True(t, core.IsContent(err))
	assert.ErrorIs(t, err, ErrNoArticleText)
}

func TestPipelineMalformedStructuringIsContentError(t *testing.T) {
	url := "https://example.com/proverbs"
	fetcher := &fakeFetcher{pages: map[string][]byte{url: []byte(articleHTML)}}

	docRepo, vectorRepo, jobRepo, backend, err := storagebadger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		jobRepo.Close()
		vectorRepo.Close()
		docRepo.Close()
		backend.Close()
	})

	structurer := mock.NewMockStructurer()
	structurer.StructureArticleFunc = func(ctx context.Context, url, text string) (*ai.StructuredArticle, error) {
		return nil, fmt.Errorf("%w: not json", ai.ErrMalformedOutput)
	}
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), structurer, mock.NewMockAnswerer())

	pipeline, err := NewPipeline(docRepo, vectorRepo, fetcher, provider)
	require.NoError(t, err)

	_, err = pipeline.Ingest(context.Background(), url)

	require.Error(t, err)
	assert.True(t, core.IsContent(err))
}

func TestPipelineEmptyURLIsContentError(t *testing.T) {
	pipeline, _, _ := newTestPipeline(t, &fakeFetcher{})

	_, err := pipeline.Ingest(context.Background(), "")

	require.Error(t, err)
	assert.True(t, core.IsContent(err))
	assert.ErrorIs(t, err, core.ErrEmptyURL)
}

func TestNewPipelineValidation(t *testing.T) {
	docRepo, vectorRepo, jobRepo, backend, err := storagebadger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		jobRepo.Close()
		vectorRepo.Close()
		docRepo.Close()
		backend.Close()
	})

	fetcher := &fakeFetcher{}
	provider := mock.NewMockProvider()

	_, err = NewPipeline(nil, vectorRepo, fetcher, provider)
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)

	_, err = NewPipeline(docRepo, nil, fetcher, provider)
	assert.ErrorIs(t, err, ErrVectorRepositoryRequired)

	_, err = NewPipeline(docRepo, vectorRepo, nil, provider)
	assert.ErrorIs(t, err, ErrFetcherRequired)

	_, err = NewPipeline(docRepo, vectorRepo, fetcher, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}
