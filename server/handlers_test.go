package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxmarchal/neuraldocs/core"
	"github.com/mxmarchal/neuraldocs/search"
)

// stubService is a programmable Service for handler tests.
type stubService struct {
	enqueueFunc func(ctx context.Context, url string) (string, error)
	statusFunc  func(ctx context.Context, id string) (*core.Job, error)
	queryFunc   func(ctx context.Context, question string) (*core.QueryResult, error)
	listFunc    func(ctx context.Context, page int) (*core.DocumentPage, error)
	statsFunc   func(ctx context.Context) (*core.CorpusStats, error)
}

func (s *stubService) EnqueueIngest(ctx context.Context, url string) (string, error) {
	return s.enqueueFunc(ctx, url)
}

func (s *stubService) TaskStatus(ctx context.Context, id string) (*core.Job, error) {
	return s.statusFunc(ctx, id)
}

func (s *stubService) Query(ctx context.Context, question string) (*core.QueryResult, error) {
	return s.queryFunc(ctx, question)
}

func (s *stubService) ListDocuments(ctx context.Context, page int) (*core.DocumentPage, error) {
	return s.listFunc(ctx, page)
}

func (s *stubService) Stats(ctx context.Context) (*core.CorpusStats, error) {
	return s.statsFunc(ctx)
}

func doRequest(t *testing.T, svc Service, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}

	req := httptest.NewRequest(method, path, &reqBody)
	rec := httptest.NewRecorder()
	NewServer(svc).Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestHandleAddURL(t *testing.T) {
	svc := &stubService{
		enqueueFunc: func(ctx context.Context, url string) (string, error) {
			assert.Equal(t, "https://example.com/a", url)
			return "task-123", nil
		},
	}

	rec := doRequest(t, svc, http.MethodPost, "/add-url", map[string]string{"url": "https://example.com/a"})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp addURLResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "task-123", resp.TaskID)
	assert.NotEmpty(t, resp.Message)
}

func TestHandleAddURL_MissingURL(t *testing.T) {
	rec := doRequest(t, &stubService{}, http.MethodPost, "/add-url", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAddURL_BadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/add-url", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	NewServer(&stubService{}).Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTaskStatus_Succeeded(t *testing.T) {
	docID := core.IDFromURL("https://example.com/a")
	svc := &stubService{
		statusFunc: func(ctx context.Context, id string) (*core.Job, error) {
			return &core.Job{
				Id:         id,
				Kind:       core.JobKindIngest,
				URL:        "https://example.com/a",
				State:      core.JobStateSucceeded,
				DocumentId: docID,
				Attempts:   1,
			}, nil
		},
	}

	rec := doRequest(t, svc, http.MethodGet, "/tasks/task-9", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp taskResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "task-9", resp.TaskID)
	assert.Equal(t, "succeeded", resp.Status)
	assert.Equal(t, docID.String(), resp.DocumentID)
	assert.Empty(t, resp.Error)
}

func TestHandleTaskStatus_Failed(t *testing.T) {
	svc := &stubService{
		statusFunc: func(ctx context.Context, id string) (*core.Job, error) {
			return &core.Job{
				Id:           id,
				URL:          "https://example.com/b",
				State:        core.JobStateFailed,
				ErrorKind:    string(core.ErrorKindContent),
				ErrorMessage: "extract: no article text extracted",
				Attempts:     1,
			}, nil
		},
	}

	rec := doRequest(t, svc, http.MethodGet, "/tasks/task-f", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp taskResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, "content", resp.ErrorKind)
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, resp.DocumentID)
}

func TestHandleTaskStatus_Unknown(t *testing.T) {
	svc := &stubService{
		statusFunc: func(ctx context.Context, id string) (*core.Job, error) {
			return nil, core.ErrUnknownJob
		},
	}

	rec := doRequest(t, svc, http.MethodGet, "/tasks/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleQuery(t *testing.T) {
	svc := &stubService{
		queryFunc: func(ctx context.Context, question string) (*core.QueryResult, error) {
			return &core.QueryResult{
				Answer:       "Go is a language.",
				Sources:      []string{"https://example.com/go"},
				ContextFound: true,
			}, nil
		},
	}

	rec := doRequest(t, svc, http.MethodPost, "/query", map[string]string{"question": "What is Go?"})

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp queryResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "Go is a language.", resp.Answer)
	assert.Equal(t, []string{"https://example.com/go"}, resp.Sources)
	assert.True(t, resp.ContextFound)
}

func TestHandleQuery_NoContext(t *testing.T) {
	svc := &stubService{
		queryFunc: func(ctx context.Context, question string) (*core.QueryResult, error) {
			return &core.QueryResult{
				Answer:       core.NoContextAnswer,
				Sources:      []string{},
				ContextFound: false,
			}, nil
		},
	}

	rec := doRequest(t, svc, http.MethodPost, "/query", map[string]string{"question": "anything"})

	// No context is a success, not an error
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp queryResponse
	decodeBody(t, rec, &resp)
	assert.False(t, resp.ContextFound)
	assert.Equal(t, core.NoContextAnswer, resp.Answer)
	assert.NotNil(t, resp.Sources)
}

func TestHandleQuery_AnswerFailed(t *testing.T) {
	svc := &stubService{
		queryFunc: func(ctx context.Context, question string) (*core.QueryResult, error) {
			return nil, fmt.Errorf("%w: model unavailable", search.ErrAnswerFailed)
		},
	}

	rec := doRequest(t, svc, http.MethodPost, "/query", map[string]string{"question": "What is Go?"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "answer_failed", resp["code"])
}

func TestHandleQuery_MissingQuestion(t *testing.T) {
	rec := doRequest(t, &stubService{}, http.MethodPost, "/query", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListDocuments(t *testing.T) {
	svc := &stubService{
		listFunc: func(ctx context.Context, page int) (*core.DocumentPage, error) {
			assert.Equal(t, 2, page)
			return &core.DocumentPage{
				Page:     2,
				PageSize: 100,
				Total:    150,
				Documents: []core.DocumentSummary{
					{Id: core.IDFromURL("https://example.com/a"), URL: "https://example.com/a", Title: "A"},
				},
			}, nil
		},
	}

	rec := doRequest(t, svc, http.MethodGet, "/documents?page=2", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp documentPageResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 100, resp.PageSize)
	assert.Equal(t, 150, resp.Total)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "https://example.com/a", resp.Documents[0].URL)
}

func TestHandleListDocuments_DefaultsToFirstPage(t *testing.T) {
	svc := &stubService{
		listFunc: func(ctx context.Context, page int) (*core.DocumentPage, error) {
			assert.Equal(t, 1, page)
			return &core.DocumentPage{Page: 1, PageSize: 100, Documents: []core.DocumentSummary{}}, nil
		},
	}

	rec := doRequest(t, svc, http.MethodGet, "/documents", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleListDocuments_BadPage(t *testing.T) {
	rec := doRequest(t, &stubService{}, http.MethodGet, "/documents?page=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, &stubService{}, http.MethodGet, "/documents?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStats(t *testing.T) {
	svc := &stubService{
		statsFunc: func(ctx context.Context) (*core.CorpusStats, error) {
			return &core.CorpusStats{Documents: 4, Vectors: 37}, nil
		},
	}

	rec := doRequest(t, svc, http.MethodGet, "/stats", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp statsResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, 4, resp.Documents)
	assert.Equal(t, 37, resp.Vectors)
}

func TestHandleHealth(t *testing.T) {
	rec := doRequest(t, &stubService{}, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "ok", resp["status"])
}
