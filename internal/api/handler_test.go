package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearview/clearview_api/internal/enrich"
	"github.com/clearview/clearview_api/internal/llm"
	"github.com/clearview/clearview_api/internal/service"
	"github.com/clearview/clearview_api/pkg/models"
)

type memStore struct {
	articles map[string]*models.Article
	nextID   int64
	pingErr  error
	listErr  error
}

func newMemStore() *memStore {
	return &memStore{articles: map[string]*models.Article{}}
}

func (m *memStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *memStore) Save(ctx context.Context, a *models.ArticleSubmission) (models.SaveResult, error) {
	if existing, ok := m.articles[a.URL]; ok {
		existing.TimesViewed++
		return models.SaveResult{ID: existing.ID}, nil
	}
	m.nextID++
	m.articles[a.URL] = &models.Article{ID: m.nextID, URL: a.URL, Title: a.Title}
	return models.SaveResult{ID: m.nextID, Created: true}, nil
}

func (m *memStore) All(ctx context.Context, limit int) ([]*models.Article, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []*models.Article{}
	for _, a := range m.articles {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) GetByURL(ctx context.Context, url string) (*models.Article, error) {
	if a, ok := m.articles[url]; ok {
		return a, nil
	}
	return nil, models.ErrNotFound
}

func (m *memStore) GetDetails(ctx context.Context, url string) (*models.ArticleDetails, error) {
	a, err := m.GetByURL(ctx, url)
	if err != nil {
		return nil, err
	}
	return &models.ArticleDetails{Article: *a, Questions: []models.Question{}}, nil
}

func (m *memStore) ByAuthor(ctx context.Context, name string) ([]*models.Article, error) {
	if name == "Ana" {
		return []*models.Article{{ID: 1, URL: "u1"}}, nil
	}
	return nil, models.ErrNotFound
}

func (m *memStore) ByKeyword(ctx context.Context, keyword string) ([]*models.Article, error) {
	return nil, models.ErrNotFound
}

func (m *memStore) Authors(ctx context.Context) ([]models.Author, error) {
	return []models.Author{{ID: 1, Name: "Ana"}}, nil
}

func (m *memStore) Keywords(ctx context.Context) ([]models.Keyword, error) {
	return []models.Keyword{{ID: 1, Keyword: "clima"}}, nil
}

func (m *memStore) IncrementSaved(ctx context.Context, url string) (int, error) {
	a, ok := m.articles[url]
	if !ok {
		return 0, models.ErrNotFound
	}
	a.SavedCount++
	return a.SavedCount, nil
}

func (m *memStore) Update(ctx context.Context, id int64, u *models.ArticleUpdate) error {
	for _, a := range m.articles {
		if a.ID == id {
			if u.Title != nil {
				a.Title = *u.Title
			}
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *memStore) Delete(ctx context.Context, url string) error {
	if _, ok := m.articles[url]; !ok {
		return models.ErrNotFound
	}
	delete(m.articles, url)
	return nil
}

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(ctx context.Context, r llm.Request) (string, error) {
	return s.reply, s.err
}

func newTestRouter(store service.ArticleStore, c llm.Completer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewService(store, enrich.New(c, time.Second, nil), nil)
	r := gin.New()
	r.Use(RequestID())
	RegisterRoutes(r, NewHandler(svc, nil))
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHome(t *testing.T) {
	r := newTestRouter(newMemStore(), stubCompleter{})
	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealth(t *testing.T) {
	store := newMemStore()
	r := newTestRouter(store, stubCompleter{})
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)

	store.pingErr = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/health", "").Code)
}

func TestSaveAndReadArticle(t *testing.T) {
	r := newTestRouter(newMemStore(), stubCompleter{})

	w := do(r, http.MethodPost, "/articles", `{"url":"https://example.com/a","title":"A","author":["Ana"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["created"])
	assert.Equal(t, float64(1), body["id"])

	w = do(r, http.MethodPost, "/articles", `{"url":"https://example.com/a"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["created"])

	w = do(r, http.MethodGet, "/article?url=https://example.com/a", "")
	require.Equal(t, http.StatusOK, w.Code)
	art := decode(t, w)["article"].(map[string]any)
	assert.Equal(t, float64(1), art["times_viewed"])

	w = do(r, http.MethodGet, "/article/details?url=https://example.com/a", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/articles", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["articles"], 1)
}

func TestSaveArticle_Errors(t *testing.T) {
	r := newTestRouter(newMemStore(), stubCompleter{})

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/articles", `{"url":`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/articles", `{"title":"no url"}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(r, http.MethodPost, "/articles", `{"url":"u","published_date":"not a date"}`).Code)
}

func TestArticleNotFound(t *testing.T) {
	r := newTestRouter(newMemStore(), stubCompleter{})

	w := do(r, http.MethodGet, "/article?url=https://nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, decode(t, w)["message"])

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/articles", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/article", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/article?url=https://nope", "").Code)
}

func TestListArticles_InternalError(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("pq: connection reset")
	r := newTestRouter(store, stubCompleter{})

	w := do(r, http.MethodGet, "/articles", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode(t, w)["message"])
}

func TestIncrementUpdateDelete(t *testing.T) {
	r := newTestRouter(newMemStore(), stubCompleter{})
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/articles", `{"url":"https://example.com/a"}`).Code)

	w := do(r, http.MethodPut, "/article/increment?url=https://example.com/a", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["saved_count"])

	assert.Equal(t, http.StatusOK, do(r, http.MethodPut, "/articles/1", `{"title":"Novo"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/articles/99", `{"title":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/articles/abc", `{}`).Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/article?url=https://example.com/a", "").Code)
}

func TestAuthorsAndKeywords(t *testing.T) {
	r := newTestRouter(newMemStore(), stubCompleter{})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/authors", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/keywords", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/authors/Ana/articles", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/authors/Nobody/articles", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/keywords/nada/articles", "").Code)
}

func TestClean(t *testing.T) {
	r := newTestRouter(newMemStore(), stubCompleter{})

	w := do(r, http.MethodPost, "/clean", `{"html_content":"<p>A</p><p>B</p>"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "A\nB", body["cleaned_text"])
	assert.Contains(t, body["sanitized_html"], "<p>A</p>")

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/clean", `{}`).Code)
}

func TestEnrichmentEndpoints(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		reply  string
		status int
		key    string
	}{
		{"summarize", "/summarize", `{"article_text":"texto"}`, "Resumo.", http.StatusOK, "summary"},
		{"categorize", "/categorize_article", `{"title":"t","article_text":"texto"}`, "Saúde", http.StatusOK, "category"},
		{"categorize unknown", "/categorize_article", `{"article_text":"texto"}`, "Astrologia", http.StatusBadGateway, "message"},
		{"sources", "/analyze_sources", `{"article":"texto"}`, `{"credible_news_sources":{"Reuters":3},"social_media":{"X":5}}`, http.StatusOK, "sources_mentioned"},
		{"sources malformed", "/analyze_sources", `{"article":"texto"}`, `not json`, http.StatusBadGateway, "message"},
		{"questions", "/lateral_reading_questions", `{"article_text":"texto"}`, "1. Quem?\n2. Porquê?", http.StatusOK, "ranked"},
		{"language", "/analyze_language", `{"article_text":"texto"}`, "Tom neutro.", http.StatusOK, "language_analysis"},
		{"missing text", "/summarize", `{}`, "unused", http.StatusBadRequest, "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(newMemStore(), stubCompleter{reply: tt.reply})
			w := do(r, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, decode(t, w), tt.key)
		})
	}
}

func TestAnalyzeSources_Score(t *testing.T) {
	r := newTestRouter(newMemStore(), stubCompleter{reply: `{"credible_news_sources":{"Reuters":3},"social_media":{"X":5}}`})

	w := do(r, http.MethodPost, "/analyze_sources", `{"title":"t","article":"texto"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(-2), decode(t, w)["score"])
}

func TestEnrichment_TransportError(t *testing.T) {
	r := newTestRouter(newMemStore(), stubCompleter{err: models.ErrTransport})

	w := do(r, http.MethodPost, "/summarize", `{"article_text":"texto"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 10, parseLimit("abc"))
	assert.Equal(t, 10, parseLimit("-1"))
	assert.Equal(t, 25, parseLimit("25"))
	assert.Equal(t, 200, parseLimit("5000"))
}
