package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/newsight/internal/index"
	"github.com/mohammad-safakhou/newsight/internal/pipeline"
)

type fakeRunner struct {
	lastPrompt string
	lastOpts   pipeline.Options
}

func (f *fakeRunner) Run(_ context.Context, prompt string, opts pipeline.Options) pipeline.State {
	f.lastPrompt = prompt
	f.lastOpts = opts
	return pipeline.State{
		RunID:       "run-1",
		UserPrompt:  prompt,
		FinalReport: "Headline: Done",
		BiasLabel:   "Neutral",
	}
}

type fixedEmbedder struct{ vec []float32 }

func (f fixedEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func newTestHandlers(t *testing.T) (*echo.Echo, *fakeRunner) {
	t.Helper()
	dir := t.TempDir()

	ix, err := index.Open(dir, 2, fixedEmbedder{vec: []float32{1, 0}}, nil)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	if err := ix.Add([]float32{1, 0}, index.Meta{Title: "close", Bias: "Neutral"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ix.Add([]float32{0, 1}, index.Meta{Title: "far", Bias: "Left"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	kw, err := index.OpenKeyword(filepath.Join(dir, "keyword.bleve"))
	if err != nil {
		t.Fatalf("OpenKeyword: %v", err)
	}
	t.Cleanup(func() { kw.Close() })

	runner := &fakeRunner{}
	h := &Handlers{Runner: runner, Index: ix, Keyword: kw}
	e := newEcho()
	h.Register(e)
	return e, runner
}

func TestCreateRun(t *testing.T) {
	e, runner := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"prompt":"Singapore today","max_articles":3}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if runner.lastPrompt != "Singapore today" {
		t.Fatalf("prompt = %q", runner.lastPrompt)
	}
	if runner.lastOpts.MaxArticles != 3 || !runner.lastOpts.RunCritique {
		t.Fatalf("opts = %+v, want max 3 and critique defaulted on", runner.lastOpts)
	}
	var st pipeline.State
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.RunID != "run-1" {
		t.Fatalf("run_id = %q", st.RunID)
	}
}

func TestCreateRunRequiresPrompt(t *testing.T) {
	e, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateRunCritiqueOptOut(t *testing.T) {
	e, runner := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"prompt":"x","run_critique":false}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if runner.lastOpts.RunCritique {
		t.Fatal("explicit run_critique=false was ignored")
	}
}

func TestSearch(t *testing.T) {
	e, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=anything&k=1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp struct {
		Hits []index.Hit `json:"hits"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].Meta.Title != "close" {
		t.Fatalf("hits = %+v", resp.Hits)
	}
}

func TestSearchBiasFilter(t *testing.T) {
	e, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=anything&k=5&bias=Left", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp struct {
		Hits []index.Hit `json:"hits"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].Meta.Bias != "Left" {
		t.Fatalf("filtered hits = %+v", resp.Hits)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	e, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestReportsWithoutArchive(t *testing.T) {
	e, _ := newTestHandlers(t)

	for _, path := range []string{"/api/reports", "/api/reports/some-id"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("GET %s status = %d, want 503", path, rec.Code)
		}
	}
}

func TestHealthz(t *testing.T) {
	e, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}
