package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/hnjobs/internal/ai"
	"github.com/garnizeh/hnjobs/internal/config"
	"github.com/garnizeh/hnjobs/pkg/models"
	"github.com/garnizeh/hnjobs/pkg/ollama"
	"github.com/garnizeh/hnjobs/pkg/repository"
	"github.com/garnizeh/hnjobs/pkg/repository/mock"
)

const testSchema = `{"$schema":"http://json-schema.org/draft-07/schema#","type":"object","required":["company","positions"],"properties":{"company":{"type":"string","minLength":1},"positions":{"type":"array","items":{"type":"string","minLength":1},"minItems":1}}}`

// fakeTemplateRepo serves a fixed extraction prompt.
type fakeTemplateRepo struct{}

var _ repository.TemplateRepo = (*fakeTemplateRepo)(nil)

func (f *fakeTemplateRepo) GetTemplate(ctx context.Context, name, version string) (*models.Template, error) {
	if name != "extract" || version != "v1" {
		return nil, nil
	}
	return &models.Template{ID: 1, Name: name, Version: version, TemplateTxt: "Extract job data from:\n{{.Text}}"}, nil
}

// ollamaStub streams a single canned model response for every generate call.
func ollamaStub(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		b, _ := json.Marshal(map[string]any{"response": response, "done": true})
		_, _ = w.Write(append(b, '\n'))
	}))
}

func newTestEngine(t *testing.T, srv *httptest.Server) *ai.Engine {
	t.Helper()
	ctx := context.Background()

	schemas := &mock.SchemaRepo{}
	if _, err := schemas.CreateSchema(ctx, "v1", "test schema", testSchema); err != nil {
		t.Fatalf("seed schema: %v", err)
	}

	client, err := ollama.NewClient(config.OllamaConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, CircuitFailureThreshold: 100}, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	engine, err := ai.NewEngine(ctx, client, config.EngineConfig{Model: "test-model"}, schemas, &fakeTemplateRepo{})
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	return engine
}

func TestParseExtraction(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"company\":\"ACME\",\"positions\":[\"Senior Gopher\"],\"location\":\"Remote\"}\n```"
	r, err := ai.ParseExtraction(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if r.Company != "ACME" || len(r.Positions) != 1 {
		t.Fatalf("unexpected extraction: %#v", r)
	}
	if r.Location == nil || *r.Location != "Remote" {
		t.Fatalf("expected location, got %#v", r.Location)
	}
}

func TestParseExtraction_NoJSON(t *testing.T) {
	if _, err := ai.ParseExtraction("the model rambled without any JSON"); err == nil {
		t.Fatalf("expected error for output without JSON")
	}
	if _, err := ai.ParseExtraction("   "); err == nil {
		t.Fatalf("expected error for empty output")
	}
}

func TestCleanHTML(t *testing.T) {
	in := `ACME Corp | Senior Gopher<p>We&#x27;re hiring &amp; growing fast.</p><a href="https:&#x2F;&#x2F;acme.example">apply</a>`
	got := ai.CleanHTML(in)
	if strings.Contains(got, "<") || strings.Contains(got, "&#x27;") || strings.Contains(got, "&amp;") {
		t.Fatalf("markup not stripped: %q", got)
	}
	if !strings.Contains(got, "We're hiring & growing fast.") {
		t.Fatalf("entities not decoded: %q", got)
	}
	if !strings.Contains(got, "https://acme.example") {
		t.Fatalf("url entities not decoded: %q", got)
	}
}

func TestExtractPosting_Success(t *testing.T) {
	srv := ollamaStub(t, `{"company":"ACME","positions":["Senior Gopher","SRE"],"location":"Remote","remote_friendly":true}`)
	defer srv.Close()
	engine := newTestEngine(t, srv)

	got, err := engine.ExtractPosting(context.Background(), "ACME | Senior Gopher, SRE | Remote")
	if err != nil {
		t.Fatalf("ExtractPosting error: %v", err)
	}
	if got.Company != "ACME" || len(got.Positions) != 2 {
		t.Fatalf("unexpected extraction: %#v", got)
	}
	if got.RemoteFriendly == nil || !*got.RemoteFriendly {
		t.Fatalf("expected remote_friendly true: %#v", got.RemoteFriendly)
	}
	if got.Raw == "" {
		t.Fatalf("expected raw model output to be captured")
	}
}

func TestExtractPosting_NotUseful(t *testing.T) {
	srv := ollamaStub(t, `{"company":"","positions":[]}`)
	defer srv.Close()
	engine := newTestEngine(t, srv)

	_, err := engine.ExtractPosting(context.Background(), "just chatting, not a job posting")
	if !errors.Is(err, ai.ErrNotUseful) {
		t.Fatalf("expected ErrNotUseful got: %v", err)
	}
}

func TestExtractPosting_SchemaFailure(t *testing.T) {
	// decodes cleanly and looks useful, but the empty position string
	// violates the schema's minLength, so validation is what rejects it
	srv := ollamaStub(t, `{"company":"x","positions":[""]}`)
	defer srv.Close()
	engine := newTestEngine(t, srv)

	_, err := engine.ExtractPosting(context.Background(), "broken model output")
	if err == nil {
		t.Fatalf("expected schema validation error")
	}
}

func TestReloadSchemas(t *testing.T) {
	srv := ollamaStub(t, `{}`)
	defer srv.Close()
	engine := newTestEngine(t, srv)

	if err := engine.ReloadSchemas(context.Background()); err != nil {
		t.Fatalf("ReloadSchemas error: %v", err)
	}
}

func TestExtractJSONBoundaries(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"prefix {\"a\":1} suffix", `{"a":1}`},
		{"{\"a\":{\"b\":2}}", `{"a":{"b":2}}`},
		{"no braces here", ""},
	}
	for _, c := range cases {
		r, err := ai.ParseExtraction(c.in)
		if c.want == "" {
			if err == nil {
				t.Fatalf("expected error for %q", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parse %q: %v", c.in, err)
		}
		if r == nil {
			t.Fatalf("expected extraction for %q", c.in)
		}
	}
}
