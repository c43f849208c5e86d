package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/garnizeh/hnjobs/internal/config"
	"github.com/garnizeh/hnjobs/pkg/ollama"
	"github.com/garnizeh/hnjobs/pkg/repository"
)

// Extraction is the structured job posting data pulled out of a comment.
// Its shape is also described by the versioned JSON schema the engine
// validates against, which is what ultimately lands in
// comments.structured_data.
type Extraction struct {
	Company        string   `json:"company"`
	Description    string   `json:"description,omitempty"`
	Positions      []string `json:"positions"`
	Location       *string  `json:"location,omitempty"`
	Salary         *string  `json:"salary,omitempty"`
	Stack          []string `json:"stack,omitempty"`
	Email          *string  `json:"email,omitempty"`
	ApplicationURL *string  `json:"application_url,omitempty"`
	RemoteFriendly *bool    `json:"remote_friendly,omitempty"`
	EmploymentType *string  `json:"employment_type,omitempty"`

	// Raw captures the original model output for auditing/logging.
	Raw string `json:"-"`
}

// ErrNotUseful indicates the model could not identify a company and at least
// one position, so the posting carries no extractable job data.
var ErrNotUseful = errors.New("posting has no extractable job data")

// Engine wraps an Ollama client and provides extraction helpers.
type Engine struct {
	client *ollama.Client
	cfg    config.EngineConfig
	loader *Loader
}

// NewEngine creates a new extraction engine. Loader is required for schema
// validation; the prompt template is loaded from the store.
func NewEngine(ctx context.Context, client *ollama.Client, cfg config.EngineConfig, sr repository.SchemaRepo, tr repository.TemplateRepo) (*Engine, error) {
	// apply sensible defaults
	if cfg.Template.Version == "" {
		cfg.Template.Version = "v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}

	if sr == nil {
		return nil, fmt.Errorf("schema repo is required")
	}
	if tr == nil {
		return nil, fmt.Errorf("template repo is required")
	}

	loader, err := NewLoader(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}

	tpl, terr := tr.GetTemplate(ctx, "extract", cfg.Template.Version)
	if terr != nil {
		return nil, fmt.Errorf("load template: %w", terr)
	}
	if tpl == nil || tpl.TemplateTxt == "" {
		return nil, fmt.Errorf("template extract:%s not found", cfg.Template.Version)
	}
	cfg.Template.Template = tpl.TemplateTxt
	cfg.Template.Version = tpl.Version
	cfg.Template.SchemaVersion = tpl.SchemaVer

	return &Engine{client: client, cfg: cfg, loader: loader}, nil
}

// ExtractPosting renders the prompt for a cleaned posting text, sends it to
// Ollama, and parses and validates the structured response.
func (e *Engine) ExtractPosting(ctx context.Context, text string) (*Extraction, error) {
	prompt, err := ollama.RenderTemplate(e.cfg.Template.Template, map[string]any{"Text": text})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	ctxReq, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	out, err := e.client.Generate(ctxReq, e.cfg.Model, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	resp, perr := ParseExtraction(out.Text)
	if perr != nil {
		return nil, fmt.Errorf("parse response: %w", perr)
	}
	resp.Raw = out.Text

	if resp.Company == "" || len(resp.Positions) == 0 {
		return nil, ErrNotUseful
	}

	// validate against loader-provided schema
	j := extractJSON(out.Text)
	if j == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	schemaVer := e.cfg.Template.Version
	if e.cfg.Template.SchemaVersion != nil && *e.cfg.Template.SchemaVersion != "" {
		schemaVer = *e.cfg.Template.SchemaVersion
	}

	schema, ok := e.loader.GetSchema(schemaVer)
	if !ok || schema == nil {
		return nil, fmt.Errorf("no schema found for version %s", schemaVer)
	}

	verrs, err := schema.ValidateBytes(ctxReq, []byte(j))
	if err != nil {
		return nil, fmt.Errorf("schema validate error: %w", err)
	}
	if len(verrs) > 0 {
		var sb strings.Builder
		for _, v := range verrs {
			sb.WriteString(v.Message)
			sb.WriteString("; ")
		}
		return nil, fmt.Errorf("response does not match schema: %s", sb.String())
	}

	if resp.Stack == nil {
		resp.Stack = []string{}
	}

	return resp, nil
}

func (e *Engine) ReloadSchemas(ctx context.Context) error {
	return e.loader.Reload(ctx)
}

// ParseExtraction tries to extract a JSON object from arbitrary model output
// and unmarshal it.
func ParseExtraction(s string) (*Extraction, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty response")
	}

	j := extractJSON(s)
	if j == "" {
		return nil, errors.New("no JSON object found in response")
	}

	var r Extraction
	if err := json.Unmarshal([]byte(j), &r); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return &r, nil
}

// extractJSON returns the substring from the first '{' to the last '}' in the input.
// This is a pragmatic approach to handle model outputs that wrap JSON in text or markdown.
func extractJSON(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last == -1 || last < first {
		return ""
	}
	return s[first : last+1]
}

var (
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
)

var htmlEntities = strings.NewReplacer(
	"<p>", "\n",
	"</p>", "\n",
	"&#x27;", "'",
	"&#x2F;", "/",
	"&quot;", `"`,
	"&gt;", ">",
	"&lt;", "<",
	"&amp;", "&",
)

// CleanHTML strips the markup HN embeds in comment bodies down to plain
// text suitable for the extraction prompt.
func CleanHTML(s string) string {
	s = htmlEntities.Replace(s)
	s = tagRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
