// Package enrich wraps the completion service with the fixed prompts used to
// enrich articles: summary, category, cited sources, lateral-reading
// questions and language analysis.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clearview/clearview_api/internal/llm"
	"github.com/clearview/clearview_api/internal/metrics"
	"github.com/clearview/clearview_api/pkg/models"
)

const (
	summaryMaxTokens     = 25000
	summaryTruncateAbove = 2500
	summaryKeepTokens    = 500
)

// Enricher issues one completion call per enrichment.
type Enricher struct {
	c       llm.Completer
	timeout time.Duration
	log     *zap.Logger
}

// New returns an Enricher. A zero timeout leaves the caller's deadline as is.
func New(c llm.Completer, timeout time.Duration, log *zap.Logger) *Enricher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Enricher{c: c, timeout: timeout, log: log}
}

// call sends one completion request. A non-nil accept marks output that must
// not be reused when it fails to parse.
func (e *Enricher) call(ctx context.Context, client, system, user string, maxTokens int, temperature float64, accept func(string) error) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req := llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        1,
	}
	if accept != nil {
		req.Accept = func(out string) error { return accept(strings.TrimSpace(out)) }
	}

	start := time.Now()
	text, err := e.c.Complete(ctx, req)
	metrics.EnrichmentDuration.WithLabelValues(client).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EnrichmentRequests.WithLabelValues(client, "error").Inc()
		e.log.Warn("enrichment failed", zap.String("client", client), zap.Error(err))
		if !errors.Is(err, models.ErrTransport) && !errors.Is(err, models.ErrParse) {
			err = fmt.Errorf("%w: %v", models.ErrTransport, err)
		}
		return "", err
	}
	metrics.EnrichmentRequests.WithLabelValues(client, "ok").Inc()
	return strings.TrimSpace(text), nil
}

func acceptCategory(out string) error {
	_, err := MatchCategory(out)
	return err
}

func acceptSources(out string) error {
	_, err := ParseSources(out)
	return err
}

func acceptQuestions(out string) error {
	if len(models.ParseQuestions(out)) == 0 {
		return fmt.Errorf("%w: no questions in completion", models.ErrParse)
	}
	return nil
}

func requireText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: article text is required", models.ErrValidation)
	}
	return nil
}

// Summarize returns a three-sentence summary. Articles above 25000 tokens get
// TooLongSummary without a call; above 2500 tokens only the first and last
// 500 tokens are sent.
func (e *Enricher) Summarize(ctx context.Context, text string) (string, error) {
	if err := requireText(text); err != nil {
		return "", err
	}
	content, tooLong := summaryInput(text)
	if tooLong {
		return TooLongSummary, nil
	}
	return e.call(ctx, "summarizer", summarizeSystem, summarizeUser+content, 256, 0.5, nil)
}

func summaryInput(text string) (string, bool) {
	tokens := strings.Fields(text)
	switch {
	case len(tokens) > summaryMaxTokens:
		return "", true
	case len(tokens) > summaryTruncateAbove:
		head := strings.Join(tokens[:summaryKeepTokens], " ")
		tail := strings.Join(tokens[len(tokens)-summaryKeepTokens:], " ")
		return head + " " + tail, false
	default:
		return text, false
	}
}

// Categorize assigns exactly one label from Categories.
func (e *Enricher) Categorize(ctx context.Context, title, text string) (string, error) {
	if err := requireText(text); err != nil {
		return "", err
	}
	user := fmt.Sprintf("Title: %s\n\nArticle: %s", title, text)
	out, err := e.call(ctx, "categorizer", categorizeSystem, user, 16, 0, acceptCategory)
	if err != nil {
		return "", err
	}
	return MatchCategory(out)
}

// SourcesInput is the article material given to the source analyzer.
type SourcesInput struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	MainImageCredits string `json:"mainImageCredits"`
	Article          string `json:"article"`
}

// AnalyzeSources extracts cited sources and their mention counts.
func (e *Enricher) AnalyzeSources(ctx context.Context, in SourcesInput) (models.SourcesMentioned, error) {
	if err := requireText(in.Article); err != nil {
		return models.SourcesMentioned{}, err
	}
	user := fmt.Sprintf("Title: %s\nDescription: %s\nImage credits: %s\nArticle: %s",
		in.Title, in.Description, in.MainImageCredits, in.Article)
	out, err := e.call(ctx, "source_analyzer", sourcesSystem, user, 256, 0.1, acceptSources)
	if err != nil {
		return models.SourcesMentioned{}, err
	}
	return ParseSources(out)
}

// LateralReadingQuestions returns up to ten ranked questions, both as
// numbered newline-delimited text and parsed.
func (e *Enricher) LateralReadingQuestions(ctx context.Context, text string) (string, []models.Question, error) {
	if err := requireText(text); err != nil {
		return "", nil, err
	}
	out, err := e.call(ctx, "question_generator", questionsSystem, "Article: "+text, 512, 0.3, acceptQuestions)
	if err != nil {
		return "", nil, err
	}
	qs := models.ParseQuestions(out)
	if len(qs) == 0 {
		return "", nil, fmt.Errorf("%w: no questions in completion", models.ErrParse)
	}
	if len(qs) < models.MaxQuestions {
		e.log.Warn("fewer lateral reading questions than requested", zap.Int("got", len(qs)))
	}

	lines := make([]string, len(qs))
	for i, q := range qs {
		lines[i] = fmt.Sprintf("%d. %s", q.Rank, q.Text)
	}
	return strings.Join(lines, "\n"), qs, nil
}

// AnalyzeLanguage returns the bias and sentiment report verbatim.
func (e *Enricher) AnalyzeLanguage(ctx context.Context, text string) (string, error) {
	if err := requireText(text); err != nil {
		return "", err
	}
	return e.call(ctx, "language_analyzer", languageSystem, "Article: "+text, 1024, 0.2, nil)
}
