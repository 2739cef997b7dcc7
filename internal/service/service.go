package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/clearview/clearview_api/internal/enrich"
	"github.com/clearview/clearview_api/internal/extract"
	"github.com/clearview/clearview_api/internal/metrics"
	"github.com/clearview/clearview_api/pkg/models"
)

type ArticleStore interface {
	Ping(ctx context.Context) error
	Save(ctx context.Context, a *models.ArticleSubmission) (models.SaveResult, error)
	All(ctx context.Context, limit int) ([]*models.Article, error)
	GetByURL(ctx context.Context, url string) (*models.Article, error)
	GetDetails(ctx context.Context, url string) (*models.ArticleDetails, error)
	ByAuthor(ctx context.Context, name string) ([]*models.Article, error)
	ByKeyword(ctx context.Context, keyword string) ([]*models.Article, error)
	Authors(ctx context.Context) ([]models.Author, error)
	Keywords(ctx context.Context) ([]models.Keyword, error)
	IncrementSaved(ctx context.Context, url string) (int, error)
	Update(ctx context.Context, id int64, u *models.ArticleUpdate) error
	Delete(ctx context.Context, url string) error
}

type Service struct {
	repo     ArticleStore
	enricher *enrich.Enricher
	log      *zap.Logger
}

func NewService(repo ArticleStore, enricher *enrich.Enricher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, enricher: enricher, log: log}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// SaveArticle validates a submission, normalizes its scraped dates and
// persists it with all of its enrichments.
func (s *Service) SaveArticle(ctx context.Context, a *models.ArticleSubmission) (models.SaveResult, error) {
	if err := normalizeSubmission(a); err != nil {
		metrics.ArticlesSaved.WithLabelValues("failed").Inc()
		return models.SaveResult{}, err
	}

	res, err := s.repo.Save(ctx, a)
	if err != nil {
		metrics.ArticlesSaved.WithLabelValues("failed").Inc()
		s.log.Error("save article failed", zap.String("url", a.URL), zap.Error(err))
		return models.SaveResult{}, err
	}

	outcome := "viewed"
	if res.Created {
		outcome = "created"
	}
	metrics.ArticlesSaved.WithLabelValues(outcome).Inc()
	s.log.Info("article saved",
		zap.String("url", a.URL),
		zap.Int64("id", res.ID),
		zap.String("outcome", outcome))
	return res, nil
}

func normalizeSubmission(a *models.ArticleSubmission) error {
	a.URL = strings.TrimSpace(a.URL)
	if a.URL == "" {
		return fmt.Errorf("%w: url is required", models.ErrValidation)
	}

	var err error
	if a.Authors, err = cleanNames("author", a.Authors); err != nil {
		return err
	}
	if a.Keywords, err = cleanNames("keyword", a.Keywords); err != nil {
		return err
	}
	if a.Entities, err = cleanNames("entity", a.Entities); err != nil {
		return err
	}
	a.Source = strings.TrimSpace(a.Source)
	a.Category = strings.TrimSpace(a.Category)

	if sm := a.SourcesMentioned; sm != nil {
		for _, m := range sm.Rows() {
			if strings.TrimSpace(m.Name) == "" || m.Count < 0 {
				return fmt.Errorf("%w: invalid mentioned source %q count=%d", models.ErrValidation, m.Name, m.Count)
			}
		}
	}

	if a.Published, err = parseDate("published_date", a.PublishedDate); err != nil {
		return err
	}
	if a.Created, err = parseDate("created_date", a.CreatedDate); err != nil {
		return err
	}
	if a.Modified, err = parseDate("modified_date", a.ModifiedDate); err != nil {
		return err
	}
	return nil
}

func cleanNames(kind string, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, fmt.Errorf("%w: empty %s name", models.ErrValidation, kind)
		}
		out = append(out, n)
	}
	return out, nil
}

// parseDate accepts the date formats scrapers emit. Empty means unknown.
func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", models.ErrValidation, field, value, err)
	}
	return &t, nil
}

func requireURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("%w: url is required", models.ErrValidation)
	}
	return nil
}

// Clean extracts plain text and sanitized HTML from raw article HTML.
func (s *Service) Clean(html string) (extract.Result, error) {
	if strings.TrimSpace(html) == "" {
		return extract.Result{}, fmt.Errorf("%w: html_content is required", models.ErrValidation)
	}
	return extract.Extract(html)
}

func (s *Service) Summarize(ctx context.Context, text string) (string, error) {
	return s.enricher.Summarize(ctx, text)
}

func (s *Service) Categorize(ctx context.Context, title, text string) (string, error) {
	return s.enricher.Categorize(ctx, title, text)
}

// AnalyzeSources returns the cited sources and their credibility score.
func (s *Service) AnalyzeSources(ctx context.Context, in enrich.SourcesInput) (models.SourcesMentioned, int, error) {
	sm, err := s.enricher.AnalyzeSources(ctx, in)
	if err != nil {
		return models.SourcesMentioned{}, 0, err
	}
	return sm, sm.Score(), nil
}

func (s *Service) LateralReadingQuestions(ctx context.Context, text string) (string, []models.Question, error) {
	return s.enricher.LateralReadingQuestions(ctx, text)
}

func (s *Service) AnalyzeLanguage(ctx context.Context, text string) (string, error) {
	return s.enricher.AnalyzeLanguage(ctx, text)
}

// Articles returns the newest articles, NotFound when there are none.
func (s *Service) Articles(ctx context.Context, limit int) ([]*models.Article, error) {
	rows, err := s.repo.All(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("articles: %w", models.ErrNotFound)
	}
	return rows, nil
}

func (s *Service) Article(ctx context.Context, url string) (*models.Article, error) {
	if err := requireURL(url); err != nil {
		return nil, err
	}
	return s.repo.GetByURL(ctx, url)
}

func (s *Service) ArticleDetails(ctx context.Context, url string) (*models.ArticleDetails, error) {
	if err := requireURL(url); err != nil {
		return nil, err
	}
	return s.repo.GetDetails(ctx, url)
}

func (s *Service) ArticlesByAuthor(ctx context.Context, name string) ([]*models.Article, error) {
	return s.repo.ByAuthor(ctx, name)
}

func (s *Service) ArticlesByKeyword(ctx context.Context, keyword string) ([]*models.Article, error) {
	return s.repo.ByKeyword(ctx, keyword)
}

func (s *Service) Authors(ctx context.Context) ([]models.Author, error) {
	return s.repo.Authors(ctx)
}

func (s *Service) Keywords(ctx context.Context) ([]models.Keyword, error) {
	return s.repo.Keywords(ctx)
}

// MarkSaved records that a reader saved the article at url and returns the
// new saved count.
func (s *Service) MarkSaved(ctx context.Context, url string) (int, error) {
	if err := requireURL(url); err != nil {
		return 0, err
	}
	return s.repo.IncrementSaved(ctx, url)
}

func (s *Service) UpdateArticle(ctx context.Context, id int64, u *models.ArticleUpdate) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid article id %d", models.ErrValidation, id)
	}
	var err error
	if u.Title != nil {
		t := strings.TrimSpace(*u.Title)
		u.Title = &t
	}
	if u.PublishedDate != nil {
		if u.Published, err = parseDate("published_date", *u.PublishedDate); err != nil {
			return err
		}
	}
	if u.ModifiedDate != nil {
		if u.Modified, err = parseDate("modified_date", *u.ModifiedDate); err != nil {
			return err
		}
	}
	if u.Authors != nil {
		if u.Authors, err = cleanNames("author", u.Authors); err != nil {
			return err
		}
	}

	if err := s.repo.Update(ctx, id, u); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.log.Error("update article failed", zap.Int64("id", id), zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *Service) DeleteArticle(ctx context.Context, url string) error {
	if err := requireURL(url); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, url); err != nil {
		return err
	}
	s.log.Info("article deleted", zap.String("url", url))
	return nil
}
