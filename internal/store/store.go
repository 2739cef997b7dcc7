package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/clearview/clearview_api/pkg/models"
)

type PgStore struct {
	db *sqlx.DB
	// replace drops an article's previous enrichment rows of a kind before
	// inserting a resubmitted one; otherwise they accumulate.
	replace bool
}

func NewPgStore(db *sql.DB, replaceEnrichments bool) *PgStore {
	return &PgStore{db: sqlx.NewDb(db, "postgres"), replace: replaceEnrichments}
}

// Ping checks the database connection.
func (p *PgStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

const (
	insertArticleSQL = `
INSERT INTO article (url, title, published_date, created_date, modified_date, image_url, text, summary, reading_time, fk)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (url) DO UPDATE SET times_viewed = article.times_viewed + 1
RETURNING id, (xmax = 0) AS created`

	upsertAuthorSQL = `
INSERT INTO author (name) VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING author_id`

	linkAuthorSQL = `INSERT INTO article_author (article_id, author_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	upsertKeywordSQL = `
INSERT INTO keyword (keyword) VALUES ($1)
ON CONFLICT (keyword) DO UPDATE SET keyword = EXCLUDED.keyword
RETURNING id`

	linkKeywordSQL = `INSERT INTO article_keyword (article_id, keyword_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	upsertSourceSQL = `
INSERT INTO source (name, logo) VALUES ($1, NULLIF($2, ''))
ON CONFLICT (name) DO UPDATE SET logo = COALESCE(EXCLUDED.logo, source.logo)
RETURNING id`

	linkSourceSQL = `INSERT INTO article_source (article_id, source_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	insertMentionedSQL = `INSERT INTO mentioned_sources (article_id, source_name, source_type, count) VALUES ($1, $2, $3, $4)`
	insertQuestionSQL  = `INSERT INTO article_questions (article_id, question, importance) VALUES ($1, $2, $3)`
	insertCategorySQL  = `INSERT INTO article_category (article_id, category) VALUES ($1, $2)`
	insertAnalysisSQL  = `INSERT INTO language_analysis (article_id, analysis) VALUES ($1, $2::jsonb)`
)

// Save upserts an article and all of its relations in one transaction. A
// resubmitted url keeps its stored fields and only has times_viewed bumped.
func (p *PgStore) Save(ctx context.Context, a *models.ArticleSubmission) (res models.SaveResult, err error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			err = classify(err)
		}
	}()

	err = tx.QueryRowxContext(ctx, insertArticleSQL,
		a.URL,
		a.Title,
		a.Published,
		a.Created,
		a.Modified,
		a.ImageURL,
		a.Text,
		a.Summary,
		a.ReadingTime,
		a.FK,
	).Scan(&res.ID, &res.Created)
	if err != nil {
		return res, fmt.Errorf("upsert article url=%s: %w", a.URL, err)
	}

	if err = linkAuthors(ctx, tx, res.ID, a.Authors); err != nil {
		return res, err
	}

	for _, term := range a.Terms() {
		kwID, err := lookupOrCreate(ctx, tx, upsertKeywordSQL, term)
		if err != nil {
			return res, fmt.Errorf("upsert keyword %q: %w", term, err)
		}
		if _, err := tx.ExecContext(ctx, linkKeywordSQL, res.ID, kwID); err != nil {
			return res, fmt.Errorf("link keyword %q: %w", term, err)
		}
	}

	if a.Source != "" {
		srcID, err := lookupOrCreate(ctx, tx, upsertSourceSQL, a.Source, a.SourceLogo)
		if err != nil {
			return res, fmt.Errorf("upsert source %q: %w", a.Source, err)
		}
		if _, err := tx.ExecContext(ctx, linkSourceSQL, res.ID, srcID); err != nil {
			return res, fmt.Errorf("link source %q: %w", a.Source, err)
		}
	}

	if a.SourcesMentioned != nil {
		if err = p.clear(ctx, tx, "mentioned_sources", res.ID); err != nil {
			return res, err
		}
		for _, m := range a.SourcesMentioned.Rows() {
			if _, err = tx.ExecContext(ctx, insertMentionedSQL, res.ID, m.Name, m.Type, m.Count); err != nil {
				return res, fmt.Errorf("insert mentioned source %q: %w", m.Name, err)
			}
		}
	}

	if qs := models.ParseQuestions(a.Questions); len(qs) > 0 {
		if err = p.clear(ctx, tx, "article_questions", res.ID); err != nil {
			return res, err
		}
		for _, q := range qs {
			if _, err = tx.ExecContext(ctx, insertQuestionSQL, res.ID, q.Text, q.Rank); err != nil {
				return res, fmt.Errorf("insert question %d: %w", q.Rank, err)
			}
		}
	}

	if a.Category != "" {
		if err = p.clear(ctx, tx, "article_category", res.ID); err != nil {
			return res, err
		}
		if _, err = tx.ExecContext(ctx, insertCategorySQL, res.ID, a.Category); err != nil {
			return res, fmt.Errorf("insert category: %w", err)
		}
	}

	if !a.LanguageAnalysis.IsZero() {
		if err = p.clear(ctx, tx, "language_analysis", res.ID); err != nil {
			return res, err
		}
		if _, err = tx.ExecContext(ctx, insertAnalysisSQL, res.ID, a.LanguageAnalysis); err != nil {
			return res, fmt.Errorf("insert language analysis: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func linkAuthors(ctx context.Context, tx *sqlx.Tx, articleID int64, authors []string) error {
	for _, name := range authors {
		authorID, err := lookupOrCreate(ctx, tx, upsertAuthorSQL, name)
		if err != nil {
			return fmt.Errorf("upsert author %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, linkAuthorSQL, articleID, authorID); err != nil {
			return fmt.Errorf("link author %q: %w", name, err)
		}
	}
	return nil
}

// lookupOrCreate runs an upsert that returns the id of the new or existing row.
func lookupOrCreate(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (int64, error) {
	var id int64
	err := tx.QueryRowxContext(ctx, query, args...).Scan(&id)
	return id, err
}

// clear removes an article's rows from an enrichment table when replace mode
// is on. table is always one of the package's constant table names.
func (p *PgStore) clear(ctx context.Context, tx *sqlx.Tx, table string, articleID int64) error {
	if !p.replace {
		return nil
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE article_id = $1", articleID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	return nil
}

// classify marks postgres data and constraint errors as validation failures.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "22", "23":
			return fmt.Errorf("%w: %v", models.ErrValidation, err)
		}
	}
	return err
}

func articleColumns(alias string) string {
	cols := []string{"id", "url", "title", "published_date", "created_date", "modified_date",
		"image_url", "text", "summary", "reading_time", "fk", "times_viewed", "saved_count"}
	if alias == "" {
		return strings.Join(cols, ", ")
	}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// All returns articles newest first. A non-positive limit returns every row.
func (p *PgStore) All(ctx context.Context, limit int) ([]*models.Article, error) {
	rows := []*models.Article{}
	query := `SELECT ` + articleColumns("") + ` FROM article ORDER BY id DESC`
	var err error
	if limit > 0 {
		err = p.db.SelectContext(ctx, &rows, query+` LIMIT $1`, limit)
	} else {
		err = p.db.SelectContext(ctx, &rows, query)
	}
	return rows, err
}

func (p *PgStore) GetByURL(ctx context.Context, url string) (*models.Article, error) {
	var a models.Article
	err := p.db.GetContext(ctx, &a, `SELECT `+articleColumns("")+` FROM article WHERE url = $1`, url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("article url=%s: %w", url, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const detailsSQL = `
SELECT %s,
  COALESCE((SELECT json_agg(au.name ORDER BY au.name)
            FROM article_author aa JOIN author au ON au.author_id = aa.author_id
            WHERE aa.article_id = a.id), '[]'::json) AS authors,
  COALESCE((SELECT json_agg(k.keyword ORDER BY k.keyword)
            FROM article_keyword ak JOIN keyword k ON k.id = ak.keyword_id
            WHERE ak.article_id = a.id), '[]'::json) AS keywords,
  s.name AS source_name,
  s.logo AS source_logo,
  (SELECT c.category FROM article_category c
   WHERE c.article_id = a.id ORDER BY c.id DESC LIMIT 1) AS category,
  (SELECT l.analysis FROM language_analysis l
   WHERE l.article_id = a.id ORDER BY l.id DESC LIMIT 1) AS language_analysis
FROM article a
LEFT JOIN LATERAL (
  SELECT so.name, so.logo FROM article_source ars JOIN source so ON so.id = ars.source_id
  WHERE ars.article_id = a.id ORDER BY so.id LIMIT 1
) s ON true
WHERE a.url = $1`

// Rows accumulate when enrichments are resubmitted in append mode, so the
// detail view keeps the most recent row per source and per rank.
const (
	detailsMentionedSQL = `
SELECT DISTINCT ON (source_type, source_name) source_name, source_type, count
FROM mentioned_sources WHERE article_id = $1
ORDER BY source_type, source_name, id DESC`

	detailsQuestionsSQL = `
SELECT DISTINCT ON (importance) importance, question
FROM article_questions WHERE article_id = $1
ORDER BY importance, id DESC`
)

// GetDetails returns the article at url joined with all of its relations.
func (p *PgStore) GetDetails(ctx context.Context, url string) (*models.ArticleDetails, error) {
	var d models.ArticleDetails
	err := p.db.GetContext(ctx, &d, fmt.Sprintf(detailsSQL, articleColumns("a")), url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("article url=%s: %w", url, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("article details: %w", err)
	}

	var mentioned []models.MentionedSource
	if err := p.db.SelectContext(ctx, &mentioned, detailsMentionedSQL, d.ID); err != nil {
		return nil, fmt.Errorf("mentioned sources: %w", err)
	}
	d.SourcesMentioned = models.SourcesFromRows(mentioned)

	d.Questions = []models.Question{}
	if err := p.db.SelectContext(ctx, &d.Questions, detailsQuestionsSQL, d.ID); err != nil {
		return nil, fmt.Errorf("questions: %w", err)
	}
	return &d, nil
}

// ByAuthor returns the articles of an author, latest published first.
func (p *PgStore) ByAuthor(ctx context.Context, name string) ([]*models.Article, error) {
	query := `
SELECT ` + articleColumns("a") + `
FROM article a
JOIN article_author aa ON aa.article_id = a.id
JOIN author au ON au.author_id = aa.author_id
WHERE au.name = $1
ORDER BY a.published_date DESC NULLS LAST, a.id DESC`
	rows := []*models.Article{}
	if err := p.db.SelectContext(ctx, &rows, query, name); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("author %q: %w", name, models.ErrNotFound)
	}
	return rows, nil
}

// ByKeyword returns the articles tagged with a keyword, latest published first.
func (p *PgStore) ByKeyword(ctx context.Context, keyword string) ([]*models.Article, error) {
	query := `
SELECT ` + articleColumns("a") + `
FROM article a
JOIN article_keyword ak ON ak.article_id = a.id
JOIN keyword k ON k.id = ak.keyword_id
WHERE k.keyword = $1
ORDER BY a.published_date DESC NULLS LAST, a.id DESC`
	rows := []*models.Article{}
	if err := p.db.SelectContext(ctx, &rows, query, keyword); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("keyword %q: %w", keyword, models.ErrNotFound)
	}
	return rows, nil
}

func (p *PgStore) Authors(ctx context.Context) ([]models.Author, error) {
	rows := []models.Author{}
	err := p.db.SelectContext(ctx, &rows, `SELECT author_id, name FROM author ORDER BY name`)
	return rows, err
}

func (p *PgStore) Keywords(ctx context.Context) ([]models.Keyword, error) {
	rows := []models.Keyword{}
	err := p.db.SelectContext(ctx, &rows, `SELECT id, keyword FROM keyword ORDER BY keyword`)
	return rows, err
}

// IncrementSaved bumps saved_count and returns the new value.
func (p *PgStore) IncrementSaved(ctx context.Context, url string) (int, error) {
	var n int
	err := p.db.QueryRowxContext(ctx,
		`UPDATE article SET saved_count = saved_count + 1 WHERE url = $1 RETURNING saved_count`, url,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("article url=%s: %w", url, models.ErrNotFound)
	}
	return n, err
}

const updateArticleSQL = `
UPDATE article SET
  title = COALESCE($2, title),
  published_date = COALESCE($3, published_date),
  modified_date = COALESCE($4, modified_date),
  image_url = COALESCE($5, image_url),
  summary = COALESCE($6, summary)
WHERE id = $1
RETURNING id`

// Update applies a partial update to the article with the given id. A
// non-nil author list replaces the article's author links.
func (p *PgStore) Update(ctx context.Context, id int64, u *models.ArticleUpdate) (err error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			err = classify(err)
		}
	}()

	var got int64
	err = tx.QueryRowxContext(ctx, updateArticleSQL, id, u.Title, u.Published, u.Modified, u.ImageURL, u.Summary).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("article id=%d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update article id=%d: %w", id, err)
	}

	if u.Authors != nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM article_author WHERE article_id = $1`, id); err != nil {
			return fmt.Errorf("clear authors: %w", err)
		}
		if err = linkAuthors(ctx, tx, id, u.Authors); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete removes the article at url; relations go with it via ON DELETE CASCADE.
func (p *PgStore) Delete(ctx context.Context, url string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM article WHERE url = $1`, url)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("article url=%s: %w", url, models.ErrNotFound)
	}
	return nil
}
