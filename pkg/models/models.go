package models

import (
	"time"

	dbtypes "github.com/clearview/clearview_api/internal/db"
)

// Mentioned-source kinds as stored in mentioned_sources.source_type.
const (
	SourceTypeCredible = "credible_news_source"
	SourceTypeSocial   = "social_media"
)

// Article is a row of the article table.
type Article struct {
	ID            int64      `db:"id" json:"id"`
	URL           string     `db:"url" json:"url"`
	Title         string     `db:"title" json:"title"`
	PublishedDate *time.Time `db:"published_date" json:"published_date"`
	CreatedDate   *time.Time `db:"created_date" json:"created_date"`
	ModifiedDate  *time.Time `db:"modified_date" json:"modified_date"`
	ImageURL      string     `db:"image_url" json:"image_url"`
	Text          string     `db:"text" json:"text"`
	Summary       string     `db:"summary" json:"summary"`
	ReadingTime   *int       `db:"reading_time" json:"reading_time"`
	FK            *int64     `db:"fk" json:"fk"`
	TimesViewed   int        `db:"times_viewed" json:"times_viewed"`
	SavedCount    int        `db:"saved_count" json:"saved_count"`
}

// ArticleDetails is an article joined with every relation the ingestion
// pipeline writes.
type ArticleDetails struct {
	Article
	Authors          dbtypes.StringSlice `db:"authors" json:"authors"`
	Keywords         dbtypes.StringSlice `db:"keywords" json:"keywords"`
	Source           *string             `db:"source_name" json:"source"`
	SourceLogo       *string             `db:"source_logo" json:"source_logo"`
	Category         *string             `db:"category" json:"category"`
	LanguageAnalysis dbtypes.JSON        `db:"language_analysis" json:"language_analysis"`
	SourcesMentioned SourcesMentioned    `db:"-" json:"sources_mentioned"`
	Questions        []Question          `db:"-" json:"questions"`
}

// ArticleSubmission is the aggregate payload clients post to /articles.
// Dates arrive as scraped strings; the parsed values are filled in by the
// service before the submission reaches the store.
type ArticleSubmission struct {
	URL              string            `json:"url"`
	Title            string            `json:"title"`
	Authors          []string          `json:"author"`
	PublishedDate    string            `json:"published_date"`
	CreatedDate      string            `json:"created_date"`
	ModifiedDate     string            `json:"modified_date"`
	Keywords         []string          `json:"keywords"`
	Entities         []string          `json:"entities"`
	Source           string            `json:"source"`
	SourceLogo       string            `json:"source_logo"`
	ImageURL         string            `json:"imageUrl"`
	Text             string            `json:"text"`
	Summary          string            `json:"summary"`
	ReadingTime      *int              `json:"reading_time"`
	FK               *int64            `json:"fk"`
	SourcesMentioned *SourcesMentioned `json:"sources_mentioned"`
	Questions        string            `json:"questions"`
	Category         string            `json:"category"`
	LanguageAnalysis dbtypes.JSON      `json:"language_analysis"`

	Published *time.Time `json:"-"`
	Created   *time.Time `json:"-"`
	Modified  *time.Time `json:"-"`
}

// Terms returns keywords followed by entities, deduplicated in first-seen
// order. Entities share the keyword space.
func (s *ArticleSubmission) Terms() []string {
	seen := make(map[string]struct{}, len(s.Keywords)+len(s.Entities))
	out := make([]string, 0, len(s.Keywords)+len(s.Entities))
	for _, list := range [][]string{s.Keywords, s.Entities} {
		for _, t := range list {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// ArticleUpdate is a partial update for PUT /articles/:id. Nil fields are left
// untouched; a non-nil Authors replaces the article's author links.
type ArticleUpdate struct {
	Title         *string  `json:"title"`
	PublishedDate *string  `json:"published_date"`
	ModifiedDate  *string  `json:"modified_date"`
	ImageURL      *string  `json:"imageUrl"`
	Summary       *string  `json:"summary"`
	Authors       []string `json:"author"`

	Published *time.Time `json:"-"`
	Modified  *time.Time `json:"-"`
}

// SaveResult reports the id of a saved article and whether the row was new.
type SaveResult struct {
	ID      int64 `json:"id"`
	Created bool  `json:"created"`
}

type Author struct {
	ID   int64  `db:"author_id" json:"id"`
	Name string `db:"name" json:"name"`
}

type Keyword struct {
	ID      int64  `db:"id" json:"id"`
	Keyword string `db:"keyword" json:"keyword"`
}

// MentionedSource is one row of mentioned_sources.
type MentionedSource struct {
	Name  string `db:"source_name" json:"source_name"`
	Type  string `db:"source_type" json:"source_type"`
	Count int    `db:"count" json:"count"`
}
