package store

import (
	"context"
	"database/sql"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS article (
  id BIGSERIAL PRIMARY KEY,
  url TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL DEFAULT '',
  published_date TIMESTAMPTZ,
  created_date TIMESTAMPTZ,
  modified_date TIMESTAMPTZ,
  image_url TEXT NOT NULL DEFAULT '',
  text TEXT NOT NULL DEFAULT '',
  summary TEXT NOT NULL DEFAULT '',
  reading_time INTEGER,
  fk BIGINT,
  times_viewed INTEGER NOT NULL DEFAULT 0,
  saved_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS author (
  author_id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS keyword (
  id BIGSERIAL PRIMARY KEY,
  keyword TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS source (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  logo TEXT
);

CREATE TABLE IF NOT EXISTS article_author (
  article_id BIGINT NOT NULL REFERENCES article(id) ON DELETE CASCADE,
  author_id BIGINT NOT NULL REFERENCES author(author_id) ON DELETE CASCADE,
  PRIMARY KEY (article_id, author_id)
);

CREATE TABLE IF NOT EXISTS article_keyword (
  article_id BIGINT NOT NULL REFERENCES article(id) ON DELETE CASCADE,
  keyword_id BIGINT NOT NULL REFERENCES keyword(id) ON DELETE CASCADE,
  PRIMARY KEY (article_id, keyword_id)
);

CREATE TABLE IF NOT EXISTS article_source (
  article_id BIGINT NOT NULL REFERENCES article(id) ON DELETE CASCADE,
  source_id BIGINT NOT NULL REFERENCES source(id) ON DELETE CASCADE,
  PRIMARY KEY (article_id, source_id)
);

CREATE TABLE IF NOT EXISTS mentioned_sources (
  id BIGSERIAL PRIMARY KEY,
  article_id BIGINT NOT NULL REFERENCES article(id) ON DELETE CASCADE,
  source_name TEXT NOT NULL,
  source_type TEXT NOT NULL CHECK (source_type IN ('credible_news_source', 'social_media')),
  count INTEGER NOT NULL CHECK (count >= 0)
);

CREATE TABLE IF NOT EXISTS article_questions (
  id BIGSERIAL PRIMARY KEY,
  article_id BIGINT NOT NULL REFERENCES article(id) ON DELETE CASCADE,
  question TEXT NOT NULL,
  importance INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS article_category (
  id BIGSERIAL PRIMARY KEY,
  article_id BIGINT NOT NULL REFERENCES article(id) ON DELETE CASCADE,
  category TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS language_analysis (
  id BIGSERIAL PRIMARY KEY,
  article_id BIGINT NOT NULL REFERENCES article(id) ON DELETE CASCADE,
  analysis JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_article_published ON article(published_date);
CREATE INDEX IF NOT EXISTS idx_article_author_author ON article_author(author_id);
CREATE INDEX IF NOT EXISTS idx_article_keyword_keyword ON article_keyword(keyword_id);
CREATE INDEX IF NOT EXISTS idx_mentioned_sources_article ON mentioned_sources(article_id);
CREATE INDEX IF NOT EXISTS idx_article_questions_article ON article_questions(article_id);
CREATE INDEX IF NOT EXISTS idx_article_category_article ON article_category(article_id);
CREATE INDEX IF NOT EXISTS idx_language_analysis_article ON language_analysis(article_id);
`

// RunMigrations creates the schema if it does not exist yet.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}
