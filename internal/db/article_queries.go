package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// WindowArticle is the read model the clustering engine consumes. Rows are
// ordered most recent first; articles without a published timestamp sort
// last, with article_id as the deterministic secondary key.
type WindowArticle struct {
	ArticleID   int64      `json:"article_id"`
	Title       string     `json:"title"`
	Snippet     *string    `json:"snippet,omitempty"`
	Publisher   *string    `json:"publisher,omitempty"`
	SourceID    *int64     `json:"source_id,omitempty"`
	SourceName  *string    `json:"source_name,omitempty"`
	URL         *string    `json:"url,omitempty"`
	Language    *string    `json:"language,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ListWindowArticles returns articles published within [from, to), plus
// articles with no published timestamp (they still belong to the ingest day
// and must be clustered).
func (p *Pool) ListWindowArticles(ctx context.Context, from, to time.Time) ([]WindowArticle, error) {
	fromUTC := from.UTC()
	toUTC := to.UTC()
	if !fromUTC.Before(toUTC) {
		return nil, fmt.Errorf("from must be before to")
	}

	const q = `
SELECT
	a.article_id,
	a.title,
	a.snippet,
	a.publisher,
	a.source_id,
	s.name,
	a.url,
	a.language,
	a.published_at
FROM news.articles a
LEFT JOIN news.sources s
	ON s.source_id = a.source_id
WHERE (a.published_at >= $1 AND a.published_at < $2)
   OR (a.published_at IS NULL AND a.created_at >= $1 AND a.created_at < $2)
ORDER BY a.published_at DESC NULLS LAST, a.article_id ASC
`

	rows, err := p.Query(ctx, q, fromUTC, toUTC)
	if err != nil {
		return nil, fmt.Errorf("query window articles: %w", err)
	}
	defer rows.Close()

	items := make([]WindowArticle, 0, 256)
	for rows.Next() {
		var row WindowArticle
		if err := rows.Scan(
			&row.ArticleID,
			&row.Title,
			&row.Snippet,
			&row.Publisher,
			&row.SourceID,
			&row.SourceName,
			&row.URL,
			&row.Language,
			&row.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan window article: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate window articles: %w", err)
	}
	return items, nil
}

// NewArticle is the write model used by the import command.
type NewArticle struct {
	Title       string
	Snippet     *string
	Publisher   *string
	SourceName  *string
	URL         *string
	Language    *string
	PublishedAt *time.Time
}

// InsertArticle inserts one article, resolving the optional source name to a
// news.sources row (created on first sight).
func (p *Pool) InsertArticle(ctx context.Context, article NewArticle, now time.Time) (int64, error) {
	title := strings.TrimSpace(article.Title)
	if title == "" {
		return 0, fmt.Errorf("article title is required")
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var sourceID *int64
	if article.SourceName != nil && strings.TrimSpace(*article.SourceName) != "" {
		id, err := upsertSourceByNameTx(ctx, tx, strings.TrimSpace(*article.SourceName), now)
		if err != nil {
			return 0, err
		}
		sourceID = &id
	}

	const q = `
INSERT INTO news.articles (title, snippet, publisher, source_id, url, language, published_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING article_id
`
	var articleID int64
	if err := tx.QueryRow(
		ctx,
		q,
		title,
		article.Snippet,
		article.Publisher,
		sourceID,
		article.URL,
		article.Language,
		article.PublishedAt,
		now.UTC(),
	).Scan(&articleID); err != nil {
		return 0, fmt.Errorf("insert article: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit import tx: %w", err)
	}
	return articleID, nil
}

func upsertSourceByNameTx(ctx context.Context, tx Tx, name string, now time.Time) (int64, error) {
	const selectQ = `SELECT source_id FROM news.sources WHERE name = $1 LIMIT 1`

	var sourceID int64
	err := tx.QueryRow(ctx, selectQ, name).Scan(&sourceID)
	if err == nil {
		return sourceID, nil
	}
	if !IsNoRows(err) {
		return 0, fmt.Errorf("find source %q: %w", name, err)
	}

	const insertQ = `
INSERT INTO news.sources (name, enabled, created_at)
VALUES ($1, true, $2)
RETURNING source_id
`
	if err := tx.QueryRow(ctx, insertQ, name, now.UTC()).Scan(&sourceID); err != nil {
		return 0, fmt.Errorf("insert source %q: %w", name, err)
	}
	return sourceID, nil
}

// PreviewTarget is what the preview endpoint needs to build readable text
// for one article: the URL to fetch, plus the stored snippet and title as
// fallbacks when no URL is on record.
type PreviewTarget struct {
	Title   string
	Snippet *string
	URL     *string
}

func (p *Pool) GetArticlePreviewTarget(ctx context.Context, articleID int64) (*PreviewTarget, error) {
	const q = `SELECT title, snippet, url FROM news.articles WHERE article_id = $1`

	var target PreviewTarget
	if err := p.QueryRow(ctx, q, articleID).Scan(&target.Title, &target.Snippet, &target.URL); err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query article preview target: %w", err)
	}
	return &target, nil
}
