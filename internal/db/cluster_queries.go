package db

import (
	"context"
	"fmt"
	"time"
)

// NewCluster is the write model one clustering run produces per cluster.
type NewCluster struct {
	Label    string
	Category *string
	MemberID []int64
}

// ReplaceWindowClusters deletes every cluster (and, via cascade, every
// membership) for the window, clears the window's ranked candidates so no
// candidate outlives the cluster it points at, then inserts the new
// clusters. Repeat runs on the same window are idempotent in effect.
func (p *Pool) ReplaceWindowClusters(ctx context.Context, windowDate time.Time, clusters []NewCluster, now time.Time) (replaced int64, clusterIDs []int64, err error) {
	day := windowDate.UTC()

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return 0, nil, fmt.Errorf("begin cluster replace tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const deleteCandidatesQ = `DELETE FROM news.ranked_candidates WHERE window_date = $1`
	if _, err := tx.Exec(ctx, deleteCandidatesQ, day); err != nil {
		return 0, nil, fmt.Errorf("clear ranked candidates for window %s: %w", day.Format("2006-01-02"), err)
	}

	const deleteClustersQ = `DELETE FROM news.story_clusters WHERE window_date = $1`
	tag, err := tx.Exec(ctx, deleteClustersQ, day)
	if err != nil {
		return 0, nil, fmt.Errorf("delete clusters for window %s: %w", day.Format("2006-01-02"), err)
	}
	replaced = tag.RowsAffected()

	const insertClusterQ = `
INSERT INTO news.story_clusters (window_date, label, score, category, created_at, updated_at)
VALUES ($1, $2, 0, $3, $4, $4)
RETURNING cluster_id
`
	const insertMembershipQ = `
INSERT INTO news.cluster_memberships (cluster_id, article_id, created_at)
VALUES ($1, $2, $3)
`

	clusterIDs = make([]int64, 0, len(clusters))
	for _, cluster := range clusters {
		var clusterID int64
		if err := tx.QueryRow(ctx, insertClusterQ, day, cluster.Label, cluster.Category, now.UTC()).Scan(&clusterID); err != nil {
			return 0, nil, fmt.Errorf("insert cluster %q: %w", cluster.Label, err)
		}
		for _, articleID := range cluster.MemberID {
			if _, err := tx.Exec(ctx, insertMembershipQ, clusterID, articleID, now.UTC()); err != nil {
				return 0, nil, fmt.Errorf("insert membership cluster_id=%d article_id=%d: %w", clusterID, articleID, err)
			}
		}
		clusterIDs = append(clusterIDs, clusterID)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, fmt.Errorf("commit cluster replace tx: %w", err)
	}
	return replaced, clusterIDs, nil
}

// WindowMemberRow is one (cluster, article) pair the ranker consumes.
type WindowMemberRow struct {
	ClusterID   int64
	Label       *string
	ArticleID   int64
	Publisher   *string
	SourceName  *string
	PublishedAt time.Time
}

// ListWindowMembers returns the memberships of all clusters in a window,
// restricted to articles whose published timestamp falls inside [from, to).
func (p *Pool) ListWindowMembers(ctx context.Context, windowDate, from, to time.Time) ([]WindowMemberRow, error) {
	const q = `
SELECT
	c.cluster_id,
	c.label,
	a.article_id,
	a.publisher,
	s.name,
	a.published_at
FROM news.story_clusters c
JOIN news.cluster_memberships m
	ON m.cluster_id = c.cluster_id
JOIN news.articles a
	ON a.article_id = m.article_id
LEFT JOIN news.sources s
	ON s.source_id = a.source_id
WHERE c.window_date = $1
  AND a.published_at >= $2
  AND a.published_at < $3
ORDER BY c.cluster_id ASC, a.published_at DESC, a.article_id ASC
`

	rows, err := p.Query(ctx, q, windowDate.UTC(), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query window members: %w", err)
	}
	defer rows.Close()

	items := make([]WindowMemberRow, 0, 256)
	for rows.Next() {
		var row WindowMemberRow
		if err := rows.Scan(
			&row.ClusterID,
			&row.Label,
			&row.ArticleID,
			&row.Publisher,
			&row.SourceName,
			&row.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan window member: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate window members: %w", err)
	}
	return items, nil
}

// ListWindowClusterIDs returns every cluster id for a window, including
// clusters whose members all fall outside the published-at boundary filter.
func (p *Pool) ListWindowClusterIDs(ctx context.Context, windowDate time.Time) ([]int64, error) {
	const q = `
SELECT cluster_id
FROM news.story_clusters
WHERE window_date = $1
ORDER BY cluster_id ASC
`

	rows, err := p.Query(ctx, q, windowDate.UTC())
	if err != nil {
		return nil, fmt.Errorf("query window cluster ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, 64)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan window cluster id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate window cluster ids: %w", err)
	}
	return ids, nil
}

// ClusterScore carries one score write-back from the ranker.
type ClusterScore struct {
	ClusterID int64
	Score     float64
}

// UpdateClusterScores overwrites scores for the given clusters in one
// transaction. Every cluster in the window gets a score, not just the top
// candidates.
func (p *Pool) UpdateClusterScores(ctx context.Context, scores []ClusterScore, now time.Time) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return fmt.Errorf("begin score update tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const q = `
UPDATE news.story_clusters
SET score = $2, updated_at = $3
WHERE cluster_id = $1
`
	for _, item := range scores {
		if _, err := tx.Exec(ctx, q, item.ClusterID, item.Score, now.UTC()); err != nil {
			return fmt.Errorf("update score cluster_id=%d: %w", item.ClusterID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit score update tx: %w", err)
	}
	return nil
}

// ClusterHeader is the cluster section of the detail read model.
type ClusterHeader struct {
	ClusterID  int64     `json:"cluster_id"`
	WindowDate time.Time `json:"window_date"`
	Label      *string   `json:"label,omitempty"`
	Score      float64   `json:"score"`
	Category   *string   `json:"category,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ClusterMemberArticle is one member article within a cluster, ordered most
// recent first with missing timestamps last.
type ClusterMemberArticle struct {
	ArticleID   int64      `json:"article_id"`
	Title       string     `json:"title"`
	Snippet     *string    `json:"snippet,omitempty"`
	Publisher   *string    `json:"publisher,omitempty"`
	SourceName  *string    `json:"source_name,omitempty"`
	URL         *string    `json:"url,omitempty"`
	Language    *string    `json:"language,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// GetClusterHeader returns one cluster by id.
func (p *Pool) GetClusterHeader(ctx context.Context, clusterID int64) (*ClusterHeader, error) {
	const q = `
SELECT cluster_id, window_date, label, score, category, created_at, updated_at
FROM news.story_clusters
WHERE cluster_id = $1
`

	var header ClusterHeader
	if err := p.QueryRow(ctx, q, clusterID).Scan(
		&header.ClusterID,
		&header.WindowDate,
		&header.Label,
		&header.Score,
		&header.Category,
		&header.CreatedAt,
		&header.UpdatedAt,
	); err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query cluster header: %w", err)
	}
	return &header, nil
}

// ListClusterMembers returns a cluster's member articles, most recent first,
// missing timestamps last, article_id as the deterministic tie break.
func (p *Pool) ListClusterMembers(ctx context.Context, clusterID int64) ([]ClusterMemberArticle, error) {
	const q = `
SELECT
	a.article_id,
	a.title,
	a.snippet,
	a.publisher,
	s.name,
	a.url,
	a.language,
	a.published_at
FROM news.cluster_memberships m
JOIN news.articles a
	ON a.article_id = m.article_id
LEFT JOIN news.sources s
	ON s.source_id = a.source_id
WHERE m.cluster_id = $1
ORDER BY a.published_at DESC NULLS LAST, a.article_id ASC
`

	rows, err := p.Query(ctx, q, clusterID)
	if err != nil {
		return nil, fmt.Errorf("query cluster members: %w", err)
	}
	defer rows.Close()

	items := make([]ClusterMemberArticle, 0, 16)
	for rows.Next() {
		var row ClusterMemberArticle
		if err := rows.Scan(
			&row.ArticleID,
			&row.Title,
			&row.Snippet,
			&row.Publisher,
			&row.SourceName,
			&row.URL,
			&row.Language,
			&row.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cluster member: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster members: %w", err)
	}
	return items, nil
}
