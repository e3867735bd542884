package db

import (
	"context"
	"fmt"
	"time"
)

// CandidateRow is the read model for the persisted candidate list. Volume
// and breadth are projections of stored memberships, not a recomputation of
// the ranking run.
type CandidateRow struct {
	Rank      int     `json:"rank"`
	ClusterID int64   `json:"cluster_id"`
	Label     *string `json:"label,omitempty"`
	Score     float64 `json:"score"`
	Volume    int     `json:"volume"`
	Breadth   int     `json:"breadth"`
}

// ReplaceWindowCandidates deletes every ranked candidate for the window and
// inserts the new ordering with dense 1-based ranks. An empty cluster list
// still clears the window.
func (p *Pool) ReplaceWindowCandidates(ctx context.Context, windowDate time.Time, clusterIDs []int64, now time.Time) error {
	day := windowDate.UTC()

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return fmt.Errorf("begin candidate replace tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const deleteQ = `DELETE FROM news.ranked_candidates WHERE window_date = $1`
	if _, err := tx.Exec(ctx, deleteQ, day); err != nil {
		return fmt.Errorf("delete candidates for window %s: %w", day.Format("2006-01-02"), err)
	}

	const insertQ = `
INSERT INTO news.ranked_candidates (window_date, cluster_id, rank, created_at)
VALUES ($1, $2, $3, $4)
`
	for i, clusterID := range clusterIDs {
		if _, err := tx.Exec(ctx, insertQ, day, clusterID, i+1, now.UTC()); err != nil {
			return fmt.Errorf("insert candidate cluster_id=%d rank=%d: %w", clusterID, i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit candidate replace tx: %w", err)
	}
	return nil
}

// ListWindowCandidates returns the persisted candidate ordering for a
// window. Volume and breadth come from the stored memberships restricted to
// the window's published-at boundaries.
func (p *Pool) ListWindowCandidates(ctx context.Context, windowDate, from, to time.Time) ([]CandidateRow, error) {
	const q = `
SELECT
	rc.rank,
	rc.cluster_id,
	c.label,
	c.score,
	COUNT(a.article_id) FILTER (WHERE a.published_at >= $2 AND a.published_at < $3) AS volume,
	COUNT(DISTINCT COALESCE(NULLIF(TRIM(a.publisher), ''), NULLIF(TRIM(s.name), ''), 'Unknown Publisher'))
		FILTER (WHERE a.published_at >= $2 AND a.published_at < $3) AS breadth
FROM news.ranked_candidates rc
JOIN news.story_clusters c
	ON c.cluster_id = rc.cluster_id
LEFT JOIN news.cluster_memberships m
	ON m.cluster_id = rc.cluster_id
LEFT JOIN news.articles a
	ON a.article_id = m.article_id
LEFT JOIN news.sources s
	ON s.source_id = a.source_id
WHERE rc.window_date = $1
GROUP BY rc.rank, rc.cluster_id, c.label, c.score
ORDER BY rc.rank ASC
`

	rows, err := p.Query(ctx, q, windowDate.UTC(), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query window candidates: %w", err)
	}
	defer rows.Close()

	items := make([]CandidateRow, 0, 30)
	for rows.Next() {
		var row CandidateRow
		if err := rows.Scan(
			&row.Rank,
			&row.ClusterID,
			&row.Label,
			&row.Score,
			&row.Volume,
			&row.Breadth,
		); err != nil {
			return nil, fmt.Errorf("scan window candidate: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate window candidates: %w", err)
	}
	return items, nil
}

// ListCandidateClusterIDs returns the cluster ids currently stored for a
// window, ordered by rank. Used to validate manual reorders.
func (p *Pool) ListCandidateClusterIDs(ctx context.Context, windowDate time.Time) ([]int64, error) {
	const q = `
SELECT cluster_id
FROM news.ranked_candidates
WHERE window_date = $1
ORDER BY rank ASC
`

	rows, err := p.Query(ctx, q, windowDate.UTC())
	if err != nil {
		return nil, fmt.Errorf("query candidate cluster ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, 30)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan candidate cluster id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate cluster ids: %w", err)
	}
	return ids, nil
}

// UpdateCandidateRanks rewrites rank values for a window in one transaction.
// It never inserts or deletes candidate rows. The unique (window_date, rank)
// constraint is deferred, so rank swaps inside the transaction are legal.
func (p *Pool) UpdateCandidateRanks(ctx context.Context, windowDate time.Time, orderedClusterIDs []int64) error {
	day := windowDate.UTC()

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return fmt.Errorf("begin reorder tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const q = `
UPDATE news.ranked_candidates
SET rank = $3
WHERE window_date = $1
  AND cluster_id = $2
`
	for i, clusterID := range orderedClusterIDs {
		tag, err := tx.Exec(ctx, q, day, clusterID, i+1)
		if err != nil {
			return fmt.Errorf("update rank cluster_id=%d: %w", clusterID, err)
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("cluster %d is not a candidate for window %s", clusterID, day.Format("2006-01-02"))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reorder tx: %w", err)
	}
	return nil
}
