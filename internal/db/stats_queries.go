package db

import (
	"context"
	"fmt"
	"time"
)

// WindowStats is the read model returned by the stats command for one
// UTC calendar day.
type WindowStats struct {
	Day             string   `json:"day"`
	Articles        int64    `json:"articles"`
	Clusters        int64    `json:"clusters"`
	LabeledClusters int64    `json:"labeled_clusters"`
	Candidates      int64    `json:"candidates"`
	AvgClusterSize  float64  `json:"avg_cluster_size"`
	TopScore        *float64 `json:"top_score,omitempty"`
}

// QueryWindowStats returns article/cluster/candidate counts for one window.
func (p *Pool) QueryWindowStats(ctx context.Context, windowDate, from, to time.Time) (*WindowStats, error) {
	day := windowDate.UTC()
	stats := &WindowStats{Day: day.Format("2006-01-02")}

	const articlesQ = `
SELECT COUNT(*)
FROM news.articles a
WHERE (a.published_at >= $1 AND a.published_at < $2)
   OR (a.published_at IS NULL AND a.created_at >= $1 AND a.created_at < $2)
`
	if err := p.QueryRow(ctx, articlesQ, from.UTC(), to.UTC()).Scan(&stats.Articles); err != nil {
		return nil, fmt.Errorf("count window articles: %w", err)
	}

	const clustersQ = `
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE label IS NOT NULL),
	MAX(score)
FROM news.story_clusters
WHERE window_date = $1
`
	if err := p.QueryRow(ctx, clustersQ, day).Scan(&stats.Clusters, &stats.LabeledClusters, &stats.TopScore); err != nil {
		return nil, fmt.Errorf("count window clusters: %w", err)
	}

	const candidatesQ = `
SELECT COUNT(*)
FROM news.ranked_candidates
WHERE window_date = $1
`
	if err := p.QueryRow(ctx, candidatesQ, day).Scan(&stats.Candidates); err != nil {
		return nil, fmt.Errorf("count window candidates: %w", err)
	}

	if stats.Clusters > 0 {
		const sizeQ = `
SELECT COUNT(*)::DOUBLE PRECISION / $2
FROM news.cluster_memberships m
JOIN news.story_clusters c
	ON c.cluster_id = m.cluster_id
WHERE c.window_date = $1
`
		if err := p.QueryRow(ctx, sizeQ, day, stats.Clusters).Scan(&stats.AvgClusterSize); err != nil {
			return nil, fmt.Errorf("compute avg cluster size: %w", err)
		}
	}

	return stats, nil
}
