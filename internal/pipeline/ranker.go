package pipeline

import (
	"math"
	"sort"
	"strings"
	"time"

	"horse.fit/newsdesk/internal/db"
)

// UnknownPublisher is the display name used when neither the article's
// publisher field nor its source resolves to a name.
const UnknownPublisher = "Unknown Publisher"

// PublisherCount reports how many of a cluster's members one publisher
// contributed. Used for observability in rank reports and cluster detail.
type PublisherCount struct {
	Publisher string `json:"publisher"`
	Count     int    `json:"count"`
}

// ClusterMetrics is the ranker's per-cluster output for one window.
type ClusterMetrics struct {
	ClusterID     int64            `json:"cluster_id"`
	Label         *string          `json:"label,omitempty"`
	Score         float64          `json:"score"`
	Volume        int              `json:"volume"`
	Breadth       int              `json:"breadth"`
	Recency       int              `json:"recency"`
	TopPublishers []PublisherCount `json:"top_publishers"`
}

// ResolvePublisher falls back from the article's own publisher field to its
// source's name to the literal unknown label.
func ResolvePublisher(publisher, sourceName *string) string {
	if publisher != nil {
		if name := strings.TrimSpace(*publisher); name != "" {
			return name
		}
	}
	if sourceName != nil {
		if name := strings.TrimSpace(*sourceName); name != "" {
			return name
		}
	}
	return UnknownPublisher
}

// rankClusters scores every cluster in the window, including clusters whose
// members all fall outside the window boundary filter (they score from zero
// counts). The result is ordered by score descending, volume descending,
// then cluster id ascending so repeated runs produce identical output.
func rankClusters(clusterIDs []int64, members []db.WindowMemberRow, windowEnd time.Time, cfg Config) []ClusterMetrics {
	recencyCutoff := windowEnd.Add(-time.Duration(cfg.RecencyWindowHours) * time.Hour)

	type accumulator struct {
		label      *string
		volume     int
		recency    int
		publishers map[string]int
	}

	byCluster := make(map[int64]*accumulator, len(clusterIDs))
	for _, id := range clusterIDs {
		byCluster[id] = &accumulator{publishers: map[string]int{}}
	}

	for _, member := range members {
		acc, ok := byCluster[member.ClusterID]
		if !ok {
			continue
		}
		acc.label = member.Label
		acc.volume++
		acc.publishers[ResolvePublisher(member.Publisher, member.SourceName)]++
		if !member.PublishedAt.Before(recencyCutoff) {
			acc.recency++
		}
	}

	metrics := make([]ClusterMetrics, 0, len(clusterIDs))
	for _, id := range clusterIDs {
		acc := byCluster[id]
		breadth := len(acc.publishers)
		score := cfg.BreadthWeight*float64(breadth) +
			cfg.VolumeWeight*float64(acc.volume) +
			cfg.RecencyWeight*float64(acc.recency)
		metrics = append(metrics, ClusterMetrics{
			ClusterID:     id,
			Label:         acc.label,
			Score:         round4(score),
			Volume:        acc.volume,
			Breadth:       breadth,
			Recency:       acc.recency,
			TopPublishers: topPublishers(acc.publishers, 5),
		})
	}

	sort.SliceStable(metrics, func(i, j int) bool {
		if metrics[i].Score != metrics[j].Score {
			return metrics[i].Score > metrics[j].Score
		}
		if metrics[i].Volume != metrics[j].Volume {
			return metrics[i].Volume > metrics[j].Volume
		}
		return metrics[i].ClusterID < metrics[j].ClusterID
	})
	return metrics
}

// topPublishers returns up to limit publishers by member count, count
// descending, name ascending on equal counts.
func topPublishers(counts map[string]int, limit int) []PublisherCount {
	items := make([]PublisherCount, 0, len(counts))
	for publisher, count := range counts {
		items = append(items, PublisherCount{Publisher: publisher, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Publisher < items[j].Publisher
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}
