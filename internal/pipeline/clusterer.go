package pipeline

import (
	"strings"

	"horse.fit/newsdesk/internal/db"
)

const untitledClusterLabel = "Untitled cluster"

// WorkingCluster is the transient, run-scoped accumulator the incremental
// clusterer builds. vectorSum always equals the elementwise sum of the
// member vectors; all mutation goes through add to keep that true.
type WorkingCluster struct {
	members       []db.WindowArticle
	memberVectors []TokenVector
	vectorSum     TokenVector
}

func newWorkingCluster(article db.WindowArticle, vector TokenVector) *WorkingCluster {
	cluster := &WorkingCluster{
		members:       make([]db.WindowArticle, 0, 4),
		memberVectors: make([]TokenVector, 0, 4),
		vectorSum:     TokenVector{},
	}
	cluster.add(article, vector)
	return cluster
}

func (c *WorkingCluster) add(article db.WindowArticle, vector TokenVector) {
	c.members = append(c.members, article)
	c.memberVectors = append(c.memberVectors, vector)
	addInto(c.vectorSum, vector)
}

// Members returns the cluster's articles in assignment order.
func (c *WorkingCluster) Members() []db.WindowArticle {
	return c.members
}

// VectorSum returns the accumulated term-frequency sum of all members.
func (c *WorkingCluster) VectorSum() TokenVector {
	return c.vectorSum
}

// Size returns the member count.
func (c *WorkingCluster) Size() int {
	return len(c.members)
}

// clusterWindow assigns each article, in the given order, to the most
// similar existing cluster when that similarity reaches the threshold, and
// starts a new cluster otherwise. Single pass, greedy, order-dependent by
// design: callers pass articles most recent first. Ties keep the
// first-encountered cluster because the comparison is strict.
func clusterWindow(articles []db.WindowArticle, threshold float64) []*WorkingCluster {
	clusters := make([]*WorkingCluster, 0, len(articles)/2+1)

	for _, article := range articles {
		var snippet string
		if article.Snippet != nil {
			snippet = *article.Snippet
		}
		vector := BuildVector(article.Title, snippet)

		bestIndex := -1
		bestSimilarity := 0.0
		for i, cluster := range clusters {
			similarity := CosineSimilarity(vector, cluster.vectorSum)
			if similarity > bestSimilarity {
				bestSimilarity = similarity
				bestIndex = i
			}
		}

		if bestIndex >= 0 && bestSimilarity >= threshold {
			clusters[bestIndex].add(article, vector)
			continue
		}
		clusters = append(clusters, newWorkingCluster(article, vector))
	}

	return clusters
}

// labelCluster picks the member title whose vector is closest to the
// cluster's final vector sum. First maximal member wins on ties.
func labelCluster(cluster *WorkingCluster) string {
	if cluster == nil || len(cluster.members) == 0 {
		return untitledClusterLabel
	}

	bestIndex := 0
	bestSimilarity := -1.0
	for i, vector := range cluster.memberVectors {
		similarity := CosineSimilarity(vector, cluster.vectorSum)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			bestIndex = i
		}
	}

	label := strings.TrimSpace(cluster.members[bestIndex].Title)
	if label == "" {
		return untitledClusterLabel
	}
	return label
}
