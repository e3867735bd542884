package pipeline

import (
	"testing"
	"time"

	"horse.fit/newsdesk/internal/db"
)

func testArticle(id int64, title string, publishedAt time.Time) db.WindowArticle {
	ts := publishedAt
	return db.WindowArticle{
		ArticleID:   id,
		Title:       title,
		PublishedAt: &ts,
	}
}

func TestClusterWindow_PartitionProperty(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	articles := []db.WindowArticle{
		testArticle(1, "Fed raises rates", base),
		testArticle(2, "Federal Reserve raises interest rates", base.Add(-time.Hour)),
		testArticle(3, "Local bakery wins award", base.Add(-2*time.Hour)),
		testArticle(4, "Storm floods coastal towns", base.Add(-3*time.Hour)),
	}

	clusters := clusterWindow(articles, 0.32)

	seen := map[int64]int{}
	total := 0
	for _, cluster := range clusters {
		for _, member := range cluster.Members() {
			seen[member.ArticleID]++
			total++
		}
	}
	if total != len(articles) {
		t.Fatalf("expected %d assigned articles, got %d", len(articles), total)
	}
	for _, article := range articles {
		if seen[article.ArticleID] != 1 {
			t.Fatalf("article %d assigned %d times", article.ArticleID, seen[article.ArticleID])
		}
	}
}

func TestClusterWindow_VectorSumInvariant(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	articles := []db.WindowArticle{
		testArticle(1, "Fed raises rates", base),
		testArticle(2, "Federal Reserve raises interest rates", base.Add(-time.Hour)),
		testArticle(3, "Fed rate hike surprises markets", base.Add(-2*time.Hour)),
		testArticle(4, "Local bakery wins award", base.Add(-3*time.Hour)),
	}

	clusters := clusterWindow(articles, 0.32)

	for i, cluster := range clusters {
		recomputed := TokenVector{}
		for _, vector := range cluster.memberVectors {
			addInto(recomputed, vector)
		}
		sum := cluster.VectorSum()
		if len(recomputed) != len(sum) {
			t.Fatalf("cluster %d: vector sum key count %d, recomputed %d", i, len(sum), len(recomputed))
		}
		for token, count := range recomputed {
			if sum[token] != count {
				t.Fatalf("cluster %d token %q: sum %d, recomputed %d", i, token, sum[token], count)
			}
		}
	}
}

func TestClusterWindow_IdenticalTextAlwaysTogether(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	orders := [][]db.WindowArticle{
		{
			testArticle(1, "Quake shakes northern valley", base),
			testArticle(2, "Quake shakes northern valley", base.Add(-time.Hour)),
		},
		{
			testArticle(2, "Quake shakes northern valley", base.Add(-time.Hour)),
			testArticle(1, "Quake shakes northern valley", base),
		},
	}

	for i, articles := range orders {
		clusters := clusterWindow(articles, 0.32)
		if len(clusters) != 1 {
			t.Fatalf("order %d: expected 1 cluster for identical text, got %d", i, len(clusters))
		}
		if clusters[0].Size() != 2 {
			t.Fatalf("order %d: expected 2 members, got %d", i, clusters[0].Size())
		}
	}
}

func TestClusterWindow_RateHikeScenario(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	articles := []db.WindowArticle{
		testArticle(1, "Fed raises rates", base),
		testArticle(2, "Federal Reserve raises interest rates", base.Add(-time.Hour)),
		testArticle(3, "Local bakery wins award", base.Add(-2*time.Hour)),
	}

	clusters := clusterWindow(articles, 0.32)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}

	var rateCluster, bakeryCluster *WorkingCluster
	for _, cluster := range clusters {
		for _, member := range cluster.Members() {
			if member.ArticleID == 3 {
				bakeryCluster = cluster
			}
			if member.ArticleID == 1 {
				rateCluster = cluster
			}
		}
	}
	if rateCluster == nil || bakeryCluster == nil {
		t.Fatalf("missing expected clusters")
	}
	if rateCluster == bakeryCluster {
		t.Fatalf("bakery article landed in the rate-hike cluster")
	}
	if rateCluster.Size() != 2 {
		t.Fatalf("rate-hike cluster should have 2 members, got %d", rateCluster.Size())
	}
	if bakeryCluster.Size() != 1 {
		t.Fatalf("bakery cluster should have 1 member, got %d", bakeryCluster.Size())
	}
}

func TestClusterWindow_EmptyInput(t *testing.T) {
	t.Parallel()

	clusters := clusterWindow(nil, 0.32)
	if len(clusters) != 0 {
		t.Fatalf("expected no clusters for empty input, got %d", len(clusters))
	}
}

func TestLabelCluster_PicksClosestMemberTitle(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	articles := []db.WindowArticle{
		testArticle(1, "Fed raises rates", base),
		testArticle(2, "Federal Reserve raises interest rates in surprise move", base.Add(-time.Hour)),
		testArticle(3, "Fed rate decision", base.Add(-2*time.Hour)),
	}

	clusters := clusterWindow(articles, 0.32)
	if len(clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(clusters))
	}

	label := labelCluster(clusters[0])
	found := false
	for _, article := range articles {
		if article.Title == label {
			found = true
		}
	}
	if !found {
		t.Fatalf("label %q is not a member title", label)
	}
}

func TestLabelCluster_EmptyFallback(t *testing.T) {
	t.Parallel()

	if got := labelCluster(&WorkingCluster{}); got != untitledClusterLabel {
		t.Fatalf("expected fallback label, got %q", got)
	}
	if got := labelCluster(nil); got != untitledClusterLabel {
		t.Fatalf("expected fallback label for nil cluster, got %q", got)
	}
}
