package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/db"
	"horse.fit/newsdesk/internal/globaltime"
)

// Config carries the engine's tuning constants. The defaults were
// calibrated together: the similarity threshold assumes the suffix stemmer
// in text.go, and the score weights assume the 0.32 threshold's cluster
// granularity.
type Config struct {
	SimilarityThreshold float64
	BreadthWeight       float64
	VolumeWeight        float64
	RecencyWeight       float64
	RecencyWindowHours  int
	CandidateLimit      int
	RepresentativeCap   int
	RepresentativeFloor int
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.32,
		BreadthWeight:       3,
		VolumeWeight:        1,
		RecencyWeight:       0.5,
		RecencyWindowHours:  6,
		CandidateLimit:      30,
		RepresentativeCap:   6,
		RepresentativeFloor: 3,
	}
}

// ConfigFromApp maps the environment-backed application config onto the
// engine config.
func ConfigFromApp(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		SimilarityThreshold: cfg.SimilarityThreshold,
		BreadthWeight:       cfg.BreadthWeight,
		VolumeWeight:        cfg.VolumeWeight,
		RecencyWeight:       cfg.RecencyWeight,
		RecencyWindowHours:  cfg.RecencyWindowHours,
		CandidateLimit:      cfg.CandidateLimit,
		RepresentativeCap:   cfg.RepresentativeCap,
		RepresentativeFloor: cfg.RepresentativeFloor,
	}
}

// ValidationError reports input rejected before any computation or
// mutation. The run wrote nothing when one is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Store is the slice of the database layer the engine reads and writes.
// *db.Pool satisfies it.
type Store interface {
	ListWindowArticles(ctx context.Context, from, to time.Time) ([]db.WindowArticle, error)
	ReplaceWindowClusters(ctx context.Context, windowDate time.Time, clusters []db.NewCluster, now time.Time) (int64, []int64, error)
	ListWindowClusterIDs(ctx context.Context, windowDate time.Time) ([]int64, error)
	ListWindowMembers(ctx context.Context, windowDate, from, to time.Time) ([]db.WindowMemberRow, error)
	UpdateClusterScores(ctx context.Context, scores []db.ClusterScore, now time.Time) error
	ReplaceWindowCandidates(ctx context.Context, windowDate time.Time, clusterIDs []int64, now time.Time) error
	ListWindowCandidates(ctx context.Context, windowDate, from, to time.Time) ([]db.CandidateRow, error)
	ListCandidateClusterIDs(ctx context.Context, windowDate time.Time) ([]int64, error)
	UpdateCandidateRanks(ctx context.Context, windowDate time.Time, orderedClusterIDs []int64) error
	GetClusterHeader(ctx context.Context, clusterID int64) (*db.ClusterHeader, error)
	ListClusterMembers(ctx context.Context, clusterID int64) ([]db.ClusterMemberArticle, error)
}

// Service runs clustering and ranking for one window at a time. Runs on the
// same window must be serialized by the caller; runs on different windows
// are independent.
type Service struct {
	pool   Store
	logger zerolog.Logger
	cfg    Config
}

func NewService(pool Store, logger zerolog.Logger, cfg Config) *Service {
	return &Service{
		pool:   pool,
		logger: logger,
		cfg:    cfg,
	}
}

// ClusterSummary describes one cluster in the run report.
type ClusterSummary struct {
	Label string `json:"label"`
	Size  int    `json:"size"`
}

// ClusterResult is the report a clustering run returns.
type ClusterResult struct {
	WindowDate         string           `json:"window_date"`
	ArticlesConsidered int              `json:"articles_considered"`
	ClustersCreated    int              `json:"clusters_created"`
	AvgClusterSize     float64          `json:"avg_cluster_size"`
	LargestClusters    []ClusterSummary `json:"largest_clusters"`
	ReplacedClusters   int64            `json:"replaced_clusters"`
}

// RunCluster reads the window's articles, partitions them into story
// clusters, labels each cluster, and replaces the window's persisted
// clusters wholesale. Zero articles is a valid, empty result.
func (s *Service) RunCluster(ctx context.Context, windowDate time.Time) (ClusterResult, error) {
	if s == nil || s.pool == nil {
		return ClusterResult{}, fmt.Errorf("pipeline service is not initialized")
	}

	windowStart, windowEnd := windowBounds(windowDate)
	result := ClusterResult{WindowDate: windowStart.Format("2006-01-02")}

	articles, err := s.pool.ListWindowArticles(ctx, windowStart, windowEnd)
	if err != nil {
		return result, err
	}
	result.ArticlesConsidered = len(articles)

	clusters := clusterWindow(articles, s.cfg.SimilarityThreshold)

	newClusters := make([]db.NewCluster, 0, len(clusters))
	for _, cluster := range clusters {
		memberIDs := make([]int64, 0, cluster.Size())
		for _, member := range cluster.Members() {
			memberIDs = append(memberIDs, member.ArticleID)
		}
		newClusters = append(newClusters, db.NewCluster{
			Label:    labelCluster(cluster),
			MemberID: memberIDs,
		})
	}

	replaced, _, err := s.pool.ReplaceWindowClusters(ctx, windowStart, newClusters, globaltime.UTC())
	if err != nil {
		return result, err
	}
	result.ReplacedClusters = replaced
	result.ClustersCreated = len(clusters)
	if len(clusters) > 0 {
		result.AvgClusterSize = round4(float64(len(articles)) / float64(len(clusters)))
	}
	result.LargestClusters = largestClusters(newClusters, 5)

	s.logger.Info().
		Str("window_date", result.WindowDate).
		Int("articles", result.ArticlesConsidered).
		Int("clusters", result.ClustersCreated).
		Int64("replaced", result.ReplacedClusters).
		Msg("clustering run complete")

	return result, nil
}

// RankEntry is one row of the ranking report.
type RankEntry struct {
	Rank          int              `json:"rank"`
	ClusterID     int64            `json:"cluster_id"`
	Label         *string          `json:"label,omitempty"`
	Score         float64          `json:"score"`
	Volume        int              `json:"volume"`
	Breadth       int              `json:"breadth"`
	Recency       int              `json:"recency"`
	TopPublishers []PublisherCount `json:"top_publishers"`
}

// RankResult is the report a ranking run returns.
type RankResult struct {
	WindowDate         string      `json:"window_date"`
	ClustersConsidered int         `json:"clusters_considered"`
	CandidatesSaved    int         `json:"candidates_saved"`
	Top                []RankEntry `json:"top"`
}

// RunRank scores every cluster in the window, writes all scores back, and
// replaces the window's ranked candidates with the dense top of the
// ordering. A window with zero clusters still clears stale candidates.
func (s *Service) RunRank(ctx context.Context, windowDate time.Time) (RankResult, error) {
	if s == nil || s.pool == nil {
		return RankResult{}, fmt.Errorf("pipeline service is not initialized")
	}

	windowStart, windowEnd := windowBounds(windowDate)
	result := RankResult{
		WindowDate: windowStart.Format("2006-01-02"),
		Top:        []RankEntry{},
	}

	clusterIDs, err := s.pool.ListWindowClusterIDs(ctx, windowStart)
	if err != nil {
		return result, err
	}
	result.ClustersConsidered = len(clusterIDs)

	if len(clusterIDs) == 0 {
		if err := s.pool.ReplaceWindowCandidates(ctx, windowStart, nil, globaltime.UTC()); err != nil {
			return result, err
		}
		s.logger.Info().
			Str("window_date", result.WindowDate).
			Msg("ranking run found no clusters; cleared stale candidates")
		return result, nil
	}

	members, err := s.pool.ListWindowMembers(ctx, windowStart, windowStart, windowEnd)
	if err != nil {
		return result, err
	}

	metrics := rankClusters(clusterIDs, members, windowEnd, s.cfg)

	scores := make([]db.ClusterScore, 0, len(metrics))
	for _, m := range metrics {
		scores = append(scores, db.ClusterScore{ClusterID: m.ClusterID, Score: m.Score})
	}
	if err := s.pool.UpdateClusterScores(ctx, scores, globaltime.UTC()); err != nil {
		return result, err
	}

	topCount := min(s.cfg.CandidateLimit, len(metrics))
	topClusterIDs := make([]int64, 0, topCount)
	for _, m := range metrics[:topCount] {
		topClusterIDs = append(topClusterIDs, m.ClusterID)
	}
	if err := s.pool.ReplaceWindowCandidates(ctx, windowStart, topClusterIDs, globaltime.UTC()); err != nil {
		return result, err
	}
	result.CandidatesSaved = topCount

	result.Top = make([]RankEntry, 0, topCount)
	for i, m := range metrics[:topCount] {
		result.Top = append(result.Top, RankEntry{
			Rank:          i + 1,
			ClusterID:     m.ClusterID,
			Label:         m.Label,
			Score:         m.Score,
			Volume:        m.Volume,
			Breadth:       m.Breadth,
			Recency:       m.Recency,
			TopPublishers: m.TopPublishers,
		})
	}

	s.logger.Info().
		Str("window_date", result.WindowDate).
		Int("clusters", result.ClustersConsidered).
		Int("candidates", result.CandidatesSaved).
		Msg("ranking run complete")

	return result, nil
}

// ListCandidates returns the persisted candidate ordering without
// recomputing anything.
func (s *Service) ListCandidates(ctx context.Context, windowDate time.Time) ([]db.CandidateRow, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("pipeline service is not initialized")
	}
	windowStart, windowEnd := windowBounds(windowDate)
	return s.pool.ListWindowCandidates(ctx, windowStart, windowStart, windowEnd)
}

// Reorder rewrites the window's candidate ranks to match the submitted
// order. The submitted set must be exactly the stored set; anything else is
// rejected before any write.
func (s *Service) Reorder(ctx context.Context, windowDate time.Time, orderedClusterIDs []int64) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("pipeline service is not initialized")
	}

	windowStart, _ := windowBounds(windowDate)

	stored, err := s.pool.ListCandidateClusterIDs(ctx, windowStart)
	if err != nil {
		return err
	}
	if err := validateReorder(windowStart.Format("2006-01-02"), stored, orderedClusterIDs); err != nil {
		return err
	}

	if err := s.pool.UpdateCandidateRanks(ctx, windowStart, orderedClusterIDs); err != nil {
		return err
	}

	s.logger.Info().
		Str("window_date", windowStart.Format("2006-01-02")).
		Int("candidates", len(orderedClusterIDs)).
		Msg("candidate order rewritten")
	return nil
}

// validateReorder rejects a submitted ordering unless it is exactly the
// stored candidate set: same size, no duplicates, no foreign ids.
func validateReorder(windowDay string, stored, submitted []int64) error {
	if len(submitted) != len(stored) {
		return validationErrorf("submitted %d cluster ids but window %s has %d candidates",
			len(submitted), windowDay, len(stored))
	}

	storedSet := make(map[int64]struct{}, len(stored))
	for _, id := range stored {
		storedSet[id] = struct{}{}
	}
	seen := make(map[int64]struct{}, len(submitted))
	for _, id := range submitted {
		if _, duplicate := seen[id]; duplicate {
			return validationErrorf("cluster id %d appears more than once in the submitted order", id)
		}
		seen[id] = struct{}{}
		if _, ok := storedSet[id]; !ok {
			return validationErrorf("cluster id %d is not a candidate for window %s", id, windowDay)
		}
	}
	return nil
}

// ClusterDetail is the editorial read model for one cluster.
type ClusterDetail struct {
	ClusterID  int64                     `json:"cluster_id"`
	WindowDate string                    `json:"window_date"`
	Label      *string                   `json:"label,omitempty"`
	Score      float64                   `json:"score"`
	Members    []db.ClusterMemberArticle `json:"members"`
	TopSources []PublisherCount          `json:"top_sources"`
	Languages  []string                  `json:"languages,omitempty"`
}

// GetClusterDetail returns one cluster with members, the three strongest
// publishers, and the distinct member languages.
func (s *Service) GetClusterDetail(ctx context.Context, clusterID int64) (*ClusterDetail, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("pipeline service is not initialized")
	}

	header, err := s.pool.GetClusterHeader(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	members, err := s.pool.ListClusterMembers(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	publisherCounts := make(map[string]int, len(members))
	languageSet := make(map[string]struct{}, 4)
	for _, member := range members {
		publisherCounts[ResolvePublisher(member.Publisher, member.SourceName)]++
		if member.Language != nil && *member.Language != "" {
			languageSet[*member.Language] = struct{}{}
		}
	}
	languages := make([]string, 0, len(languageSet))
	for code := range languageSet {
		languages = append(languages, code)
	}
	sort.Strings(languages)

	return &ClusterDetail{
		ClusterID:  header.ClusterID,
		WindowDate: header.WindowDate.UTC().Format("2006-01-02"),
		Label:      header.Label,
		Score:      header.Score,
		Members:    members,
		TopSources: topPublishers(publisherCounts, 3),
		Languages:  languages,
	}, nil
}

// Representatives returns up to maxCount publisher-diverse, recency-biased
// member articles for the drafting collaborator. Fewer members than
// requested is a short result, not an error.
func (s *Service) Representatives(ctx context.Context, clusterID int64, maxCount int) ([]RepresentativeArticle, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("pipeline service is not initialized")
	}

	if _, err := s.pool.GetClusterHeader(ctx, clusterID); err != nil {
		return nil, err
	}
	members, err := s.pool.ListClusterMembers(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	return selectRepresentatives(members, clampRepresentativeMax(maxCount, s.cfg)), nil
}

// ParseWindowDate parses a YYYY-MM-DD window date, UTC-anchored. Rejects
// malformed input before any computation runs.
func ParseWindowDate(raw string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, validationErrorf("window date %q must be YYYY-MM-DD", raw)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC), nil
}

func windowBounds(windowDate time.Time) (time.Time, time.Time) {
	day := windowDate.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func largestClusters(clusters []db.NewCluster, limit int) []ClusterSummary {
	summaries := make([]ClusterSummary, 0, len(clusters))
	for _, cluster := range clusters {
		summaries = append(summaries, ClusterSummary{Label: cluster.Label, Size: len(cluster.MemberID)})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Size > summaries[j].Size
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}
