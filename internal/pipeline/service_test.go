package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/db"
)

// fakeStore stubs the minimum of Store a test needs and records the
// writes the service issues.
type fakeStore struct {
	clusterIDs   []int64
	candidateIDs []int64

	replacedCandidates   bool
	replacedCandidateIDs []int64
	replacedWindow       time.Time
	listedMembers        bool
	updatedRanks         []int64
}

func (f *fakeStore) ListWindowArticles(context.Context, time.Time, time.Time) ([]db.WindowArticle, error) {
	return nil, nil
}

func (f *fakeStore) ReplaceWindowClusters(context.Context, time.Time, []db.NewCluster, time.Time) (int64, []int64, error) {
	return 0, nil, nil
}

func (f *fakeStore) ListWindowClusterIDs(context.Context, time.Time) ([]int64, error) {
	return f.clusterIDs, nil
}

func (f *fakeStore) ListWindowMembers(context.Context, time.Time, time.Time, time.Time) ([]db.WindowMemberRow, error) {
	f.listedMembers = true
	return nil, nil
}

func (f *fakeStore) UpdateClusterScores(context.Context, []db.ClusterScore, time.Time) error {
	return nil
}

func (f *fakeStore) ReplaceWindowCandidates(_ context.Context, windowDate time.Time, clusterIDs []int64, _ time.Time) error {
	f.replacedCandidates = true
	f.replacedWindow = windowDate
	f.replacedCandidateIDs = clusterIDs
	return nil
}

func (f *fakeStore) ListWindowCandidates(context.Context, time.Time, time.Time, time.Time) ([]db.CandidateRow, error) {
	return nil, nil
}

func (f *fakeStore) ListCandidateClusterIDs(context.Context, time.Time) ([]int64, error) {
	return f.candidateIDs, nil
}

func (f *fakeStore) UpdateCandidateRanks(_ context.Context, _ time.Time, orderedClusterIDs []int64) error {
	f.updatedRanks = orderedClusterIDs
	return nil
}

func (f *fakeStore) GetClusterHeader(context.Context, int64) (*db.ClusterHeader, error) {
	return nil, db.ErrNoRows
}

func (f *fakeStore) ListClusterMembers(context.Context, int64) ([]db.ClusterMemberArticle, error) {
	return nil, nil
}

func newTestService(store Store) *Service {
	return NewService(store, zerolog.Nop(), DefaultConfig())
}

func TestParseWindowDate(t *testing.T) {
	t.Parallel()

	got, err := ParseWindowDate("2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Fatalf("window date must be UTC-anchored, got %v", got.Location())
	}
}

func TestParseWindowDate_Rejects(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "2026-8-29", "29-08-2026", "2026-08-29T00:00:00Z", "yesterday"} {
		_, err := ParseWindowDate(raw)
		if err == nil {
			t.Fatalf("expected error for %q", raw)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError for %q, got %T", raw, err)
		}
	}
}

func TestWindowBounds(t *testing.T) {
	t.Parallel()

	noon := time.Date(2026, 8, 29, 12, 30, 0, 0, time.UTC)
	start, end := windowBounds(noon)
	if !start.Equal(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", start)
	}
	if !end.Equal(time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %v", end)
	}
}

func TestLargestClusters(t *testing.T) {
	t.Parallel()

	clusters := []db.NewCluster{
		{Label: "small", MemberID: []int64{1}},
		{Label: "big", MemberID: []int64{2, 3, 4}},
		{Label: "mid", MemberID: []int64{5, 6}},
	}
	got := largestClusters(clusters, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	if got[0].Label != "big" || got[0].Size != 3 {
		t.Fatalf("unexpected first summary: %+v", got[0])
	}
	if got[1].Label != "mid" || got[1].Size != 2 {
		t.Fatalf("unexpected second summary: %+v", got[1])
	}
}

func TestLargestClusters_StableOnTies(t *testing.T) {
	t.Parallel()

	clusters := []db.NewCluster{
		{Label: "first", MemberID: []int64{1, 2}},
		{Label: "second", MemberID: []int64{3, 4}},
	}
	got := largestClusters(clusters, 5)
	if got[0].Label != "first" || got[1].Label != "second" {
		t.Fatalf("tie must preserve input order, got %+v", got)
	}
}

func TestConfigFromApp(t *testing.T) {
	t.Parallel()

	if got := ConfigFromApp(nil); got != DefaultConfig() {
		t.Fatalf("nil app config must map to defaults, got %+v", got)
	}

	appCfg := &config.Config{
		SimilarityThreshold: 0.4,
		BreadthWeight:       2,
		VolumeWeight:        1.5,
		RecencyWeight:       0.25,
		RecencyWindowHours:  12,
		CandidateLimit:      10,
		RepresentativeCap:   8,
		RepresentativeFloor: 2,
	}
	got := ConfigFromApp(appCfg)
	if got.SimilarityThreshold != 0.4 || got.CandidateLimit != 10 || got.RepresentativeCap != 8 {
		t.Fatalf("unexpected mapped config: %+v", got)
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := validationErrorf("bad input %d", 7)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Error() != "bad input 7" {
		t.Fatalf("unexpected message %q", verr.Error())
	}
}

func TestValidateReorder(t *testing.T) {
	t.Parallel()

	stored := []int64{3, 1, 2}
	cases := []struct {
		name      string
		submitted []int64
		wantErr   bool
	}{
		{"accepts same set in a new order", []int64{2, 3, 1}, false},
		{"rejects too few ids", []int64{3, 1}, true},
		{"rejects too many ids", []int64{3, 1, 2, 4}, true},
		{"rejects duplicate id", []int64{3, 1, 1}, true},
		{"rejects foreign id", []int64{3, 1, 9}, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := validateReorder("2026-08-29", stored, tc.submitted)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected rejection for %v", tc.submitted)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestReorder_RejectionLeavesRanksUntouched(t *testing.T) {
	t.Parallel()

	store := &fakeStore{candidateIDs: []int64{1, 2, 3}}
	svc := newTestService(store)
	windowDate := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	err := svc.Reorder(context.Background(), windowDate, []int64{1, 2, 4})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if store.updatedRanks != nil {
		t.Fatalf("rejected reorder must not rewrite ranks, wrote %v", store.updatedRanks)
	}
}

func TestReorder_RewritesRanksOnValidSet(t *testing.T) {
	t.Parallel()

	store := &fakeStore{candidateIDs: []int64{1, 2, 3}}
	svc := newTestService(store)
	windowDate := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	if err := svc.Reorder(context.Background(), windowDate, []int64{3, 1, 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(store.updatedRanks, []int64{3, 1, 2}) {
		t.Fatalf("unexpected rank rewrite: %v", store.updatedRanks)
	}
}

func TestRunRank_EmptyWindowClearsStaleCandidates(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	svc := newTestService(store)
	windowDate := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	result, err := svc.RunRank(context.Background(), windowDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ClustersConsidered != 0 || result.CandidatesSaved != 0 {
		t.Fatalf("expected empty report, got %+v", result)
	}
	if result.Top == nil || len(result.Top) != 0 {
		t.Fatalf("expected empty top list, got %v", result.Top)
	}
	if !store.replacedCandidates {
		t.Fatalf("empty window must still clear stale candidates")
	}
	if len(store.replacedCandidateIDs) != 0 {
		t.Fatalf("clearing must write no candidates, wrote %v", store.replacedCandidateIDs)
	}
	if !store.replacedWindow.Equal(windowDate) {
		t.Fatalf("cleared the wrong window: %v", store.replacedWindow)
	}
	if store.listedMembers {
		t.Fatalf("empty window must not load members")
	}
}
