package pipeline

import (
	"math"
	"testing"
)

func TestBuildVector_NormalizesAndStems(t *testing.T) {
	t.Parallel()

	vector := BuildVector("Fed raises rates", "")
	want := map[string]int{"fed": 1, "rais": 1, "rate": 1}
	if len(vector) != len(want) {
		t.Fatalf("unexpected vector size: got %v want %v", vector, want)
	}
	for token, count := range want {
		if vector[token] != count {
			t.Fatalf("token %q: got %d want %d (vector %v)", token, vector[token], count, vector)
		}
	}
}

func TestBuildVector_DropsStopWordsAndShortTokens(t *testing.T) {
	t.Parallel()

	vector := BuildVector("The cat is on a mat", "")
	if _, ok := vector["the"]; ok {
		t.Fatalf("stop word survived: %v", vector)
	}
	if _, ok := vector["on"]; ok {
		t.Fatalf("stop word survived: %v", vector)
	}
	if _, ok := vector["cat"]; !ok {
		t.Fatalf("expected cat token, got %v", vector)
	}
}

func TestBuildVector_StripsURLsAndPossessives(t *testing.T) {
	t.Parallel()

	vector := BuildVector("Apple's event", "details at https://example.com/live?x=1 today")
	if _, ok := vector["http"]; ok {
		t.Fatalf("url fragment survived: %v", vector)
	}
	if _, ok := vector["example"]; ok {
		t.Fatalf("url host survived: %v", vector)
	}
	if _, ok := vector["apple"]; !ok {
		t.Fatalf("possessive stripping broke the base token: %v", vector)
	}
}

func TestStemToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"raises", "rais"},
		{"rates", "rate"},
		{"raised", "rais"},
		{"raising", "rais"},
		{"boxes", "box"},
		{"glass", "glass"},
		{"news", "new"},
		{"go", "go"},
		{"sing", "sing"},
	}
	for _, tc := range cases {
		if got := stemToken(tc.in); got != tc.want {
			t.Fatalf("stemToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCosineSimilarity_SymmetricAndSelf(t *testing.T) {
	t.Parallel()

	a := TokenVector{"fed": 1, "rate": 2}
	b := TokenVector{"rate": 1, "hike": 1}

	ab := CosineSimilarity(a, b)
	ba := CosineSimilarity(b, a)
	if ab != ba {
		t.Fatalf("similarity is not symmetric: %f vs %f", ab, ba)
	}

	self := CosineSimilarity(a, a)
	if math.Abs(self-1.0) > 1e-12 {
		t.Fatalf("self similarity should be 1.0, got %f", self)
	}
}

func TestCosineSimilarity_EmptyVectors(t *testing.T) {
	t.Parallel()

	if got := CosineSimilarity(TokenVector{}, TokenVector{"a1": 1}); got != 0 {
		t.Fatalf("expected 0 for empty left vector, got %f", got)
	}
	if got := CosineSimilarity(TokenVector{"a1": 1}, TokenVector{}); got != 0 {
		t.Fatalf("expected 0 for empty right vector, got %f", got)
	}
	if got := CosineSimilarity(TokenVector{}, TokenVector{}); got != 0 {
		t.Fatalf("expected 0 for two empty vectors, got %f", got)
	}
}

func TestCosineSimilarity_DisjointVectors(t *testing.T) {
	t.Parallel()

	a := TokenVector{"fed": 1}
	b := TokenVector{"bakery": 1}
	if got := CosineSimilarity(a, b); got != 0 {
		t.Fatalf("expected 0 for disjoint vectors, got %f", got)
	}
}
