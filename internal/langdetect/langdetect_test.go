package langdetect

import "testing"

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	if got := NormalizeCode(" EN-us "); got != "en" {
		t.Fatalf("unexpected normalized code: %q", got)
	}
	if got := NormalizeCode("pt_BR"); got != "pt" {
		t.Fatalf("unexpected normalized code: %q", got)
	}
	if got := NormalizeCode("zh"); got != "zh" {
		t.Fatalf("unexpected normalized code: %q", got)
	}
	if got := NormalizeCode(" "); got != "" {
		t.Fatalf("expected empty code for blank input, got %q", got)
	}
	if got := NormalizeCode("e1-US"); got != "" {
		t.Fatalf("expected empty code for malformed input, got %q", got)
	}
}

func TestDetectISO6391_ShortSample(t *testing.T) {
	t.Parallel()

	if got := DetectISO6391(""); got != "" {
		t.Fatalf("expected empty code for empty text, got %q", got)
	}
	if got := DetectISO6391("ok 12"); got != "" {
		t.Fatalf("expected empty code for a sample with too few letters, got %q", got)
	}
}
