package booking

import "testing"

func TestMatchName(t *testing.T) {
	tests := []struct {
		search string
		stored string
		want   bool
	}{
		{"Raji", "Ragi", true},
		{"John", "John", true},
		{"R a g. I", "Ragi", true},
		{"Rag", "Ragi", true},
		{"SMITH", "smith", true},
		{"Dr. Smith", "DrSmith", true},
		{"Alice", "Bob", false},
		{"Jennifer", "Raj", false},
		{"", "Ragi", false},
	}
	for _, tt := range tests {
		if got := MatchName(tt.search, tt.stored); got != tt.want {
			t.Errorf("MatchName(%q, %q) = %v, want %v", tt.search, tt.stored, got, tt.want)
		}
	}
}

func TestCleanName(t *testing.T) {
	if got := cleanName("R a g. I"); got != "ragi" {
		t.Errorf("cleanName() = %q, want %q", got, "ragi")
	}
}

func TestSimilarityBounds(t *testing.T) {
	if got := similarity("", ""); got != 100 {
		t.Errorf("similarity of empty strings = %d, want 100", got)
	}
	if got := similarity("abcd", "abcd"); got != 100 {
		t.Errorf("identical similarity = %d, want 100", got)
	}
	if got := similarity("abcd", "wxyz"); got != 0 {
		t.Errorf("disjoint similarity = %d, want 0", got)
	}
}

func TestPartialSimilaritySubstring(t *testing.T) {
	if got := partialSimilarity("rag", "ragi"); got != 100 {
		t.Errorf("partialSimilarity(rag, ragi) = %d, want 100", got)
	}
}
