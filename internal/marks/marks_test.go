package marks

import (
	"errors"
	"math"
	"testing"
)

func TestGrade(t *testing.T) {
	tests := []struct {
		result string
		total  int
		want   string
	}{
		{"P", 100, "FCD"},
		{"P", 75, "FCD"},
		{"P", 74, "FC"},
		{"P", 60, "FC"},
		{"P", 59, "SC"},
		{"P", 0, "SC"},
		{"F", 80, "FAIL"},
		{"F", 10, "FAIL"},
		{"A", 0, "ABSENT"},
		{"W", 50, "FAIL"},
	}
	for _, tt := range tests {
		if got := Grade(tt.result, tt.total); got != tt.want {
			t.Errorf("Grade(%q, %d) = %q, want %q", tt.result, tt.total, got, tt.want)
		}
	}
}

func TestGradePoint(t *testing.T) {
	tests := []struct {
		total int
		want  int
	}{
		{100, 10}, {90, 10},
		{89, 9}, {80, 9},
		{79, 8}, {70, 8},
		{69, 7}, {60, 7},
		{59, 6}, {50, 6},
		{49, 5}, {40, 5},
		{39, 0}, {0, 0},
	}
	for _, tt := range tests {
		if got := GradePoint(tt.total); got != tt.want {
			t.Errorf("GradePoint(%d) = %d, want %d", tt.total, got, tt.want)
		}
	}
}

func TestSGPA(t *testing.T) {
	totals := []int{95, 82, 71, 65, 55, 42}
	credits := []int{4, 4, 3, 3, 2, 2}

	got, err := SGPA(totals, credits)
	if err != nil {
		t.Fatalf("SGPA returned error: %v", err)
	}
	// (10*4 + 9*4 + 8*3 + 7*3 + 6*2 + 5*2) / 18 = 143/18
	want := 143.0 / 18.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("SGPA = %v, want %v", got, want)
	}
}

func TestSGPAZeroCredits(t *testing.T) {
	_, err := SGPA([]int{80}, []int{0})
	if !errors.Is(err, ErrNoCredits) {
		t.Errorf("expected ErrNoCredits, got %v", err)
	}
}

func TestSGPALengthMismatch(t *testing.T) {
	if _, err := SGPA([]int{80, 70}, []int{4}); err == nil {
		t.Error("expected error for mismatched slice lengths")
	}
}
