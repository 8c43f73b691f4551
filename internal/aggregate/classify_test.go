package aggregate

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		count, mode int
		want        Severity
	}{
		{0, 0, SeverityNone},
		{0, 5, SeverityNone},
		{0, 1000, SeverityNone},
		{3, 2, SeverityAbove},
		{1, 0, SeverityAbove},
		{2, 2, SeverityTypical},
		{1000, 1000, SeverityTypical},
		{1, 2, SeverityBelow},
		{4, 5, SeverityBelow},
	}
	for _, tt := range tests {
		if got := Classify(tt.count, tt.mode); got != tt.want {
			t.Errorf("Classify(%d, %d) = %s, want %s", tt.count, tt.mode, got, tt.want)
		}
	}
}

func TestClassifyTotality(t *testing.T) {
	buckets := map[Severity]bool{
		SeverityNone: true, SeverityBelow: true, SeverityTypical: true, SeverityAbove: true,
	}
	for _, count := range []int{0, 1, 2, 5, 1000} {
		for _, mode := range []int{0, 1, 5, 1000} {
			got := Classify(count, mode)
			if !buckets[got] {
				t.Errorf("Classify(%d, %d) returned unexpected bucket %q", count, mode, got)
			}
		}
	}
}

func TestClassifyTypicalForPositiveMode(t *testing.T) {
	for _, mode := range []int{1, 2, 7, 100} {
		if got := Classify(mode, mode); got != SeverityTypical {
			t.Errorf("Classify(%d, %d) = %s, want typical", mode, mode, got)
		}
	}
}
