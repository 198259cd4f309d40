package utils

import "testing"

func TestParseRange(t *testing.T) {
	from, to, err := ParseRange("2024-01-01T00:00:00Z", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from.IsZero() || !to.IsZero() {
		t.Fatalf("expected open upper bound, got %v..%v", from, to)
	}

	if _, _, err := ParseRange("2024-02-01T00:00:00Z", "2024-01-01T00:00:00Z"); !IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument for inverted range, got %v", err)
	}
	if _, _, err := ParseRange("yesterday", ""); !IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument for bad timestamp, got %v", err)
	}
}
