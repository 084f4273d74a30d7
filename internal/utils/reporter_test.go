package utils

import "testing"

func TestReporter_Counts(t *testing.T) {
	r := NewReporter("https://example.edu/", 10, false)
	r.PageDone(true)
	r.PageDone(false)
	r.PageDone(true)
	r.Finish()

	visited, accepted := r.Counts()
	if visited != 3 || accepted != 2 {
		t.Errorf("Counts() = %d, %d, want 3, 2", visited, accepted)
	}
}
