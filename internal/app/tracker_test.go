package app

import (
	"testing"

	"archui-experiment-service/internal/domain"
)

func TestTrackerCompleteness(t *testing.T) {
	tracker := &ratingTracker{}
	if tracker.isComplete() {
		t.Fatalf("empty tracker must not be complete")
	}

	tracker.install([]domain.SearchResult{{ID: 1}, {ID: 2}})
	if tracker.isComplete() {
		t.Fatalf("unrated results must not be complete")
	}

	if err := tracker.rate(0, 1, "4"); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if tracker.isComplete() {
		t.Fatalf("partially rated set must not be complete")
	}
	if err := tracker.rate(1, 2, "5"); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !tracker.isComplete() {
		t.Fatalf("fully rated set must be complete")
	}

	// Zero results are never complete, even with zero ratings.
	tracker.install(nil)
	if tracker.isComplete() {
		t.Fatalf("empty result set must never be complete")
	}
}

func TestTrackerOrderedFollowsDisplayOrder(t *testing.T) {
	tracker := &ratingTracker{}
	tracker.install([]domain.SearchResult{{ID: 30}, {ID: 10}, {ID: 20}})

	// Rate out of display order.
	if err := tracker.rate(2, 20, "1"); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if err := tracker.rate(0, 30, "5"); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if err := tracker.rate(1, 10, "3"); err != nil {
		t.Fatalf("rate: %v", err)
	}

	ordered := tracker.ordered()
	want := []domain.RatingEntry{{IssueID: 30, Rating: "5"}, {IssueID: 10, Rating: "3"}, {IssueID: 20, Rating: "1"}}
	for i := range want {
		if ordered[i] != want[i] {
			t.Fatalf("position %d: expected %+v, got %+v", i, want[i], ordered[i])
		}
	}
}

func TestTrackerRejectsMismatchedIssue(t *testing.T) {
	tracker := &ratingTracker{}
	tracker.install([]domain.SearchResult{{ID: 1}})

	if err := tracker.rate(0, 2, "4"); err != domain.ErrStaleRating {
		t.Fatalf("expected stale rating, got %v", err)
	}
	if err := tracker.rate(-1, 1, "4"); err != domain.ErrStaleRating {
		t.Fatalf("expected stale rating for negative position, got %v", err)
	}
	if err := tracker.rate(1, 1, "4"); err != domain.ErrStaleRating {
		t.Fatalf("expected stale rating for out-of-range position, got %v", err)
	}
}
