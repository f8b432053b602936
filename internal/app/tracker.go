package app

import "archui-experiment-service/internal/domain"

// ratingTracker holds the active result set of one question and the partial
// mapping from display position to rating. Installing a new result set always
// empties the mapping; ratings are positional and die with the set they were
// made against.
type ratingTracker struct {
	results []domain.SearchResult
	ratings map[int]domain.RatingEntry
}

func (t *ratingTracker) install(results []domain.SearchResult) {
	t.results = results
	t.ratings = make(map[int]domain.RatingEntry, len(results))
}

func (t *ratingTracker) clear() {
	t.results = nil
	t.ratings = nil
}

// rate inserts or overwrites the entry at position. The issue ID must match
// the result currently displayed at that position, otherwise the rating is
// stale (made against a superseded result set) and is rejected.
func (t *ratingTracker) rate(position, issueID int, value string) error {
	if position < 0 || position >= len(t.results) {
		return domain.ErrStaleRating
	}
	if t.results[position].ID != issueID {
		return domain.ErrStaleRating
	}
	t.ratings[position] = domain.RatingEntry{IssueID: issueID, Rating: value}
	return nil
}

// isComplete reports whether every displayed result has a rating. Submission
// is gated strictly on this predicate; an empty result set is never complete.
func (t *ratingTracker) isComplete() bool {
	return len(t.results) > 0 && len(t.ratings) == len(t.results)
}

// ordered returns the ratings in display-position order.
func (t *ratingTracker) ordered() []domain.RatingEntry {
	entries := make([]domain.RatingEntry, 0, len(t.results))
	for i := range t.results {
		if entry, ok := t.ratings[i]; ok {
			entries = append(entries, entry)
		}
	}
	return entries
}
