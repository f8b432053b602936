package app

import (
	"context"
	"fmt"
	"sync"

	"archui-experiment-service/internal/domain"
)

// Session is the in-process state of one participant: the cached assignment
// plus per-question search state. Only the assignment and selected task are
// durable (via SessionStore); result sets and ratings live and die with the
// process, matching a browser session's in-page state.
type Session struct {
	mu           sync.Mutex
	id           string
	assignment   domain.TaskAssignment
	selectedTask string
	questions    map[string]*questionState
	solved       map[string]int
}

// questionState tracks the active search of one question. The generation
// counter enforces last-issued-search-wins: a network completion is applied
// only if its generation is still the current one.
type questionState struct {
	generation uint64
	query      string
	tracker    ratingTracker
}

func newSession(id string) *Session {
	return &Session{
		id:        id,
		questions: make(map[string]*questionState),
		solved:    make(map[string]int),
	}
}

// restore installs the durable snapshot state without clobbering a selection
// made since the process started.
func (s *Session) restore(assignment domain.TaskAssignment, selectedTask string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignment = assignment
	if s.selectedTask == "" {
		s.selectedTask = selectedTask
	}
}

func (s *Session) setSelectedTask(taskName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedTask = taskName
}

// task resolves a task from the live assignment, falling back to the durable
// snapshot so a restarted process can resume a cached session.
func (s *Session) task(ctx context.Context, store SessionStore, taskName string) (domain.Task, error) {
	s.mu.Lock()
	assignment := s.assignment
	s.mu.Unlock()

	if assignment == nil {
		snapshot, ok, err := store.Load(ctx, s.id)
		if err != nil {
			return domain.Task{}, fmt.Errorf("load session: %w", err)
		}
		if !ok || snapshot.Assignment == nil {
			return domain.Task{}, domain.ErrAssignmentNotFound
		}
		assignment = snapshot.Assignment
		s.mu.Lock()
		s.assignment = assignment
		s.selectedTask = snapshot.SelectedTask
		s.mu.Unlock()
	}

	for _, task := range assignment {
		if task.TaskName == taskName {
			return task, nil
		}
	}
	return domain.Task{}, domain.ErrTaskNotFound
}

// beginSearch bumps the question's generation, superseding any in-flight
// search for the same question.
func (s *Session) beginSearch(taskName, questionKey string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.question(taskName, questionKey)
	state.generation++
	return state.generation
}

// installResults replaces the question's active result set and resets its
// ratings. It reports false, changing nothing, when the generation has moved
// on: the completion belongs to a superseded search.
func (s *Session) installResults(taskName, questionKey string, generation uint64, query string, results []domain.SearchResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.question(taskName, questionKey)
	if state.generation != generation {
		return false
	}
	state.query = query
	state.tracker.install(results)
	return true
}

// clearResults drops the active result set after a failed search. It reports
// false, changing nothing, when a newer search already owns the question.
func (s *Session) clearResults(taskName, questionKey string, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.question(taskName, questionKey)
	if state.generation != generation {
		return false
	}
	state.query = ""
	state.tracker.clear()
	return true
}

func (s *Session) rate(taskName, questionKey string, position, issueID int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.question(taskName, questionKey)
	if len(state.tracker.results) == 0 {
		return domain.ErrNoActiveResults
	}
	return state.tracker.rate(position, issueID, value)
}

// completedRatings returns the effective query and the position-ordered
// rating list, or fails when the tracker is not complete.
func (s *Session) completedRatings(taskName, questionKey string) (string, []domain.RatingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.question(taskName, questionKey)
	if len(state.tracker.results) == 0 {
		return "", nil, domain.ErrNoActiveResults
	}
	if !state.tracker.isComplete() {
		return "", nil, domain.ErrRatingsIncomplete
	}
	return state.query, state.tracker.ordered(), nil
}

func (s *Session) selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedTask
}

func (s *Session) markSolved(taskName, questionKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := taskName + "/" + questionKey
	s.solved[key]++
	return s.solved[key]
}

func (s *Session) progress() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int, len(s.solved))
	for key, n := range s.solved {
		counts[key] = n
	}
	return counts
}

func (s *Session) question(taskName, questionKey string) *questionState {
	key := taskName + "/" + questionKey
	if state, ok := s.questions[key]; ok {
		return state
	}
	state := &questionState{}
	s.questions[key] = state
	return state
}
