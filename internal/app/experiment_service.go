package app

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"archui-experiment-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// SessionStore persists the durable slice of a participant session (identity,
// assignment, selected task) across restarts. Shape validation is not its job.
type SessionStore interface {
	Load(ctx context.Context, participantID string) (domain.SessionSnapshot, bool, error)
	Save(ctx context.Context, snapshot domain.SessionSnapshot) error
}

// TaskSource retrieves the task assignment for a participant (remote endpoint
// or hosted Postgres table).
type TaskSource interface {
	FetchAssignment(ctx context.Context, mtrNo string) (domain.TaskAssignment, error)
}

// RewriteClient turns a raw participant query into a refined one via the
// language-model backend.
type RewriteClient interface {
	Rewrite(ctx context.Context, prompt string) (string, error)
}

// SearchClient dispatches a retrieval request to the search backend.
type SearchClient interface {
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error)
}

// SubmissionSink accepts a completed rating payload exactly as built by the
// submission guard.
type SubmissionSink interface {
	SubmitRatings(ctx context.Context, record domain.SubmissionRecord) error
}

// AuditLogger receives the experiment audit trail. Implementations are
// fire-and-forget; callers never await completion.
type AuditLogger interface {
	Log(ctx context.Context, event domain.AuditEvent)
}

// SearchSettings are the fixed retrieval parameters sent with every search.
type SearchSettings struct {
	DatabaseURL      string
	ModelID          string
	VersionID        string
	NumResults       int
	ReposAndProjects map[string][]string
}

// ExperimentService contains the experiment session use cases: resolving task
// assignments, running the query pipeline, tracking ratings, and guarding
// submission.
type ExperimentService struct {
	store    SessionStore
	tasks    TaskSource
	rewrite  RewriteClient
	search   SearchClient
	sink     SubmissionSink
	audit    AuditLogger
	settings SearchSettings
	now      func() time.Time

	sf singleflight.Group

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewExperimentService(store SessionStore, tasks TaskSource, rewrite RewriteClient, search SearchClient, sink SubmissionSink, audit AuditLogger, settings SearchSettings) *ExperimentService {
	return &ExperimentService{
		store:    store,
		tasks:    tasks,
		rewrite:  rewrite,
		search:   search,
		sink:     sink,
		audit:    audit,
		settings: settings,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *ExperimentService) WithClock(now func() time.Time) *ExperimentService {
	s.now = now
	return s
}

// FetchTasks resolves the task assignment for mtrNo. It compares the fetched
// payload structurally with the cached snapshot and persists (and reports
// changed=true) only on first fetch or on difference, so dependents are not
// re-notified for identical payloads. Concurrent fetches for the same
// participant are collapsed into one request.
func (s *ExperimentService) FetchTasks(ctx context.Context, mtrNo string) (domain.TaskAssignment, bool, error) {
	if strings.TrimSpace(mtrNo) == "" {
		return nil, false, domain.ErrMissingParticipant
	}

	type fetchResult struct {
		assignment domain.TaskAssignment
		changed    bool
	}
	v, err, _ := s.sf.Do(mtrNo, func() (interface{}, error) {
		assignment, err := s.tasks.FetchAssignment(ctx, mtrNo)
		if err != nil {
			s.logEvent(ctx, "error", mtrNo, "", "", fmt.Sprintf("task fetch failed: %v", err))
			return nil, fmt.Errorf("fetch tasks: %w", err)
		}

		snapshot, cached, err := s.store.Load(ctx, mtrNo)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		if cached && reflect.DeepEqual(snapshot.Assignment, assignment) {
			s.session(mtrNo).restore(assignment, snapshot.SelectedTask)
			return fetchResult{assignment: assignment, changed: false}, nil
		}

		snapshot.ParticipantID = mtrNo
		snapshot.Assignment = assignment
		snapshot.FetchedAt = s.now()
		if err := s.store.Save(ctx, snapshot); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		s.session(mtrNo).restore(assignment, snapshot.SelectedTask)
		s.logEvent(ctx, "info", mtrNo, "", "", "task assignment fetched")
		return fetchResult{assignment: assignment, changed: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	result := v.(fetchResult)
	return result.assignment, result.changed, nil
}

// SelectTask records the participant's last-selected task for deep-linking
// back into its question view after a reload.
func (s *ExperimentService) SelectTask(ctx context.Context, mtrNo, taskName string) error {
	session := s.session(mtrNo)
	if _, err := session.task(ctx, s.store, taskName); err != nil {
		return err
	}
	session.setSelectedTask(taskName)

	snapshot, _, err := s.store.Load(ctx, mtrNo)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	snapshot.ParticipantID = mtrNo
	snapshot.SelectedTask = taskName
	if err := s.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Search runs the query pipeline for one question: validate, optionally
// rewrite, build the retrieval request (with reranking predictions only when
// the task enables them), dispatch, and install the result set. A later call
// for the same question supersedes this one; if the response arrives after
// that, it is discarded and the outcome is flagged stale.
func (s *ExperimentService) Search(ctx context.Context, mtrNo, taskName, questionKey, rawQuery string) (domain.SearchOutcome, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return domain.SearchOutcome{}, domain.ErrEmptyQuery
	}

	session := s.session(mtrNo)
	task, err := session.task(ctx, s.store, taskName)
	if err != nil {
		return domain.SearchOutcome{}, err
	}
	question, ok := task.Questions[questionKey]
	if !ok {
		return domain.SearchOutcome{}, domain.ErrQuestionNotFound
	}

	generation := session.beginSearch(taskName, questionKey)

	effective := rawQuery
	if task.GPT {
		s.logEvent(ctx, "info", mtrNo, taskName, questionKey, "query rewrite requested")
		answer, err := s.rewrite.Rewrite(ctx, rawQuery)
		if err != nil || answer == "" {
			if !session.clearResults(taskName, questionKey, generation) {
				s.logEvent(ctx, "info", mtrNo, taskName, questionKey, "stale retrieval response discarded")
				return domain.SearchOutcome{Stale: true}, nil
			}
			s.logEvent(ctx, "error", mtrNo, taskName, questionKey, "query rewrite failed, retrieval aborted")
			return domain.SearchOutcome{}, fmt.Errorf("rewrite query: %w", domain.ErrRetrievalFailed)
		}
		effective = answer
		s.logEvent(ctx, "info", mtrNo, taskName, questionKey, "query rewrite succeeded")
	}

	var predictions domain.Predictions
	if task.RerankEngine && question.DesignDecision != nil {
		predictions = domain.Predictions{
			Existence: question.DesignDecision.Existence,
			Executive: question.DesignDecision.Executive,
			Property:  question.DesignDecision.Property,
		}
	}

	s.logEvent(ctx, "info", mtrNo, taskName, questionKey, fmt.Sprintf("retrieval started (rerank=%v)", task.RerankEngine))
	results, err := s.search.Search(ctx, domain.SearchRequest{
		DatabaseURL:      s.settings.DatabaseURL,
		ModelID:          s.settings.ModelID,
		VersionID:        s.settings.VersionID,
		ReposAndProjects: s.settings.ReposAndProjects,
		Query:            effective,
		NumResults:       s.settings.NumResults,
		Predictions:      predictions,
	})
	if err != nil {
		// A failure from a superseded search is as stale as its results would
		// have been; the participant already sees the newer set.
		if !session.clearResults(taskName, questionKey, generation) {
			s.logEvent(ctx, "info", mtrNo, taskName, questionKey, "stale retrieval response discarded")
			return domain.SearchOutcome{Stale: true}, nil
		}
		s.logEvent(ctx, "error", mtrNo, taskName, questionKey, fmt.Sprintf("retrieval failed: %v", err))
		return domain.SearchOutcome{}, fmt.Errorf("search: %w", domain.ErrRetrievalFailed)
	}

	if !session.installResults(taskName, questionKey, generation, effective, results) {
		s.logEvent(ctx, "info", mtrNo, taskName, questionKey, "stale retrieval response discarded")
		return domain.SearchOutcome{Stale: true}, nil
	}
	if len(results) == 0 {
		s.logEvent(ctx, "info", mtrNo, taskName, questionKey, "retrieval returned no results")
		return domain.SearchOutcome{Query: effective, NoResults: true}, nil
	}
	s.logEvent(ctx, "info", mtrNo, taskName, questionKey, fmt.Sprintf("retrieval succeeded: %d results", len(results)))
	return domain.SearchOutcome{Query: effective, Results: results}, nil
}

// Rate inserts or overwrites the rating at a display position of the active
// result set. The presentation layer restricts selectable values; the tracker
// only guards against ratings made for a superseded result set.
func (s *ExperimentService) Rate(mtrNo, taskName, questionKey string, position, issueID int, value string) error {
	return s.session(mtrNo).rate(taskName, questionKey, position, issueID, value)
}

// Submit validates completeness and posts the ratings for one question. On
// incomplete ratings it fails locally without a network call. Failed
// submissions are not retried; the tracker state is left untouched either
// way, so the participant can re-trigger submission.
func (s *ExperimentService) Submit(ctx context.Context, mtrNo, taskName, questionKey string) (domain.SubmissionOutcome, error) {
	session := s.session(mtrNo)
	query, ratings, err := session.completedRatings(taskName, questionKey)
	if err != nil {
		return domain.SubmissionOutcome{}, err
	}

	record := domain.SubmissionRecord{
		MatriculationNumber: mtrNo,
		TaskID:              taskName,
		QuestionKey:         questionKey,
		SearchQuery:         query,
		Ratings:             ratings,
	}
	payload := ratingsSummary(record.Ratings)

	s.logEvent(ctx, "info", mtrNo, taskName, questionKey, "submission started")
	if err := s.sink.SubmitRatings(ctx, record); err != nil {
		s.logEvent(ctx, "error", mtrNo, taskName, questionKey, fmt.Sprintf("submission failed: %s (%v)", payload, err))
		return domain.SubmissionOutcome{}, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	s.logEvent(ctx, "info", mtrNo, taskName, questionKey, fmt.Sprintf("submission succeeded: %s", payload))
	solved := session.markSolved(taskName, questionKey)
	return domain.SubmissionOutcome{Record: record, Solved: solved}, nil
}

// Progress reports the per-question count of successful submissions for the
// session, keyed "taskName/questionKey".
func (s *ExperimentService) Progress(mtrNo string) map[string]int {
	return s.session(mtrNo).progress()
}

// SelectedTask returns the participant's last-selected task, if any.
func (s *ExperimentService) SelectedTask(mtrNo string) string {
	return s.session(mtrNo).selected()
}

func (s *ExperimentService) session(mtrNo string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[mtrNo]; ok {
		return session
	}
	session := newSession(mtrNo)
	s.sessions[mtrNo] = session
	return session
}

// ratingsSummary renders ratings as "issueID=value" pairs for the audit trail.
func ratingsSummary(entries []domain.RatingEntry) string {
	parts := make([]string, len(entries))
	for i, entry := range entries {
		parts[i] = fmt.Sprintf("%d=%s", entry.IssueID, entry.Rating)
	}
	return strings.Join(parts, " ")
}

func (s *ExperimentService) logEvent(ctx context.Context, level, mtrNo, taskName, questionKey, message string) {
	s.audit.Log(ctx, domain.AuditEvent{
		Level:         level,
		ParticipantID: mtrNo,
		TaskName:      taskName,
		QuestionKey:   questionKey,
		Message:       message,
		Timestamp:     s.now(),
	})
}
