package domain

import "time"

// TaskAssignment is the ordered list of tasks assigned to one participant.
type TaskAssignment []Task

// Task is a named unit of the experiment containing one or more questions.
// GPT selects language-model query rewriting; RerankEngine selects the
// reranking-augmented retrieval backend.
type Task struct {
	TaskName     string              `json:"taskName"`
	Description  string              `json:"description"`
	TaskDetails  string              `json:"task_details"`
	Questions    map[string]Question `json:"questions"`
	GPT          bool                `json:"gpt"`
	RerankEngine bool                `json:"rerank_engine"`
	RatingScale  map[string]string   `json:"rating_scale"`
}

// Question is a single information need within a task.
type Question struct {
	Description    string          `json:"description"`
	Type           string          `json:"type"`
	DesignDecision *DesignDecision `json:"design_decision,omitempty"`
}

// DesignDecision carries the prediction hints used when reranking is enabled.
// Each field is a nullable tri-state encoded as a string ("true"/"false"/null).
type DesignDecision struct {
	Existence *string `json:"existence"`
	Executive *string `json:"executive"`
	Property  *string `json:"property"`
}

// Predictions is the triple sent to the search backend. All three fields are
// null unless the owning task has reranking enabled.
type Predictions struct {
	Existence *string `json:"existence"`
	Executive *string `json:"executive"`
	Property  *string `json:"property"`
}

// SearchRequest is the retrieval request dispatched to the search backend.
type SearchRequest struct {
	DatabaseURL      string              `json:"database_url"`
	ModelID          string              `json:"model_id"`
	VersionID        string              `json:"version_id"`
	ReposAndProjects map[string][]string `json:"repos_and_projects"`
	Query            string              `json:"query"`
	NumResults       int                 `json:"num_results"`
	Predictions      Predictions         `json:"predictions"`
}

// SearchResult is one issue returned by the search backend. Response order is
// the display and rating order and must be preserved.
type SearchResult struct {
	ID          int      `json:"id"`
	Key         string   `json:"key"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Attachments []string `json:"attachments"`
	Comments    []string `json:"comments"`
	Existence   *string  `json:"existence"`
	Executive   *string  `json:"executive"`
	Property    *string  `json:"property"`
	Score       float64  `json:"score"`
}

// RatingEntry associates an issue with the scale value a participant chose
// for it. The issue ID is stored alongside the rating so a stale rating can
// be told apart from one that targets the active result set.
type RatingEntry struct {
	IssueID int    `json:"issue_id"`
	Rating  string `json:"rating"`
}

// SubmissionRecord is the payload posted once all results of a question have
// been rated. Ratings are in display-position order.
type SubmissionRecord struct {
	MatriculationNumber string        `json:"matriculationNumber"`
	TaskID              string        `json:"taskId"`
	QuestionKey         string        `json:"questionKey"`
	SearchQuery         string        `json:"searchQuery"`
	Ratings             []RatingEntry `json:"ratings"`
}

// SearchOutcome describes how a search attempt concluded. A stale outcome
// means a newer search superseded this one while it was in flight; its
// results were discarded and must not be shown.
type SearchOutcome struct {
	Results   []SearchResult `json:"results"`
	Query     string         `json:"query"`
	NoResults bool           `json:"noResults"`
	Stale     bool           `json:"stale"`
}

// SubmissionOutcome reports a successful submission. Solved counts the
// successful submissions for the question within this session, mirroring the
// "solved n/2" progress the participant sees.
type SubmissionOutcome struct {
	Record SubmissionRecord `json:"record"`
	Solved int              `json:"solved"`
}

// SessionSnapshot is the durable slice of a participant session: identity,
// assignment, and the last-selected task for deep-linking. Live search state
// (results, ratings) is intentionally not part of the snapshot.
type SessionSnapshot struct {
	ParticipantID string         `json:"participantId"`
	Assignment    TaskAssignment `json:"assignment"`
	SelectedTask  string         `json:"selectedTask"`
	FetchedAt     time.Time      `json:"fetchedAt"`
}

// AuditEvent is one entry of the experiment audit trail.
type AuditEvent struct {
	Level         string
	ParticipantID string
	TaskName      string
	QuestionKey   string
	Message       string
	Timestamp     time.Time
}
