package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"archui-experiment-service/internal/domain"
)

func TestTaskClientPostsParticipantAndDecodes(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"taskName": "T1", "gpt": true, "questions": map[string]any{"Q1": map[string]any{"description": "d"}}},
		})
	}))
	defer server.Close()

	client := NewTaskClient(server.URL, server.Client())
	assignment, err := client.FetchAssignment(context.Background(), "M123")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotBody["MtrNo"] != "M123" {
		t.Fatalf("expected MtrNo in request body, got %v", gotBody)
	}
	if len(assignment) != 1 || assignment[0].TaskName != "T1" || !assignment[0].GPT {
		t.Fatalf("unexpected assignment: %+v", assignment)
	}
}

func TestTaskClientRejectsNullPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))
	defer server.Close()

	client := NewTaskClient(server.URL, server.Client())
	if _, err := client.FetchAssignment(context.Background(), "M123"); !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestRewriteClientRequiresAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := NewRewriteClient(server.URL, server.Client())
	if _, err := client.Rewrite(context.Background(), "memory leak"); !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected malformed response for missing answer, got %v", err)
	}
}

func TestRewriteClientReturnsAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": "refined: " + req["prompt"]})
	}))
	defer server.Close()

	client := NewRewriteClient(server.URL, server.Client())
	answer, err := client.Rewrite(context.Background(), "memory leak")
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if answer != "refined: memory leak" {
		t.Fatalf("unexpected answer %q", answer)
	}
}

func TestSearchClientChecksStatusAndPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.SearchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.NumResults != 10 {
			t.Errorf("expected num_results 10, got %d", req.NumResults)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": "done",
			"payload": []map[string]any{
				{"id": 7, "key": "CASSANDRA-7"},
				{"id": 3, "key": "CASSANDRA-3"},
			},
		})
	}))
	defer server.Close()

	client := NewSearchClient(server.URL, server.Client())
	results, err := client.Search(context.Background(), domain.SearchRequest{Query: "memory leak", NumResults: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 || results[0].ID != 7 || results[1].ID != 3 {
		t.Fatalf("server order must be preserved, got %+v", results)
	}
}

func TestSearchClientFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"result": "error", "payload": nil})
	}))
	defer server.Close()

	client := NewSearchClient(server.URL, server.Client())
	if _, err := client.Search(context.Background(), domain.SearchRequest{Query: "q"}); err == nil {
		t.Fatalf("expected failure for non-done status")
	}
}

func TestSubmissionClientRejectsUnsuccessful(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": false})
	}))
	defer server.Close()

	client := NewSubmissionClient(server.URL, server.Client())
	err := client.SubmitRatings(context.Background(), domain.SubmissionRecord{MatriculationNumber: "M123"})
	if err == nil {
		t.Fatalf("expected rejection when success=false")
	}
}

func TestSubmissionClientAcceptsSuccess(t *testing.T) {
	var got domain.SubmissionRecord
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer server.Close()

	client := NewSubmissionClient(server.URL, server.Client())
	record := domain.SubmissionRecord{
		MatriculationNumber: "M123",
		TaskID:              "T1",
		QuestionKey:         "Q1",
		SearchQuery:         "memory leak",
		Ratings:             []domain.RatingEntry{{IssueID: 7, Rating: "4"}},
	}
	if err := client.SubmitRatings(context.Background(), record); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.TaskID != "T1" || len(got.Ratings) != 1 || got.Ratings[0].IssueID != 7 {
		t.Fatalf("unexpected posted record: %+v", got)
	}
}

func TestAuditLoggerPostsEventWithoutBlocking(t *testing.T) {
	received := make(chan logPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload logPayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		received <- payload
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	logger := NewAuditLogger(server.URL, server.Client())
	logger.Log(context.Background(), domain.AuditEvent{
		Level:         "info",
		ParticipantID: "M123",
		TaskName:      "T1",
		QuestionKey:   "Q1",
		Message:       "retrieval succeeded: 2 results",
		Timestamp:     time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
	})

	select {
	case payload := <-received:
		if payload.Level != "info" {
			t.Fatalf("unexpected level %q", payload.Level)
		}
		want := "participant=M123 task=T1 question=Q1 retrieval succeeded: 2 results"
		if payload.Message != want {
			t.Fatalf("expected message %q, got %q", want, payload.Message)
		}
		if payload.Timestamp != "2025-06-10T12:00:00Z" {
			t.Fatalf("unexpected timestamp %q", payload.Timestamp)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("audit event never reached the endpoint")
	}
}
