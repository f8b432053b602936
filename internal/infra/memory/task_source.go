package memory

import (
	"context"

	"archui-experiment-service/internal/domain"
)

// StaticTaskSource serves assignments from an in-memory map (useful for
// tests/demos).
type StaticTaskSource struct {
	assignments map[string]domain.TaskAssignment
}

func NewStaticTaskSource(assignments map[string]domain.TaskAssignment) *StaticTaskSource {
	return &StaticTaskSource{assignments: assignments}
}

func (s *StaticTaskSource) FetchAssignment(_ context.Context, mtrNo string) (domain.TaskAssignment, error) {
	if assignment, ok := s.assignments[mtrNo]; ok {
		return assignment, nil
	}
	return nil, domain.ErrAssignmentNotFound
}
