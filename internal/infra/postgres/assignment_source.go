package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"archui-experiment-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AssignmentSource loads task assignment JSONB from Postgres. It backs the
// hosted mode, where the service serves assignments itself instead of calling
// a remote task endpoint.
type AssignmentSource struct {
	pool *pgxpool.Pool
}

func NewAssignmentSource(pool *pgxpool.Pool) *AssignmentSource {
	return &AssignmentSource{pool: pool}
}

func (s *AssignmentSource) FetchAssignment(ctx context.Context, mtrNo string) (domain.TaskAssignment, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM assignments WHERE mtr_no=$1`, mtrNo).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	var assignment domain.TaskAssignment
	if err := json.Unmarshal(raw, &assignment); err != nil {
		return nil, fmt.Errorf("unmarshal assignment: %w", err)
	}
	return assignment, nil
}
