package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"archui-experiment-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SubmissionArchive records completed rating submissions in Postgres. It is
// the hosted-mode implementation of app.SubmissionSink.
type SubmissionArchive struct {
	pool *pgxpool.Pool
}

func NewSubmissionArchive(pool *pgxpool.Pool) *SubmissionArchive {
	return &SubmissionArchive{pool: pool}
}

func (a *SubmissionArchive) SubmitRatings(ctx context.Context, record domain.SubmissionRecord) error {
	ratings, err := json.Marshal(record.Ratings)
	if err != nil {
		return fmt.Errorf("encode ratings: %w", err)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO submissions (mtr_no, task_id, question_key, search_query, ratings, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.MatriculationNumber, record.TaskID, record.QuestionKey, record.SearchQuery, ratings, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}
