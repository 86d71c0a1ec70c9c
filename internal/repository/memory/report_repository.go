package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/apperror"
	"ai-interviewer-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ReportRepository stores reports JSON-encoded, which also gives callers a
// deep copy of the nested slices for free.
type ReportRepository struct {
	store *Store
}

func NewReportRepository(store *Store) contract.ReportRepository {
	return &ReportRepository{store: store}
}

func (r *ReportRepository) Save(ctx context.Context, report *entity.Report) error {
	b, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	r.store.cache.Set("report:"+report.SessionId.String(), b, cache.NoExpiration)
	return nil
}

func (r *ReportRepository) GetBySession(ctx context.Context, sessionId uuid.UUID) (*entity.Report, error) {
	x, found := r.store.cache.Get("report:" + sessionId.String())
	if !found {
		return nil, fmt.Errorf("report of session %s: %w", sessionId, apperror.ErrNotFound)
	}
	var report entity.Report
	if err := json.Unmarshal(x.([]byte), &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}
