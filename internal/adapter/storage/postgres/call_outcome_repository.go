package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
	"github.com/seu-repo/voxa-cobranza/internal/ports"
)

type CallOutcomeRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCallOutcomeRepository(db *gorm.DB, log *zap.Logger) ports.CallOutcomeRepository {
	return &CallOutcomeRepository{
		db:  db,
		log: log,
	}
}

// Save stores an outcome. A second outcome for the same stream replaces the first.
func (r *CallOutcomeRepository) Save(ctx context.Context, outcome *domain.CallOutcome) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stream_sid"}},
		UpdateAll: true,
	}).Create(outcome).Error
}

func (r *CallOutcomeRepository) FindByCallSid(ctx context.Context, callSid string) (*domain.CallOutcome, error) {
	var outcome domain.CallOutcome
	err := r.db.WithContext(ctx).Where("call_sid = ?", callSid).Order("ended_at desc").First(&outcome).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &outcome, nil
}

func (r *CallOutcomeRepository) FindRecent(ctx context.Context, limit int) ([]domain.CallOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	var outcomes []domain.CallOutcome
	err := r.db.WithContext(ctx).Order("ended_at desc").Limit(limit).Find(&outcomes).Error
	return outcomes, err
}
