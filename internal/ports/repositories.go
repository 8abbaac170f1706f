package ports

import (
	"context"
	"time"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
)

type CallOutcomeRepository interface {
	Save(ctx context.Context, outcome *domain.CallOutcome) error
	FindByCallSid(ctx context.Context, callSid string) (*domain.CallOutcome, error)
	FindRecent(ctx context.Context, limit int) ([]domain.CallOutcome, error)
}

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}
