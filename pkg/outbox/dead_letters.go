package outbox

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// DeadLetters is the operator surface over the DLQ.
type DeadLetters struct {
	repo *DLQRepository
	tx   txRunner
	logg *logger.Logger
}

func NewDeadLetters(repo *DLQRepository, tx txRunner, logg *logger.Logger) (*DeadLetters, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dlq repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &DeadLetters{repo: repo, tx: tx, logg: logg}, nil
}

// List filters by reason when rawReason is non-empty.
func (d *DeadLetters) List(ctx context.Context, rawReason string, limit int) ([]models.OutboxDLQ, error) {
	var reason *enums.OutboxDLQErrorReason
	if rawReason = strings.TrimSpace(rawReason); rawReason != "" {
		parsed := enums.OutboxDLQErrorReason(strings.ToLower(rawReason))
		if !parsed.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown dead letter reason")
		}
		reason = &parsed
	}
	rows, err := d.repo.List(ctx, reason, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters")
	}
	return rows, nil
}

// Replay requeues up to limit dead letters that failed only because the
// broker stayed unavailable. Rejected and undecodable rows are left alone.
func (d *DeadLetters) Replay(ctx context.Context, limit int) (int, error) {
	var requeued int
	err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ids, err := d.repo.RequeueTx(ctx, tx, limit)
		requeued = len(ids)
		return err
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replay dead letters")
	}
	if d.logg != nil {
		d.logg.Info(d.logg.WithField(ctx, "requeued", requeued), "dead letters requeued")
	}
	return requeued, nil
}
