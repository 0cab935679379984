package outbox

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
)

const maxDLQErrorLen = 1024

// DLQRepository stores outbox rows the publisher gave up on.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := clipErrorMessage(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// List returns the newest dead letters first. A nil reason lists them all.
func (r *DLQRepository) List(ctx context.Context, reason *enums.OutboxDLQErrorReason, limit int) ([]models.OutboxDLQ, error) {
	query := r.db.WithContext(ctx).Model(&models.OutboxDLQ{})
	if reason != nil {
		query = query.Where("error_reason = ?", *reason)
	}
	var rows []models.OutboxDLQ
	err := query.Order("failed_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// RequeueTx hands up to limit replayable dead letters back to the publisher,
// oldest failure first. The outbox row gets a fresh attempt budget; if the
// retention job already removed it, it is recreated from the dead letter.
func (r *DLQRepository) RequeueTx(ctx context.Context, tx *gorm.DB, limit int) ([]uuid.UUID, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	tx = tx.WithContext(ctx)

	var rows []models.OutboxDLQ
	err := tx.
		Where("error_reason = ?", enums.OutboxDLQReasonMaxAttempts).
		Order("failed_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	requeued := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		res := tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", row.EventID).
			Updates(map[string]any{"attempt_count": 0, "last_error": nil})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			event := models.OutboxEvent{
				ID:            row.EventID,
				EventType:     row.EventType,
				AggregateType: row.AggregateType,
				AggregateID:   row.AggregateID,
				Payload:       row.Payload,
			}
			if err := tx.Create(&event).Error; err != nil {
				return nil, err
			}
		}
		if err := tx.Delete(&models.OutboxDLQ{}, "id = ?", row.ID).Error; err != nil {
			return nil, err
		}
		requeued = append(requeued, row.EventID)
	}
	return requeued, nil
}

// DeleteFailedBefore purges dead letters that failed before cutoff.
func (r *DLQRepository) DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).Where("failed_at < ?", cutoff).Delete(&models.OutboxDLQ{})
	return res.RowsAffected, res.Error
}

// clipErrorMessage caps the stored message without splitting a UTF-8 rune.
func clipErrorMessage(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	cut := maxDLQErrorLen
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return strings.TrimSpace(message[:cut])
}
