package outbox

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/railwatch/delay-tracker/pkg/db/models"
	"github.com/railwatch/delay-tracker/pkg/enums"
)

// Repository is the Outbox Store: an append-only event log living in the
// same database as the domain tables it narrates.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an outbox repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts a new outbox row in status pending with retry_count=0.
// When tx is non-nil, the insert participates in that transaction.
func (r *Repository) Create(tx *gorm.DB, event *models.OutboxEvent) error {
	event.Status = enums.OutboxStatusPending
	event.RetryCount = 0
	return r.handle(tx).Create(event).Error
}

// FindPending returns pending rows FIFO by created_at, without locking.
func (r *Repository) FindPending(limit int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := r.db.
		Where("status = ?", enums.OutboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// FindPendingForProcessing selects pending rows under row-level lock, skipping
// rows already locked by another relay worker's transaction. This is the
// primitive that makes concurrent ProcessOutbox workers safe: at most one
// worker can hold a given row. The caller must supply the transaction it will
// commit or roll back the marks within.
func (r *Repository) FindPendingForProcessing(tx *gorm.DB, limit int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", enums.OutboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}
	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	if err := tx.Model(&models.OutboxEvent{}).
		Where("id IN ?", ids).
		Update("status", enums.OutboxStatusProcessing).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkProcessed transitions a row to processed and stamps processed_at.
func (r *Repository) MarkProcessed(tx *gorm.DB, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.handle(tx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.OutboxStatusProcessed,
			"processed_at": now,
		}).Error
}

// MarkFailed transitions a row to failed, incrementing retry_count and
// storing the failure message.
func (r *Repository) MarkFailed(tx *gorm.DB, id uuid.UUID, msg string) error {
	return r.handle(tx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.OutboxStatusFailed,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"error_message": msg,
		}).Error
}

// ResetToPending clears the error message and restores pending status ahead
// of a bounded retry attempt.
func (r *Repository) ResetToPending(tx *gorm.DB, id uuid.UUID) error {
	return r.handle(tx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.OutboxStatusPending,
			"error_message": nil,
		}).Error
}

// FindFailedForRetry returns failed rows below maxAttempts, FIFO.
func (r *Repository) FindFailedForRetry(maxAttempts int, limit int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := r.db.
		Where("status = ? AND retry_count < ?", enums.OutboxStatusFailed, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// CleanupOld deletes processed rows older than retentionDays. Pending and
// failed rows are never deleted by this call.
func (r *Repository) CleanupOld(retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	result := r.db.
		Where("status = ? AND created_at < ?", enums.OutboxStatusProcessed, cutoff).
		Delete(&models.OutboxEvent{})
	return result.RowsAffected, result.Error
}
