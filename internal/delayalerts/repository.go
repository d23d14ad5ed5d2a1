package delayalerts

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/railwatch/delay-tracker/pkg/db/models"
)

// Repository is the DelayAlert store: alerts are created once inside the
// detection transaction and afterward only ever updated to record a claim
// outcome or notification; they are never deleted except by cascade from
// their parent journey.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a delay-alert repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts a new delay alert row. delayMinutes must already satisfy
// the positive-minutes invariant (callers use max(1, observed)).
func (r *Repository) Create(tx *gorm.DB, alert *models.DelayAlert) error {
	return r.handle(tx).Create(alert).Error
}

// FindByID loads a delay alert by its primary key.
func (r *Repository) FindByID(tx *gorm.DB, id uuid.UUID) (*models.DelayAlert, error) {
	var alert models.DelayAlert
	if err := r.handle(tx).Where("id = ?", id).First(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// FindByJourney lists alerts for a monitored journey, newest first.
func (r *Repository) FindByJourney(journeyID uuid.UUID) ([]models.DelayAlert, error) {
	var alerts []models.DelayAlert
	err := r.db.
		Where("monitored_journey_id = ?", journeyID).
		Order("created_at DESC").
		Find(&alerts).Error
	return alerts, err
}

// MarkClaimTriggered records a successful claim-trigger outcome.
func (r *Repository) MarkClaimTriggered(tx *gorm.DB, id uuid.UUID, claimReferenceID string, response json.RawMessage) error {
	now := time.Now().UTC()
	return r.handle(tx).Model(&models.DelayAlert{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"claim_triggered":        true,
			"claim_triggered_at":     now,
			"claim_reference_id":     claimReferenceID,
			"claim_trigger_response": response,
		}).Error
}

// RecordClaimOutcome stores a non-success claim-trigger response without
// setting claim_triggered, per the orchestrator's "do not emit claim.triggered
// on non-success" rule.
func (r *Repository) RecordClaimOutcome(tx *gorm.DB, id uuid.UUID, response json.RawMessage) error {
	return r.handle(tx).Model(&models.DelayAlert{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"claim_trigger_response": response,
		}).Error
}

// MarkNotificationSent stamps notification_sent/notification_sent_at.
func (r *Repository) MarkNotificationSent(tx *gorm.DB, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.handle(tx).Model(&models.DelayAlert{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"notification_sent":    true,
			"notification_sent_at": now,
		}).Error
}
