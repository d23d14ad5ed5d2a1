package journeys

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/railwatch/delay-tracker/pkg/db/models"
	"github.com/railwatch/delay-tracker/pkg/enums"
)

// allowedUpdateFields whitelists the columns Update may touch, preventing a
// caller from smuggling a write to an immutable column (journey_id,
// user_id, scheduled_departure, ...) through the generic patch path.
var allowedUpdateFields = map[string]struct{}{
	"rid":               {},
	"monitoring_status": {},
	"last_checked_at":   {},
	"next_check_at":     {},
}

// Repository is the Journey Store: CRUD and the scheduling queries the
// Journey Monitor and Detection Orchestrator run against monitored_journeys.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a journey repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts a new monitored journey row.
func (r *Repository) Create(tx *gorm.DB, journey *models.MonitoredJourney) error {
	return r.handle(tx).Create(journey).Error
}

// FindByID loads a journey by its primary key.
func (r *Repository) FindByID(tx *gorm.DB, id uuid.UUID) (*models.MonitoredJourney, error) {
	var journey models.MonitoredJourney
	if err := r.handle(tx).Where("id = ?", id).First(&journey).Error; err != nil {
		return nil, err
	}
	return &journey, nil
}

// FindByExternalJourneyID loads a journey by its journey_id business key.
func (r *Repository) FindByExternalJourneyID(tx *gorm.DB, journeyID string) (*models.MonitoredJourney, error) {
	var journey models.MonitoredJourney
	if err := r.handle(tx).Where("journey_id = ?", journeyID).First(&journey).Error; err != nil {
		return nil, err
	}
	return &journey, nil
}

// FindByUser lists journeys registered by the given user, newest first.
func (r *Repository) FindByUser(userID string) ([]models.MonitoredJourney, error) {
	var journeys []models.MonitoredJourney
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&journeys).Error
	return journeys, err
}

// FindDueForCheck returns non-terminal journeys whose next_check_at has
// elapsed, FIFO by next_check_at, bounded by limit. It reads off the partial
// index on (next_check_at) WHERE monitoring_status IN ('pending_rid','active').
func (r *Repository) FindDueForCheck(now time.Time, limit int) ([]models.MonitoredJourney, error) {
	var journeys []models.MonitoredJourney
	err := r.db.
		Where("monitoring_status IN ?", []enums.MonitoringStatus{
			enums.MonitoringStatusPendingRID,
			enums.MonitoringStatusActive,
		}).
		Where("next_check_at IS NOT NULL AND next_check_at <= ?", now).
		Order("next_check_at ASC").
		Limit(limit).
		Find(&journeys).Error
	return journeys, err
}

// Update applies a whitelisted partial patch to a journey row. Any key not
// in allowedUpdateFields is rejected rather than silently dropped, so a bug
// upstream surfaces immediately instead of writing a partial update.
func (r *Repository) Update(tx *gorm.DB, id uuid.UUID, patch map[string]any) error {
	for key := range patch {
		if _, ok := allowedUpdateFields[key]; !ok {
			return &InvalidUpdateFieldError{Field: key}
		}
	}
	if len(patch) == 0 {
		return nil
	}
	return r.handle(tx).Model(&models.MonitoredJourney{}).
		Where("id = ?", id).
		Updates(patch).Error
}

// UpdateStatus transitions monitoring_status and, when rid is non-nil, sets
// rid in the same statement. It performs no transition validation itself —
// that belongs to the Monitor, which is the only caller.
func (r *Repository) UpdateStatus(tx *gorm.DB, id uuid.UUID, newStatus enums.MonitoringStatus, rid *string) error {
	patch := map[string]any{"monitoring_status": newStatus}
	if rid != nil {
		patch["rid"] = *rid
	}
	return r.handle(tx).Model(&models.MonitoredJourney{}).
		Where("id = ?", id).
		Updates(patch).Error
}

// UpdateLastChecked bulk-stamps last_checked_at/next_check_at across the
// ids the orchestrator processed in one tick, pacing the next poll window
// for every journey at once instead of one round trip per journey.
func (r *Repository) UpdateLastChecked(tx *gorm.DB, ids []uuid.UUID, checkedAt time.Time, nextCheckAt *time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.handle(tx).Model(&models.MonitoredJourney{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"last_checked_at": checkedAt,
			"next_check_at":   nextCheckAt,
		}).Error
}

// Delete removes a monitored journey. Associated delay_alerts and outbox
// rows referencing it cascade at the database level.
func (r *Repository) Delete(tx *gorm.DB, id uuid.UUID) error {
	return r.handle(tx).Where("id = ?", id).Delete(&models.MonitoredJourney{}).Error
}

// InvalidUpdateFieldError reports an Update call naming a non-whitelisted column.
type InvalidUpdateFieldError struct {
	Field string
}

func (e *InvalidUpdateFieldError) Error() string {
	return "journeys: field not updatable via partial patch: " + e.Field
}
