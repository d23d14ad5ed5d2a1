package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/railwatch/delay-tracker/pkg/enums"
)

// MonitoredJourney is one row per registered journey under watch.
type MonitoredJourney struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JourneyID           string                 `gorm:"column:journey_id;not null;uniqueIndex:ux_monitored_journeys_journey_id"`
	UserID              string                 `gorm:"column:user_id;not null;index:ix_monitored_journeys_user_id"`
	ServiceDate         time.Time              `gorm:"column:service_date;type:date;not null"`
	OriginCode          string                 `gorm:"column:origin_code;not null"`
	DestinationCode     string                 `gorm:"column:destination_code;not null"`
	ScheduledDeparture  time.Time              `gorm:"column:scheduled_departure;not null"`
	ScheduledArrival    time.Time              `gorm:"column:scheduled_arrival;not null"`
	RID                 *string                `gorm:"column:rid"`
	MonitoringStatus    enums.MonitoringStatus `gorm:"column:monitoring_status;type:monitoring_status_enum;not null;default:pending_rid"`
	LastCheckedAt       *time.Time             `gorm:"column:last_checked_at"`
	NextCheckAt         *time.Time             `gorm:"column:next_check_at"`
	CreatedAt           time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the GORM table to the delay_tracker schema.
func (MonitoredJourney) TableName() string {
	return "delay_tracker.monitored_journeys"
}
