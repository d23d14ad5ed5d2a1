package enums

import "fmt"

// MonitoringStatus maps to the monitoring_status enum constraint in Postgres.
type MonitoringStatus string

const (
	MonitoringStatusPendingRID MonitoringStatus = "pending_rid"
	MonitoringStatusActive     MonitoringStatus = "active"
	MonitoringStatusDelayed    MonitoringStatus = "delayed"
	MonitoringStatusCompleted  MonitoringStatus = "completed"
	MonitoringStatusCancelled  MonitoringStatus = "cancelled"
)

var validMonitoringStatuses = []MonitoringStatus{
	MonitoringStatusPendingRID,
	MonitoringStatusActive,
	MonitoringStatusDelayed,
	MonitoringStatusCompleted,
	MonitoringStatusCancelled,
}

// IsValid reports whether the value matches the canonical monitoring_status enum.
func (s MonitoringStatus) IsValid() bool {
	for _, candidate := range validMonitoringStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s MonitoringStatus) IsTerminal() bool {
	return s == MonitoringStatusCompleted || s == MonitoringStatusCancelled
}

// ParseMonitoringStatus converts raw input into a MonitoringStatus.
func ParseMonitoringStatus(value string) (MonitoringStatus, error) {
	for _, candidate := range validMonitoringStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid monitoring status %q", value)
}
