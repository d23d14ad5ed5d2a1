package journeys

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/railwatch/delay-tracker/pkg/db/models"
	"github.com/railwatch/delay-tracker/pkg/enums"
)

func setupJourneysTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testID := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:journeysmain_%s?mode=memory&cache=shared", testID)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(fmt.Sprintf("ATTACH DATABASE 'file:delaytracker_%s?mode=memory&cache=shared' AS delay_tracker", testID)).Error)

	schema := `
CREATE TABLE IF NOT EXISTS delay_tracker.monitored_journeys (
  id TEXT PRIMARY KEY,
  journey_id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  service_date DATETIME NOT NULL,
  origin_code TEXT NOT NULL,
  destination_code TEXT NOT NULL,
  scheduled_departure DATETIME NOT NULL,
  scheduled_arrival DATETIME NOT NULL,
  rid TEXT,
  monitoring_status TEXT NOT NULL DEFAULT 'pending_rid',
  last_checked_at DATETIME,
  next_check_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

func newJourney(journeyID, userID string, status enums.MonitoringStatus, nextCheckAt *time.Time) *models.MonitoredJourney {
	now := time.Now().UTC()
	return &models.MonitoredJourney{
		ID:                 uuid.New(),
		JourneyID:          journeyID,
		UserID:             userID,
		ServiceDate:        now,
		OriginCode:         "PAD",
		DestinationCode:    "BRI",
		ScheduledDeparture: now.Add(2 * time.Hour),
		ScheduledArrival:   now.Add(4 * time.Hour),
		MonitoringStatus:   status,
		NextCheckAt:        nextCheckAt,
	}
}

func TestRepositoryCreateAndFindByID(t *testing.T) {
	conn := setupJourneysTestDB(t)
	repo := &Repository{db: conn}

	j := newJourney("J-1", "user-1", enums.MonitoringStatusPendingRID, nil)
	require.NoError(t, repo.Create(nil, j))

	found, err := repo.FindByID(nil, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "J-1", found.JourneyID)
	assert.Equal(t, enums.MonitoringStatusPendingRID, found.MonitoringStatus)
}

func TestRepositoryFindByExternalJourneyID(t *testing.T) {
	conn := setupJourneysTestDB(t)
	repo := &Repository{db: conn}

	j := newJourney("J-2", "user-2", enums.MonitoringStatusPendingRID, nil)
	require.NoError(t, repo.Create(nil, j))

	found, err := repo.FindByExternalJourneyID(nil, "J-2")
	require.NoError(t, err)
	assert.Equal(t, j.ID, found.ID)

	_, err = repo.FindByExternalJourneyID(nil, "missing")
	assert.Error(t, err)
}

func TestRepositoryFindByUser(t *testing.T) {
	conn := setupJourneysTestDB(t)
	repo := &Repository{db: conn}

	require.NoError(t, repo.Create(nil, newJourney("J-3", "user-3", enums.MonitoringStatusActive, nil)))
	require.NoError(t, repo.Create(nil, newJourney("J-4", "user-3", enums.MonitoringStatusCompleted, nil)))
	require.NoError(t, repo.Create(nil, newJourney("J-5", "user-other", enums.MonitoringStatusActive, nil)))

	found, err := repo.FindByUser("user-3")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestRepositoryFindDueForCheck(t *testing.T) {
	conn := setupJourneysTestDB(t)
	repo := &Repository{db: conn}

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := newJourney("J-due", "user-1", enums.MonitoringStatusPendingRID, &past)
	notDue := newJourney("J-notdue", "user-1", enums.MonitoringStatusActive, &future)
	terminal := newJourney("J-terminal", "user-1", enums.MonitoringStatusCompleted, &past)

	require.NoError(t, repo.Create(nil, due))
	require.NoError(t, repo.Create(nil, notDue))
	require.NoError(t, repo.Create(nil, terminal))

	rows, err := repo.FindDueForCheck(now, 100)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "J-due", rows[0].JourneyID)
}

func TestRepositoryUpdateRejectsUnknownField(t *testing.T) {
	conn := setupJourneysTestDB(t)
	repo := &Repository{db: conn}

	j := newJourney("J-6", "user-1", enums.MonitoringStatusPendingRID, nil)
	require.NoError(t, repo.Create(nil, j))

	err := repo.Update(nil, j.ID, map[string]any{"journey_id": "hacked"})
	require.Error(t, err)
	var fieldErr *InvalidUpdateFieldError
	assert.ErrorAs(t, err, &fieldErr)
}

func TestRepositoryUpdateStatusAndLastChecked(t *testing.T) {
	conn := setupJourneysTestDB(t)
	repo := &Repository{db: conn}

	j := newJourney("J-7", "user-1", enums.MonitoringStatusPendingRID, nil)
	require.NoError(t, repo.Create(nil, j))

	rid := "RID123"
	require.NoError(t, repo.UpdateStatus(nil, j.ID, enums.MonitoringStatusActive, &rid))

	found, err := repo.FindByID(nil, j.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.MonitoringStatusActive, found.MonitoringStatus)
	require.NotNil(t, found.RID)
	assert.Equal(t, rid, *found.RID)

	now := time.Now().UTC()
	next := now.Add(5 * time.Minute)
	require.NoError(t, repo.UpdateLastChecked(nil, []uuid.UUID{j.ID}, now, &next))

	found, err = repo.FindByID(nil, j.ID)
	require.NoError(t, err)
	require.NotNil(t, found.NextCheckAt)
	assert.WithinDuration(t, next, *found.NextCheckAt, time.Second)
}

func TestRepositoryDelete(t *testing.T) {
	conn := setupJourneysTestDB(t)
	repo := &Repository{db: conn}

	j := newJourney("J-8", "user-1", enums.MonitoringStatusPendingRID, nil)
	require.NoError(t, repo.Create(nil, j))
	require.NoError(t, repo.Delete(nil, j.ID))

	_, err := repo.FindByID(nil, j.ID)
	assert.Error(t, err)
}
