package detection

import (
	"fmt"

	"github.com/railwatch/delay-tracker/internal/clients"
)

// DetectionResult is the Delay Detector's pure classification of a
// journey's current delay state against one upstream delay record.
type DetectionResult struct {
	IsDelayed        bool
	IsCancelled      bool
	ExceedsThreshold bool
	ClaimEligible    bool
	DataNotFound     bool
	ObservedMinutes  int
	DelayReasons     []byte
}

// Detector is a pure, side-effect-free classifier: given a journey's rid and
// the delay records fetched this tick, it decides whether the journey is
// delayed, cancelled, and claim-eligible. It never touches the database or
// the network itself.
type Detector struct {
	thresholdMinutes int
}

// NewDetector builds a Detector with the given threshold. Construction
// rejects a non-positive threshold since "exceeds threshold" would be
// vacuously true or meaningless otherwise.
func NewDetector(thresholdMinutes int) (*Detector, error) {
	if thresholdMinutes <= 0 {
		return nil, fmt.Errorf("detection threshold must be positive, got %d", thresholdMinutes)
	}
	return &Detector{thresholdMinutes: thresholdMinutes}, nil
}

// ThresholdMinutes returns the configured classification threshold.
func (d *Detector) ThresholdMinutes() int {
	return d.thresholdMinutes
}

// Classify finds the delay record matching rid by exact string equality and
// derives a DetectionResult from it. When no record matches, it returns a
// DetectionResult with DataNotFound=true and every boolean false.
func (d *Detector) Classify(rid string, records []clients.DelayRecord) DetectionResult {
	for _, record := range records {
		if record.RID != rid {
			continue
		}
		isDelayed := record.DelayMinutes > 0 || record.IsCancelled
		exceedsThreshold := record.DelayMinutes >= d.thresholdMinutes
		return DetectionResult{
			IsDelayed:        isDelayed,
			IsCancelled:      record.IsCancelled,
			ExceedsThreshold: exceedsThreshold,
			ClaimEligible:    exceedsThreshold || record.IsCancelled,
			ObservedMinutes:  record.DelayMinutes,
			DelayReasons:     record.DelayReasons,
		}
	}
	return DetectionResult{DataNotFound: true}
}
