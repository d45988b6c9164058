package aggregate

import (
	"errors"
	"fmt"
)

// ErrInvalidThresholds is returned by Thresholds.Validate.
var ErrInvalidThresholds = errors.New("invalid attendance thresholds")

// Band is a student's attendance classification.
type Band string

const (
	BandNormal  Band = "normal"
	BandWarning Band = "warning"
	BandLow     Band = "low"
)

// Thresholds are the percentage limits of the bands. WarningThreshold must
// be above MinAttendance.
type Thresholds struct {
	MinAttendance    int `json:"minAttendance" binding:"gte=0,lte=100"`
	WarningThreshold int `json:"warningThreshold" binding:"gte=0,lte=100"`
}

// DefaultThresholds match the institution defaults.
var DefaultThresholds = Thresholds{MinAttendance: 75, WarningThreshold: 80}

// Validate checks 0 <= min < warning <= 100.
func (t Thresholds) Validate() error {
	if t.MinAttendance < 0 || t.WarningThreshold > 100 || t.WarningThreshold <= t.MinAttendance {
		return fmt.Errorf("%w: min=%d warning=%d", ErrInvalidThresholds, t.MinAttendance, t.WarningThreshold)
	}
	return nil
}

// Classify places a percentage in its band: below min is low, below
// warning is warning, anything else is normal.
func Classify(percentage int, t Thresholds) Band {
	switch {
	case percentage < t.MinAttendance:
		return BandLow
	case percentage < t.WarningThreshold:
		return BandWarning
	default:
		return BandNormal
	}
}
