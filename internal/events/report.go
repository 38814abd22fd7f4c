// Package events provides the event types emitted after a compile pass.
package events

import (
	"time"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/alerts"
)

// CompileReport describes a compile pass together with the preflight findings
// gathered against the deployed account.
type CompileReport struct {
	AccountID string          `json:"accountID,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Summary   *alerts.Summary `json:"summary"`
	// OrphanAlarms are deployed alarms under the stack's prefixes that the
	// compile pass no longer produces.
	OrphanAlarms []string `json:"orphanAlarms"`
	// MissingTopics are referenced topic ARNs that do not exist.
	MissingTopics []string `json:"missingTopics"`
}

// Clean reports whether preflight found nothing to act on.
func (r *CompileReport) Clean() bool {
	return len(r.OrphanAlarms) == 0 && len(r.MissingTopics) == 0
}
