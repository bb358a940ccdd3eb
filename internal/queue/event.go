// Package queue defines the messages exchanged over the message broker
// and the background consumer executing them. Delivery is at least
// once: every task regenerates its artifact from committed data, so a
// duplicate delivery produces the same result.
package queue

// ReservationClosedEvent is published after a release commits. It
// carries enough detail for downstream consumers (receipts, analytics)
// without querying the primary database.
type ReservationClosedEvent struct {
	ReservationID uint64  `json:"reservation_id"`
	UserID        uint64  `json:"user_id"`
	LotID         uint64  `json:"lot_id"`
	LotName       string  `json:"lot_name"`
	SpotNumber    uint32  `json:"spot_number"`
	StartedAt     string  `json:"started_at"`
	EndedAt       string  `json:"ended_at"`
	DurationHours float64 `json:"duration_hours"`
	CostCents     int64   `json:"cost_cents"`
}

// Task asks the background worker to produce an artifact. Name selects
// the job; Args carry its parameters as strings (IDs, RFC3339 times).
type Task struct {
	Name string            `json:"task"`
	Args map[string]string `json:"args"`
}

// Task names understood by the consumer.
const (
	TaskExportHistory  = "history.export"  // CSV export of one user's closed reservations
	TaskActivityReport = "report.activity" // periodic per-user activity summary
)
