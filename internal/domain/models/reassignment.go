package models

import (
	"time"

	"schoolbus/internal/domain"
)

// ReassignmentPlan adalah satu usulan perpindahan siswa antar bus.
// Ephemeral: tidak pernah dipersist, hanya hidup selama satu request.
type ReassignmentPlan struct {
	StudentID   domain.ID    `json:"studentId"`
	StudentName string       `json:"studentName"`
	FromBusID   domain.ID    `json:"fromBusId"`
	FromRouteID domain.ID    `json:"fromRouteId"`
	ToBusID     domain.ID    `json:"toBusId"`
	ToRouteID   domain.ID    `json:"toRouteId"`
	ToBusNumber string       `json:"toBusNumber"`
	StopID      domain.ID    `json:"stopId"`
	Shift       domain.Shift `json:"shift"`
}

// LoadDelta adalah perubahan netto counter shift sebuah bus dalam satu batch.
type LoadDelta struct {
	Morning int
	Evening int
}

// IsZero reports whether the delta leaves the bus untouched.
func (d LoadDelta) IsZero() bool {
	return d.Morning == 0 && d.Evening == 0
}

// AffectedStudent is the before/after record of one student mutation.
type AffectedStudent struct {
	StudentID  domain.ID    `json:"uid"`
	OldBusID   domain.ID    `json:"oldBusId"`
	NewBusID   domain.ID    `json:"newBusId"`
	OldRouteID domain.ID    `json:"oldRouteId"`
	NewRouteID domain.ID    `json:"newRouteId"`
	StopID     domain.ID    `json:"stopId"`
	Shift      domain.Shift `json:"shift"`
}

// BusUpdate is the before/after record of one bus ledger mutation.
type BusUpdate struct {
	BusID              domain.ID `json:"busId"`
	MorningCountBefore int       `json:"morningCountBefore"`
	MorningCountAfter  int       `json:"morningCountAfter"`
	EveningCountBefore int       `json:"eveningCountBefore"`
	EveningCountAfter  int       `json:"eveningCountAfter"`
}

// RevertBufferData menyimpan snapshot lengkap satu batch yang sudah commit,
// cukup untuk mengembalikan state persis seperti sebelum commit.
type RevertBufferData struct {
	AffectedStudents []AffectedStudent `json:"affectedStudents"`
	BusUpdates       []BusUpdate       `json:"busUpdates"`
	Timestamp        time.Time         `json:"timestamp"`
}

// UndoHistoryEntry is one committed batch in the undo UI feed.
type UndoHistoryEntry struct {
	ID        string             `json:"id"`
	Plans     []ReassignmentPlan `json:"plans"`
	Actor     domain.Actor       `json:"actor"`
	Reason    string             `json:"reason"`
	Timestamp time.Time          `json:"timestamp"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

// AuditLogEntry is the append-only record of a committed or reverted batch.
type AuditLogEntry struct {
	ID        domain.ID          `json:"id"`
	ActionID  string             `json:"actionId"`
	ActorID   string             `json:"actorId"`
	ActorName string             `json:"actorName"`
	Action    string             `json:"action"` // committed / reverted
	Reason    string             `json:"reason"`
	Plans     []ReassignmentPlan `json:"plans"`
	CreatedAt string             `json:"createdAt,omitempty"`
}

// Notification adalah payload untuk dispatcher notifikasi (best-effort).
type Notification struct {
	RecipientID domain.ID      `json:"recipientId"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Metadata    map[string]any `json:"metadata"`
}
