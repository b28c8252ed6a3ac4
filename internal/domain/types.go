package domain

import "strings"

// ID is used across domain entities.
type ID int64

// Shift adalah jadwal layanan siswa: pagi (morning) atau sore (evening).
type Shift string

const (
	ShiftMorning Shift = "morning"
	ShiftEvening Shift = "evening"
)

// ParseShift normalizes raw input into a Shift value.
func ParseShift(raw string) (Shift, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "morning":
		return ShiftMorning, true
	case "evening":
		return ShiftEvening, true
	}
	return "", false
}

// ShiftMode menentukan shift mana yang boleh dilayani sebuah bus.
type ShiftMode string

const (
	ShiftModeMorning ShiftMode = "morning"
	ShiftModeEvening ShiftMode = "evening"
	ShiftModeBoth    ShiftMode = "both"
)

// AcceptsMorning reports whether the bus mode may take additional morning load.
func (m ShiftMode) AcceptsMorning() bool {
	return m == ShiftModeMorning || m == ShiftModeBoth
}

// AcceptsEvening reports whether the bus mode may take additional evening load.
// Hanya mode "both" yang menerima tambahan penumpang sore; bus khusus sore
// tidak menerima penempatan langsung.
func (m ShiftMode) AcceptsEvening() bool {
	return m == ShiftModeBoth
}

// Accepts reports whether an additional passenger of the given shift may board.
func (m ShiftMode) Accepts(s Shift) bool {
	if s == ShiftMorning {
		return m.AcceptsMorning()
	}
	return m.AcceptsEvening()
}

// Actor carries authenticated actor info (id/name/role) from the identity check.
type Actor struct {
	ID   string `json:"actorId"`
	Name string `json:"actorName"`
	Role string `json:"role,omitempty"`
}
