package models

import "schoolbus/internal/domain"

// BusLoad adalah ledger okupansi per shift yang tersimpan di baris bus.
// Invariant setelah commit: kedua counter >= 0 dan jumlahnya <= kapasitas.
type BusLoad struct {
	MorningCount int `json:"morningCount"`
	EveningCount int `json:"eveningCount"`
}

// Total derives the combined occupant count.
func (l BusLoad) Total() int {
	return l.MorningCount + l.EveningCount
}

// Bus mirrors the buses table.
type Bus struct {
	ID        domain.ID        `json:"id"`
	BusNumber string           `json:"busNumber"`
	Capacity  int              `json:"capacity"`
	ShiftMode domain.ShiftMode `json:"shiftMode"`
	Load      BusLoad          `json:"load"`
	RouteID   domain.ID        `json:"routeId"`
	Status    string           `json:"status"`
	UpdatedAt string           `json:"updatedAt,omitempty"`
}
