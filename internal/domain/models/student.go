package models

import "schoolbus/internal/domain"

// Student mirrors the students table. Penugasan bus/rute hanya diubah lewat
// transaction executor; edit profil lain di luar engine ini.
type Student struct {
	ID        domain.ID    `json:"id"`
	Name      string       `json:"name"`
	BusID     domain.ID    `json:"busId"`
	RouteID   domain.ID    `json:"routeId"`
	StopID    domain.ID    `json:"stopId"`
	Shift     domain.Shift `json:"shift"`
	UpdatedAt string       `json:"updatedAt,omitempty"`
}
