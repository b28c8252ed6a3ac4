package services

import (
	"fmt"
	"strings"

	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
)

// MoveSelection adalah pilihan dari UI: satu siswa plus target eksplisit.
type MoveSelection struct {
	StudentID   domain.ID    `json:"studentId"`
	StudentName string       `json:"studentName"`
	FromRouteID domain.ID    `json:"fromRouteId"`
	ToBusID     domain.ID    `json:"toBusId"`
	ToRouteID   domain.ID    `json:"toRouteId"`
	ToBusNumber string       `json:"toBusNumber"`
	StopID      domain.ID    `json:"stopId"`
	Shift       domain.Shift `json:"shift"`
}

// BuildPlans menyusun ReassignmentPlan dari pilihan UI. Murni komputasi:
// tidak menyentuh DB dan sengaja TIDAK mengecek kapasitas — itu tugas
// validator di dalam transaksi, dengan data yang masih segar.
func BuildPlans(sourceBusID domain.ID, selections []MoveSelection) ([]models.ReassignmentPlan, error) {
	if sourceBusID <= 0 {
		return nil, domain.ValidationError{Field: "sourceBusId", Msg: "bus asal wajib diisi"}
	}
	if len(selections) == 0 {
		return nil, domain.ValidationError{Msg: "daftar perpindahan kosong"}
	}

	seen := map[domain.ID]bool{}
	plans := make([]models.ReassignmentPlan, 0, len(selections))
	for _, sel := range selections {
		if sel.StudentID <= 0 {
			return nil, domain.ValidationError{Field: "studentId", Msg: "id siswa tidak valid"}
		}
		if seen[sel.StudentID] {
			return nil, domain.ValidationError{Msg: fmt.Sprintf("siswa %d muncul dua kali dalam satu batch", sel.StudentID)}
		}
		seen[sel.StudentID] = true

		if sel.ToBusID <= 0 {
			return nil, domain.ValidationError{Field: "toBusId", Msg: fmt.Sprintf("bus tujuan wajib diisi untuk siswa %d", sel.StudentID)}
		}
		if _, ok := domain.ParseShift(string(sel.Shift)); !ok {
			return nil, domain.ValidationError{Field: "shift", Msg: fmt.Sprintf("shift tidak dikenal untuk siswa %d", sel.StudentID)}
		}

		plans = append(plans, models.ReassignmentPlan{
			StudentID:   sel.StudentID,
			StudentName: strings.TrimSpace(sel.StudentName),
			FromBusID:   sourceBusID,
			FromRouteID: sel.FromRouteID,
			ToBusID:     sel.ToBusID,
			ToRouteID:   sel.ToRouteID,
			ToBusNumber: strings.TrimSpace(sel.ToBusNumber),
			StopID:      sel.StopID,
			Shift:       sel.Shift,
		})
	}

	return plans, nil
}

// CheckBatch melakukan validasi level-plan sebelum eksekusi:
// batch tidak kosong dan tidak ada siswa ganda. Kapasitas tidak dicek di sini.
func CheckBatch(plans []models.ReassignmentPlan) error {
	if len(plans) == 0 {
		return domain.ValidationError{Msg: "daftar perpindahan kosong"}
	}
	seen := map[domain.ID]bool{}
	for _, p := range plans {
		if p.StudentID <= 0 {
			return domain.ValidationError{Field: "studentId", Msg: "id siswa tidak valid"}
		}
		if seen[p.StudentID] {
			return domain.ValidationError{Msg: fmt.Sprintf("siswa %d muncul dua kali dalam satu batch", p.StudentID)}
		}
		seen[p.StudentID] = true
		if p.ToBusID <= 0 {
			return domain.ValidationError{Field: "toBusId", Msg: fmt.Sprintf("bus tujuan wajib diisi untuk siswa %d", p.StudentID)}
		}
	}
	return nil
}
