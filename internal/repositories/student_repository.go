package repositories

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	intconfig "schoolbus/internal/config"
	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
)

// StudentRepository membaca tabel students; mutasi penugasan hanya lewat Tx.
type StudentRepository struct {
	DB *sql.DB
}

func (r StudentRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const studentColumns = `
	id,
	COALESCE(name,''),
	COALESCE(bus_id,0),
	COALESCE(route_id,0),
	COALESCE(stop_id,0),
	COALESCE(shift,'morning')`

func scanStudent(row interface{ Scan(...any) error }) (models.Student, error) {
	var s models.Student
	var shift string
	if err := row.Scan(
		&s.ID,
		&s.Name,
		&s.BusID,
		&s.RouteID,
		&s.StopID,
		&shift,
	); err != nil {
		return models.Student{}, err
	}
	s.Shift = domain.Shift(strings.ToLower(strings.TrimSpace(shift)))
	return s, nil
}

func (r StudentRepository) GetByID(id domain.ID) (models.Student, error) {
	db := r.db()
	if db == nil || id <= 0 {
		return models.Student{}, sql.ErrNoRows
	}
	row := db.QueryRow(`SELECT `+studentColumns+` FROM students WHERE id=? LIMIT 1`, id)
	return scanStudent(row)
}

// StudentFilter menyaring list siswa per bus dan/atau shift.
type StudentFilter struct {
	BusID domain.ID
	Shift string
}

func (r StudentRepository) List(f StudentFilter) ([]models.Student, error) {
	db := r.db()
	if db == nil {
		return []models.Student{}, nil
	}

	where := []string{"1=1"}
	args := []any{}
	if f.BusID > 0 {
		where = append(where, "bus_id=?")
		args = append(args, f.BusID)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Shift)); s != "" {
		where = append(where, "shift=?")
		args = append(args, s)
	}

	rows, err := db.Query(
		`SELECT `+studentColumns+` FROM students WHERE `+strings.Join(where, " AND ")+` ORDER BY id ASC`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetForUpdateTx membaca ulang siswa di dalam transaksi dengan row lock.
// Snapshot hasil baca ini yang masuk ke revert buffer, bukan nilai dari plan.
func (r StudentRepository) GetForUpdateTx(tx *sql.Tx, ids []domain.ID) (map[domain.ID]models.Student, error) {
	out := map[domain.ID]models.Student{}
	if tx == nil || len(ids) == 0 {
		return out, nil
	}

	sorted := append([]domain.ID{}, ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, id := range sorted {
		row := tx.QueryRow(`SELECT `+studentColumns+` FROM students WHERE id=? FOR UPDATE`, id)
		s, err := scanStudent(row)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, nil
}

// UpdateAssignmentTx memindahkan siswa ke bus/rute baru di dalam transaksi.
// stopID <= 0 berarti stop lama dipertahankan.
func (r StudentRepository) UpdateAssignmentTx(tx *sql.Tx, studentID, busID, routeID, stopID domain.ID) error {
	if tx == nil {
		return fmt.Errorf("tx nil untuk update penugasan siswa")
	}

	if stopID > 0 {
		_, err := tx.Exec(`
			UPDATE students
			SET bus_id = ?, route_id = ?, stop_id = ?, updated_at = NOW()
			WHERE id = ?
		`, busID, routeID, stopID, studentID)
		return err
	}

	_, err := tx.Exec(`
		UPDATE students
		SET bus_id = ?, route_id = ?, updated_at = NOW()
		WHERE id = ?
	`, busID, routeID, studentID)
	return err
}
