package repositories

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	intconfig "schoolbus/internal/config"
	intdb "schoolbus/internal/db"
	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
)

// BusRepository membaca/menulis tabel buses, termasuk ledger okupansi.
type BusRepository struct {
	DB *sql.DB
}

func (r BusRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const busColumns = `
	id,
	COALESCE(bus_number,''),
	COALESCE(capacity,0),
	COALESCE(shift_mode,'both'),
	COALESCE(morning_count,0),
	COALESCE(evening_count,0),
	COALESCE(route_id,0),
	COALESCE(status,'')`

func scanBus(row interface{ Scan(...any) error }) (models.Bus, error) {
	var b models.Bus
	var mode string
	if err := row.Scan(
		&b.ID,
		&b.BusNumber,
		&b.Capacity,
		&mode,
		&b.Load.MorningCount,
		&b.Load.EveningCount,
		&b.RouteID,
		&b.Status,
	); err != nil {
		return models.Bus{}, err
	}
	b.ShiftMode = domain.ShiftMode(strings.ToLower(strings.TrimSpace(mode)))
	return b, nil
}

// GetByID fetches one bus outside any transaction (untuk tampilan, bukan validasi).
func (r BusRepository) GetByID(id domain.ID) (models.Bus, error) {
	db := r.db()
	if db == nil || id <= 0 {
		return models.Bus{}, sql.ErrNoRows
	}
	row := db.QueryRow(`SELECT `+busColumns+` FROM buses WHERE id=? LIMIT 1`, id)
	return scanBus(row)
}

// List returns buses filtered by optional search text, dengan paging ala
// endpoint kendaraan lama (limit default 50, max 200).
func (r BusRepository) List(q string, page, limit int) ([]models.Bus, error) {
	db := r.db()
	if db == nil {
		return []models.Bus{}, nil
	}

	where := ""
	args := []any{}
	if s := strings.TrimSpace(q); s != "" {
		where = " WHERE bus_number LIKE ? "
		args = append(args, "%"+s+"%")
	}

	query := `SELECT ` + busColumns + ` FROM buses` + where + ` ORDER BY id DESC`
	if page > 0 || limit > 0 {
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 50
		}
		if limit > 200 {
			limit = 200
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, (page-1)*limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Bus{}
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return out, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetForUpdateTx membaca ulang bus di dalam transaksi dengan row lock, supaya
// batch konkuren yang menyentuh bus sama terserialisasi oleh MySQL.
// ID diurutkan dulu biar urutan lock konsisten antar batch (anti deadlock).
func (r BusRepository) GetForUpdateTx(tx *sql.Tx, ids []domain.ID) (map[domain.ID]models.Bus, error) {
	out := map[domain.ID]models.Bus{}
	if tx == nil || len(ids) == 0 {
		return out, nil
	}

	sorted := append([]domain.ID{}, ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, id := range sorted {
		row := tx.QueryRow(`SELECT `+busColumns+` FROM buses WHERE id=? FOR UPDATE`, id)
		b, err := scanBus(row)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[b.ID] = b
	}
	return out, nil
}

// UpdateLoadTx menulis counter ledger plus total turunannya di dalam transaksi.
func (r BusRepository) UpdateLoadTx(tx *sql.Tx, id domain.ID, load models.BusLoad) error {
	if tx == nil {
		return fmt.Errorf("tx nil untuk update load bus")
	}
	res, err := tx.Exec(`
		UPDATE buses
		SET morning_count = ?, evening_count = ?, total_count = ?, updated_at = NOW()
		WHERE id = ?
	`, load.MorningCount, load.EveningCount, load.Total(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// row bisa saja match dengan nilai identik; cukup pastikan bus ada
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM buses WHERE id=?`, id).Scan(&exists); err == nil && exists == 0 {
			return domain.NotFoundError{Resource: fmt.Sprintf("bus %d", id)}
		}
	}
	return nil
}

// CountStudents menghitung siswa aktif yang masih menunjuk ke bus ini.
func (r BusRepository) CountStudents(id domain.ID) (int, error) {
	db := r.db()
	if db == nil {
		return 0, fmt.Errorf("db tidak tersedia")
	}
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM students WHERE bus_id=?`, id).Scan(&n)
	return n, err
}

// Create inserts a bus row with an empty ledger.
func (r BusRepository) Create(b models.Bus) (domain.ID, error) {
	db := r.db()
	if db == nil {
		return 0, fmt.Errorf("db tidak tersedia")
	}
	res, err := db.Exec(`
		INSERT INTO buses (bus_number, capacity, shift_mode, morning_count, evening_count, total_count, route_id, status)
		VALUES (?, ?, ?, 0, 0, 0, ?, ?)
	`, strings.TrimSpace(b.BusNumber), b.Capacity, string(b.ShiftMode), b.RouteID, intdb.NullIfEmpty(strings.TrimSpace(b.Status)))
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return domain.ID(id), nil
}

// Update mutates non-ledger attributes only; counter hanya diubah executor.
func (r BusRepository) Update(b models.Bus) error {
	db := r.db()
	if db == nil {
		return fmt.Errorf("db tidak tersedia")
	}
	res, err := db.Exec(`
		UPDATE buses
		SET bus_number = ?, capacity = ?, shift_mode = ?, route_id = ?, status = ?, updated_at = NOW()
		WHERE id = ?
	`, strings.TrimSpace(b.BusNumber), b.Capacity, string(b.ShiftMode), b.RouteID, intdb.NullIfEmpty(strings.TrimSpace(b.Status)), b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "bus"}
	}
	return nil
}

func (r BusRepository) Delete(id domain.ID) error {
	db := r.db()
	if db == nil {
		return fmt.Errorf("db tidak tersedia")
	}
	res, err := db.Exec(`DELETE FROM buses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "bus"}
	}
	return nil
}
