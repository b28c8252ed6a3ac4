package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	intconfig "schoolbus/internal/config"
	intdb "schoolbus/internal/db"
	"schoolbus/internal/domain/models"
)

// AuditRepository menulis audit_logs. Append-only: tidak ada update/delete.
type AuditRepository struct {
	DB *sql.DB
}

func (r AuditRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Insert menambah satu entry audit. Caller (audit service) yang memutuskan
// apakah kegagalan di sini boleh dipropagasi; repository hanya melapor.
func (r AuditRepository) Insert(e models.AuditLogEntry) error {
	db := r.db()
	if db == nil {
		return fmt.Errorf("db tidak tersedia untuk audit_logs")
	}
	if !intdb.HasTable(db, "audit_logs") {
		return fmt.Errorf("tabel audit_logs belum tersedia, jalankan migrasi audit_logs")
	}

	plansJSON, err := json.Marshal(e.Plans)
	if err != nil {
		return fmt.Errorf("gagal encode plans: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO audit_logs (action_id, actor_id, actor_name, action, reason, plans_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW())
	`,
		strings.TrimSpace(e.ActionID),
		strings.TrimSpace(e.ActorID),
		strings.TrimSpace(e.ActorName),
		strings.TrimSpace(e.Action),
		strings.TrimSpace(e.Reason),
		string(plansJSON),
	)
	return err
}

// List returns recent audit entries, newest first.
func (r AuditRepository) List(limit int) ([]models.AuditLogEntry, error) {
	db := r.db()
	if db == nil || !intdb.HasTable(db, "audit_logs") {
		return []models.AuditLogEntry{}, nil
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := db.Query(`
		SELECT id,
			   COALESCE(action_id,''),
			   COALESCE(actor_id,''),
			   COALESCE(actor_name,''),
			   COALESCE(action,''),
			   COALESCE(reason,''),
			   COALESCE(plans_json,'[]'),
			   COALESCE(DATE_FORMAT(created_at, '%Y-%m-%d %H:%i:%s'),'')
		FROM audit_logs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.AuditLogEntry{}
	for rows.Next() {
		var e models.AuditLogEntry
		var plansJSON string
		if err := rows.Scan(
			&e.ID,
			&e.ActionID,
			&e.ActorID,
			&e.ActorName,
			&e.Action,
			&e.Reason,
			&plansJSON,
			&e.CreatedAt,
		); err != nil {
			return out, err
		}
		if err := json.Unmarshal([]byte(plansJSON), &e.Plans); err != nil {
			e.Plans = nil
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
