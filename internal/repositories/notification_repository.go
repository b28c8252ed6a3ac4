package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"

	intconfig "schoolbus/internal/config"
	intdb "schoolbus/internal/db"
	"schoolbus/internal/domain/models"
)

// NotificationRepository menulis outbox notifikasi; pengiriman ke device
// (push/PWA) diurus aplikasi lain yang membaca tabel ini.
type NotificationRepository struct {
	DB *sql.DB
}

func (r NotificationRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r NotificationRepository) Insert(n models.Notification) error {
	db := r.db()
	if db == nil {
		return fmt.Errorf("db tidak tersedia untuk notifications")
	}
	if !intdb.HasTable(db, "notifications") {
		return fmt.Errorf("tabel notifications belum tersedia")
	}

	meta, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("gagal encode metadata: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO notifications (recipient_id, title, body, metadata_json, created_at)
		VALUES (?, ?, ?, ?, NOW())
	`, n.RecipientID, n.Title, n.Body, string(meta))
	return err
}
