package services

import (
	"database/sql"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	intconfig "schoolbus/internal/config"
	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
	"schoolbus/internal/repositories"
	"schoolbus/internal/utils"
)

// State machine satu aksi: active → (reverted | finalized).
// Begitu dikonsumsi (revert, konfirmasi, atau window lewat) buffer dibuang
// dan aksi tidak bisa di-revert lagi.
type undoState int

const (
	undoActive undoState = iota
	undoReverting
	undoReverted
	undoFinalized
)

type undoEntry struct {
	history models.UndoHistoryEntry
	buffer  models.RevertBufferData
	state   undoState
}

// UndoManager menyimpan revert buffer per aksi di memori proses dengan
// deadline wall-clock. Satu window konfigurasi dipakai untuk countdown UI
// maupun umur buffer.
type UndoManager struct {
	DB          *sql.DB
	BusRepo     repositories.BusRepository
	StudentRepo repositories.StudentRepository
	Audit       AuditService

	// Now injectable untuk test.
	Now func() time.Time

	mu      sync.Mutex
	window  time.Duration
	entries map[string]*undoEntry
}

func NewUndoManager(window time.Duration) *UndoManager {
	if window <= 0 {
		window = 300 * time.Second
	}
	return &UndoManager{
		Now:     time.Now,
		window:  window,
		entries: map[string]*undoEntry{},
	}
}

func (m *UndoManager) db() *sql.DB {
	if m.DB != nil {
		return m.DB
	}
	return intconfig.DB
}

// Window returns the configured undo window.
func (m *UndoManager) Window() time.Duration {
	return m.window
}

// Register menyimpan buffer batch yang baru commit dan mengembalikan action id.
func (m *UndoManager) Register(buffer models.RevertBufferData, plans []models.ReassignmentPlan, actor domain.Actor, reason string) string {
	now := m.Now()
	if buffer.Timestamp.IsZero() {
		buffer.Timestamp = now
	}
	actionID := newActionID(now)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[actionID] = &undoEntry{
		history: models.UndoHistoryEntry{
			ID:        actionID,
			Plans:     plans,
			Actor:     actor,
			Reason:    reason,
			Timestamp: buffer.Timestamp,
			ExpiresAt: buffer.Timestamp.Add(m.window),
		},
		buffer: buffer,
		state:  undoActive,
	}
	return actionID
}

// Revert menjalankan transaksi kompensasi yang menulis balik nilai sebelum
// commit. Idempotent-safe: aksi yang sudah dikonsumsi gagal bersih tanpa
// menulis apa pun.
func (m *UndoManager) Revert(actionID string) error {
	m.mu.Lock()
	e, ok := m.entries[actionID]
	if !ok {
		m.mu.Unlock()
		return domain.NotFoundError{Resource: fmt.Sprintf("aksi undo %s", actionID)}
	}
	now := m.Now()
	if e.state == undoActive && now.After(e.history.ExpiresAt) {
		e.state = undoFinalized
		e.buffer = models.RevertBufferData{}
	}
	switch e.state {
	case undoReverted, undoReverting:
		m.mu.Unlock()
		return domain.ConflictError{Resource: "undo", Msg: "aksi sudah di-revert"}
	case undoFinalized:
		m.mu.Unlock()
		return domain.ConflictError{Resource: "undo", Msg: "window undo sudah lewat, aksi sudah final"}
	}
	// single-consumer: tandai dulu supaya revert kedua yang balapan gagal
	e.state = undoReverting
	buffer := e.buffer
	m.mu.Unlock()

	if err := m.restore(buffer); err != nil {
		m.mu.Lock()
		e.state = undoActive
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	e.state = undoReverted
	e.buffer = models.RevertBufferData{}
	history := e.history
	m.mu.Unlock()

	go m.Audit.Record(actionID, auditActionReverted, history.Plans, history.Actor, history.Reason)

	utils.LogEvent("", "undo", "reverted",
		"action_id="+actionID+" students="+strconv.Itoa(len(buffer.AffectedStudents)))
	return nil
}

// restore: transaksi kedua yang menulis nilai *Before ke bus dan
// oldBusId/oldRouteId ke siswa.
func (m *UndoManager) restore(buffer models.RevertBufferData) error {
	db := m.db()
	if db == nil {
		return domain.InternalError{Msg: "db tidak tersedia"}
	}

	tx, err := db.Begin()
	if err != nil {
		return domain.InternalError{Msg: "gagal mulai transaksi revert", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, st := range buffer.AffectedStudents {
		if err := m.StudentRepo.UpdateAssignmentTx(tx, st.StudentID, st.OldBusID, st.OldRouteID, 0); err != nil {
			return domain.InternalError{Msg: "gagal mengembalikan penugasan siswa", Err: err}
		}
	}
	for _, bu := range buffer.BusUpdates {
		load := models.BusLoad{
			MorningCount: bu.MorningCountBefore,
			EveningCount: bu.EveningCountBefore,
		}
		if err := m.BusRepo.UpdateLoadTx(tx, bu.BusID, load); err != nil {
			return domain.InternalError{Msg: "gagal mengembalikan okupansi bus", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.InternalError{Msg: "gagal commit revert", Err: err}
	}
	committed = true
	return nil
}

// Clear memfinalisasi aksi secara eksplisit (aktor menekan konfirmasi).
// Tidak ada penulisan DB; buffer dibuang.
func (m *UndoManager) Clear(actionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[actionID]; ok && e.state == undoActive {
		e.state = undoFinalized
		e.buffer = models.RevertBufferData{}
	}
}

// ListActive returns non-expired, non-consumed entries; actorID kosong
// berarti semua aktor (dipakai internal/test).
func (m *UndoManager) ListActive(actorID string) []models.UndoHistoryEntry {
	now := m.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.UndoHistoryEntry{}
	for _, e := range m.entries {
		if e.state == undoActive && now.After(e.history.ExpiresAt) {
			e.state = undoFinalized
			e.buffer = models.RevertBufferData{}
		}
		if e.state != undoActive {
			continue
		}
		if actorID != "" && e.history.Actor.ID != actorID {
			continue
		}
		out = append(out, e.history)
	}
	return out
}

// SweepExpired memfinalisasi semua aksi yang windownya lewat; dipanggil
// periodik oleh cron di main. Entry yang sudah final dan lama dibuang dari
// tabel supaya tidak tumbuh tanpa batas.
func (m *UndoManager) SweepExpired() int {
	now := m.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, e := range m.entries {
		if e.state == undoActive && now.After(e.history.ExpiresAt) {
			e.state = undoFinalized
			e.buffer = models.RevertBufferData{}
			n++
		}
		// retensi riwayat: 24 jam setelah expiry entry dibuang total
		if e.state != undoActive && now.Sub(e.history.ExpiresAt) > 24*time.Hour {
			delete(m.entries, id)
		}
	}
	return n
}

func newActionID(now time.Time) string {
	return "RSG-" + strconv.FormatInt(now.UnixNano(), 10) + "-" + strconv.Itoa(rand.Intn(1000000))
}

// Global aktif, pola yang sama dengan config.DB: di-set sekali dari main.
var (
	undoMu     sync.RWMutex
	activeUndo *UndoManager
)

func SetUndoManager(m *UndoManager) {
	undoMu.Lock()
	defer undoMu.Unlock()
	activeUndo = m
}

// ActiveUndoManager mengembalikan manager global (lazy default 300s kalau
// main belum sempat set, mis. di test handler).
func ActiveUndoManager() *UndoManager {
	undoMu.RLock()
	m := activeUndo
	undoMu.RUnlock()
	if m != nil {
		return m
	}

	undoMu.Lock()
	defer undoMu.Unlock()
	if activeUndo == nil {
		activeUndo = NewUndoManager(0)
	}
	return activeUndo
}
