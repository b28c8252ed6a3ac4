package services

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	intconfig "schoolbus/internal/config"
	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
	"schoolbus/internal/repositories"
	"schoolbus/internal/utils"

	"github.com/go-sql-driver/mysql"
)

const (
	minReasonLength   = 10
	maxCommitAttempts = 3
)

// ReassignService mengeksekusi batch perpindahan siswa sebagai satu unit
// atomik: validasi kapasitas/shift dan semua mutasi siswa+bus jalan dalam
// satu transaksi MySQL dengan row lock.
type ReassignService struct {
	DB          *sql.DB
	BusRepo     repositories.BusRepository
	StudentRepo repositories.StudentRepository
	Audit       AuditService
	Dispatcher  Dispatcher
	Undo        *UndoManager
	RequestID   string
}

func (s ReassignService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

// CommitResult dikembalikan ke handler setelah commit sukses.
type CommitResult struct {
	UpdatedStudents []models.AffectedStudent `json:"updatedStudents"`
	BusUpdates      []models.BusUpdate       `json:"busUpdates"`
	ActionID        string                   `json:"actionId"`
}

// Commit menjalankan seluruh batch. Validasi level-plan dulu (murah, tanpa
// DB), lalu transaksi dengan retry terbatas saat deadlock. Side effect
// (audit, notifikasi) jalan SETELAH commit dan tidak pernah membatalkannya.
func (s ReassignService) Commit(plans []models.ReassignmentPlan, actor domain.Actor, reason string) (CommitResult, error) {
	if err := CheckBatch(plans); err != nil {
		return CommitResult{}, err
	}
	reason = strings.TrimSpace(reason)
	if len(reason) < minReasonLength {
		return CommitResult{}, domain.ValidationError{
			Field: "reason",
			Msg:   fmt.Sprintf("alasan wajib diisi minimal %d karakter", minReasonLength),
		}
	}
	if strings.TrimSpace(actor.ID) == "" {
		return CommitResult{}, domain.ValidationError{Field: "actorId", Msg: "identitas aktor wajib diisi"}
	}

	db := s.db()
	if db == nil {
		return CommitResult{}, domain.InternalError{Msg: "db tidak tersedia"}
	}

	utils.LogEvent(s.RequestID, "reassign", "commit_start",
		"plans="+strconv.Itoa(len(plans))+" actor="+actor.ID)

	var (
		buffer models.RevertBufferData
		err    error
	)
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		buffer, err = s.commitOnce(db, plans)
		if err == nil {
			break
		}
		if isLockConflict(err) && attempt < maxCommitAttempts {
			// batch lain memegang lock bus yang sama; ulang dengan baca segar
			utils.LogEvent(s.RequestID, "reassign", "commit_retry",
				"attempt="+strconv.Itoa(attempt)+" err="+err.Error())
			time.Sleep(time.Duration(attempt*50) * time.Millisecond)
			continue
		}
		break
	}
	if err != nil {
		if isLockConflict(err) {
			// CommitError transien: batch lain menang, caller boleh coba ulang
			return CommitResult{}, domain.ConflictError{
				Resource:  "reassignment",
				Msg:       "transaksi bentrok dengan batch lain, silakan coba ulang",
				Retryable: true,
				Err:       err,
			}
		}
		return CommitResult{}, err
	}

	actionID := ""
	if s.Undo != nil {
		actionID = s.Undo.Register(buffer, plans, actor, reason)
	}

	// Best-effort: audit dan notifikasi tidak boleh mem-block response
	// dan kegagalannya tidak membatalkan commit.
	go s.Audit.Record(actionID, auditActionCommitted, plans, actor, reason)
	go s.dispatchNotifications(buffer.AffectedStudents, reason)

	utils.LogEvent(s.RequestID, "reassign", "commit_ok",
		"action_id="+actionID+" students="+strconv.Itoa(len(buffer.AffectedStudents)))

	return CommitResult{
		UpdatedStudents: buffer.AffectedStudents,
		BusUpdates:      buffer.BusUpdates,
		ActionID:        actionID,
	}, nil
}

// commitOnce: satu percobaan transaksi. Semua pembacaan terjadi ULANG di
// dalam transaksi (FOR UPDATE) — nilai from/shift pada plan tidak dipercaya.
func (s ReassignService) commitOnce(db *sql.DB, plans []models.ReassignmentPlan) (models.RevertBufferData, error) {
	var buffer models.RevertBufferData

	tx, err := db.Begin()
	if err != nil {
		return buffer, domain.InternalError{Msg: "gagal mulai transaksi", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	studentIDs := make([]domain.ID, 0, len(plans))
	for _, p := range plans {
		studentIDs = append(studentIDs, p.StudentID)
	}
	students, err := s.StudentRepo.GetForUpdateTx(tx, studentIDs)
	if err != nil {
		return buffer, domain.InternalError{Msg: "gagal membaca siswa", Err: err}
	}

	// Rekonstruksi plan efektif dari state siswa yang segar.
	effective := make([]models.ReassignmentPlan, 0, len(plans))
	busIDSet := map[domain.ID]bool{}
	for _, p := range plans {
		st, ok := students[p.StudentID]
		if !ok {
			return buffer, domain.NotFoundError{Resource: fmt.Sprintf("siswa %d", p.StudentID)}
		}
		ep := p
		ep.FromBusID = st.BusID
		ep.FromRouteID = st.RouteID
		ep.Shift = st.Shift
		if ep.StudentName == "" {
			ep.StudentName = st.Name
		}
		effective = append(effective, ep)
		busIDSet[ep.FromBusID] = true
		busIDSet[ep.ToBusID] = true
	}

	busIDs := make([]domain.ID, 0, len(busIDSet))
	for id := range busIDSet {
		busIDs = append(busIDs, id)
	}
	buses, err := s.BusRepo.GetForUpdateTx(tx, busIDs)
	if err != nil {
		return buffer, domain.InternalError{Msg: "gagal membaca bus", Err: err}
	}

	deltas := ComputeDeltas(effective)
	if err := CheckDeltas(buses, deltas); err != nil {
		return buffer, err
	}

	// Tulis ledger bus yang berubah.
	for busID, d := range deltas {
		if d.IsZero() {
			continue
		}
		bus := buses[busID]
		next := ApplyDelta(bus.Load, d)
		if err := s.BusRepo.UpdateLoadTx(tx, busID, next); err != nil {
			return buffer, domain.InternalError{Msg: "gagal update okupansi bus", Err: err}
		}
		buffer.BusUpdates = append(buffer.BusUpdates, models.BusUpdate{
			BusID:              busID,
			MorningCountBefore: bus.Load.MorningCount,
			MorningCountAfter:  next.MorningCount,
			EveningCountBefore: bus.Load.EveningCount,
			EveningCountAfter:  next.EveningCount,
		})
	}

	// Pindahkan siswa; stop lama dipertahankan kecuali plan membawa stop baru.
	for _, p := range effective {
		st := students[p.StudentID]
		if err := s.StudentRepo.UpdateAssignmentTx(tx, p.StudentID, p.ToBusID, p.ToRouteID, p.StopID); err != nil {
			return buffer, domain.InternalError{Msg: "gagal update penugasan siswa", Err: err}
		}
		stopID := p.StopID
		if stopID <= 0 {
			stopID = st.StopID
		}
		buffer.AffectedStudents = append(buffer.AffectedStudents, models.AffectedStudent{
			StudentID:  p.StudentID,
			OldBusID:   st.BusID,
			NewBusID:   p.ToBusID,
			OldRouteID: st.RouteID,
			NewRouteID: p.ToRouteID,
			StopID:     stopID,
			Shift:      st.Shift,
		})
	}

	if err := tx.Commit(); err != nil {
		return buffer, domain.InternalError{Msg: "gagal commit", Err: err}
	}
	committed = true
	buffer.Timestamp = time.Now()
	return buffer, nil
}

func (s ReassignService) dispatchNotifications(students []models.AffectedStudent, reason string) {
	if s.Dispatcher == nil {
		return
	}
	for _, st := range students {
		n := models.Notification{
			RecipientID: st.StudentID,
			Title:       "Perubahan Bus",
			Body: fmt.Sprintf("Kamu dipindahkan dari bus %d ke bus %d. Alasan: %s",
				st.OldBusID, st.NewBusID, reason),
			Metadata: map[string]any{
				"type":      "reassignment",
				"fromBusId": st.OldBusID,
				"toBusId":   st.NewBusID,
				"reason":    reason,
			},
		}
		if err := s.Dispatcher.Dispatch(n); err != nil {
			// non-fatal, tidak di-retry sinkron
			utils.LogEvent(s.RequestID, "notify", "dispatch_failed",
				"student="+strconv.FormatInt(int64(st.StudentID), 10)+" err="+err.Error())
		}
	}
}

// isLockConflict mengenali deadlock (1213) dan lock wait timeout (1205).
func isLockConflict(err error) bool {
	for err != nil {
		if me, ok := err.(*mysql.MySQLError); ok {
			return me.Number == 1213 || me.Number == 1205
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return false
}
