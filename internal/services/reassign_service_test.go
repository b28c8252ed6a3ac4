package services

import (
	"strings"
	"testing"
	"time"

	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

var (
	busCols     = []string{"id", "bus_number", "capacity", "shift_mode", "morning_count", "evening_count", "route_id", "status"}
	studentCols = []string{"id", "name", "bus_id", "route_id", "stop_id", "shift"}
)

const (
	qStudentForUpdate = `SELECT .+ FROM students WHERE id=\? FOR UPDATE`
	qBusForUpdate     = `SELECT .+ FROM buses WHERE id=\? FOR UPDATE`
	qBusLoadUpdate    = `UPDATE buses SET morning_count = \?, evening_count = \?, total_count = \?, updated_at = NOW\(\) WHERE id = \?`
	qStudentMove      = `UPDATE students SET bus_id = \?, route_id = \?, updated_at = NOW\(\) WHERE id = \?`
)

func TestCommitSingleMoveUpdatesBothLedgers(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	// urutan exec update bus mengikuti iterasi map delta, jadi jangan
	// paksakan urutan ekspektasi
	mock.MatchExpectationsInOrder(false)

	mock.ExpectBegin()
	mock.ExpectQuery(qStudentForUpdate).WithArgs(101).
		WillReturnRows(sqlmock.NewRows(studentCols).AddRow(101, "Siti", 1, 11, 7, "morning"))
	mock.ExpectQuery(qBusForUpdate).WithArgs(1).
		WillReturnRows(sqlmock.NewRows(busCols).AddRow(1, "A-01", 50, "both", 10, 5, 11, "active"))
	mock.ExpectQuery(qBusForUpdate).WithArgs(2).
		WillReturnRows(sqlmock.NewRows(busCols).AddRow(2, "B-02", 50, "both", 20, 0, 22, "active"))
	mock.ExpectExec(qBusLoadUpdate).WithArgs(9, 5, 14, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qBusLoadUpdate).WithArgs(21, 0, 21, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qStudentMove).WithArgs(2, 22, 101).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	undo := NewUndoManager(time.Minute)
	svc := ReassignService{DB: db, Undo: undo}

	plans := []models.ReassignmentPlan{
		{StudentID: 101, FromBusID: 1, ToBusID: 2, ToRouteID: 22, Shift: domain.ShiftMorning},
	}
	actor := domain.Actor{ID: "admin-1", Name: "Admin"}

	result, err := svc.Commit(plans, actor, "pemerataan okupansi pagi")
	if err != nil {
		t.Fatalf("commit gagal: %v", err)
	}
	if result.ActionID == "" {
		t.Fatalf("actionId kosong")
	}
	if len(result.UpdatedStudents) != 1 {
		t.Fatalf("expected 1 updated student, got %d", len(result.UpdatedStudents))
	}
	st := result.UpdatedStudents[0]
	if st.OldBusID != 1 || st.NewBusID != 2 || st.OldRouteID != 11 || st.NewRouteID != 22 {
		t.Fatalf("affected student salah: %+v", st)
	}
	if st.StopID != 7 {
		t.Fatalf("stop lama harus dipertahankan, got %d", st.StopID)
	}
	if len(result.BusUpdates) != 2 {
		t.Fatalf("expected 2 bus updates, got %d", len(result.BusUpdates))
	}
	for _, bu := range result.BusUpdates {
		switch bu.BusID {
		case 1:
			if bu.MorningCountBefore != 10 || bu.MorningCountAfter != 9 {
				t.Fatalf("bus 1 counter salah: %+v", bu)
			}
		case 2:
			if bu.MorningCountBefore != 20 || bu.MorningCountAfter != 21 {
				t.Fatalf("bus 2 counter salah: %+v", bu)
			}
		default:
			t.Fatalf("bus tak terduga di update: %+v", bu)
		}
	}

	if got := len(undo.ListActive("admin-1")); got != 1 {
		t.Fatalf("undo history harus berisi 1 entry, got %d", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ekspektasi sqlmock: %v", err)
	}
}

func TestCommitRollsBackWholeBatchOnCapacityViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// move kedua menabrak kapasitas bus 3 -> seluruh batch batal, tidak ada
	// satu pun UPDATE yang boleh sampai ke DB
	mock.ExpectBegin()
	mock.ExpectQuery(qStudentForUpdate).WithArgs(101).
		WillReturnRows(sqlmock.NewRows(studentCols).AddRow(101, "Siti", 1, 11, 0, "morning"))
	mock.ExpectQuery(qStudentForUpdate).WithArgs(102).
		WillReturnRows(sqlmock.NewRows(studentCols).AddRow(102, "Budi", 1, 11, 0, "morning"))
	mock.ExpectQuery(qBusForUpdate).WithArgs(1).
		WillReturnRows(sqlmock.NewRows(busCols).AddRow(1, "A-01", 50, "both", 10, 5, 11, "active"))
	mock.ExpectQuery(qBusForUpdate).WithArgs(2).
		WillReturnRows(sqlmock.NewRows(busCols).AddRow(2, "B-02", 50, "both", 20, 0, 22, "active"))
	mock.ExpectQuery(qBusForUpdate).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(busCols).AddRow(3, "C-03", 10, "morning", 10, 0, 33, "active"))
	mock.ExpectRollback()

	svc := ReassignService{DB: db}
	plans := []models.ReassignmentPlan{
		{StudentID: 101, FromBusID: 1, ToBusID: 2, ToRouteID: 22, Shift: domain.ShiftMorning},
		{StudentID: 102, FromBusID: 1, ToBusID: 3, ToRouteID: 33, Shift: domain.ShiftMorning},
	}

	_, err = svc.Commit(plans, domain.Actor{ID: "admin-1"}, "pemerataan okupansi pagi")
	if err == nil {
		t.Fatalf("expected capacity violation")
	}
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "C-03") {
		t.Fatalf("error harus menyebut bus pelanggar: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ekspektasi sqlmock: %v", err)
	}
}

func TestCommitTrustsFreshReadOverStalePlan(t *testing.T) {
	// plan bilang siswa masih di bus 1, padahal DB bilang sudah di bus 5.
	// Delta harus dihitung dari bus 5, bukan dari klaim plan.
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	mock.ExpectBegin()
	mock.ExpectQuery(qStudentForUpdate).WithArgs(101).
		WillReturnRows(sqlmock.NewRows(studentCols).AddRow(101, "Siti", 5, 55, 0, "morning"))
	mock.ExpectQuery(qBusForUpdate).WithArgs(2).
		WillReturnRows(sqlmock.NewRows(busCols).AddRow(2, "B-02", 50, "both", 20, 0, 22, "active"))
	mock.ExpectQuery(qBusForUpdate).WithArgs(5).
		WillReturnRows(sqlmock.NewRows(busCols).AddRow(5, "E-05", 50, "both", 8, 0, 55, "active"))
	mock.ExpectExec(qBusLoadUpdate).WithArgs(7, 0, 7, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qBusLoadUpdate).WithArgs(21, 0, 21, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qStudentMove).WithArgs(2, 22, 101).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := ReassignService{DB: db}
	plans := []models.ReassignmentPlan{
		{StudentID: 101, FromBusID: 1, ToBusID: 2, ToRouteID: 22, Shift: domain.ShiftMorning},
	}

	result, err := svc.Commit(plans, domain.Actor{ID: "admin-1"}, "pemerataan okupansi pagi")
	if err != nil {
		t.Fatalf("commit gagal: %v", err)
	}
	if result.UpdatedStudents[0].OldBusID != 5 {
		t.Fatalf("oldBusId harus dari pembacaan segar, got %d", result.UpdatedStudents[0].OldBusID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ekspektasi sqlmock: %v", err)
	}
}

func TestCommitRejectsMissingStudent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(qStudentForUpdate).WithArgs(999).
		WillReturnRows(sqlmock.NewRows(studentCols))
	mock.ExpectRollback()

	svc := ReassignService{DB: db}
	plans := []models.ReassignmentPlan{
		{StudentID: 999, FromBusID: 1, ToBusID: 2, ToRouteID: 22, Shift: domain.ShiftMorning},
	}

	_, err = svc.Commit(plans, domain.Actor{ID: "admin-1"}, "pemerataan okupansi pagi")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ekspektasi sqlmock: %v", err)
	}
}

func TestCommitRejectsBadInputWithoutTouchingDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	svc := ReassignService{DB: db}
	actor := domain.Actor{ID: "admin-1"}
	ok := []models.ReassignmentPlan{
		{StudentID: 101, FromBusID: 1, ToBusID: 2, ToRouteID: 22, Shift: domain.ShiftMorning},
	}
	dup := append(append([]models.ReassignmentPlan{}, ok...), ok...)

	if _, err := svc.Commit(nil, actor, "pemerataan okupansi pagi"); !domain.IsValidation(err) {
		t.Fatalf("batch kosong: expected validation, got %v", err)
	}
	if _, err := svc.Commit(dup, actor, "pemerataan okupansi pagi"); !domain.IsValidation(err) {
		t.Fatalf("siswa duplikat: expected validation, got %v", err)
	}
	if _, err := svc.Commit(ok, actor, "pendek"); !domain.IsValidation(err) {
		t.Fatalf("alasan pendek: expected validation, got %v", err)
	}
	if _, err := svc.Commit(ok, domain.Actor{}, "pemerataan okupansi pagi"); !domain.IsValidation(err) {
		t.Fatalf("aktor kosong: expected validation, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("validasi level-plan tidak boleh menyentuh DB: %v", err)
	}
}

func TestCommitRetriesDeadlockThenReturnsRetryableConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	for i := 0; i < maxCommitAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(qStudentForUpdate).WithArgs(101).WillReturnError(deadlock)
		mock.ExpectRollback()
	}

	svc := ReassignService{DB: db}
	plans := []models.ReassignmentPlan{
		{StudentID: 101, FromBusID: 1, ToBusID: 2, ToRouteID: 22, Shift: domain.ShiftMorning},
	}

	_, err = svc.Commit(plans, domain.Actor{ID: "admin-1"}, "pemerataan okupansi pagi")
	if !domain.IsRetryableConflict(err) {
		t.Fatalf("expected retryable conflict after exhausted attempts, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ekspektasi sqlmock: %v", err)
	}
}
