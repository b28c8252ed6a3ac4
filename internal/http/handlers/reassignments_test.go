package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	intconfig "schoolbus/internal/config"
	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
	api "schoolbus/internal/http"
	"schoolbus/internal/services"

	"github.com/gin-gonic/gin"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return api.NewRouter(intconfig.Env{})
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("response bukan JSON: %v\n%s", err, w.Body.String())
		}
	}
	return w, out
}

func TestCreateReassignmentRejectsShortReason(t *testing.T) {
	r := setupRouter()

	body := `{
		"plans": [{"studentId": 101, "fromBusId": 1, "toBusId": 2, "toRouteId": 22, "shift": "morning"}],
		"reason": "pendek",
		"actorId": "admin-1"
	}`
	w, resp := doJSON(t, r, http.MethodPost, "/api/reassignments", body)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if resp["code"] != "validation_error" {
		t.Fatalf("expected validation_error, got %v", resp["code"])
	}
}

func TestCreateReassignmentRejectsEmptyBatch(t *testing.T) {
	r := setupRouter()

	w, _ := doJSON(t, r, http.MethodPost, "/api/reassignments",
		`{"plans": [], "reason": "pemerataan okupansi pagi", "actorId": "admin-1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateReassignmentRejectsMissingActor(t *testing.T) {
	r := setupRouter()

	// tanpa token dan tanpa actorId di body
	w, _ := doJSON(t, r, http.MethodPost, "/api/reassignments",
		`{"plans": [{"studentId": 101, "toBusId": 2, "toRouteId": 22, "shift": "morning"}], "reason": "pemerataan okupansi pagi"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPlanReassignmentBuildsPlans(t *testing.T) {
	r := setupRouter()

	body := `{
		"sourceBusId": 1,
		"selections": [
			{"studentId": 101, "studentName": "Siti", "toBusId": 2, "toRouteId": 22, "toBusNumber": "B-02", "shift": "morning"},
			{"studentId": 102, "toBusId": 2, "toRouteId": 22, "shift": "evening"}
		]
	}`
	w, resp := doJSON(t, r, http.MethodPost, "/api/reassignments/plan", body)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	plans, ok := resp["plans"].([]any)
	if !ok || len(plans) != 2 {
		t.Fatalf("expected 2 plans, got %v", resp["plans"])
	}
	first, _ := plans[0].(map[string]any)
	if first["fromBusId"] != float64(1) {
		t.Fatalf("fromBusId harus bus sumber: %v", first)
	}
}

func TestRevertUnknownActionReturns404(t *testing.T) {
	services.SetUndoManager(services.NewUndoManager(time.Minute))
	r := setupRouter()

	w, _ := doJSON(t, r, http.MethodPost, "/api/reassignments/revert",
		`{"actionId": "RSG-tidak-ada"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUndoHistoryReportsWindowAndEntries(t *testing.T) {
	m := services.NewUndoManager(90 * time.Second)
	services.SetUndoManager(m)
	actionID := m.Register(models.RevertBufferData{}, []models.ReassignmentPlan{
		{StudentID: 101, FromBusID: 1, ToBusID: 2, Shift: domain.ShiftMorning},
	}, domain.Actor{ID: "admin-1"}, "pemerataan okupansi pagi")

	r := setupRouter()
	w, resp := doJSON(t, r, http.MethodGet, "/api/reassignments/undo-history?actorId=admin-1", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp["windowSeconds"] != float64(90) {
		t.Fatalf("windowSeconds salah: %v", resp["windowSeconds"])
	}
	entries, _ := resp["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %v", resp["entries"])
	}
	first, _ := entries[0].(map[string]any)
	if first["id"] != actionID {
		t.Fatalf("entry id salah: %v", first["id"])
	}
}

func TestConfirmFinalizesAction(t *testing.T) {
	m := services.NewUndoManager(time.Minute)
	services.SetUndoManager(m)
	actionID := m.Register(models.RevertBufferData{}, []models.ReassignmentPlan{
		{StudentID: 101, FromBusID: 1, ToBusID: 2, Shift: domain.ShiftMorning},
	}, domain.Actor{ID: "admin-1"}, "pemerataan okupansi pagi")

	r := setupRouter()
	w, _ := doJSON(t, r, http.MethodPost, "/api/reassignments/"+actionID+"/confirm", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// setelah konfirmasi, revert harus conflict
	w, _ = doJSON(t, r, http.MethodPost, "/api/reassignments/revert",
		`{"actionId": "`+actionID+`"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}
