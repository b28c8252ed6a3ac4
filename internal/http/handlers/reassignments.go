package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
	"schoolbus/internal/http/middleware"
	"schoolbus/internal/services"
	"schoolbus/internal/utils"

	"github.com/gin-gonic/gin"
)

type planRequest struct {
	SourceBusID int64                    `json:"sourceBusId"`
	Selections  []services.MoveSelection `json:"selections"`
}

// POST /api/reassignments/plan
// Planner murni: susun plan dari pilihan UI, tanpa menyentuh ledger.
func PlanReassignment(c *gin.Context) {
	var req planRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	plans, err := services.BuildPlans(domain.ID(req.SourceBusID), req.Selections)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "plans": plans})
}

type reassignRequest struct {
	Plans     []models.ReassignmentPlan `json:"plans"`
	Reason    string                    `json:"reason"`
	ActorID   string                    `json:"actorId"`
	ActorName string                    `json:"actorName"`
}

// POST /api/reassignments
// Validasi + eksekusi satu batch sebagai unit atomik; response membawa
// actionId untuk undo.
func CreateReassignment(c *gin.Context) {
	var req reassignRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	// aktor dari token menang atas field body
	actor := domain.Actor{ID: strings.TrimSpace(req.ActorID), Name: strings.TrimSpace(req.ActorName)}
	if a, ok := middleware.GetActor(c); ok {
		a.Name = utils.FirstNonEmpty(a.Name, req.ActorName)
		actor = a
	}

	svc := services.ReassignService{
		Audit:      services.AuditService{},
		Dispatcher: services.OutboxDispatcher{},
		Undo:       services.ActiveUndoManager(),
		RequestID:  middleware.GetRequestID(c),
	}

	result, err := svc.Commit(req.Plans, actor, req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":         true,
		"updatedStudents": result.UpdatedStudents,
		"busUpdates":      result.BusUpdates,
		"actionId":        result.ActionID,
	})
}

type revertRequest struct {
	ActionID string `json:"actionId"`
}

// POST /api/reassignments/revert
// Kompensasi dalam window undo; id yang sudah dikonsumsi/kedaluwarsa gagal
// bersih tanpa menulis apa pun.
func RevertReassignment(c *gin.Context) {
	var req revertRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	actionID := strings.TrimSpace(req.ActionID)
	if actionID == "" {
		RespondDomainError(c, domain.ValidationError{Field: "actionId", Msg: "wajib diisi"})
		return
	}

	if err := services.ActiveUndoManager().Revert(actionID); err != nil {
		RespondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GET /api/reassignments/undo-history
// Entry aktif (belum expired, belum dikonsumsi) untuk aktor saat ini.
func GetUndoHistory(c *gin.Context) {
	actorID := strings.TrimSpace(c.Query("actorId"))
	if a, ok := middleware.GetActor(c); ok {
		actorID = utils.FirstNonEmpty(a.ID, actorID)
	}

	undo := services.ActiveUndoManager()
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"windowSeconds": int(undo.Window().Seconds()),
		"entries":       undo.ListActive(actorID),
	})
}

// POST /api/reassignments/:actionId/confirm
// Aktor menutup window lebih awal; buffer dibuang tanpa penulisan DB.
func ConfirmReassignment(c *gin.Context) {
	actionID := strings.TrimSpace(c.Param("actionId"))
	if actionID == "" {
		RespondDomainError(c, domain.ValidationError{Field: "actionId", Msg: "wajib diisi"})
		return
	}
	services.ActiveUndoManager().Clear(actionID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GET /api/reassignments/audit?limit=50
func GetReassignmentAudit(c *gin.Context) {
	limit := 50
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	svc := services.AuditService{}
	entries, err := svc.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gagal mengambil audit log: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "entries": entries})
}
