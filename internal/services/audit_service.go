package services

import (
	"log"

	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
	"schoolbus/internal/repositories"
)

const (
	auditActionCommitted = "committed"
	auditActionReverted  = "reverted"
)

// AuditService menulis jejak audit batch. Best-effort: kegagalan menulis
// audit TIDAK membatalkan atau mem-block commit; cukup warning di log.
type AuditService struct {
	Repo repositories.AuditRepository
}

func (s AuditService) Record(actionID, action string, plans []models.ReassignmentPlan, actor domain.Actor, reason string) {
	entry := models.AuditLogEntry{
		ActionID:  actionID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Action:    action,
		Reason:    reason,
		Plans:     plans,
	}
	if err := s.Repo.Insert(entry); err != nil {
		log.Printf("[AUDIT] gagal menulis audit log action_id=%s: %v", actionID, err)
	}
}

func (s AuditService) List(limit int) ([]models.AuditLogEntry, error) {
	return s.Repo.List(limit)
}
