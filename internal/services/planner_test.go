package services

import (
	"testing"

	"schoolbus/internal/domain"
)

func TestBuildPlansRejectsEmptySelection(t *testing.T) {
	_, err := BuildPlans(1, nil)
	if err == nil {
		t.Fatalf("expected error for empty selection")
	}
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %T: %v", err, err)
	}
}

func TestBuildPlansRejectsDuplicateStudent(t *testing.T) {
	sels := []MoveSelection{
		{StudentID: 7, ToBusID: 2, ToRouteID: 20, Shift: domain.ShiftMorning},
		{StudentID: 7, ToBusID: 3, ToRouteID: 30, Shift: domain.ShiftMorning},
	}
	_, err := BuildPlans(1, sels)
	if err == nil {
		t.Fatalf("expected error for duplicate student in batch")
	}
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildPlansRejectsMissingTargetBus(t *testing.T) {
	sels := []MoveSelection{
		{StudentID: 7, ToRouteID: 20, Shift: domain.ShiftMorning},
	}
	if _, err := BuildPlans(1, sels); err == nil {
		t.Fatalf("expected error for missing target bus")
	}
}

func TestBuildPlansFillsSourceBus(t *testing.T) {
	sels := []MoveSelection{
		{StudentID: 7, StudentName: "Rani", FromRouteID: 10, ToBusID: 2, ToRouteID: 20, ToBusNumber: "B-02", StopID: 5, Shift: domain.ShiftEvening},
		{StudentID: 8, ToBusID: 2, ToRouteID: 20, Shift: domain.ShiftMorning},
	}
	plans, err := BuildPlans(1, sels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(plans))
	}
	for _, p := range plans {
		if p.FromBusID != 1 {
			t.Fatalf("fromBusId should be the source bus, got %d", p.FromBusID)
		}
	}
	if plans[0].StudentName != "Rani" || plans[0].ToBusNumber != "B-02" || plans[0].StopID != 5 {
		t.Fatalf("plan fields not carried over: %+v", plans[0])
	}
}

func TestCheckBatchRejectsEmptyAndDuplicate(t *testing.T) {
	if err := CheckBatch(nil); err == nil {
		t.Fatalf("empty batch should be rejected")
	}

	plans, err := BuildPlans(1, []MoveSelection{
		{StudentID: 7, ToBusID: 2, Shift: domain.ShiftMorning},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plans = append(plans, plans[0])
	if err := CheckBatch(plans); err == nil {
		t.Fatalf("duplicate student should be rejected")
	}
}
