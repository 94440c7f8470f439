package entity

import "testing"

func TestCanTransitionTask(t *testing.T) {
	allowed := []struct{ from, to string }{
		{TaskStatusPending, TaskStatusAssigned},
		{TaskStatusPending, TaskStatusAwaitingPlate},
		{TaskStatusPending, TaskStatusCancelled},
		{TaskStatusAwaitingPlate, TaskStatusPending},
		{TaskStatusAwaitingPlate, TaskStatusCancelled},
		{TaskStatusAssigned, TaskStatusInProgress},
		{TaskStatusAssigned, TaskStatusCancelled},
		{TaskStatusInProgress, TaskStatusCompleted},
		{TaskStatusInProgress, TaskStatusCancelled},
	}
	for _, tc := range allowed {
		if !CanTransitionTask(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to string }{
		{TaskStatusPending, TaskStatusInProgress},
		{TaskStatusPending, TaskStatusCompleted},
		{TaskStatusAwaitingPlate, TaskStatusAssigned},
		{TaskStatusAssigned, TaskStatusPending},
		{TaskStatusInProgress, TaskStatusAssigned},
		{TaskStatusCompleted, TaskStatusInProgress},
		{TaskStatusCompleted, TaskStatusCancelled},
		{TaskStatusCancelled, TaskStatusPending},
	}
	for _, tc := range denied {
		if CanTransitionTask(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestTerminalAndDerivableStatus(t *testing.T) {
	if !IsTerminalTaskStatus(TaskStatusCompleted) || !IsTerminalTaskStatus(TaskStatusCancelled) {
		t.Error("completed and cancelled must be terminal")
	}
	if IsTerminalTaskStatus(TaskStatusInProgress) {
		t.Error("in_progress is not terminal")
	}

	for _, s := range []string{TaskStatusPending, TaskStatusAwaitingPlate, TaskStatusAssigned} {
		if !IsDerivableTaskStatus(s) {
			t.Errorf("%s must be derivable", s)
		}
	}
	for _, s := range []string{TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled} {
		if IsDerivableTaskStatus(s) {
			t.Errorf("%s must not be derivable", s)
		}
	}
}

func TestTaskPlateIDFor(t *testing.T) {
	artworkID := "a1"
	dieID := "d1"
	task := &WorkOrderTask{ArtworkID: &artworkID, DieID: &dieID}

	if got := task.PlateIDFor(PlateKindArtwork); got == nil || *got != "a1" {
		t.Errorf("PlateIDFor(artwork) = %v, want a1", got)
	}
	if got := task.PlateIDFor(PlateKindDie); got == nil || *got != "d1" {
		t.Errorf("PlateIDFor(die) = %v, want d1", got)
	}
	if got := task.PlateIDFor(PlateKindFoilingPlate); got != nil {
		t.Errorf("PlateIDFor(foiling_plate) = %v, want nil", got)
	}
}
