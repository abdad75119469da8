package allocation

import (
	"testing"

	"relief-backend/internal/models"
)

func TestCanTransition_AllowedEdges(t *testing.T) {
	allowed := []struct {
		from, to models.AllocationStatus
	}{
		{models.StatusPending, models.StatusApproved},
		{models.StatusPending, models.StatusRejected},
		{models.StatusPending, models.StatusCancelled},
		{models.StatusApproved, models.StatusInTransit},
		{models.StatusApproved, models.StatusCancelled},
		{models.StatusInTransit, models.StatusCompleted},
		{models.StatusInTransit, models.StatusCancelled},
	}

	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_ForbiddenEdges(t *testing.T) {
	forbidden := []struct {
		from, to models.AllocationStatus
	}{
		{models.StatusPending, models.StatusInTransit},
		{models.StatusPending, models.StatusCompleted},
		{models.StatusApproved, models.StatusPending},
		{models.StatusApproved, models.StatusRejected},
		{models.StatusApproved, models.StatusCompleted},
		{models.StatusInTransit, models.StatusApproved},
		{models.StatusInTransit, models.StatusPending},
	}

	for _, tc := range forbidden {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be forbidden", tc.from, tc.to)
		}
	}
}

func TestTerminalStatesAreClosed(t *testing.T) {
	terminal := []models.AllocationStatus{
		models.StatusCompleted,
		models.StatusRejected,
		models.StatusCancelled,
	}
	all := []models.AllocationStatus{
		models.StatusPending,
		models.StatusApproved,
		models.StatusInTransit,
		models.StatusCompleted,
		models.StatusRejected,
		models.StatusCancelled,
	}

	for _, from := range terminal {
		if !IsTerminal(from) {
			t.Errorf("expected %s to be terminal", from)
		}
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal state %s must not allow transition to %s", from, to)
			}
		}
	}

	for _, s := range []models.AllocationStatus{models.StatusPending, models.StatusApproved, models.StatusInTransit} {
		if IsTerminal(s) {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}
