package models

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{StatusInProcess, StatusShipped, true},
		{StatusInProcess, StatusCancelled, true},
		{StatusShipped, StatusCompleted, true},
		{StatusShipped, StatusCancelled, true},

		// Completed is only reachable through Shipped.
		{StatusInProcess, StatusCompleted, false},

		// Cancelled is terminal.
		{StatusCancelled, StatusInProcess, false},
		{StatusCancelled, StatusShipped, false},
		{StatusCancelled, StatusCompleted, false},

		// No going backwards.
		{StatusShipped, StatusInProcess, false},
		{StatusCompleted, StatusInProcess, false},
		{StatusCompleted, StatusShipped, false},
		{StatusCompleted, StatusCancelled, false},

		// Self-transitions are no-ops and allowed.
		{StatusInProcess, StatusInProcess, true},
		{StatusCancelled, StatusCancelled, true},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
