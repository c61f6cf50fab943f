package model

import "testing"

func TestBookingStatusTransitions(t *testing.T) {
	cases := []struct {
		from  BookingStatus
		to    BookingStatus
		legal bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingPending, BookingEnRoute, false},
		{BookingConfirmed, BookingEnRoute, true},
		{BookingConfirmed, BookingPickedUp, false},
		{BookingEnRoute, BookingArrived, true},
		{BookingArrived, BookingPickedUp, true},
		{BookingPickedUp, BookingInTransit, true},
		{BookingInTransit, BookingCompleted, true},
		{BookingInTransit, BookingArrived, false},
		{BookingCompleted, BookingEnRoute, false},
		{BookingCompleted, BookingCancelled, false},
		{BookingCancelled, BookingConfirmed, false},
		{BookingEnRoute, BookingCancelled, true},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.legal {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.legal, got)
		}
	}
}

func TestBookingStatusTerminal(t *testing.T) {
	for _, s := range []BookingStatus{BookingCompleted, BookingCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
		for _, target := range []BookingStatus{BookingPending, BookingConfirmed, BookingEnRoute, BookingArrived, BookingPickedUp, BookingInTransit, BookingCompleted, BookingCancelled} {
			if s.CanTransitionTo(target) {
				t.Errorf("terminal %s allows %s", s, target)
			}
		}
	}

	for _, s := range []BookingStatus{BookingPending, BookingConfirmed, BookingEnRoute, BookingArrived, BookingPickedUp, BookingInTransit} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
		if !s.CanTransitionTo(BookingCancelled) {
			t.Errorf("%s must allow cancellation", s)
		}
	}
}

func TestBookingStatusValid(t *testing.T) {
	if BookingStatus("warp").Valid() {
		t.Errorf("unknown status accepted")
	}
	if !BookingPending.Valid() {
		t.Errorf("pending rejected")
	}
}
