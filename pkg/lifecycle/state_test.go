package lifecycle

import "testing"

func TestState_Valid(t *testing.T) {
	valid := []State{StateUnknown, StateStarting, StateRunning,
		StateStopping, StateStopped, StateFailed}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("State(%q).Valid() = false, want true", s)
		}
	}

	invalid := []State{"", "paused", "RUNNING", "bogus"}
	for _, s := range invalid {
		if s.Valid() {
			t.Errorf("State(%q).Valid() = true, want false", s)
		}
	}
}

func TestState_IsTerminal(t *testing.T) {
	if !StateStopped.IsTerminal() || !StateFailed.IsTerminal() {
		t.Error("Stopped and Failed must be terminal")
	}
	for _, s := range []State{StateUnknown, StateStarting, StateRunning, StateStopping} {
		if s.IsTerminal() {
			t.Errorf("State(%q).IsTerminal() = true, want false", s)
		}
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateUnknown, StateStarting, true},
		{StateStarting, StateRunning, true},
		{StateStarting, StateStopping, true},
		{StateRunning, StateStopping, true},
		{StateStopping, StateStopped, true},
		{StateStopped, StateStarting, true},
		{StateFailed, StateStarting, true},
		{StateRunning, StateFailed, true},

		{StateRunning, StateRunning, false},
		{StateUnknown, StateRunning, false},
		{StateStopped, StateRunning, false},
		{StateStopping, StateRunning, false},
		{State("bogus"), StateRunning, false},
	}
	for _, tt := range tests {
		if got := ValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
