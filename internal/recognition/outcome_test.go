package recognition

import (
	"testing"
	"time"
)

func matchFor(phone, name string) MatchResult {
	return MatchResult{
		FaceFound:  true,
		Recognized: true,
		UserKey:    phone,
		Name:       name,
		Confidence: 0.93,
	}
}

func TestEvaluatePassthroughs(t *testing.T) {
	cd := NewCooldown(30 * time.Second)

	tests := []struct {
		name  string
		match MatchResult
		want  string
	}{
		{"no face", MatchResult{}, OutcomeNoFace},
		{"unrecognized", MatchResult{FaceFound: true}, OutcomeUnrecognized},
		{"matcher blocked", MatchResult{FaceFound: true, Recognized: true, Blocked: true, Message: "template disabled"}, OutcomeBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Evaluate(tt.match, "entry", "", cd)
			if out.Status != tt.want {
				t.Errorf("status = %q, want %q", out.Status, tt.want)
			}
		})
	}
}

func TestEvaluateExitWithoutEntryBlocked(t *testing.T) {
	cd := NewCooldown(30 * time.Second)

	out := Evaluate(matchFor("998901112233", "Aziz"), "exit", "", cd)
	if out.Status != OutcomeBlocked {
		t.Fatalf("status = %q, want blocked", out.Status)
	}

	out = Evaluate(matchFor("998901112233", "Aziz"), "exit", "entry", cd)
	if out.Status != OutcomeLogged {
		t.Errorf("exit after entry should be accepted, got %q", out.Status)
	}
}

// Two matches for the same user within the window produce at most one
// accepted action; a third match after the window is accepted again.
func TestEvaluateCooldownScenario(t *testing.T) {
	cd, now := newTestCooldown(30 * time.Second)
	m := matchFor("998901112233", "Aziz")

	out := Evaluate(m, "entry", "", cd)
	if out.Status != OutcomeLogged {
		t.Fatalf("t=0: status = %q, want logged", out.Status)
	}
	cd.Mark(m.UserKey)

	*now = now.Add(10 * time.Second)
	out = Evaluate(m, "entry", "entry", cd)
	if out.Status != OutcomeCooldown {
		t.Fatalf("t=10s: status = %q, want cooldown", out.Status)
	}
	if out.Remaining != 20*time.Second {
		t.Errorf("t=10s: remaining = %v, want 20s", out.Remaining)
	}
	if out.Message != "cooldown active, 20s remaining" {
		t.Errorf("t=10s: message = %q", out.Message)
	}

	*now = now.Add(21 * time.Second)
	out = Evaluate(m, "entry", "entry", cd)
	if out.Status != OutcomeLogged {
		t.Errorf("t=31s: status = %q, want logged", out.Status)
	}
}

// A different user is never suppressed by someone else's cooldown.
func TestEvaluateCooldownIsPerUser(t *testing.T) {
	cd, now := newTestCooldown(30 * time.Second)

	out := Evaluate(matchFor("998901112233", "Aziz"), "entry", "", cd)
	if out.Status != OutcomeLogged {
		t.Fatalf("first user: %q", out.Status)
	}
	cd.Mark("998901112233")

	*now = now.Add(5 * time.Second)
	out = Evaluate(matchFor("998907778899", "Malika"), "entry", "", cd)
	if out.Status != OutcomeLogged {
		t.Errorf("second user suppressed by first user's cooldown: %q", out.Status)
	}
}

// Two attempts for the same user that interleave before either has
// marked must not both be accepted: the second sees the reservation and
// is suppressed, exactly as if the window were already running.
func TestEvaluateConcurrentDuplicateSuppressed(t *testing.T) {
	cd, _ := newTestCooldown(30 * time.Second)
	m := matchFor("998901112233", "Aziz")

	first := Evaluate(m, "entry", "", cd)
	if first.Status != OutcomeLogged {
		t.Fatalf("first attempt: %q, want logged", first.Status)
	}

	// The first attempt has not persisted its log yet.
	second := Evaluate(m, "entry", "", cd)
	if second.Status != OutcomeCooldown {
		t.Fatalf("interleaved attempt: %q, want cooldown", second.Status)
	}

	cd.Mark(m.UserKey)
	third := Evaluate(m, "entry", "entry", cd)
	if third.Status != OutcomeCooldown || third.Remaining != 30*time.Second {
		t.Errorf("after mark: status %q remaining %v, want cooldown with full window", third.Status, third.Remaining)
	}
}

// A failed log write cancels the reservation, so the user's next
// attempt is accepted immediately instead of waiting out a window that
// never started.
func TestEvaluateCancelledReservationFreesUser(t *testing.T) {
	cd, _ := newTestCooldown(30 * time.Second)
	m := matchFor("998901112233", "Aziz")

	if out := Evaluate(m, "entry", "", cd); out.Status != OutcomeLogged {
		t.Fatalf("first attempt: %q, want logged", out.Status)
	}
	cd.Cancel(m.UserKey)

	if out := Evaluate(m, "entry", "", cd); out.Status != OutcomeLogged {
		t.Errorf("attempt after cancelled write: %q, want logged", out.Status)
	}
}

// A blocked action must not charge the cooldown: the caller only Marks
// on logged outcomes, so the next valid attempt goes through at once.
func TestBlockedDoesNotResetCooldown(t *testing.T) {
	cd, _ := newTestCooldown(30 * time.Second)
	m := matchFor("998901112233", "Aziz")

	out := Evaluate(m, "exit", "", cd)
	if out.Status != OutcomeBlocked {
		t.Fatalf("status = %q, want blocked", out.Status)
	}

	out = Evaluate(m, "entry", "", cd)
	if out.Status != OutcomeLogged {
		t.Errorf("entry right after a blocked exit should be accepted, got %q", out.Status)
	}
}
