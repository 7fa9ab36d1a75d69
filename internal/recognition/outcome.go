package recognition

import (
	"fmt"
	"time"
)

// Outcome statuses of one recognition attempt. Cooldown and blocked are
// expected steady-state results of the loop, not errors.
const (
	OutcomeLogged       = "logged"
	OutcomeCooldown     = "cooldown"
	OutcomeBlocked      = "blocked"
	OutcomeNoFace       = "no_face"
	OutcomeUnrecognized = "unrecognized"
)

// Outcome is the result of submitting one frame.
type Outcome struct {
	Status     string        `json:"status"`
	UserName   string        `json:"user_name,omitempty"`
	UserKey    string        `json:"user_key,omitempty"`
	Action     string        `json:"action,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Remaining  time.Duration `json:"-"`
	Message    string        `json:"message,omitempty"`
}

// MatchResult is the raw answer of the face matcher for one frame.
type MatchResult struct {
	FaceFound  bool
	Recognized bool
	Blocked    bool
	UserKey    string
	Name       string
	Confidence float64
	Message    string
}

// Evaluate applies the attendance rules to a raw match: no-face and
// unrecognized frames pass through, matcher-signaled refusals surface
// as blocked, an exit without a prior entry is blocked locally, and a
// match inside the user's cooldown window is suppressed.
//
// OutcomeLogged means the action is accepted and the user's cooldown
// key is reserved. The caller appends the log record and then calls
// cd.Mark to start the window, or cd.Cancel when the write fails, so a
// failed write does not charge the cooldown. The reservation keeps a
// concurrent attempt for the same user from also being accepted before
// the first one marks.
func Evaluate(m MatchResult, action, lastAction string, cd *Cooldown) Outcome {
	switch {
	case !m.FaceFound:
		return Outcome{Status: OutcomeNoFace}
	case m.Blocked:
		return Outcome{Status: OutcomeBlocked, UserName: m.Name, UserKey: m.UserKey, Message: m.Message}
	case !m.Recognized:
		return Outcome{Status: OutcomeUnrecognized, Message: "face not recognized"}
	}

	if action == "exit" && lastAction != "entry" {
		return Outcome{
			Status:   OutcomeBlocked,
			UserName: m.Name,
			UserKey:  m.UserKey,
			Message:  "exit without a prior entry",
		}
	}

	if rem, ok := cd.Reserve(m.UserKey); !ok {
		if rem > 0 {
			secs := int(rem.Round(time.Second) / time.Second)
			return Outcome{
				Status:    OutcomeCooldown,
				UserName:  m.Name,
				UserKey:   m.UserKey,
				Remaining: rem,
				Message:   fmt.Sprintf("cooldown active, %ds remaining", secs),
			}
		}
		return Outcome{
			Status:   OutcomeCooldown,
			UserName: m.Name,
			UserKey:  m.UserKey,
			Message:  "another attempt for this user is in progress",
		}
	}

	return Outcome{
		Status:     OutcomeLogged,
		UserName:   m.Name,
		UserKey:    m.UserKey,
		Action:     action,
		Confidence: m.Confidence,
	}
}
