// Package lifecycle holds the appointment state machine.
package lifecycle

import (
	"fmt"

	"localhire/internal/domain"
	"localhire/internal/models"
)

type Event string

const (
	EventSubmitProof Event = "submit_proof"
	EventApprove     Event = "approve"
	EventReject      Event = "reject"
	EventCancel      Event = "cancel"
)

// Transition returns the status a reaches on ev, or an error if ev is not
// allowed from a's current state. a is not modified.
func Transition(a *models.Appointment, ev Event) (models.AppointmentStatus, error) {
	from := a.Status
	switch ev {
	case EventSubmitProof:
		if from == models.StatusPending || from == models.StatusNeedsRevision {
			return models.StatusPending, nil
		}
	case EventApprove, EventReject:
		if from != models.StatusPending {
			break
		}
		if !a.HasProof() {
			return from, domain.ErrNoProof
		}
		if ev == EventApprove {
			return models.StatusCompleted, nil
		}
		return models.StatusNeedsRevision, nil
	case EventCancel:
		if !from.IsTerminal() {
			return models.StatusCancelled, nil
		}
	default:
		return from, fmt.Errorf("%w: unknown event %q", domain.ErrValidation, ev)
	}
	return from, fmt.Errorf("%w: %s from %s", domain.ErrInvalidTransition, ev, from)
}

// Apply runs Transition and writes the new status onto a.
// For EventSubmitProof the uploaded URL must be passed as proofURL.
func Apply(a *models.Appointment, ev Event, proofURL string) (models.AppointmentStatus, error) {
	if ev == EventSubmitProof && proofURL == "" {
		return a.Status, domain.ErrProofRequired
	}
	to, err := Transition(a, ev)
	if err != nil {
		return a.Status, err
	}
	from := a.Status
	a.Status = to
	if ev == EventSubmitProof {
		a.ProofImage = proofURL
	}
	return from, nil
}

// CheckRatable reports whether a rating may be recorded for a. A duplicate
// rating is reported before the status check.
func CheckRatable(a *models.Appointment) error {
	if a.HasBeenRated {
		return domain.ErrAlreadyRated
	}
	if !a.IsCompleted() {
		return domain.ErrNotCompleted
	}
	return nil
}

// MarkRated flips the write-once rated flag.
func MarkRated(a *models.Appointment) error {
	if err := CheckRatable(a); err != nil {
		return err
	}
	a.HasBeenRated = true
	return nil
}

func ValidStars(stars int) error {
	if stars < models.MinStars || stars > models.MaxStars {
		return domain.ErrInvalidStars
	}
	return nil
}
