package dialog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/orchestrall/patientflow/internal/booking"
	"github.com/orchestrall/patientflow/internal/intent"
	"github.com/orchestrall/patientflow/internal/session"
)

// Booker persists a confirmed appointment. It is the sole side effect the
// machine performs; everything else is a pure session transformation.
type Booker interface {
	Book(ctx context.Context, req booking.BookRequest) (*booking.Appointment, error)
}

// Input carries the inbound text plus the identities the booking needs.
type Input struct {
	Text       string
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	Source     string
}

// Machine advances a session one turn at a time. Given the same session and
// input it produces the same next state and replies, so a redelivered
// webhook that slips past the idempotency gate converges rather than
// corrupting state.
type Machine struct {
	booker Booker
	logger *slog.Logger
}

func NewMachine(booker Booker, logger *slog.Logger) *Machine {
	if booker == nil {
		panic("dialog: booker required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{booker: booker, logger: logger}
}

// Advance applies one inbound message to the session and returns the
// outbound replies. The session is mutated in place; the caller persists it.
func (m *Machine) Advance(ctx context.Context, sess *session.Session, in Input) []string {
	var out []string

	if !sess.Greeted {
		out = append(out, replyGreeting)
		sess.Greeted = true
	}

	candidate := intent.ParseSlotRequest(in.Text)

	switch sess.Stage {
	case session.StageAwaitingSlot:
		out = append(out, m.awaitingSlot(sess, candidate)...)
	case session.StageAwaitingConfirmation:
		out = append(out, m.awaitingConfirmation(ctx, sess, in, candidate)...)
	case session.StageCompleted:
		out = append(out, m.completed(sess, candidate)...)
	default:
		sess.Stage = session.StageAwaitingSlot
		out = append(out, replyAskSlot)
	}
	return out
}

func (m *Machine) awaitingSlot(sess *session.Session, candidate *intent.SlotCandidate) []string {
	if candidate == nil {
		return []string{replyRetry}
	}
	slot := slotFromCandidate(candidate)
	sess.PendingAppointment = slot
	sess.Stage = session.StageAwaitingConfirmation
	return []string{replyProposeSlot(slot)}
}

func (m *Machine) awaitingConfirmation(ctx context.Context, sess *session.Session, in Input, candidate *intent.SlotCandidate) []string {
	// A fresh slot proposal replaces the pending one, whatever else the
	// message says.
	if candidate != nil {
		slot := slotFromCandidate(candidate)
		sess.PendingAppointment = slot
		return []string{replyProposeSlot(slot)}
	}

	switch classifyReply(in.Text) {
	case replyAffirmative:
		return m.confirm(ctx, sess, in)
	case replyNegative:
		sess.PendingAppointment = nil
		sess.Stage = session.StageAwaitingSlot
		return []string{replyAskSlot}
	default:
		if sess.PendingAppointment == nil {
			sess.Stage = session.StageAwaitingSlot
			return []string{replyAskSlot}
		}
		return []string{replyConfirmPrompt(sess.PendingAppointment)}
	}
}

func (m *Machine) confirm(ctx context.Context, sess *session.Session, in Input) []string {
	slot := sess.PendingAppointment
	if slot == nil {
		sess.Stage = session.StageAwaitingSlot
		return []string{replyAskSlot}
	}

	appt, err := m.booker.Book(ctx, booking.BookRequest{
		TenantID:   sess.TenantID,
		PatientID:  in.PatientID,
		ProviderID: in.ProviderID,
		Start:      slot.Start,
		End:        slot.End,
		Source:     in.Source,
		Reason:     sess.Context["reason"],
	})
	if err != nil {
		if errors.Is(err, booking.ErrConflict) {
			// Stay in AwaitingConfirmation; the user picks another time.
			return []string{replyConflict}
		}
		m.logger.Error("booking failed",
			"tenant_id", sess.TenantID, "patient_id", in.PatientID, "error", err)
		return []string{replyError}
	}

	sess.Stage = session.StageCompleted
	sess.LastAppointmentID = &appt.ID
	return []string{replyConfirmed(slot)}
}

func (m *Machine) completed(sess *session.Session, candidate *intent.SlotCandidate) []string {
	if candidate != nil {
		slot := slotFromCandidate(candidate)
		sess.PendingAppointment = slot
		sess.Stage = session.StageAwaitingConfirmation
		return []string{replyProposeSlot(slot)}
	}
	return []string{replyAlreadyBooked(sess.PendingAppointment)}
}

type replyClass int

const (
	replyNeither replyClass = iota
	replyAffirmative
	replyNegative
)

var (
	affirmativeWords = map[string]struct{}{
		"yes": {}, "y": {}, "yeah": {}, "confirm": {}, "ok": {}, "sure": {},
	}
	negativeWords = map[string]struct{}{
		"no": {}, "n": {}, "cancel": {}, "stop": {},
	}
)

// classifyReply matches the whole trimmed message against a closed
// vocabulary. Substring matching would misread longer free-text replies.
func classifyReply(text string) replyClass {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if _, ok := affirmativeWords[normalized]; ok {
		return replyAffirmative
	}
	if _, ok := negativeWords[normalized]; ok {
		return replyNegative
	}
	return replyNeither
}

func slotFromCandidate(c *intent.SlotCandidate) *session.Slot {
	return &session.Slot{
		Start:       c.Start,
		End:         c.End,
		DisplayDate: c.DisplayDate,
		DisplayTime: c.DisplayTime,
	}
}
