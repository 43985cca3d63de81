package session

import (
	"time"

	"github.com/google/uuid"
)

// Stage is where the conversation currently sits in the booking flow.
type Stage string

const (
	StageAwaitingSlot         Stage = "awaiting_slot"
	StageAwaitingConfirmation Stage = "awaiting_confirmation"
	StageCompleted            Stage = "completed"
)

// Direction of a conversation turn.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Turn is one message in the conversation history. Append-only, used for
// audit and debugging, never for transition decisions.
type Turn struct {
	Direction Direction `json:"direction"`
	Body      string    `json:"body"`
	MessageID string    `json:"message_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Slot is a proposed appointment window held in the session until confirmed.
type Slot struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	DisplayDate string    `json:"display_date"`
	DisplayTime string    `json:"display_time"`
}

// Session is the conversation state for one (tenant, address) pair.
type Session struct {
	TenantID           string            `json:"tenant_id"`
	Address            string            `json:"address"`
	Stage              Stage             `json:"stage"`
	PendingAppointment *Slot             `json:"pending_appointment,omitempty"`
	LastAppointmentID  *uuid.UUID        `json:"last_appointment_id,omitempty"`
	History            []Turn            `json:"history,omitempty"`
	Greeted            bool              `json:"greeted"`
	Context            map[string]string `json:"context,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	LastActivityAt     time.Time         `json:"last_activity_at"`
}

// New returns a fresh session in the initial stage.
func New(tenantID, address string) *Session {
	now := time.Now().UTC()
	return &Session{
		TenantID:       tenantID,
		Address:        address,
		Stage:          StageAwaitingSlot,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Key builds the composite session key for a (tenant, address) pair.
func Key(tenantID, address string) string {
	return tenantID + ":" + address
}

// Key returns the composite key for this session.
func (s *Session) Key() string {
	return Key(s.TenantID, s.Address)
}

// IsActive reports whether the conversation is still in flight.
func (s *Session) IsActive() bool {
	return s.Stage != StageCompleted
}

// AppendTurn records one message in the history and bumps last activity.
func (s *Session) AppendTurn(direction Direction, body, messageID string) {
	now := time.Now().UTC()
	s.History = append(s.History, Turn{
		Direction: direction,
		Body:      body,
		MessageID: messageID,
		Timestamp: now,
	})
	s.LastActivityAt = now
}

// SetContext stores a free-form auxiliary value on the session.
func (s *Session) SetContext(key, value string) {
	if s.Context == nil {
		s.Context = make(map[string]string)
	}
	s.Context[key] = value
}
