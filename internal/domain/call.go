package domain

import (
	"time"
)

type Phase string

const (
	PhaseGreeting          Phase = "Greeting"
	PhaseListening         Phase = "Listening"
	PhaseNegotiating       Phase = "Negotiating"
	PhaseObjectionHandling Phase = "ObjectionHandling"
	PhaseConfirming        Phase = "Confirming"
	PhaseClosing           Phase = "Closing"
	PhaseTerminated        Phase = "Terminated"
)

type TerminationReason string

const (
	ReasonAgreement       TerminationReason = "agreement"
	ReasonUserConfirmed   TerminationReason = "user_confirmed"
	ReasonInteractionCap  TerminationReason = "interaction_cap"
	ReasonSilence         TerminationReason = "silence_timeout"
	ReasonStreamStopped   TerminationReason = "stream_stopped"
	ReasonTransportClosed TerminationReason = "transport_closed"
	ReasonInternalError   TerminationReason = "internal_error"
)

// Sentinel date strings. They are compared literally and never parsed.
const (
	DateUnspecified  = "fecha no especificada"
	DateNotConfirmed = "fecha no confirmada"
)

// ClientContext is the per-call debtor data delivered with the stream start.
type ClientContext struct {
	Name       string `json:"customer_name"`
	DebtAmount string `json:"debt_amount"`
}

// CallOutcome is the persisted result of one call.
type CallOutcome struct {
	ID                string            `json:"id" gorm:"primaryKey"`
	CallSid           string            `json:"call_sid" gorm:"index"`
	StreamSid         string            `json:"stream_sid" gorm:"uniqueIndex"`
	CustomerName      string            `json:"customer_name"`
	DebtAmount        string            `json:"debt_amount"`
	AgreedDate        string            `json:"agreed_date"`
	Reason            TerminationReason `json:"reason" gorm:"index"`
	FinalPhase        Phase             `json:"final_phase"`
	InteractionCount  int               `json:"interaction_count"`
	InterruptionCount int               `json:"interruption_count"`
	StartedAt         time.Time         `json:"started_at"`
	EndedAt           time.Time         `json:"ended_at"`
	CreatedAt         time.Time         `json:"created_at"`
}

// Agreed reports whether the call closed with a concrete payment date.
func (o *CallOutcome) Agreed() bool {
	return o.AgreedDate != "" && o.AgreedDate != DateUnspecified && o.AgreedDate != DateNotConfirmed
}

// CallEvent is published on the message queue at lifecycle boundaries.
type CallEvent struct {
	Type       string            `json:"type"`
	CallSid    string            `json:"call_sid"`
	StreamSid  string            `json:"stream_sid"`
	Status     string            `json:"status,omitempty"`
	Reason     TerminationReason `json:"reason,omitempty"`
	AgreedDate string            `json:"agreed_date,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

const (
	EventCallStarted = "call.started"
	EventCallEnded   = "call.ended"
	EventCallStatus  = "call.status"
)

// ActiveCall is the registry view of a live session.
type ActiveCall struct {
	StreamSid        string    `json:"stream_sid"`
	CallSid          string    `json:"call_sid"`
	CustomerName     string    `json:"customer_name"`
	Phase            Phase     `json:"phase"`
	InteractionCount int       `json:"interaction_count"`
	StartedAt        time.Time `json:"started_at"`
}

// OutboundCall is a request to dial a debtor.
type OutboundCall struct {
	To         string `json:"to"`
	Name       string `json:"customer_name"`
	DebtAmount string `json:"debt_amount"`
}
