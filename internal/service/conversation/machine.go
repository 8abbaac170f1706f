package conversation

import (
	"github.com/seu-repo/voxa-cobranza/internal/domain"
)

type Action int

const (
	// ActionContinue plays the generated reply and keeps listening.
	ActionContinue Action = iota
	// ActionCloseWithReply plays the generated reply, then terminates.
	ActionCloseWithReply
	// ActionCloseWithConfirmation plays the canned confirmation, then terminates.
	ActionCloseWithConfirmation
	// ActionIgnore means the machine is already closing.
	ActionIgnore
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionCloseWithReply:
		return "close_with_reply"
	case ActionCloseWithConfirmation:
		return "close_with_confirmation"
	case ActionIgnore:
		return "ignore"
	}
	return "unknown"
}

type Step struct {
	Action     Action
	AgreedDate string
}

// Machine tracks the business progress of one call. It is not safe for
// concurrent use; the owning session serializes access.
type Machine struct {
	phase                    domain.Phase
	proposedDate             string
	consecutiveConfirmations int
	confirmationThreshold    int
}

func NewMachine(confirmationThreshold int) *Machine {
	if confirmationThreshold <= 0 {
		confirmationThreshold = 2
	}
	return &Machine{
		phase:                 domain.PhaseGreeting,
		confirmationThreshold: confirmationThreshold,
	}
}

func (m *Machine) Phase() domain.Phase           { return m.phase }
func (m *Machine) ProposedDate() string          { return m.proposedDate }
func (m *Machine) ConsecutiveConfirmations() int { return m.consecutiveConfirmations }

// Greeted moves Greeting to Listening once the opening utterance was played.
func (m *Machine) Greeted() {
	if m.phase == domain.PhaseGreeting {
		m.phase = domain.PhaseListening
	}
}

// Apply advances the machine with the decision for one turn.
func (m *Machine) Apply(d domain.ConversationDecision) Step {
	if m.closed() {
		return Step{Action: ActionIgnore}
	}
	if m.phase == domain.PhaseGreeting || m.phase == domain.PhaseListening {
		m.phase = domain.PhaseNegotiating
	}

	if d.IsFinalConfirmation {
		m.phase = domain.PhaseClosing
		return Step{Action: ActionCloseWithReply, AgreedDate: d.ExtractedDate}
	}

	userConfirms := d.IsUserConfirmation && !d.IsObjection
	if userConfirms && m.proposedDate != "" {
		m.consecutiveConfirmations++
	} else {
		m.consecutiveConfirmations = 0
	}

	if !d.IsObjection && d.HasDate() {
		m.proposedDate = d.ExtractedDate
	}

	if m.consecutiveConfirmations >= m.confirmationThreshold {
		m.phase = domain.PhaseClosing
		return Step{Action: ActionCloseWithConfirmation, AgreedDate: m.proposedDate}
	}

	switch {
	case d.IsObjection:
		m.phase = domain.PhaseObjectionHandling
	case m.consecutiveConfirmations > 0, d.HasDate() && (userConfirms || d.ReplyConfirms):
		m.phase = domain.PhaseConfirming
	default:
		m.phase = domain.PhaseNegotiating
	}
	return Step{Action: ActionContinue}
}

// ForceClose moves any open phase to Closing. It reports false when the
// machine was already closing or terminated.
func (m *Machine) ForceClose() bool {
	if m.closed() {
		return false
	}
	m.phase = domain.PhaseClosing
	return true
}

func (m *Machine) Terminate() {
	m.phase = domain.PhaseTerminated
}

func (m *Machine) closed() bool {
	return m.phase == domain.PhaseClosing || m.phase == domain.PhaseTerminated
}
