package domain

import "time"

// TranscriptItem is one finalized utterance from the recognizer.
type TranscriptItem struct {
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// ConversationDecision is the result of evaluating one turn.
type ConversationDecision struct {
	IsFinalConfirmation bool   `json:"is_final_confirmation"`
	IsUserConfirmation  bool   `json:"is_user_confirmation"`
	IsObjection         bool   `json:"is_objection"`
	ReplyConfirms       bool   `json:"reply_confirms"`
	ExtractedDate       string `json:"extracted_date"`
}

// HasDate reports whether a concrete date was found.
func (d ConversationDecision) HasDate() bool {
	return d.ExtractedDate != "" && d.ExtractedDate != DateUnspecified
}

type Role string

const (
	RoleAgent    Role = "assistant"
	RoleCustomer Role = "user"
)

// Turn is one entry of the conversation history sent to the reply generator.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
