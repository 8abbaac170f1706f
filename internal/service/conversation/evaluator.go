package conversation

import (
	"github.com/seu-repo/voxa-cobranza/internal/domain"
)

// Evaluator holds the stateless decision functions applied to each turn.
type Evaluator struct {
	dates *DateExtractor
}

func NewEvaluator(dates *DateExtractor) *Evaluator {
	return &Evaluator{dates: dates}
}

func (e *Evaluator) ExtractDate(text string) string {
	return e.dates.Extract(text)
}

// IsFinalConfirmation is true when the reply carries both a closing phrase and
// a date resolvable from that same reply.
func (e *Evaluator) IsFinalConfirmation(reply string) bool {
	return HasClosingKeyword(reply) && e.dates.Extract(reply) != domain.DateUnspecified
}

// Evaluate scores one (transcript, reply) pair. The date comes from the reply
// when it has one, otherwise from the transcript.
func (e *Evaluator) Evaluate(transcript, reply string) domain.ConversationDecision {
	replyDate := e.dates.Extract(reply)
	date := replyDate
	if date == domain.DateUnspecified {
		date = e.dates.Extract(transcript)
	}

	closing := HasClosingKeyword(reply)
	return domain.ConversationDecision{
		IsFinalConfirmation: closing && replyDate != domain.DateUnspecified,
		IsUserConfirmation:  IsUserConfirmation(transcript),
		IsObjection:         IsObjection(transcript),
		ReplyConfirms:       closing,
		ExtractedDate:       date,
	}
}
