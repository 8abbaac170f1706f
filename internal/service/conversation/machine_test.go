package conversation

import (
	"testing"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
)

func TestEvaluate(t *testing.T) {
	e := NewEvaluator(fixedExtractor())

	d := e.Evaluate("sí, el viernes", "Perfecto, queda confirmado su pago para el viernes once de abril.")
	if !d.IsFinalConfirmation || !d.IsUserConfirmation || d.ExtractedDate != "viernes once de abril" {
		t.Errorf("unexpected decision %+v", d)
	}

	d = e.Evaluate("el lunes", "¿Cuánto podría pagar?")
	if d.IsFinalConfirmation {
		t.Error("expected no final confirmation without a closing keyword")
	}
	if d.ExtractedDate != "lunes catorce de abril" {
		t.Errorf("expected date from transcript, got %q", d.ExtractedDate)
	}

	d = e.Evaluate("no sé", "Muchas gracias por su atención.")
	if d.IsFinalConfirmation {
		t.Error("expected closing keyword without a date not to be final")
	}
	if d.ExtractedDate != domain.DateUnspecified || !d.IsObjection {
		t.Errorf("unexpected decision %+v", d)
	}
}

func TestIsFinalConfirmation(t *testing.T) {
	e := NewEvaluator(fixedExtractor())
	if !e.IsFinalConfirmation("Excelente, acordado para el 20 de abril") {
		t.Error("expected final confirmation")
	}
	if e.IsFinalConfirmation("Excelente, gracias") {
		t.Error("expected no final confirmation without a date")
	}
}

func TestMachineClosesOnReplyConfirmation(t *testing.T) {
	m := NewMachine(2)
	m.Greeted()
	if m.Phase() != domain.PhaseListening {
		t.Fatalf("expected Listening after greeting, got %s", m.Phase())
	}

	step := m.Apply(domain.ConversationDecision{IsFinalConfirmation: true, ExtractedDate: "viernes once de abril"})
	if step.Action != ActionCloseWithReply || step.AgreedDate != "viernes once de abril" {
		t.Errorf("unexpected step %+v", step)
	}
	if m.Phase() != domain.PhaseClosing {
		t.Errorf("expected Closing, got %s", m.Phase())
	}
	if again := m.Apply(domain.ConversationDecision{IsFinalConfirmation: true, ExtractedDate: "otro"}); again.Action != ActionIgnore {
		t.Errorf("expected closing machine to ignore decisions, got %s", again.Action)
	}
}

func TestMachineTwoConsecutiveConfirmations(t *testing.T) {
	m := NewMachine(2)
	m.Greeted()

	proposal := domain.ConversationDecision{ExtractedDate: "viernes once de abril"}
	if step := m.Apply(proposal); step.Action != ActionContinue {
		t.Fatalf("expected continue, got %s", step.Action)
	}
	if m.Phase() != domain.PhaseNegotiating || m.ProposedDate() != "viernes once de abril" {
		t.Fatalf("unexpected state %s / %q", m.Phase(), m.ProposedDate())
	}

	yes := domain.ConversationDecision{IsUserConfirmation: true, ExtractedDate: domain.DateUnspecified}
	if step := m.Apply(yes); step.Action != ActionContinue {
		t.Fatalf("expected continue after first confirmation, got %s", step.Action)
	}
	if m.ConsecutiveConfirmations() != 1 {
		t.Errorf("expected 1 confirmation, got %d", m.ConsecutiveConfirmations())
	}

	step := m.Apply(yes)
	if step.Action != ActionCloseWithConfirmation || step.AgreedDate != "viernes once de abril" {
		t.Errorf("unexpected step %+v", step)
	}
	if m.Phase() != domain.PhaseClosing {
		t.Errorf("expected Closing, got %s", m.Phase())
	}
}

func TestMachineNegativeUtteranceResetsCount(t *testing.T) {
	m := NewMachine(2)
	m.Greeted()
	m.Apply(domain.ConversationDecision{ExtractedDate: "lunes catorce de abril"})

	yes := domain.ConversationDecision{IsUserConfirmation: true, ExtractedDate: domain.DateUnspecified}
	m.Apply(yes)
	m.Apply(domain.ConversationDecision{IsObjection: true, ExtractedDate: domain.DateUnspecified})
	if m.Phase() != domain.PhaseObjectionHandling {
		t.Errorf("expected ObjectionHandling, got %s", m.Phase())
	}
	if m.ConsecutiveConfirmations() != 0 {
		t.Errorf("expected reset count, got %d", m.ConsecutiveConfirmations())
	}

	if step := m.Apply(yes); step.Action != ActionContinue {
		t.Errorf("expected a single confirmation not to close, got %s", step.Action)
	}
}

func TestMachineConfirmationWithoutProposalDoesNotCount(t *testing.T) {
	m := NewMachine(1)
	m.Greeted()
	yes := domain.ConversationDecision{IsUserConfirmation: true, ExtractedDate: domain.DateUnspecified}
	if step := m.Apply(yes); step.Action != ActionContinue {
		t.Errorf("expected continue without a proposed date, got %s", step.Action)
	}
}

func TestMachineConfirmingPhase(t *testing.T) {
	m := NewMachine(3)
	m.Greeted()
	m.Apply(domain.ConversationDecision{IsObjection: true, ExtractedDate: domain.DateUnspecified})
	m.Apply(domain.ConversationDecision{IsUserConfirmation: true, ExtractedDate: "martes quince de abril"})
	if m.Phase() != domain.PhaseConfirming {
		t.Errorf("expected Confirming, got %s", m.Phase())
	}
}

func TestMachineForceClose(t *testing.T) {
	m := NewMachine(2)
	if !m.ForceClose() {
		t.Fatal("expected first force close to succeed")
	}
	if m.ForceClose() {
		t.Error("expected second force close to be rejected")
	}
	m.Terminate()
	if m.Phase() != domain.PhaseTerminated {
		t.Errorf("expected Terminated, got %s", m.Phase())
	}
	if m.ForceClose() {
		t.Error("expected terminated machine to stay terminated")
	}
}

func TestMessages(t *testing.T) {
	msgs := Messages{CompanyName: "La Ofrenda"}
	greeting := msgs.Greeting(domain.ClientContext{Name: "Ana", DebtAmount: "150000"})
	if greeting != "Hola Ana, me comunico desde La Ofrenda. Quería brindarle información sobre su cuota pendiente de 150000 pesos. ¿Cuándo podría realizar el pago?" {
		t.Errorf("unexpected greeting %q", greeting)
	}
	if got := msgs.Greeting(domain.ClientContext{}); got != "Hola, me comunico desde La Ofrenda. Quería brindarle información sobre su cuota pendiente. ¿Cuándo podría realizar el pago?" {
		t.Errorf("unexpected anonymous greeting %q", got)
	}
	if got := msgs.Confirmation("lunes catorce de abril"); got != "Perfecto, confirmo su pago para el lunes catorce de abril. Gracias por su compromiso. Que tenga buen día." {
		t.Errorf("unexpected confirmation %q", got)
	}
}

func TestMachineFirstConfirmationEntersConfirming(t *testing.T) {
	m := NewMachine(2)
	m.Greeted()
	m.Apply(domain.ConversationDecision{ExtractedDate: "lunes catorce de abril"})
	m.Apply(domain.ConversationDecision{IsUserConfirmation: true, ExtractedDate: domain.DateUnspecified})
	if m.Phase() != domain.PhaseConfirming {
		t.Errorf("expected Confirming, got %s", m.Phase())
	}
}
