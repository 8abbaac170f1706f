package conversation

import (
	"fmt"
	"strings"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
)

// Messages are the canned utterances played outside the generated turns.
type Messages struct {
	CompanyName string
}

func (m Messages) Greeting(client domain.ClientContext) string {
	var b strings.Builder
	b.WriteString("Hola")
	if name := strings.TrimSpace(client.Name); name != "" {
		b.WriteString(" " + name)
	}
	fmt.Fprintf(&b, ", me comunico desde %s. Quería brindarle información sobre su cuota pendiente", m.CompanyName)
	if amount := strings.TrimSpace(client.DebtAmount); amount != "" {
		fmt.Fprintf(&b, " de %s pesos", amount)
	}
	b.WriteString(". ¿Cuándo podría realizar el pago?")
	return b.String()
}

func (m Messages) Confirmation(date string) string {
	return fmt.Sprintf("Perfecto, confirmo su pago para el %s. Gracias por su compromiso. Que tenga buen día.", date)
}

func (m Messages) TurnCapClosing() string {
	return "Gracias por su tiempo. Nos comunicaremos nuevamente. Que tenga buen día."
}

func (m Messages) SilenceClosing() string {
	return "No hemos podido establecer comunicación. Nos contactaremos nuevamente. Que tenga buen día."
}

func (m Messages) Repeat() string {
	return "Disculpe, no le escuché bien. ¿Podría repetirlo?"
}
