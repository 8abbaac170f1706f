package conversation

import "testing"

func TestFold(t *testing.T) {
	cases := map[string]string{
		"¡Sí, Señor!":      "si senor",
		"  Está   BIEN.  ": "esta bien",
		"miércoles 15":     "miercoles 15",
		"":                 "",
		"¿¿??":             "",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestIsUserConfirmation(t *testing.T) {
	yes := []string{"sí", "Si claro", "de acuerdo", "OK", "está bien, lo pago", "Por supuesto."}
	no := []string{"así es la vida", "no lo sé", "", "okey dokey"}

	for _, s := range yes {
		if !IsUserConfirmation(s) {
			t.Errorf("expected %q to be a confirmation", s)
		}
	}
	for _, s := range no {
		if IsUserConfirmation(s) {
			t.Errorf("expected %q not to be a confirmation", s)
		}
	}
}

func TestIsObjection(t *testing.T) {
	if !IsObjection("Ahora no puedo, no tengo plata") {
		t.Error("expected refusal to be an objection")
	}
	if !IsObjection("no sé, tal vez más adelante") {
		t.Error("expected hesitation to be an objection")
	}
	if IsObjection("sí, el viernes") {
		t.Error("expected agreement not to be an objection")
	}
}

func TestHasClosingKeyword(t *testing.T) {
	if !HasClosingKeyword("Perfecto, queda confirmado para el viernes") {
		t.Error("expected closing keyword")
	}
	if HasClosingKeyword("¿Cuándo podría pagar?") {
		t.Error("expected no closing keyword")
	}
}
