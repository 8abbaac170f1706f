package conversation

import (
	"strings"
	"testing"
	"time"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
)

// Thursday, 10 April 2025.
func fixedExtractor() *DateExtractor {
	return &DateExtractor{
		Now:      func() time.Time { return time.Date(2025, time.April, 10, 15, 30, 0, 0, time.UTC) },
		Location: time.UTC,
	}
}

func TestExtract(t *testing.T) {
	e := fixedExtractor()

	cases := []struct {
		in   string
		want string
	}{
		{"el martes quince de abril", "martes quince de abril"},
		{"mañana", "viernes once de abril"},
		{"pasado mañana le pago", "sábado doce de abril"},
		{"hoy mismo", "jueves diez de abril"},
		{"el lunes", "lunes catorce de abril"},
		{"el jueves", "jueves diecisiete de abril"},
		{"el 20", "domingo veinte de abril"},
		{"el día cinco", "lunes cinco de mayo"},
		{"2 de enero", "viernes dos de enero"},
		{"treinta y uno de mayo", "sábado treinta y uno de mayo"},
		{"primero de junio", "domingo primero de junio"},
		{"Sí, el 15 de mayo.", "jueves quince de mayo"},
		{"por la mañana el viernes", "viernes once de abril"},
		{"mañana no, mejor el 20 de abril", "viernes once de abril"},
	}
	for _, c := range cases {
		if got := e.Extract(c.in); got != c.want {
			t.Errorf("Extract(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestExtractUnspecified(t *testing.T) {
	e := fixedExtractor()
	for _, in := range []string{"no sé", "", "30 de febrero", "tengo dos hijos", "the 5th"} {
		if got := e.Extract(in); got != domain.DateUnspecified {
			t.Errorf("Extract(%q): expected sentinel, got %q", in, got)
		}
	}
}

func TestExtractContainsSpokenDay(t *testing.T) {
	got := fixedExtractor().Extract("el martes quince de abril")
	if !strings.Contains(got, "quince") || !strings.Contains(got, "abril") {
		t.Errorf("expected day and month in words, got %q", got)
	}
}

func TestExtractUsesLocation(t *testing.T) {
	loc := time.FixedZone("COT", -5*3600)
	e := &DateExtractor{
		// 02:00 UTC on the 11th is still the 10th in UTC-5.
		Now:      func() time.Time { return time.Date(2025, time.April, 11, 2, 0, 0, 0, time.UTC) },
		Location: loc,
	}
	if got := e.Extract("hoy"); got != "jueves diez de abril" {
		t.Errorf("expected local date, got %q", got)
	}
}
