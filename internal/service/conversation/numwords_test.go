package conversation

import "testing"

func TestNumberToWords(t *testing.T) {
	cases := map[int]string{
		0:       "cero",
		7:       "siete",
		16:      "dieciséis",
		21:      "veintiuno",
		31:      "treinta y uno",
		100:     "cien",
		101:     "ciento uno",
		250:     "doscientos cincuenta",
		1000:    "mil",
		1500:    "mil quinientos",
		21000:   "veintiún mil",
		150000:  "ciento cincuenta mil",
		1000000: "un millón",
		2500000: "dos millones quinientos mil",
	}
	for n, want := range cases {
		if got := NumberToWords(n); got != want {
			t.Errorf("NumberToWords(%d): expected %q, got %q", n, want, got)
		}
	}
}

func TestDayToWords(t *testing.T) {
	if got := DayToWords(1); got != "primero" {
		t.Errorf("expected primero, got %q", got)
	}
	if got := DayToWords(22); got != "veintidós" {
		t.Errorf("expected veintidós, got %q", got)
	}
	if got := DayToWords(40); got != "40" {
		t.Errorf("expected out of range day to stay numeric, got %q", got)
	}
}

func TestSpellNumbers(t *testing.T) {
	cases := map[string]string{
		"su deuda es de 150.000 pesos": "su deuda es de ciento cincuenta mil pesos",
		"el 15 de mayo":                "el quince de mayo",
		"sin números":                  "sin números",
		"1,250 y 3":                    "mil doscientos cincuenta y tres",
	}
	for in, want := range cases {
		if got := SpellNumbers(in); got != want {
			t.Errorf("SpellNumbers(%q): expected %q, got %q", in, want, got)
		}
	}
}
