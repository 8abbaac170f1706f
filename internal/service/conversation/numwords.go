package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var units = [...]string{
	"cero", "uno", "dos", "tres", "cuatro", "cinco", "seis", "siete", "ocho", "nueve",
	"diez", "once", "doce", "trece", "catorce", "quince", "dieciséis", "diecisiete",
	"dieciocho", "diecinueve", "veinte", "veintiuno", "veintidós", "veintitrés",
	"veinticuatro", "veinticinco", "veintiséis", "veintisiete", "veintiocho", "veintinueve",
}

var tens = [...]string{
	"", "", "", "treinta", "cuarenta", "cincuenta", "sesenta", "setenta", "ochenta", "noventa",
}

var hundreds = [...]string{
	"", "ciento", "doscientos", "trescientos", "cuatrocientos", "quinientos",
	"seiscientos", "setecientos", "ochocientos", "novecientos",
}

var monthNames = [...]string{
	"", "enero", "febrero", "marzo", "abril", "mayo", "junio", "julio",
	"agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var weekdayNames = [...]string{
	"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
}

// WeekdayName returns the Spanish name of d.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}

// MonthName returns the Spanish name of m.
func MonthName(m time.Month) string {
	return monthNames[m]
}

// DayToWords spells a day of month. The first is "primero" as it is said in dates.
func DayToWords(day int) string {
	if day == 1 {
		return "primero"
	}
	if day < 1 || day > 31 {
		return strconv.Itoa(day)
	}
	return NumberToWords(day)
}

// NumberToWords spells a non-negative integer below one billion in Spanish.
func NumberToWords(n int) string {
	switch {
	case n < 0:
		return "menos " + NumberToWords(-n)
	case n < 30:
		return units[n]
	case n < 100:
		if n%10 == 0 {
			return tens[n/10]
		}
		return tens[n/10] + " y " + units[n%10]
	case n == 100:
		return "cien"
	case n < 1000:
		if n%100 == 0 {
			return hundreds[n/100]
		}
		return hundreds[n/100] + " " + NumberToWords(n%100)
	case n < 1_000_000:
		head := "mil"
		if n/1000 > 1 {
			head = apocope(NumberToWords(n/1000)) + " mil"
		}
		if n%1000 == 0 {
			return head
		}
		return head + " " + NumberToWords(n%1000)
	case n < 1_000_000_000:
		head := "un millón"
		if n/1_000_000 > 1 {
			head = apocope(NumberToWords(n/1_000_000)) + " millones"
		}
		if n%1_000_000 == 0 {
			return head
		}
		return head + " " + NumberToWords(n%1_000_000)
	}
	return strconv.Itoa(n)
}

// apocope shortens a trailing "uno" before a noun: "veintiún mil", "treinta y un mil".
func apocope(words string) string {
	switch {
	case strings.HasSuffix(words, "veintiuno"):
		return strings.TrimSuffix(words, "veintiuno") + "veintiún"
	case strings.HasSuffix(words, "uno"):
		return strings.TrimSuffix(words, "uno") + "un"
	}
	return words
}

var digitRun = regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})+|\d+`)

// SpellNumbers replaces digit sequences with words. Dotted or comma thousands
// separators are treated as part of the number.
func SpellNumbers(text string) string {
	return digitRun.ReplaceAllStringFunc(text, func(match string) string {
		digits := strings.NewReplacer(".", "", ",", "").Replace(match)
		n, err := strconv.Atoi(digits)
		if err != nil || n >= 1_000_000_000 {
			return match
		}
		return NumberToWords(n)
	})
}

// dayWords maps folded spoken day numbers to their value.
var dayWords = func() map[string]int {
	m := map[string]int{"primero": 1, "un": 1}
	for i := 1; i < len(units); i++ {
		m[Fold(units[i])] = i
	}
	m["treinta"] = 30
	return m
}()

var monthWords = func() map[string]time.Month {
	m := map[string]time.Month{"setiembre": time.September}
	for i := 1; i < len(monthNames); i++ {
		m[monthNames[i]] = time.Month(i)
	}
	return m
}()

var weekdayWords = func() map[string]time.Weekday {
	m := make(map[string]time.Weekday, len(weekdayNames))
	for i, name := range weekdayNames {
		m[Fold(name)] = time.Weekday(i)
	}
	return m
}()
