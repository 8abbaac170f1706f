package conversation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Phrases are stored folded (lower case, no diacritics) and matched on word
// boundaries, so "si" never matches inside "así".
var (
	closingKeywords = foldAll(
		"confirmo", "acordado", "perfecto", "excelente", "gracias", "queda confirmado",
		"muchas gracias", "finalizado", "terminamos",
	)

	affirmations = foldAll(
		"sí", "si", "claro", "por supuesto", "ok", "okay", "de acuerdo", "confirmo",
		"acepto", "está bien", "perfecto", "vale", "dale", "listo", "correcto", "exacto",
	)

	objections = foldAll(
		"no puedo", "no tengo", "no me alcanza", "imposible", "no sé", "no estoy seguro",
		"no quiero", "después", "más adelante", "luego veo", "difícil", "complicado",
		"ahora no", "no es posible",
	)
)

// Fold lower-cases text, strips diacritics and collapses everything that is
// not a letter or digit into single spaces.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

func foldAll(phrases ...string) []string {
	out := make([]string, len(phrases))
	for i, p := range phrases {
		out[i] = Fold(p)
	}
	return out
}

func containsPhrase(folded string, phrases []string) bool {
	padded := " " + folded + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

// HasClosingKeyword reports whether an agent reply contains a closing phrase.
func HasClosingKeyword(reply string) bool {
	return containsPhrase(Fold(reply), closingKeywords)
}

// IsUserConfirmation reports whether the caller's utterance contains an affirmation.
func IsUserConfirmation(transcript string) bool {
	return containsPhrase(Fold(transcript), affirmations)
}

// IsObjection reports whether the caller refuses or hesitates.
func IsObjection(transcript string) bool {
	return containsPhrase(Fold(transcript), objections)
}
