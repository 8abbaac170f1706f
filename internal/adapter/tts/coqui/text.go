package coqui

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	unsupportedChars = regexp.MustCompile(`[^\p{L}\p{N}\s.,!?;:()\-]`)
	whitespace       = regexp.MustCompile(`\s+`)
	sentenceEnd      = regexp.MustCompile(`[.!?;]+\s+`)
)

// CleanText strips characters the voice model cannot pronounce and collapses whitespace.
func CleanText(text string) string {
	text = unsupportedChars.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// SplitText cuts text into chunks of at most maxChars runes, preferring
// sentence boundaries, then word boundaries.
func SplitText(text string, maxChars int) []string {
	if text == "" {
		return nil
	}
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var sentences []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		sentences = append(sentences, strings.TrimSpace(text[last:loc[1]]))
		last = loc[1]
	}
	if last < len(text) {
		sentences = append(sentences, strings.TrimSpace(text[last:]))
	}

	var chunks []string
	var current string
	for _, s := range sentences {
		for _, piece := range splitWords(s, maxChars) {
			switch {
			case current == "":
				current = piece
			case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(piece) <= maxChars:
				current += " " + piece
			default:
				chunks = append(chunks, current)
				current = piece
			}
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

func splitWords(sentence string, maxChars int) []string {
	if utf8.RuneCountInString(sentence) <= maxChars {
		return []string{sentence}
	}
	var out []string
	var current string
	for _, w := range strings.Fields(sentence) {
		for utf8.RuneCountInString(w) > maxChars {
			runes := []rune(w)
			if current != "" {
				out = append(out, current)
				current = ""
			}
			out = append(out, string(runes[:maxChars]))
			w = string(runes[maxChars:])
		}
		switch {
		case current == "":
			current = w
		case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(w) <= maxChars:
			current += " " + w
		default:
			out = append(out, current)
			current = w
		}
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}
