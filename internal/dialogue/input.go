package dialogue

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxInputSize bounds a single inbound message.
const MaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput rejects oversized or malformed input, strips control
// characters other than newline, tab and carriage return, and normalizes
// to NFC so that "NÃO" typed with a combining tilde matches the button label.
func SanitizeInput(input string) (string, error) {
	if len(input) > MaxInputSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), MaxInputSize)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if !clean {
		var b strings.Builder
		b.Grow(len(input))
		for _, r := range input {
			if !unicode.IsControl(r) || isSafeControl(r) {
				b.WriteRune(r)
			}
		}
		input = b.String()
	}

	return norm.NFC.String(strings.TrimSpace(input)), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

// matcher decides whether a rule applies to the inbound text.
type matcher func(text string) bool

// exact matches any of the labels verbatim.
func exact(labels ...string) matcher {
	for i, l := range labels {
		labels[i] = norm.NFC.String(l)
	}
	return func(text string) bool {
		for _, l := range labels {
			if text == l {
				return true
			}
		}
		return false
	}
}

// exactFold matches the label ignoring case.
func exactFold(label string) matcher {
	label = norm.NFC.String(label)
	return func(text string) bool {
		return strings.EqualFold(text, label)
	}
}

// contains matches when the lowercased text contains sub.
func contains(sub string) matcher {
	sub = strings.ToLower(norm.NFC.String(sub))
	return func(text string) bool {
		return strings.Contains(strings.ToLower(text), sub)
	}
}

func always(string) bool { return true }

var cpfPattern = regexp.MustCompile(`\d{3}\.?\d{3}\.?\d{3}-?\d{2}`)

// extractCPF finds the first CPF-shaped token once spaces are removed.
func extractCPF(text string) (string, bool) {
	m := cpfPattern.FindString(strings.ReplaceAll(text, " ", ""))
	return m, m != ""
}
