package domain

import "strings"

// DigitsOnly strips every non-digit rune.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF reports whether s holds a valid Brazilian tax id.
// Punctuation is ignored.
func ValidCPF(s string) bool {
	cpf := DigitsOnly(s)
	if len(cpf) != 11 || cpf == strings.Repeat(cpf[:1], 11) {
		return false
	}
	d1 := cpfDigit(cpf, 10)
	d2 := cpfDigit(cpf, 11)
	return int(cpf[9]-'0') == d1 && int(cpf[10]-'0') == d2
}

// cpfDigit weighs the first weight-1 digits with weight, weight-1, ..., 2.
func cpfDigit(cpf string, weight int) int {
	sum := 0
	for i := 0; i < weight-1; i++ {
		sum += int(cpf[i]-'0') * (weight - i)
	}
	if sum%11 < 2 {
		return 0
	}
	return 11 - sum%11
}

// ParseCPF returns the 11 digits of s or a ValidationError.
func ParseCPF(s string) (string, error) {
	if !ValidCPF(s) {
		return "", &ValidationError{Field: "cpf", Reason: "check digits do not match"}
	}
	return DigitsOnly(s), nil
}

// FormatCPF renders 11 digits as 000.000.000-00.
func FormatCPF(cpf string) string {
	if len(cpf) != 11 || DigitsOnly(cpf) != cpf {
		return cpf
	}
	return cpf[:3] + "." + cpf[3:6] + "." + cpf[6:9] + "-" + cpf[9:]
}

// MaskCPF keeps the last two digits for log correlation.
func MaskCPF(cpf string) string {
	d := DigitsOnly(cpf)
	if len(d) < 2 {
		return "***"
	}
	return "***.***.***-" + d[len(d)-2:]
}
