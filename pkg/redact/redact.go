// Package redact detects and removes PII from transcript text before it
// reaches logs or the database.
package redact

import (
	"fmt"
	"regexp"
)

// PII type labels stored alongside transcripts.
const (
	TypeSSN        = "SSN"
	TypeSSNNoDash  = "SSN_NO_DASH"
	TypeCreditCard = "CREDIT_CARD"
	TypePhone      = "PHONE"
	TypeEmail      = "EMAIL"
	TypePIN        = "PIN"
	TypePassword   = "PASSWORD"
)

type pattern struct {
	name string
	re   *regexp.Regexp
}

// Ordered so the specific SSN form wins before the bare 9-digit fallback.
var patterns = []pattern{
	{TypeSSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{TypeSSNNoDash, regexp.MustCompile(`\b\d{9}\b`)},
	{TypeCreditCard, regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)},
	{TypePhone, regexp.MustCompile(`\b(\+?1[-.]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
	{TypeEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{TypePIN, regexp.MustCompile(`(?i)\bPIN\s*:?\s*\d{4}\b`)},
	{TypePassword, regexp.MustCompile(`(?i)\bpassword\s*:?\s*\S+\b`)},
}

var critical = map[string]bool{
	TypeSSN:        true,
	TypeSSNNoDash:  true,
	TypeCreditCard: true,
	TypePIN:        true,
	TypePassword:   true,
}

// Redact replaces PII in text with [<TYPE>_REDACTED] placeholders and
// reports which types were found. By default only critical types (SSNs,
// card numbers, PINs, passwords) are redacted; strict mode also redacts
// phone numbers and emails.
func Redact(text string, strict bool) (string, []string) {
	var detected []string
	redacted := text
	for _, p := range patterns {
		if !critical[p.name] && !strict {
			continue
		}
		if p.re.MatchString(redacted) {
			detected = append(detected, p.name)
			redacted = p.re.ReplaceAllString(redacted, fmt.Sprintf("[%s_REDACTED]", p.name))
		}
	}
	return redacted, detected
}

// Detect reports the PII types present in text without modifying it.
func Detect(text string) []string {
	var detected []string
	for _, p := range patterns {
		if p.re.MatchString(text) {
			detected = append(detected, p.name)
		}
	}
	return detected
}

var cardRe = regexp.MustCompile(`\b(\d{4})[- ]?(\d{4})[- ]?(\d{4})[- ]?(\d{4})\b`)

// PartialCard masks card numbers keeping the last four digits, e.g.
// "4532 1234 5678 9010" becomes "XXXX XXXX XXXX 9010".
func PartialCard(text string) string {
	return cardRe.ReplaceAllString(text, "XXXX XXXX XXXX $4")
}

// Sanitize strips critical PII from text so it is safe to log.
func Sanitize(text string) string {
	out, _ := Redact(text, false)
	return out
}
