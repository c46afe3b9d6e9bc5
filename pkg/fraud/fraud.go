// Package fraud flags suspicious conversation patterns: urgent transfer
// language, coercion indicators, repeated failed authentication, and
// bursts of critical actions in one session.
package fraud

import (
	"log/slog"
	"strings"
)

// Flag severities.
const (
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Flag types.
const (
	FlagFailedAuth    = "FAILED_AUTH"
	FlagKeyword       = "SUSPICIOUS_KEYWORD"
	FlagCoercion      = "COERCION_INDICATOR"
	FlagRapidCritical = "RAPID_CRITICAL_ACTIONS"
)

var suspiciousKeywords = []string{
	"transfer everything",
	"withdraw all",
	"close account immediately",
	"send money to",
	"urgent transfer",
	"wire transfer now",
	"empty account",
	"maximum withdrawal",
	"change beneficiary to",
	"add new beneficiary",
}

var coercionIndicators = []string{
	"someone told me",
	"they said i must",
	"i'm being forced",
	"threatened",
	"or else",
	"time sensitive",
	"right now or",
}

// Flag is one suspicion raised against a conversation.
type Flag struct {
	Type        string
	Severity    string
	Description string
}

// Signals is the conversation evidence fed to the detector.
type Signals struct {
	// UserUtterances holds the recent user turns, most recent last.
	// Only the last ten are considered.
	UserUtterances []string
	// FailedAuthAttempts counts PIN verification failures this session.
	FailedAuthAttempts int
	// CriticalActions counts irreversible operations taken this session.
	CriticalActions int
}

// Report is the outcome of a detection pass.
type Report struct {
	Suspicious        bool
	EscalateImmediate bool
	Flags             []Flag
}

// Detect evaluates the signals and returns every raised flag. A critical
// flag (coercion) sets EscalateImmediate.
func Detect(sig Signals, logger *slog.Logger) Report {
	if logger == nil {
		logger = slog.Default()
	}
	var flags []Flag

	if sig.FailedAuthAttempts >= 2 {
		flags = append(flags, Flag{
			Type:        FlagFailedAuth,
			Severity:    SeverityHigh,
			Description: "multiple failed authentication attempts",
		})
	}

	utterances := sig.UserUtterances
	if len(utterances) > 10 {
		utterances = utterances[len(utterances)-10:]
	}
	text := strings.ToLower(strings.Join(utterances, " "))

	for _, kw := range suspiciousKeywords {
		if strings.Contains(text, kw) {
			flags = append(flags, Flag{
				Type:        FlagKeyword,
				Severity:    SeverityMedium,
				Description: "suspicious phrase: " + kw,
			})
			logger.Warn("suspicious keyword detected", "keyword", kw)
		}
	}

	for _, ind := range coercionIndicators {
		if strings.Contains(text, ind) {
			flags = append(flags, Flag{
				Type:        FlagCoercion,
				Severity:    SeverityCritical,
				Description: "possible coercion: " + ind,
			})
			logger.Error("coercion indicator detected", "indicator", ind)
		}
	}

	if sig.CriticalActions > 2 {
		flags = append(flags, Flag{
			Type:        FlagRapidCritical,
			Severity:    SeverityHigh,
			Description: "multiple critical actions in single session",
		})
	}

	report := Report{
		Suspicious: len(flags) > 0,
		Flags:      flags,
	}
	for _, f := range flags {
		if f.Severity == SeverityCritical {
			report.EscalateImmediate = true
			break
		}
	}
	if report.Suspicious {
		logger.Warn("suspicious activity detected", "flags", len(flags))
	}
	return report
}
