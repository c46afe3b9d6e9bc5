package session

// Outcome is the settled result of a handler invocation, used by the
// turn driver to decide whether to re-enter a handler, wait for the user,
// or end the session.
type Outcome int

const (
	// OutcomeContinue re-enters the current flow within the same turn.
	OutcomeContinue Outcome = iota
	// OutcomeSuspend ends the turn; the session waits for user input.
	OutcomeSuspend
	// OutcomeComplete ends the flow; the next turn restarts classification.
	OutcomeComplete
	// OutcomeEscalate hands the session to a human. Terminal.
	OutcomeEscalate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeSuspend:
		return "suspend"
	case OutcomeComplete:
		return "complete"
	case OutcomeEscalate:
		return "escalate"
	default:
		return "unknown"
	}
}

// Flow stages that end the current task.
const (
	StageComplete     = "complete"
	StageCardBlocked  = "card_blocked"
	StageEscalated    = "escalated"
	StageAwaitConfirm = "awaiting_confirmation"
	StageRetention    = "retention_attempt"
)

// IsTerminalStage reports whether a flow stage ends the current task.
// The voice pipeline also uses it to decide when a session is over.
func IsTerminalStage(stage string) bool {
	return stage == StageComplete || stage == StageCardBlocked
}

// CheckCompletion reduces a snapshot to its control outcome. Escalation
// wins over everything; a pending input request wins over a terminal flow
// stage.
func CheckCompletion(s Snapshot) Outcome {
	if s.EscalationRequested {
		return OutcomeEscalate
	}
	if s.NeedsUserInput {
		return OutcomeSuspend
	}
	if IsTerminalStage(s.FlowStage) {
		return OutcomeComplete
	}
	return OutcomeContinue
}
