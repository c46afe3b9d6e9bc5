package session

// Intent is the classified purpose of the caller's request. Values match
// the wire format of state_update frames.
type Intent string

const (
	IntentCardATM          Intent = "card_atm"
	IntentAccountServicing Intent = "account_servicing"
	IntentAccountOpening   Intent = "account_opening"
	IntentDigitalSupport   Intent = "digital_support"
	IntentTransferPayment  Intent = "transfer_payment"
	IntentAccountClosure   Intent = "account_closure"
	IntentGeneralInquiry   Intent = "general_inquiry"
)

// HandlerID names a task handler a session can be routed to or resumed at.
type HandlerID string

const (
	HandlerAuth     HandlerID = "authentication"
	HandlerCard     HandlerID = "card_atm"
	HandlerAccount  HandlerID = "account_servicing"
	HandlerOpening  HandlerID = "account_opening"
	HandlerDigital  HandlerID = "digital_support"
	HandlerTransfer HandlerID = "transfer_payment"
	HandlerClosure  HandlerID = "account_closure"
	HandlerGeneral  HandlerID = "general_inquiry"
)

// minRoutableConfidence is the classification confidence below which the
// intent label is ignored and the session goes to general inquiry.
const minRoutableConfidence = 0.5

// routeIntent maps a classified intent to its entry handler. Sensitive
// tasks go through authentication first; low-confidence classifications
// always land on general inquiry regardless of the label.
func routeIntent(intent Intent, confidence float64) HandlerID {
	if confidence < minRoutableConfidence {
		return HandlerGeneral
	}
	switch intent {
	case IntentCardATM, IntentAccountServicing, IntentTransferPayment, IntentAccountClosure:
		return HandlerAuth
	case IntentAccountOpening:
		return HandlerOpening
	case IntentDigitalSupport:
		return HandlerDigital
	case IntentGeneralInquiry:
		return HandlerGeneral
	default:
		return HandlerGeneral
	}
}

// afterAuth maps the originally classified intent to its task handler once
// authentication has succeeded. An unknown intent returns "" and the
// driver escalates.
func afterAuth(intent Intent) HandlerID {
	switch intent {
	case IntentCardATM:
		return HandlerCard
	case IntentAccountServicing:
		return HandlerAccount
	case IntentTransferPayment:
		return HandlerTransfer
	case IntentAccountClosure:
		return HandlerClosure
	default:
		return ""
	}
}
