package admin

// Confirmer answers a yes/no question before a destructive action.
type Confirmer interface {
	Confirm(question string) bool
}

// Answer is a fixed reply, used when the client already sent its decision.
type Answer bool

func (a Answer) Confirm(string) bool { return bool(a) }

// ConfirmationRequired is returned when an action was declined. Question is
// the text the user has to agree to.
type ConfirmationRequired struct {
	Question string
}

func (e *ConfirmationRequired) Error() string {
	return "confirmation required: " + e.Question
}

func ask(c Confirmer, question string) bool {
	return c != nil && c.Confirm(question)
}
