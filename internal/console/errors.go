package console

// UserError is shown to the player as is. It reports bad input or a request
// the session can't satisfy right now, never a system failure.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

func NewUserError(msg string) *UserError {
	return &UserError{Message: msg}
}
