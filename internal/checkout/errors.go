package checkout

import "errors"

// ValidationError reports the first violated input rule of an attempt.
// Message is shown to the user verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// RedirectError halts the pipeline before any persistence and routes the
// caller to a recovery destination. It is never surfaced as a notification.
type RedirectError struct {
	Destination string
}

func (e *RedirectError) Error() string { return "redirect to " + e.Destination }

var (
	ErrUnauthenticated = &RedirectError{Destination: "/login"}
	ErrEmptyCart       = &RedirectError{Destination: "/cart"}
	ErrNothingToBuy    = &RedirectError{Destination: "/products"}

	ErrNoValidProducts = errors.New("No valid products found for this order")
)
