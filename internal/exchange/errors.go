package exchange

import (
	"errors"
	"fmt"
)

// Error classifies exchange call failures so callers can tell "skip this
// cycle" conditions apart from programming errors.
type Error struct {
	Kind    string // "network", "rate_limit", "exchange", "bad_symbol", "auth"
	Symbol  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error for %s: %s (%v)", e.Kind, e.Symbol, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error for %s: %s", e.Kind, e.Symbol, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func NewNetworkError(symbol, message string, cause error) *Error {
	return &Error{Kind: "network", Symbol: symbol, Message: message, Cause: cause}
}

func NewRateLimitError(symbol, message string) *Error {
	return &Error{Kind: "rate_limit", Symbol: symbol, Message: message}
}

func NewExchangeError(symbol, message string, cause error) *Error {
	return &Error{Kind: "exchange", Symbol: symbol, Message: message, Cause: cause}
}

func NewBadSymbolError(symbol, message string) *Error {
	return &Error{Kind: "bad_symbol", Symbol: symbol, Message: message}
}

func NewAuthError(message string) *Error {
	return &Error{Kind: "auth", Message: message}
}

// IsUnavailable reports whether the error means the exchange could not be
// reached or answered transiently this cycle. Such failures skip the
// affected stage for one cycle and are never fatal.
func IsUnavailable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case "network", "rate_limit", "exchange":
		return true
	}
	return false
}
