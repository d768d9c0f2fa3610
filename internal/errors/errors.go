// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOrderRejected      = errors.New("order rejected")
	ErrRateLimited        = errors.New("rate limited")
	ErrConnectionFailed   = errors.New("connection failed")
	ErrTimeout            = errors.New("operation timed out")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrStreamClosed       = errors.New("stream closed")
)

// UnknownSymbolError indicates a symbol has no mapping entry for the target
// broker. It is always surfaced to the caller, never defaulted: a best-guess
// symbol sent to a broker risks a trade on the wrong instrument.
type UnknownSymbolError struct {
	Broker string
	Symbol string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol %q for broker %q", e.Symbol, e.Broker)
}

// NewUnknownSymbolError creates a new UnknownSymbolError.
func NewUnknownSymbolError(broker, symbol string) *UnknownSymbolError {
	return &UnknownSymbolError{Broker: broker, Symbol: symbol}
}

// UnknownBrokerError indicates a broker name was never registered.
type UnknownBrokerError struct {
	Broker     string
	Registered []string
}

func (e *UnknownBrokerError) Error() string {
	return fmt.Sprintf("unknown broker %q (registered: %v)", e.Broker, e.Registered)
}

// DuplicateBrokerError indicates a second registration under an existing
// broker name. The first registration stays active.
type DuplicateBrokerError struct {
	Broker string
}

func (e *DuplicateBrokerError) Error() string {
	return fmt.Sprintf("broker %q is already registered", e.Broker)
}

// UnsupportedOperationError indicates a capability the selected driver does
// not back. Callers must treat it as a feature-availability check, distinct
// from a transient broker failure.
type UnsupportedOperationError struct {
	Capability string
	Broker     string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("operation %q is not supported by broker %q", e.Capability, e.Broker)
}

// NewUnsupportedOperationError creates a new UnsupportedOperationError.
func NewUnsupportedOperationError(capability, broker string) *UnsupportedOperationError {
	return &UnsupportedOperationError{Capability: capability, Broker: broker}
}

// MarginUnavailableError indicates the broker cannot supply margin data for
// the requested context. It is never substituted with a local estimate.
type MarginUnavailableError struct {
	Broker  string
	Context string
}

func (e *MarginUnavailableError) Error() string {
	return fmt.Sprintf("margin data unavailable from broker %q: %s", e.Broker, e.Context)
}

// NewMarginUnavailableError creates a new MarginUnavailableError.
func NewMarginUnavailableError(broker, context string) *MarginUnavailableError {
	return &MarginUnavailableError{Broker: broker, Context: context}
}

// BrokerError represents an error from the broker API, passed through with
// the broker-specific detail intact.
type BrokerError struct {
	Broker  string
	Code    string
	Message string
	Err     error
}

func (e *BrokerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("broker %s [%s]: %s: %v", e.Broker, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("broker %s [%s]: %s", e.Broker, e.Code, e.Message)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// NewBrokerError creates a new BrokerError.
func NewBrokerError(broker, code, message string, err error) *BrokerError {
	return &BrokerError{Broker: broker, Code: code, Message: message, Err: err}
}

// AuthError represents an authentication failure during a login flow.
type AuthError struct {
	Broker string
	Step   string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth failed for broker %s at %s: %v", e.Broker, e.Step, e.Err)
	}
	return fmt.Sprintf("auth failed for broker %s at %s", e.Broker, e.Step)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates a new AuthError.
func NewAuthError(broker, step string, err error) *AuthError {
	return &AuthError{Broker: broker, Step: step, Err: err}
}

// ManualLoginError indicates the driver needs an interactive login. The
// caller opens LoginURL, completes the broker flow, and hands the exchanged
// token back via CompleteLogin.
type ManualLoginError struct {
	Broker   string
	LoginURL string
}

func (e *ManualLoginError) Error() string {
	return fmt.Sprintf("broker %s requires manual login: visit %s and complete the flow", e.Broker, e.LoginURL)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
