package trading

import (
	"fmt"
	"math/big"
	"time"
)

// NoSessionError signals that a trading operation was attempted by a
// user without a connected exchange session.
type NoSessionError struct {
	UserID string
}

func (nse *NoSessionError) Error() string {
	return fmt.Sprintf(
		"no active trading session for user [%v]; "+
			"connect an exchange first",
		nse.UserID,
	)
}

// ConnectionError signals invalid credentials or an unsupported venue.
// It is not retryable without new credentials.
type ConnectionError struct {
	Exchange string
	Cause    error
}

func (ce *ConnectionError) Error() string {
	return fmt.Sprintf(
		"could not connect exchange [%v]: [%v]",
		ce.Exchange,
		ce.Cause,
	)
}

// InsufficientBalanceError is an expected business rejection, not a
// fault. It states exactly what was required and what was available so
// the caller can correct the order.
type InsufficientBalanceError struct {
	Asset     Asset
	Required  *big.Float
	Available *big.Float
}

func (ibe *InsufficientBalanceError) Error() string {
	return fmt.Sprintf(
		"insufficient [%v] balance: required [%v], available [%v]",
		ibe.Asset,
		ibe.Required.Text('f', 8),
		ibe.Available.Text('f', 8),
	)
}

// RateLimitExceededError carries the time the caller should back off
// before retrying.
type RateLimitExceededError struct {
	Category   string
	RetryAfter time.Duration
}

func (rle *RateLimitExceededError) Error() string {
	return fmt.Sprintf(
		"rate limit exceeded for [%v]; retry after [%v]",
		rle.Category,
		rle.RetryAfter,
	)
}

// CircuitBreakerError is the fail-fast outcome of a call attempted
// while a circuit is open. No network attempt has been made.
type CircuitBreakerError struct {
	Name string
}

func (cbe *CircuitBreakerError) Error() string {
	return fmt.Sprintf(
		"circuit breaker [%v] is open; service temporarily unavailable",
		cbe.Name,
	)
}

// ExchangeError wraps an opaque venue failure together with the raw
// message returned by the venue.
type ExchangeError struct {
	Exchange string
	Message  string
}

func (ee *ExchangeError) Error() string {
	return fmt.Sprintf("exchange [%v] error: [%v]", ee.Exchange, ee.Message)
}
