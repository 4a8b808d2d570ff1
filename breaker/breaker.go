// Package breaker implements the three-state circuit breaker guarding
// calls to external dependencies, primarily exchange adapters.
package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coinvex/trading"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		panic("unknown breaker state")
	}
}

type Config struct {
	FailureThreshold int
	SuccessThreshold int
	ResetTimeout     time.Duration
	CallTimeout      time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		ResetTimeout:     30 * time.Second,
		CallTimeout:      10 * time.Second,
	}
}

// Stats is the breaker snapshot exposed on health endpoints.
type Stats struct {
	Name      string
	State     State
	Failures  int
	Successes int
	OpenedAt  time.Time
}

type Breaker struct {
	name   string
	config *Config

	stateMutex sync.Mutex
	state      State
	failures   int
	successes  int
	openedAt   time.Time

	nowFn func() time.Time
}

func NewBreaker(name string, config *Config) *Breaker {
	if config == nil {
		config = DefaultConfig()
	}

	return &Breaker{
		name:   name,
		config: config,
		state:  StateClosed,
		nowFn:  time.Now,
	}
}

func (b *Breaker) Name() string {
	return b.name
}

// Execute runs the guarded call unless the circuit is open. Every call
// races against the configured timeout; a timed-out call counts as a
// failure and its eventual result is discarded.
func (b *Breaker) Execute(
	ctx context.Context,
	call func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if err := b.beforeCall(); err != nil {
		return nil, err
	}

	result, err := b.executeWithTimeout(ctx, call)

	b.afterCall(err == nil)

	return result, err
}

// ExecuteWithFallback invokes the fallback producer instead of
// propagating the error when the circuit is open or the guarded call
// fails.
func (b *Breaker) ExecuteWithFallback(
	ctx context.Context,
	call func(ctx context.Context) (interface{}, error),
	fallback func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	result, err := b.Execute(ctx, call)
	if err != nil {
		return fallback(ctx)
	}

	return result, nil
}

func (b *Breaker) executeWithTimeout(
	ctx context.Context,
	call func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	callCtx, cancelCallCtx := context.WithTimeout(ctx, b.config.CallTimeout)
	defer cancelCallCtx()

	type callResult struct {
		value interface{}
		err   error
	}

	// Buffered so a late completion never blocks the goroutine.
	resultChan := make(chan callResult, 1)

	go func() {
		value, err := call(callCtx)
		resultChan <- callResult{value, err}
	}()

	select {
	case result := <-resultChan:
		return result.value, result.err
	case <-callCtx.Done():
		return nil, fmt.Errorf(
			"call guarded by breaker [%v] timed out: [%v]",
			b.name,
			callCtx.Err(),
		)
	}
}

// beforeCall enforces the state machine on the calling side. The
// OPEN -> HALF_OPEN transition is evaluated lazily here, once the
// reset timeout has elapsed since the circuit opened.
func (b *Breaker) beforeCall() error {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()

	if b.state == StateOpen {
		if b.nowFn().Sub(b.openedAt) < b.config.ResetTimeout {
			return &trading.CircuitBreakerError{Name: b.name}
		}

		b.state = StateHalfOpen
		b.successes = 0
	}

	return nil
}

func (b *Breaker) afterCall(success bool) {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()

	if success {
		b.failures = 0

		if b.state == StateHalfOpen {
			b.successes++
			if b.successes >= b.config.SuccessThreshold {
				b.state = StateClosed
				b.successes = 0
			}
		}

		return
	}

	if b.state == StateHalfOpen {
		b.open()
		return
	}

	b.failures++
	if b.failures >= b.config.FailureThreshold {
		b.open()
	}
}

func (b *Breaker) open() {
	b.state = StateOpen
	b.openedAt = b.nowFn()
	b.failures = 0
	b.successes = 0
}

func (b *Breaker) State() State {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()

	return b.state
}

func (b *Breaker) Stats() *Stats {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()

	return &Stats{
		Name:      b.name,
		State:     b.state,
		Failures:  b.failures,
		Successes: b.successes,
		OpenedAt:  b.openedAt,
	}
}
