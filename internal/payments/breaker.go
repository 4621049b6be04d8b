package payments

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCircuitOpen is returned without calling the processor while the breaker is open
var ErrCircuitOpen = errors.New("payment processor circuit open")

// CircuitBreaker stops calling the processor after consecutive outages
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration

	consecutiveFailures int
	totalFailures       int
	totalRequests       int
	isOpen              bool
	trialInFlight       bool
	openedAt            time.Time
	now                 func() time.Time

	mutex sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// RecordSuccess records a successful call
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalRequests++
	cb.consecutiveFailures = 0
	cb.isOpen = false
	cb.trialInFlight = false
}

// RecordFailure records an outage and opens the breaker at the threshold.
// It reports whether this call opened it.
func (cb *CircuitBreaker) RecordFailure() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalRequests++
	cb.totalFailures++
	cb.consecutiveFailures++

	if cb.trialInFlight {
		cb.trialInFlight = false
		cb.openedAt = cb.now()
		return true
	}
	if !cb.isOpen && cb.consecutiveFailures >= cb.failureThreshold {
		cb.isOpen = true
		cb.openedAt = cb.now()
		return true
	}
	return false
}

// CanProceed checks if calls are allowed. Once the reset timeout has passed
// a single trial call is admitted and every other caller is refused until
// it is recorded. A successful trial closes the breaker, a failed one
// restarts the timeout.
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}
	if cb.trialInFlight || cb.now().Sub(cb.openedAt) < cb.resetTimeout {
		return false
	}
	cb.trialInFlight = true
	return true
}

// Status is a snapshot of breaker state
type Status struct {
	Open                bool `json:"open"`
	HalfOpen            bool `json:"half_open"`
	ConsecutiveFailures int  `json:"consecutive_failures"`
	TotalFailures       int  `json:"total_failures"`
	TotalRequests       int  `json:"total_requests"`
}

// GetStatus returns current circuit breaker status
func (cb *CircuitBreaker) GetStatus() Status {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return Status{
		Open:                cb.isOpen,
		HalfOpen:            cb.trialInFlight,
		ConsecutiveFailures: cb.consecutiveFailures,
		TotalFailures:       cb.totalFailures,
		TotalRequests:       cb.totalRequests,
	}
}

// GuardedProcessor wraps a Processor with a circuit breaker on the
// outbound calls. Webhook verification is local and passes straight through.
type GuardedProcessor struct {
	next    Processor
	breaker *CircuitBreaker
	logger  *zap.Logger
}

// NewGuardedProcessor wraps next with breaker
func NewGuardedProcessor(next Processor, breaker *CircuitBreaker, logger *zap.Logger) *GuardedProcessor {
	return &GuardedProcessor{next: next, breaker: breaker, logger: logger.Named("processor")}
}

func (g *GuardedProcessor) CreatePaymentIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	if !g.breaker.CanProceed() {
		return nil, ErrCircuitOpen
	}
	intent, err := g.next.CreatePaymentIntent(ctx, p)
	g.record("create_payment_intent", err)
	return intent, err
}

func (g *GuardedProcessor) CreateRefund(ctx context.Context, p RefundParams) (*RefundResult, error) {
	if !g.breaker.CanProceed() {
		return nil, ErrCircuitOpen
	}
	res, err := g.next.CreateRefund(ctx, p)
	g.record("create_refund", err)
	return res, err
}

func (g *GuardedProcessor) ConstructEvent(payload []byte, signature string) (*Event, error) {
	return g.next.ConstructEvent(payload, signature)
}

func (g *GuardedProcessor) record(op string, err error) {
	if !isOutage(err) {
		g.breaker.RecordSuccess()
		return
	}
	if g.breaker.RecordFailure() {
		g.logger.Error("processor circuit opened",
			zap.String("op", op),
			zap.Duration("reset_after", g.breaker.resetTimeout),
			zap.String("last_error", describe(err)))
	}
}
