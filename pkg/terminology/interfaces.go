package terminology

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Client defines the common interface for drug terminology services.
type Client interface {
	SearchConcepts(ctx context.Context, name string) ([]Concept, error)
	GetConceptDetails(ctx context.Context, conceptID string) (*ConceptDetails, error)
}

// CircuitBreakerConfig represents circuit breaker configuration.
type CircuitBreakerConfig struct {
	MaxRequests      uint32        `json:"max_requests"`
	Interval         time.Duration `json:"interval"`
	Timeout          time.Duration `json:"timeout"`
	FailureThreshold uint32        `json:"failure_threshold"`
}

// BreakerClient wraps a terminology Client with a circuit breaker so a dead
// or flapping terminology service stops consuming per-request timeouts.
type BreakerClient struct {
	inner          Client
	logger         *logrus.Logger
	circuitBreaker *gobreaker.CircuitBreaker
}

// NewBreakerClient creates a circuit-breaker-protected terminology client.
func NewBreakerClient(inner Client, config CircuitBreakerConfig, logger *logrus.Logger) *BreakerClient {
	if config.MaxRequests == 0 {
		config.MaxRequests = 3
	}
	if config.Interval == 0 {
		config.Interval = 10 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}

	cbSettings := gobreaker.Settings{
		Name:        "TerminologyAPI",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &BreakerClient{
		inner:          inner,
		logger:         logger,
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// SearchConcepts searches for candidate identities through the breaker.
func (b *BreakerClient) SearchConcepts(ctx context.Context, name string) ([]Concept, error) {
	result, err := b.circuitBreaker.Execute(func() (interface{}, error) {
		return b.inner.SearchConcepts(ctx, name)
	})
	if err != nil {
		return nil, fmt.Errorf("terminology search failed: %w", err)
	}
	return result.([]Concept), nil
}

// GetConceptDetails fetches concept metadata through the breaker.
func (b *BreakerClient) GetConceptDetails(ctx context.Context, conceptID string) (*ConceptDetails, error) {
	result, err := b.circuitBreaker.Execute(func() (interface{}, error) {
		return b.inner.GetConceptDetails(ctx, conceptID)
	})
	if err != nil {
		return nil, fmt.Errorf("terminology details lookup failed: %w", err)
	}
	return result.(*ConceptDetails), nil
}

// State exposes the breaker state for health reporting.
func (b *BreakerClient) State() gobreaker.State {
	return b.circuitBreaker.State()
}
