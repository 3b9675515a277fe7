package external

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/neurosim-server/internal/domain"
)

// ResilientPredictor wraps a treatment-response predictor with a circuit
// breaker. After repeated failures the breaker opens and requests fail fast
// instead of waiting out the HTTP timeout on every simulation.
type ResilientPredictor struct {
	inner   domain.TreatmentResponsePredictor
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewResilientPredictor wraps the predictor with a circuit breaker.
func NewResilientPredictor(inner domain.TreatmentResponsePredictor, logger *logrus.Logger) *ResilientPredictor {
	if logger == nil {
		logger = logrus.New()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "treatment-predictor",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientPredictor{
		inner:   inner,
		breaker: breaker,
		logger:  logger,
	}
}

// PredictTreatmentResponse forwards the request through the circuit breaker.
func (r *ResilientPredictor) PredictTreatmentResponse(ctx context.Context, req *domain.PredictionRequest) (*domain.TreatmentPrediction, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.inner.PredictTreatmentResponse(ctx, req)
	})

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("prediction service unavailable (circuit breaker open)")
		}
		return nil, fmt.Errorf("prediction query failed: %w", err)
	}

	return result.(*domain.TreatmentPrediction), nil
}

// BreakerCounts returns the breaker's request counters.
func (r *ResilientPredictor) BreakerCounts() gobreaker.Counts {
	return r.breaker.Counts()
}

// BreakerState returns the breaker's current state.
func (r *ResilientPredictor) BreakerState() gobreaker.State {
	return r.breaker.State()
}
