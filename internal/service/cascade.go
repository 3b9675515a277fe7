package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/neurosim-server/internal/domain"
)

// Cascade propagation constants: each hop loses 20% of the effect, an
// inhibitory receptor population flips and attenuates it, and co-propagated
// secondary neurotransmitters carry half weight.
const (
	propagationDecay     = 0.8
	inhibitoryModulation = -0.7
	secondaryEffectScale = 0.5
)

// cascadeItem is one unit of pending propagation work.
type cascadeItem struct {
	region domain.BrainRegion
	nt     domain.Neurotransmitter
	effect float64
	depth  int
}

type cascadeKey struct {
	region domain.BrainRegion
	nt     domain.Neurotransmitter
}

// CascadeEngine spreads a perturbation across the region connectivity graph
// breadth-first. The engine holds no mutable state across calls, so one
// instance serves concurrent propagations.
type CascadeEngine struct {
	logger             *logrus.Logger
	receptors          *ReceptorMap
	accumulateRevisits bool
}

// CascadeOption customizes a CascadeEngine.
type CascadeOption func(*CascadeEngine)

// WithRevisitAccumulation makes effects arriving over multiple paths into an
// already-visited (region, nt) key sum instead of being discarded. Default
// behavior keeps the first-arrival effect only; revisited keys are never
// re-expanded either way, so the termination bound is unchanged.
func WithRevisitAccumulation() CascadeOption {
	return func(e *CascadeEngine) {
		e.accumulateRevisits = true
	}
}

// NewCascadeEngine creates a cascade propagation engine.
func NewCascadeEngine(receptors *ReceptorMap, logger *logrus.Logger, opts ...CascadeOption) *CascadeEngine {
	engine := &CascadeEngine{
		logger:    logger,
		receptors: receptors,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Propagate diffuses a signed effect magnitude from a starting region across
// the connectivity graph, up to maxDepth hops.
//
// Each dequeued (region, nt) key is processed exactly once; its effect is
// recorded, and unless the depth limit is reached, the effect spreads to
// every connected region in descending strength order with a fixed 20% loss
// per hop. At the connected region the effect fans out to the propagating
// neurotransmitter plus any other neurotransmitter sharing receptor presence
// with it there; an inhibitory receptor population flips the sign
// (modulation -0.7), and non-primary neurotransmitters are halved.
//
// Termination is guaranteed: depth is bounded by maxDepth and the visited set
// bounds processed keys to |regions| × |neurotransmitters|.
func (e *CascadeEngine) Propagate(start domain.BrainRegion, nt domain.Neurotransmitter, magnitude float64, maxDepth int) (*domain.CascadeResult, error) {
	if !start.IsValid() {
		return nil, fmt.Errorf("cascade propagate: %w: %s", domain.ErrInvalidRegion, start)
	}

	if !nt.IsValid() {
		return nil, fmt.Errorf("cascade propagate: %w: %s", domain.ErrInvalidNeurotransmitter, nt)
	}

	if maxDepth < 0 {
		return nil, fmt.Errorf("cascade propagate: %w", domain.NewValidationError("max_depth", "must be non-negative", maxDepth))
	}

	result := domain.NewCascadeResult(start, nt, magnitude, maxDepth)
	visited := make(map[cascadeKey]bool)

	queue := []cascadeItem{{region: start, nt: nt, effect: magnitude, depth: 0}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		key := cascadeKey{region: item.region, nt: item.nt}
		if visited[key] {
			// First visit wins; optionally the late arrival still adds in.
			result.Record(item.region, item.nt, item.effect, item.depth, e.accumulateRevisits)
			continue
		}
		visited[key] = true

		result.Record(item.region, item.nt, item.effect, item.depth, false)
		result.Processed++

		if item.depth >= maxDepth {
			continue
		}

		for _, conn := range e.receptors.Connections(item.region) {
			propagated := item.effect * conn.Strength * propagationDecay

			for _, candidate := range e.coPropagated(conn.Target, item.nt) {
				modulation := 1.0
				if e.receptors.HasInhibitory(conn.Target, candidate) {
					modulation = inhibitoryModulation
				}

				scale := 1.0
				if candidate != item.nt {
					scale = secondaryEffectScale
				}

				queue = append(queue, cascadeItem{
					region: conn.Target,
					nt:     candidate,
					effect: propagated * modulation * scale,
					depth:  item.depth + 1,
				})
			}
		}
	}

	e.logger.WithFields(logrus.Fields{
		"start_region":     start.String(),
		"neurotransmitter": nt.String(),
		"magnitude":        magnitude,
		"max_depth":        maxDepth,
		"regions_affected": len(result.Effects),
		"keys_recorded":    result.KeyCount(),
	}).Debug("Cascade propagation complete")

	return result, nil
}

// coPropagated returns the neurotransmitters an effect fans out to at the
// connected region: the propagating one itself, plus every other
// neurotransmitter that shares receptor presence with it there. A region with
// no receptors for the propagating neurotransmitter passes it through alone.
func (e *CascadeEngine) coPropagated(region domain.BrainRegion, primary domain.Neurotransmitter) []domain.Neurotransmitter {
	out := []domain.Neurotransmitter{primary}

	if !e.receptors.HasReceptors(region, primary) {
		return out
	}

	for _, nt := range domain.AllNeurotransmitters() {
		if nt == primary {
			continue
		}
		if e.receptors.HasReceptors(region, nt) {
			out = append(out, nt)
		}
	}

	return out
}
