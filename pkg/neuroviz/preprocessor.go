package neuroviz

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/neurosim-server/internal/domain"
)

const defaultTimeSteps = 10

// Preprocessor implements domain.VisualizationPreprocessor over the built-in
// coordinate atlas. It is immutable after construction and safe for
// concurrent use.
type Preprocessor struct {
	coords       map[domain.BrainRegion]domain.Coordinate3D
	connectivity map[domain.BrainRegion]map[domain.BrainRegion]float64
	threshold    float64
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithConnectivity supplies the directed projection strengths used to draw
// cascade edges. Without it, cascade payloads carry nodes but no connections.
func WithConnectivity(matrix map[domain.BrainRegion]map[domain.BrainRegion]float64) Option {
	return func(p *Preprocessor) {
		p.connectivity = matrix
	}
}

// WithCoordinates replaces the built-in coordinate atlas.
func WithCoordinates(coords map[domain.BrainRegion]domain.Coordinate3D) Option {
	return func(p *Preprocessor) {
		p.coords = coords
	}
}

// WithMatchThreshold overrides the nearest-region matching distance.
func WithMatchThreshold(threshold float64) Option {
	return func(p *Preprocessor) {
		p.threshold = threshold
	}
}

// New creates a preprocessor with the default atlas.
func New(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		coords:    defaultCoordinates(),
		threshold: MatchThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PrecomputeSequenceVisualization flattens a sequence into per-feature series.
// An empty focusFeatures selects every feature; focus names the sequence does
// not carry are skipped rather than failing.
func (p *Preprocessor) PrecomputeSequenceVisualization(sequence *domain.TemporalSequence, focusFeatures []string) (*domain.SequenceVisualization, error) {
	if sequence == nil {
		return nil, fmt.Errorf("precompute sequence visualization: %w",
			domain.NewValidationError("sequence", "is required", nil))
	}

	var focus map[string]bool
	if len(focusFeatures) > 0 {
		focus = make(map[string]bool, len(focusFeatures))
		for _, feature := range focusFeatures {
			focus[feature] = true
		}
	}

	series := make([]domain.VisualizationSeries, 0, len(sequence.Features))
	for _, feature := range sequence.Features {
		if focus != nil && !focus[feature] {
			continue
		}
		column, ok := sequence.FeatureColumn(feature)
		if !ok {
			continue
		}
		series = append(series, domain.VisualizationSeries{
			Feature: feature,
			Values:  column,
		})
	}

	viz := &domain.SequenceVisualization{
		SequenceID:       sequence.ID,
		PatientID:        sequence.PatientID,
		Region:           sequence.Region,
		Neurotransmitter: sequence.Neurotransmitter,
		Timestamps:       append([]time.Time(nil), sequence.Timestamps...),
		Series:           series,
	}

	if len(sequence.Metadata) > 0 {
		viz.Metadata = make(map[string]interface{}, len(sequence.Metadata))
		for k, v := range sequence.Metadata {
			viz.Metadata[k] = v
		}
	}

	return viz, nil
}

// PrecomputeCascadeGeometry turns a cascade result into positioned nodes,
// anatomic edges between affected regions, and activation frames staged by
// the BFS depth at which each region was first reached. Frame intensities
// ramp in over one depth layer, so deeper regions light up later and every
// region reaches full intensity by the last frame.
func (p *Preprocessor) PrecomputeCascadeGeometry(result *domain.CascadeResult, timeSteps int) (*domain.CascadeVisualization, error) {
	if result == nil {
		return nil, fmt.Errorf("precompute cascade geometry: %w",
			domain.NewValidationError("result", "is required", nil))
	}
	if timeSteps <= 0 {
		timeSteps = defaultTimeSteps
	}

	regions := make([]domain.BrainRegion, 0, len(result.Effects))
	for region := range result.Effects {
		regions = append(regions, region)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i] < regions[j] })

	maxDepth := 0
	nodes := make([]domain.CascadeNode, 0, len(regions))
	for _, region := range regions {
		depth := p.regionDepth(result, region)
		if depth > maxDepth {
			maxDepth = depth
		}

		effects := make(map[domain.Neurotransmitter]float64, len(result.Effects[region]))
		for nt, effect := range result.Effects[region] {
			effects[nt] = effect
		}

		coord := p.coords[region]
		nodes = append(nodes, domain.CascadeNode{
			Region:   region,
			Position: coord,
			Effects:  effects,
			Depth:    depth,
		})
	}

	connections := p.affectedConnections(regions)
	frames := p.activationFrames(result, nodes, timeSteps, maxDepth)

	return &domain.CascadeVisualization{
		StartRegion:      result.StartRegion,
		Neurotransmitter: result.Neurotransmitter,
		Nodes:            nodes,
		Connections:      connections,
		TimeSteps:        frames,
	}, nil
}

// RegionCoordinate returns the canonical 3D position for a region.
func (p *Preprocessor) RegionCoordinate(region domain.BrainRegion) (domain.Coordinate3D, bool) {
	coord, ok := p.coords[region]
	return coord, ok
}

// NearestRegion maps an arbitrary coordinate onto the closest region in the
// atlas. The match fails when no region lies within the matching threshold;
// the distance to the closest candidate is returned either way.
func (p *Preprocessor) NearestRegion(coord domain.Coordinate3D) (domain.BrainRegion, float64, bool) {
	regions := make([]domain.BrainRegion, 0, len(p.coords))
	for region := range p.coords {
		regions = append(regions, region)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i] < regions[j] })

	var nearest domain.BrainRegion
	best := math.Inf(1)
	for _, region := range regions {
		if d := coord.DistanceTo(p.coords[region]); d < best {
			best = d
			nearest = region
		}
	}

	if nearest == "" || best >= p.threshold {
		return "", best, false
	}
	return nearest, best, true
}

// regionDepth is the shallowest BFS layer at which any transmitter reached
// the region.
func (p *Preprocessor) regionDepth(result *domain.CascadeResult, region domain.BrainRegion) int {
	depths, ok := result.Depths[region]
	if !ok || len(depths) == 0 {
		return 0
	}
	min := math.MaxInt
	for _, d := range depths {
		if d < min {
			min = d
		}
	}
	return min
}

// affectedConnections returns every directed anatomic edge whose endpoints
// are both affected regions, ordered by source then target.
func (p *Preprocessor) affectedConnections(regions []domain.BrainRegion) []domain.CascadeConnection {
	affected := make(map[domain.BrainRegion]bool, len(regions))
	for _, region := range regions {
		affected[region] = true
	}

	var connections []domain.CascadeConnection
	for _, source := range regions {
		targets := p.connectivity[source]
		if len(targets) == 0 {
			continue
		}

		names := make([]domain.BrainRegion, 0, len(targets))
		for target := range targets {
			if affected[target] {
				names = append(names, target)
			}
		}
		sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

		for _, target := range names {
			connections = append(connections, domain.CascadeConnection{
				Source:   source,
				Target:   target,
				Strength: targets[target],
			})
		}
	}

	return connections
}

// activationFrames stages node intensities across timeSteps frames. Frame f
// covers progress (f+1)/timeSteps of the way through maxDepth+1 layers; a
// node at depth d contributes |effects| scaled by how far progress has moved
// past d, clamped to [0,1].
func (p *Preprocessor) activationFrames(result *domain.CascadeResult, nodes []domain.CascadeNode, timeSteps, maxDepth int) []domain.CascadeFrame {
	intensity := make(map[domain.BrainRegion]float64, len(nodes))
	for _, node := range nodes {
		total := 0.0
		for _, effect := range node.Effects {
			total += math.Abs(effect)
		}
		intensity[node.Region] = total
	}

	frames := make([]domain.CascadeFrame, 0, timeSteps)
	for f := 0; f < timeSteps; f++ {
		progress := float64(f+1) / float64(timeSteps) * float64(maxDepth+1)

		activations := make(map[domain.BrainRegion]float64)
		for _, node := range nodes {
			ramp := progress - float64(node.Depth)
			if ramp <= 0 {
				continue
			}
			if ramp > 1 {
				ramp = 1
			}
			activations[node.Region] = intensity[node.Region] * ramp
		}

		frames = append(frames, domain.CascadeFrame{
			Step:        f,
			Activations: activations,
		})
	}

	return frames
}
