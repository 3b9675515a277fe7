package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// TemporalSequence is a multi-feature neurotransmitter concentration series
// for one patient. Values form an N×F matrix where N == len(Timestamps) and
// F == len(Features); every cell is clamped to [0,1]. Sequences are immutable
// after persistence: new simulations create new sequences, metadata may only
// be enriched before the first save.
type TemporalSequence struct {
	ID        string `json:"id"`
	PatientID string `json:"patient_id"`

	Timestamps []time.Time `json:"timestamps"`
	Features   []string    `json:"features"`
	Values     [][]float64 `json:"values"`

	// Optional simulation tags.
	Region           BrainRegion      `json:"region,omitempty"`
	Neurotransmitter Neurotransmitter `json:"neurotransmitter,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate enforces the matrix shape invariant before a sequence enters the
// persistence layer.
func (s *TemporalSequence) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("sequence validation: %w", errors.New("ID is required"))
	}

	if s.PatientID == "" {
		return fmt.Errorf("sequence validation: %w", errors.New("patient ID is required"))
	}

	if len(s.Timestamps) != len(s.Values) {
		return fmt.Errorf("sequence validation: %d timestamps but %d value rows",
			len(s.Timestamps), len(s.Values))
	}

	for i, row := range s.Values {
		if len(row) != len(s.Features) {
			return fmt.Errorf("sequence validation: row %d has %d values, want %d",
				i, len(row), len(s.Features))
		}
	}

	if s.Region != "" && !s.Region.IsValid() {
		return fmt.Errorf("sequence validation: %w", ErrInvalidRegion)
	}

	if s.Neurotransmitter != "" && !s.Neurotransmitter.IsValid() {
		return fmt.Errorf("sequence validation: %w", ErrInvalidNeurotransmitter)
	}

	return nil
}

// FeatureIndex returns the column index of a feature, or -1 when the feature
// is not present. Absence is a legal state, not an error.
func (s *TemporalSequence) FeatureIndex(feature string) int {
	for i, f := range s.Features {
		if f == feature {
			return i
		}
	}
	return -1
}

// FeatureColumn extracts one feature's values as a copy. The second return is
// false when the feature does not exist; callers treat that as "no data".
func (s *TemporalSequence) FeatureColumn(feature string) ([]float64, bool) {
	idx := s.FeatureIndex(feature)
	if idx < 0 {
		return nil, false
	}

	column := make([]float64, len(s.Values))
	for i, row := range s.Values {
		column[i] = row[idx]
	}
	return column, true
}

// ValueAt returns the cell for (row, feature), defaulting to 0.0 when the
// feature is missing or the row is out of range.
func (s *TemporalSequence) ValueAt(row int, feature string) float64 {
	idx := s.FeatureIndex(feature)
	if idx < 0 || row < 0 || row >= len(s.Values) {
		return 0.0
	}
	return s.Values[row][idx]
}

// CascadeResult accumulates the signed effect of a perturbation as it spreads
// across regions. Effects are relative deviations, not absolute
// concentrations, so they are deliberately unclamped. Depths records the BFS
// layer at which each (region, neurotransmitter) key was first reached; the
// cascade visualization uses it to stage activation onset.
type CascadeResult struct {
	StartRegion      BrainRegion      `json:"start_region"`
	Neurotransmitter Neurotransmitter `json:"neurotransmitter"`
	Magnitude        float64          `json:"magnitude"`
	MaxDepth         int              `json:"max_depth"`

	Effects map[BrainRegion]map[Neurotransmitter]float64 `json:"effects"`
	Depths  map[BrainRegion]map[Neurotransmitter]int     `json:"depths"`

	// Processed counts first-visit expansions, bounded by |regions|×|nts|.
	Processed int `json:"processed"`
}

// NewCascadeResult initializes an empty result for one propagation run.
func NewCascadeResult(start BrainRegion, nt Neurotransmitter, magnitude float64, maxDepth int) *CascadeResult {
	return &CascadeResult{
		StartRegion:      start,
		Neurotransmitter: nt,
		Magnitude:        magnitude,
		MaxDepth:         maxDepth,
		Effects:          make(map[BrainRegion]map[Neurotransmitter]float64),
		Depths:           make(map[BrainRegion]map[Neurotransmitter]int),
	}
}

// Record stores the effect for a (region, nt) key and remembers the BFS depth
// of its first visit. Accumulate controls revisit semantics: false keeps the
// first recorded effect, true sums subsequent contributions.
func (r *CascadeResult) Record(region BrainRegion, nt Neurotransmitter, effect float64, depth int, accumulate bool) {
	if r.Effects[region] == nil {
		r.Effects[region] = make(map[Neurotransmitter]float64)
		r.Depths[region] = make(map[Neurotransmitter]int)
	}

	if _, seen := r.Effects[region][nt]; seen {
		if accumulate {
			r.Effects[region][nt] += effect
		}
		return
	}

	r.Effects[region][nt] = effect
	r.Depths[region][nt] = depth
}

// Effect returns the recorded effect for a key, 0.0 when the key was never
// reached.
func (r *CascadeResult) Effect(region BrainRegion, nt Neurotransmitter) float64 {
	if byNT, ok := r.Effects[region]; ok {
		return byNT[nt]
	}
	return 0.0
}

// Visited reports whether a (region, nt) key was reached by the cascade.
func (r *CascadeResult) Visited(region BrainRegion, nt Neurotransmitter) bool {
	byNT, ok := r.Effects[region]
	if !ok {
		return false
	}
	_, ok = byNT[nt]
	return ok
}

// KeyCount returns the number of distinct (region, nt) keys reached.
func (r *CascadeResult) KeyCount() int {
	n := 0
	for _, byNT := range r.Effects {
		n += len(byNT)
	}
	return n
}

// FeatureTrend summarizes one feature column of a sequence.
type FeatureTrend struct {
	Feature      string         `json:"feature"`
	Direction    TrendDirection `json:"direction"`
	RateOfChange float64        `json:"rate_of_change"` // OLS slope per time step
	Mean         float64        `json:"mean"`
	StdDev       float64        `json:"std_dev"` // population standard deviation
	Min          float64        `json:"min"`
	Max          float64        `json:"max"`
	Range        float64        `json:"range"`
}

// FeatureCorrelation is one surfaced pairwise Pearson correlation with |r|
// above the reporting threshold.
type FeatureCorrelation struct {
	FeatureA    string  `json:"feature_a"`
	FeatureB    string  `json:"feature_b"`
	Coefficient float64 `json:"coefficient"`
}

// PeriodSummary holds per-feature means over a contiguous slice of the
// series, identified by half-open row bounds [Start, End).
type PeriodSummary struct {
	Start int                `json:"start"`
	End   int                `json:"end"`
	Means map[string]float64 `json:"means"`
}

// PatternAnalysis is the derived, read-only analytic record for a sequence.
// It is returned to callers and never persisted by the engine.
type PatternAnalysis struct {
	SequenceID       string           `json:"sequence_id"`
	PatientID        string           `json:"patient_id"`
	Region           BrainRegion      `json:"region,omitempty"`
	Neurotransmitter Neurotransmitter `json:"neurotransmitter,omitempty"`

	Features []string                `json:"features"`
	Trends   map[string]FeatureTrend `json:"trends"`

	// Matrix is the full Pearson correlation matrix in Features order;
	// Correlations surfaces only the pairs above the reporting threshold.
	Matrix       [][]float64          `json:"matrix"`
	Correlations []FeatureCorrelation `json:"correlations"`

	Pattern     PatternShape `json:"pattern"`
	SignChanges int          `json:"sign_changes"`

	Baseline   PeriodSummary `json:"baseline_period"`
	Comparison PeriodSummary `json:"comparison_period"`

	GeneratedAt time.Time `json:"generated_at"`
}

// TemporalEvent is an audit record emitted by the engine and owned by the
// event store collaborator.
type TemporalEvent struct {
	ID        string                 `json:"id"`
	PatientID string                 `json:"patient_id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Validate ensures the event is complete enough for the audit trail.
func (e *TemporalEvent) Validate() error {
	if e.PatientID == "" {
		return fmt.Errorf("event validation: %w", errors.New("patient ID is required"))
	}

	if !e.Type.IsValid() {
		return fmt.Errorf("event validation: invalid event type %q", e.Type)
	}

	if e.Timestamp.IsZero() {
		return fmt.Errorf("event validation: %w", errors.New("timestamp is required"))
	}

	return nil
}

// TreatmentPrediction is the optional external ML response used to blend a
// simulated treatment effect.
type TreatmentPrediction struct {
	PredictedResponse float64 `json:"predicted_response"`
	Confidence        float64 `json:"confidence"`
}

// Coordinate3D is a normalized position used by visualization clients.
type Coordinate3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo returns the Euclidean distance between two coordinates.
func (c Coordinate3D) DistanceTo(other Coordinate3D) float64 {
	dx := c.X - other.X
	dy := c.Y - other.Y
	dz := c.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// VisualizationSeries is one plotted feature line.
type VisualizationSeries struct {
	Feature string    `json:"feature"`
	Values  []float64 `json:"values"`
}

// SequenceVisualization is the payload served to sequence plotting clients.
type SequenceVisualization struct {
	SequenceID       string                 `json:"sequence_id"`
	PatientID        string                 `json:"patient_id"`
	Region           BrainRegion            `json:"region,omitempty"`
	Neurotransmitter Neurotransmitter       `json:"neurotransmitter,omitempty"`
	Timestamps       []time.Time            `json:"timestamps"`
	Series           []VisualizationSeries  `json:"series"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// CascadeNode is one region in the cascade geometry payload.
type CascadeNode struct {
	Region   BrainRegion                  `json:"region"`
	Position Coordinate3D                 `json:"position"`
	Effects  map[Neurotransmitter]float64 `json:"effects"`
	Depth    int                          `json:"depth"`
}

// CascadeConnection is one rendered edge between affected regions.
type CascadeConnection struct {
	Source   BrainRegion `json:"source"`
	Target   BrainRegion `json:"target"`
	Strength float64     `json:"strength"`
}

// CascadeFrame is one animation step: per-region activation intensity.
type CascadeFrame struct {
	Step        int                     `json:"step"`
	Activations map[BrainRegion]float64 `json:"activations"`
}

// CascadeVisualization is the payload served to 3D cascade clients.
type CascadeVisualization struct {
	StartRegion      BrainRegion         `json:"start_region"`
	Neurotransmitter Neurotransmitter    `json:"neurotransmitter"`
	Nodes            []CascadeNode       `json:"nodes"`
	Connections      []CascadeConnection `json:"connections"`
	TimeSteps        []CascadeFrame      `json:"time_steps"`
}
