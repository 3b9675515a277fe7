package service

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neurosim-server/internal/domain"
)

// Analysis thresholds. Slopes under the stability threshold count as flat,
// correlations under the reporting threshold stay in the matrix but are not
// surfaced, and a series flipping direction in more than 40% of its steps is
// oscillatory.
const (
	stableSlopeThreshold = 0.01
	correlationThreshold = 0.3
	oscillationRatio     = 0.4
)

// PatternAnalyzer derives trends, correlation structure and oscillation
// indicators from a stored sequence. It is stateless and safe for concurrent
// use.
type PatternAnalyzer struct {
	logger *logrus.Logger
}

// NewPatternAnalyzer creates a pattern analyzer.
func NewPatternAnalyzer(logger *logrus.Logger) *PatternAnalyzer {
	return &PatternAnalyzer{logger: logger}
}

// Analyze computes the full analytic record for a sequence: per-feature
// statistics and least-squares trend, the pairwise Pearson correlation matrix
// with strong pairs surfaced, an oscillation classification of the primary
// feature, and the baseline/comparison period split (first third vs
// remainder).
func (a *PatternAnalyzer) Analyze(sequence *domain.TemporalSequence) (*domain.PatternAnalysis, error) {
	if sequence == nil {
		return nil, fmt.Errorf("analyze: %w", domain.NewValidationError("sequence", "is required", nil))
	}

	if err := sequence.Validate(); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	n := len(sequence.Values)
	if n == 0 {
		return nil, fmt.Errorf("analyze: %w", domain.NewValidationError("sequence", "has no data points", sequence.ID))
	}

	if len(sequence.Features) == 0 {
		return nil, fmt.Errorf("analyze: %w", domain.NewValidationError("sequence", "has no features", sequence.ID))
	}

	features := sequence.Features
	columns := make([][]float64, len(features))
	for i, feature := range features {
		column, _ := sequence.FeatureColumn(feature)
		columns[i] = column
	}

	trends := make(map[string]domain.FeatureTrend, len(features))
	for i, feature := range features {
		trends[feature] = a.featureTrend(feature, columns[i])
	}

	matrix, surfaced := a.correlationMatrix(features, columns)

	signChanges := countSignChanges(columns[0])
	pattern := domain.PatternDirectional
	if float64(signChanges) > oscillationRatio*float64(n) {
		pattern = domain.PatternOscillatory
	}

	baselineEnd := n / 3
	analysis := &domain.PatternAnalysis{
		SequenceID:       sequence.ID,
		PatientID:        sequence.PatientID,
		Region:           sequence.Region,
		Neurotransmitter: sequence.Neurotransmitter,
		Features:         features,
		Trends:           trends,
		Matrix:           matrix,
		Correlations:     surfaced,
		Pattern:          pattern,
		SignChanges:      signChanges,
		Baseline:         periodSummary(features, columns, 0, baselineEnd),
		Comparison:       periodSummary(features, columns, baselineEnd, n),
		GeneratedAt:      time.Now().UTC(),
	}

	a.logger.WithFields(logrus.Fields{
		"sequence_id":  sequence.ID,
		"features":     len(features),
		"points":       n,
		"pattern":      string(pattern),
		"strong_pairs": len(surfaced),
	}).Debug("Pattern analysis complete")

	return analysis, nil
}

// featureTrend computes descriptive statistics and the least-squares trend
// for one feature column.
func (a *PatternAnalyzer) featureTrend(feature string, values []float64) domain.FeatureTrend {
	trend := domain.FeatureTrend{Feature: feature}
	if len(values) == 0 {
		trend.Direction = domain.TrendStable
		return trend
	}

	mean := 0.0
	minV := values[0]
	maxV := values[0]
	for _, v := range values {
		mean += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	slope := olsSlope(values)

	trend.Mean = mean
	trend.StdDev = math.Sqrt(variance)
	trend.Min = minV
	trend.Max = maxV
	trend.Range = maxV - minV
	trend.RateOfChange = slope

	switch {
	case math.Abs(slope) < stableSlopeThreshold:
		trend.Direction = domain.TrendStable
	case slope > 0:
		trend.Direction = domain.TrendIncreasing
	default:
		trend.Direction = domain.TrendDecreasing
	}

	return trend
}

// correlationMatrix builds the full symmetric Pearson matrix and surfaces
// pairs whose absolute coefficient clears the reporting threshold. Weak pairs
// are suppressed from the surfaced list but never zeroed in the matrix.
func (a *PatternAnalyzer) correlationMatrix(features []string, columns [][]float64) ([][]float64, []domain.FeatureCorrelation) {
	f := len(features)
	matrix := make([][]float64, f)
	for i := range matrix {
		matrix[i] = make([]float64, f)
		matrix[i][i] = 1.0
	}

	var surfaced []domain.FeatureCorrelation
	for i := 0; i < f; i++ {
		for j := i + 1; j < f; j++ {
			r := pearsonCorrelation(columns[i], columns[j])
			matrix[i][j] = r
			matrix[j][i] = r

			if math.Abs(r) > correlationThreshold {
				surfaced = append(surfaced, domain.FeatureCorrelation{
					FeatureA:    features[i],
					FeatureB:    features[j],
					Coefficient: r,
				})
			}
		}
	}

	return matrix, surfaced
}

// olsSlope fits value against time index by ordinary least squares and
// returns the slope per step. Series shorter than two points have no trend.
func olsSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0.0
	}

	sumX := 0.0
	sumY := 0.0
	sumXY := 0.0
	sumXX := 0.0
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	denominator := float64(n)*sumXX - sumX*sumX
	if denominator == 0 {
		return 0.0
	}

	return (float64(n)*sumXY - sumX*sumY) / denominator
}

// pearsonCorrelation computes the Pearson coefficient of two equally long
// series. A constant series has no linear relationship to anything, so zero
// variance yields 0 rather than NaN.
func pearsonCorrelation(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0.0
	}

	meanX := 0.0
	meanY := 0.0
	for i := 0; i < n; i++ {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	numerator := 0.0
	sumXX := 0.0
	sumYY := 0.0
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		numerator += dx * dy
		sumXX += dx * dx
		sumYY += dy * dy
	}

	if sumXX == 0 || sumYY == 0 {
		return 0.0
	}

	return numerator / math.Sqrt(sumXX*sumYY)
}

// countSignChanges counts polarity flips in the first difference of a series.
// Flat steps carry the previous polarity forward rather than counting as
// flips.
func countSignChanges(values []float64) int {
	changes := 0
	prevSign := 0

	for i := 1; i < len(values); i++ {
		diff := values[i] - values[i-1]

		sign := 0
		if diff > 0 {
			sign = 1
		} else if diff < 0 {
			sign = -1
		}

		if sign != 0 {
			if prevSign != 0 && sign != prevSign {
				changes++
			}
			prevSign = sign
		}
	}

	return changes
}

// periodSummary computes per-feature means over rows [start, end).
func periodSummary(features []string, columns [][]float64, start, end int) domain.PeriodSummary {
	summary := domain.PeriodSummary{
		Start: start,
		End:   end,
		Means: make(map[string]float64),
	}

	if start >= end {
		return summary
	}

	for i, feature := range features {
		sum := 0.0
		for t := start; t < end; t++ {
			sum += columns[i][t]
		}
		summary.Means[feature] = sum / float64(end-start)
	}

	return summary
}
