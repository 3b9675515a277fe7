package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/neurosim-server/internal/domain"
	"github.com/neurosim-server/internal/service"
)

const (
	defaultEventLimit    = 50
	defaultSequenceLimit = 50
)

// generateSequenceRequest is the body for POST /api/v1/sequences. Region and
// neurotransmitter fall back to the canonical defaults when omitted so a bare
// patient_id is a valid request.
type generateSequenceRequest struct {
	PatientID        string   `json:"patient_id" binding:"required"`
	Region           string   `json:"brain_region"`
	Neurotransmitter string   `json:"neurotransmitter"`
	TimeRangeDays    int      `json:"time_range_days"`
	TimeStepHours    int      `json:"time_step_hours"`
	NoiseLevel       *float64 `json:"noise_level"`
}

// simulateTreatmentRequest is the body for POST /api/v1/treatments/simulate.
type simulateTreatmentRequest struct {
	PatientID              string   `json:"patient_id" binding:"required"`
	Medication             string   `json:"medication" binding:"required"`
	Region                 string   `json:"brain_region"`
	TargetNeurotransmitter string   `json:"target_neurotransmitter"`
	EffectMagnitude        float64  `json:"effect_magnitude"`
	SimulationDays         int      `json:"simulation_days"`
	TimeStepHours          int      `json:"time_step_hours"`
	NoiseLevel             *float64 `json:"noise_level"`
}

// simulateTreatmentResponse flattens a simulation outcome into the wire shape.
type simulateTreatmentResponse struct {
	PatientID         string                                                      `json:"patient_id"`
	Medication        string                                                      `json:"medication"`
	Primary           domain.Neurotransmitter                                     `json:"primary_neurotransmitter"`
	RawMagnitude      float64                                                     `json:"raw_magnitude"`
	AdjustedMagnitude float64                                                     `json:"adjusted_magnitude"`
	Blended           bool                                                        `json:"blended"`
	DirectEffects     map[domain.Neurotransmitter]float64                         `json:"direct_effects"`
	RegionalEffects   map[domain.BrainRegion]map[domain.Neurotransmitter]float64  `json:"regional_effects"`
	Sequences         map[domain.Neurotransmitter]*domain.TemporalSequence        `json:"sequences"`
	Event             *domain.TemporalEvent                                       `json:"event,omitempty"`
}

func (s *Server) handleGenerateSequence(c *gin.Context) {
	var req generateSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	sequence, err := s.temporal.GenerateTimeSeries(c.Request.Context(), service.GenerateSeriesRequest{
		PatientID:        req.PatientID,
		Region:           regionOrDefault(req.Region),
		Neurotransmitter: neurotransmitterOrDefault(req.Neurotransmitter),
		TimeRangeDays:    req.TimeRangeDays,
		TimeStepHours:    req.TimeStepHours,
		NoiseLevel:       req.NoiseLevel,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sequence)
}

func (s *Server) handleGetSequence(c *gin.Context) {
	sequence, err := s.temporal.GetSequence(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sequence)
}

func (s *Server) handleListSequences(c *gin.Context) {
	patientID := c.Param("id")
	limit := queryInt(c, "limit", defaultSequenceLimit)

	sequences, err := s.temporal.ListSequences(c.Request.Context(), patientID, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if sequences == nil {
		sequences = []*domain.TemporalSequence{}
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id": patientID,
		"count":      len(sequences),
		"sequences":  sequences,
	})
}

func (s *Server) handleAnalyzeLevels(c *gin.Context) {
	patientID := c.Param("id")
	region := regionOrDefault(c.Query("brain_region"))
	nt := neurotransmitterOrDefault(c.Query("neurotransmitter"))

	analysis, err := s.temporal.AnalyzeLevels(c.Request.Context(), patientID, region, nt)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if analysis == nil {
		requestID := c.GetString("correlation_id")
		c.JSON(http.StatusNotFound, domain.NewSimulationError(domain.ErrCodeNotFound,
			"no sequence history for patient", "generate a time series first", requestID))
		return
	}

	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleListEvents(c *gin.Context) {
	patientID := c.Param("id")
	limit := queryInt(c, "limit", defaultEventLimit)
	offset := queryInt(c, "offset", 0)

	events, err := s.temporal.ListEvents(c.Request.Context(), patientID, limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if events == nil {
		events = []*domain.TemporalEvent{}
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id": patientID,
		"count":      len(events),
		"events":     events,
	})
}

func (s *Server) handleSimulateTreatment(c *gin.Context) {
	var req simulateTreatmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	outcome, err := s.temporal.SimulateTreatment(c.Request.Context(), service.SimulateTreatmentRequest{
		PatientID:              req.PatientID,
		Medication:             req.Medication,
		Region:                 regionOrDefault(req.Region),
		TargetNeurotransmitter: neurotransmitterOrDefault(req.TargetNeurotransmitter),
		EffectMagnitude:        req.EffectMagnitude,
		SimulationDays:         req.SimulationDays,
		TimeStepHours:          req.TimeStepHours,
		NoiseLevel:             req.NoiseLevel,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, simulateTreatmentResponse{
		PatientID:         req.PatientID,
		Medication:        req.Medication,
		Primary:           outcome.Primary,
		RawMagnitude:      outcome.RawMagnitude,
		AdjustedMagnitude: outcome.AdjustedMagnitude,
		Blended:           outcome.Blended,
		DirectEffects:     outcome.DirectEffects,
		RegionalEffects:   outcome.RegionalEffects,
		Sequences:         outcome.Sequences,
		Event:             outcome.Event,
	})
}

func (s *Server) handleSequenceVisualization(c *gin.Context) {
	var focus []string
	if raw := c.Query("features"); raw != "" {
		for _, feature := range strings.Split(raw, ",") {
			if feature = strings.TrimSpace(feature); feature != "" {
				focus = append(focus, feature)
			}
		}
	}

	viz, err := s.temporal.GetVisualization(c.Request.Context(), c.Param("id"), focus)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, viz)
}

func (s *Server) handleCascadeVisualization(c *gin.Context) {
	patientID := c.Query("patient_id")
	region := regionOrDefault(c.Query("brain_region"))
	nt := neurotransmitterOrDefault(c.Query("neurotransmitter"))
	timeSteps := queryInt(c, "time_steps", 0)

	viz, err := s.temporal.GetCascadeVisualization(c.Request.Context(), patientID, region, nt, timeSteps)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, viz)
}

// respondError maps service errors onto HTTP statuses. Unrecognized errors
// are logged and masked as a generic internal failure.
func (s *Server) respondError(c *gin.Context, err error) {
	requestID := c.GetString("correlation_id")

	status := http.StatusInternalServerError
	code := domain.ErrCodeInternal

	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, domain.ErrCodeNotFound
	case errors.Is(err, domain.ErrInvalidRegion), errors.Is(err, domain.ErrInvalidNeurotransmitter):
		status, code = http.StatusBadRequest, domain.ErrCodeInvalidInput
	case errors.As(err, &validationErr):
		status, code = http.StatusBadRequest, domain.ErrCodeValidation
	}

	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		c.JSON(status, domain.NewSimulationError(code, "internal server error", "", requestID))
		return
	}

	c.JSON(status, domain.NewSimulationError(code, err.Error(), "", requestID))
}

func (s *Server) respondBindError(c *gin.Context, err error) {
	requestID := c.GetString("correlation_id")
	c.JSON(http.StatusBadRequest, domain.NewSimulationError(domain.ErrCodeInvalidInput,
		"invalid request body", err.Error(), requestID))
}

func regionOrDefault(raw string) domain.BrainRegion {
	if raw == "" {
		return domain.PrefrontalCortex
	}
	return domain.BrainRegion(raw)
}

func neurotransmitterOrDefault(raw string) domain.Neurotransmitter {
	if raw == "" {
		return domain.Serotonin
	}
	return domain.Neurotransmitter(raw)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
