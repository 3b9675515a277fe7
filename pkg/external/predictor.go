// Package external holds clients for optional external services: the
// treatment-response prediction API and the Redis cache in front of it.
// Everything here degrades gracefully; the engine runs fine with none of it
// configured.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/neurosim-server/internal/domain"
)

// PredictorClient calls the external treatment-response prediction API.
type PredictorClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	retryCount int
}

// predictionResponse is the wire shape returned by the prediction API.
type predictionResponse struct {
	PredictedResponse float64 `json:"predicted_response"`
	Confidence        float64 `json:"confidence"`
	ModelVersion      string  `json:"model_version,omitempty"`
}

// NewPredictorClient creates a prediction API client.
func NewPredictorClient(config domain.PredictorConfig) *PredictorClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 10
	}
	if config.RateBurst == 0 {
		config.RateBurst = 1
	}

	return &PredictorClient{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit:  rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		retryCount: config.RetryCount,
	}
}

// PredictTreatmentResponse posts the request to the prediction API and returns
// the model's estimate. Transient failures are retried up to the configured
// count before the error is surfaced.
func (p *PredictorClient) PredictTreatmentResponse(ctx context.Context, req *domain.PredictionRequest) (*domain.TreatmentPrediction, error) {
	if req == nil {
		return nil, fmt.Errorf("prediction request cannot be nil")
	}
	if p.baseURL == "" {
		return nil, fmt.Errorf("predictor base URL is not configured")
	}

	// Rate limiting
	if err := p.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prediction request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= p.retryCount; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		response, retryable, err := p.doPredict(ctx, jsonBody)
		if err == nil {
			return &domain.TreatmentPrediction{
				PredictedResponse: response.PredictedResponse,
				Confidence:        response.Confidence,
			}, nil
		}

		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, fmt.Errorf("failed to predict treatment response: %w", lastErr)
}

// doPredict executes one prediction request. The second return reports
// whether the failure is worth retrying.
func (p *PredictorClient) doPredict(ctx context.Context, jsonBody []byte) (*predictionResponse, bool, error) {
	predictURL := fmt.Sprintf("%s/v1/predict", p.baseURL)

	req, err := http.NewRequestWithContext(ctx, "POST", predictURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create prediction request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "neurosim-server/1.0")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("failed to execute prediction request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		retryable := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("prediction API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read prediction response: %w", err)
	}

	var response predictionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, false, fmt.Errorf("failed to parse prediction response: %w", err)
	}

	if response.PredictedResponse < 0 || response.PredictedResponse > 1 {
		return nil, false, fmt.Errorf("prediction API returned out-of-range response %f", response.PredictedResponse)
	}

	return &response, false, nil
}
