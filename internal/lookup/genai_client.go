package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	gormModels "carbridge/pricer/internal/models/gorm"
	"carbridge/pricer/internal/pricing"

	"golang.org/x/time/rate"
)

// kW to metric horsepower for electric drivetrains, where the estimation
// service usually answers in kilowatts.
const kwToHP = 1.34102

// GenAIClient asks a generative estimation service for a horsepower figure
// when the structured specification source has none.
type GenAIClient struct {
	BaseURL string
	APIKey  string
	pool    *ProxyPool
	limiter *rate.Limiter
}

func NewGenAIClient(baseURL, apiKey string, pool *ProxyPool, perSecond float64) *GenAIClient {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &GenAIClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		pool:    pool,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

type genAIRequest struct {
	Query string `json:"query"`
}

type genAIResponse struct {
	PowerValue *float64 `json:"power_value"`
	PowerUnit  string   `json:"power_unit"`
	Confidence string   `json:"confidence"`
}

// BuildQuery renders the market-specific natural-language specification the
// estimation service is prompted with.
func BuildQuery(v *gormModels.SourceVehicle) string {
	parts := []string{
		fmt.Sprintf("Korean domestic market %d %s %s", v.Year, v.Manufacturer, v.Model),
	}
	if v.Grade != "" {
		parts = append(parts, "trim "+v.Grade)
	}
	if v.Displacement > 0 {
		parts = append(parts, fmt.Sprintf("%dcc", v.Displacement))
	}
	if v.Fuel != "" {
		parts = append(parts, v.Fuel)
	}
	if v.Transmission != "" {
		parts = append(parts, v.Transmission)
	}
	parts = append(parts, "engine power")
	return strings.Join(parts, ", ")
}

// EstimatePower returns an estimated horsepower figure, 0 when the service
// declines to answer. Kilowatt answers are converted for electric
// drivetrains.
func (c *GenAIClient) EstimatePower(ctx context.Context, v *gormModels.SourceVehicle) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	reqBody, err := json.Marshal(genAIRequest{Query: BuildQuery(v)})
	if err != nil {
		return 0, err
	}

	var result genAIResponse
	var gotAnswer bool

	err = c.pool.Do(func(client *http.Client) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/estimate", bytes.NewReader(reqBody))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("estimation service status %d: %w", resp.StatusCode, ErrNoRetry)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("estimation service status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		// A non-JSON body is treated as "no answer", not a transport failure.
		if err := json.Unmarshal(body, &result); err != nil {
			gotAnswer = false
			return nil
		}
		gotAnswer = true
		return nil
	})

	if err != nil {
		return 0, err
	}

	if !gotAnswer || result.PowerValue == nil || *result.PowerValue <= 0 {
		return 0, nil
	}
	if strings.EqualFold(result.Confidence, "none") {
		return 0, nil
	}

	value := *result.PowerValue
	if strings.EqualFold(result.PowerUnit, "kw") && pricing.ClassifyEngine(v.Fuel) == pricing.EngineElectric {
		value *= kwToHP
	}
	return int(value), nil
}
