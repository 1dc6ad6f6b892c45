package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// SpecClient queries the structured vehicle-specification service by
// vehicle id. The returned power is authoritative only when positive.
type SpecClient struct {
	BaseURL string
	pool    *ProxyPool
	limiter *rate.Limiter
}

func NewSpecClient(baseURL string, pool *ProxyPool, perSecond float64) *SpecClient {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &SpecClient{
		BaseURL: baseURL,
		pool:    pool,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

type specResponse struct {
	Spec struct {
		Power *float64 `json:"power"`
	} `json:"spec"`
}

// FetchPower returns the horsepower for one vehicle id, 0 when the service
// has no answer for it.
func (c *SpecClient) FetchPower(ctx context.Context, vehicleID int64) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var result specResponse

	err := c.pool.Do(func(client *http.Client) error {
		url := fmt.Sprintf("%s/vehicles/%d/spec", c.BaseURL, vehicleID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		// 4xx means the remote service answered "unknown vehicle": that is
		// a definitive result, not a proxy failure.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("spec service status %d: %w", resp.StatusCode, ErrNoRetry)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("spec service status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &result)
	})

	if err != nil {
		return 0, err
	}

	if result.Spec.Power == nil || *result.Spec.Power <= 0 {
		return 0, nil
	}
	return int(*result.Spec.Power), nil
}

// sleepCtx pauses between sibling attempts without outliving the context.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
