package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// SensorReading is the JSON payload served by the temperature sensor source.
type SensorReading struct {
	Temperature decimal.Decimal `json:"temperature"`
	Timestamp   int64           `json:"timestamp"`
	SensorID    string          `json:"sensor_id"`
	Status      string          `json:"status"`
}

// SensorClient reads the current temperature from the external sensor HTTP
// endpoint. It is the bridge the fulfiller process uses to answer pending
// temperature requests; the core never calls it directly.
type SensorClient struct {
	baseURL string
	client  *http.Client
}

// NewSensorClient constructs a client for the sensor endpoint at baseURL.
func NewSensorClient(baseURL string, client *http.Client) *SensorClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SensorClient{baseURL: baseURL, client: client}
}

// Read fetches one reading from the sensor's /sensor endpoint.
func (c *SensorClient) Read(ctx context.Context) (SensorReading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sensor", nil)
	if err != nil {
		return SensorReading{}, fmt.Errorf("build sensor request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return SensorReading{}, fmt.Errorf("query sensor: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return SensorReading{}, fmt.Errorf("sensor returned status %d", resp.StatusCode)
	}
	var reading SensorReading
	if err := json.NewDecoder(resp.Body).Decode(&reading); err != nil {
		return SensorReading{}, fmt.Errorf("decode sensor payload: %w", err)
	}
	return reading, nil
}
