// Package weather answers a single question: is it raining at the
// configured location right now. Downloads are only allowed while it is.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// State is the binary weather condition that gates downloads.
type State string

const (
	Dry     State = "DRY"
	Raining State = "RAINING"
)

const (
	defaultBaseURL = "https://api.open-meteo.com/v1/forecast"
	// São Paulo. The gate is location-fixed, not per-user.
	defaultLatitude  = -23.5505
	defaultLongitude = -46.6333

	cacheTTL       = 10 * time.Minute
	requestTimeout = 5 * time.Second
)

// rainCodes are the WMO weather interpretation codes that count as rain:
// drizzle, freezing drizzle, rain, freezing rain, rain showers and
// thunderstorms.
var rainCodes = map[int]bool{
	51: true, 53: true, 55: true,
	56: true, 57: true,
	61: true, 63: true, 65: true,
	66: true, 67: true,
	80: true, 81: true, 82: true,
	95: true, 96: true, 99: true,
}

// Service fetches the current weather code and caches the resulting state.
// The provider is free-tier, so one lookup per TTL window is the contract.
type Service struct {
	client    *http.Client
	baseURL   string
	latitude  float64
	longitude float64
	now       func() time.Time

	mu        sync.Mutex
	cached    State
	fetchedAt time.Time
}

func NewService(client *http.Client) *Service {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &Service{
		client:    client,
		baseURL:   defaultBaseURL,
		latitude:  defaultLatitude,
		longitude: defaultLongitude,
		now:       time.Now,
	}
}

type forecastResponse struct {
	Current struct {
		Precipitation float64 `json:"precipitation"`
		WeatherCode   int     `json:"weather_code"`
	} `json:"current"`
}

// Check returns the current gate state. A fresh cached answer is reused;
// any provider failure degrades to Dry so a flaky forecast API can lock
// downloads but never crash them open.
func (s *Service) Check(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < cacheTTL {
		return s.cached
	}

	state, err := s.fetch(ctx)
	if err != nil {
		log.Printf("Warning: weather lookup failed, treating as %s: %v", Dry, err)
		state = Dry
	}

	s.cached = state
	s.fetchedAt = s.now()
	return state
}

func (s *Service) fetch(ctx context.Context) (State, error) {
	url := fmt.Sprintf("%s?latitude=%f&longitude=%f&current=precipitation,weather_code",
		s.baseURL, s.latitude, s.longitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Dry, fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Dry, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Dry, fmt.Errorf("weather provider returned status %d", resp.StatusCode)
	}

	var forecast forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return Dry, fmt.Errorf("failed to decode weather response: %w", err)
	}

	// Measurable precipitation counts as rain even when the code is not on
	// the list, e.g. snow melting into drizzle or an unlisted shower code.
	if forecast.Current.Precipitation > 0 || rainCodes[forecast.Current.WeatherCode] {
		return Raining, nil
	}
	return Dry, nil
}
