package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/rotisserie/eris"
)

// DefaultReferenceURL is the countrystatecity.in API root.
const DefaultReferenceURL = "https://api.countrystatecity.in/v1"

// ReferenceData lists the states of a country and the cities of a state.
type ReferenceData interface {
	States(ctx context.Context, country string) ([]models.State, error)
	Cities(ctx context.Context, country, stateCode string) ([]models.City, error)
}

type cscState struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	ISO2 string `json:"iso2"`
}

type cscCity struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CSCClient is a ReferenceData client for countrystatecity.in. State
// lists are cached per country for the life of the client.
type CSCClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu     sync.RWMutex
	states map[string][]models.State
}

func NewCSCClient(baseURL, apiKey string, hc *http.Client) *CSCClient {
	if baseURL == "" {
		baseURL = DefaultReferenceURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &CSCClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: hc,
		states:     make(map[string][]models.State),
	}
}

func (c *CSCClient) States(ctx context.Context, country string) ([]models.State, error) {
	country = strings.ToUpper(country)

	c.mu.RLock()
	cached, ok := c.states[country]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var raw []cscState
	if err := c.get(ctx, fmt.Sprintf("/countries/%s/states", url.PathEscape(country)), &raw); err != nil {
		return nil, err
	}

	states := make([]models.State, 0, len(raw))
	for _, s := range raw {
		states = append(states, models.State{Code: s.ISO2, Name: s.Name})
	}

	c.mu.Lock()
	c.states[country] = states
	c.mu.Unlock()
	return states, nil
}

func (c *CSCClient) Cities(ctx context.Context, country, stateCode string) ([]models.City, error) {
	var raw []cscCity
	path := fmt.Sprintf("/countries/%s/states/%s/cities",
		url.PathEscape(strings.ToUpper(country)), url.PathEscape(strings.ToUpper(stateCode)))
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}

	cities := make([]models.City, 0, len(raw))
	for _, city := range raw {
		cities = append(cities, models.City{ID: city.ID, Name: city.Name})
	}
	return cities, nil
}

func (c *CSCClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "reference: build request")
	}
	req.Header.Set("X-CSCAPI-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "reference: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return eris.Errorf("reference: %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrap(err, "reference: parse response")
	}
	return nil
}
