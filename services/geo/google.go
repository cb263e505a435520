package geo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	AddressComponents []struct {
		LongName  string   `json:"long_name"`
		ShortName string   `json:"short_name"`
		Types     []string `json:"types"`
	} `json:"address_components"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// component returns the long name of the first component carrying one of
// types, in the order given.
func (r googleResult) component(types ...string) string {
	for _, want := range types {
		for _, c := range r.AddressComponents {
			for _, t := range c.Types {
				if t == want {
					return c.LongName
				}
			}
		}
	}
	return ""
}

// Option configures a GoogleGeocoder.
type Option func(*GoogleGeocoder)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *GoogleGeocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the outbound requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(g *GoogleGeocoder) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRegion biases results towards a country (ccTLD, e.g. "in").
func WithRegion(region string) Option {
	return func(g *GoogleGeocoder) {
		g.region = region
	}
}

// GoogleGeocoder is a Geocoder backed by the Google Geocoding API.
type GoogleGeocoder struct {
	httpClient *http.Client
	apiKey     string
	region     string
	limiter    *rate.Limiter
}

func NewGoogleGeocoder(apiKey string, opts ...Option) *GoogleGeocoder {
	g := &GoogleGeocoder{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Forward geocodes free-text address. No match is not an error.
func (g *GoogleGeocoder) Forward(ctx context.Context, address string) (*models.GeocodeResult, error) {
	params := url.Values{"address": {address}}
	if g.region != "" {
		params.Set("region", g.region)
	}
	return g.lookup(ctx, params)
}

// Reverse geocodes a point. No match is not an error.
func (g *GoogleGeocoder) Reverse(ctx context.Context, lat, lng float64) (*models.GeocodeResult, error) {
	latlng := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
	return g.lookup(ctx, url.Values{"latlng": {latlng}})
}

func (g *GoogleGeocoder) lookup(ctx context.Context, params url.Values) (*models.GeocodeResult, error) {
	if g.apiKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: google rate limit")
	}

	params.Set("key", g.apiKey)
	reqURL := googleGeocodeURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: google returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google read body")
	}

	var googleResp googleGeocodeResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return nil, eris.Wrap(err, "geocode: google parse response")
	}

	switch googleResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return &models.GeocodeResult{Matched: false}, nil
	default:
		return nil, eris.Errorf("geocode: google status %s: %s", googleResp.Status, googleResp.ErrorMessage)
	}
	if len(googleResp.Results) == 0 {
		return &models.GeocodeResult{Matched: false}, nil
	}

	result := googleResp.Results[0]
	return &models.GeocodeResult{
		Matched:          true,
		FormattedAddress: result.FormattedAddress,
		Coordinates: models.Coordinates{
			Lat: result.Geometry.Location.Lat,
			Lng: result.Geometry.Location.Lng,
		},
		State: result.component("administrative_area_level_1"),
		City:  result.component("locality", "administrative_area_level_3", "administrative_area_level_2"),
	}, nil
}
