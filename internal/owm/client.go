package owm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rishi-o2/weather-app/internal/models"
	"github.com/rishi-o2/weather-app/internal/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	endpointCurrent  = "weather"
	endpointForecast = "forecast"

	maxBodyBytes = 4 << 20
)

// ErrMalformedResponse is returned when an upstream body is not JSON or lacks
// fields the client depends on.
var ErrMalformedResponse = errors.New("malformed upstream response")

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned status %d", e.Status)
	}
	return fmt.Sprintf("API returned status %d: %s", e.Status, e.Body)
}

func IsAuthFailure(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the overall request timeout. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type currentResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// Current fetches current conditions for a city in metric units.
func (c *Client) Current(ctx context.Context, city string) (models.CurrentWeather, error) {
	var resp currentResponse
	if err := c.get(ctx, endpointCurrent, city, &resp); err != nil {
		return models.CurrentWeather{}, err
	}
	return models.CurrentWeather{
		Name:      resp.Name,
		Country:   resp.Sys.Country,
		TempC:     resp.Main.Temp,
		Humidity:  resp.Main.Humidity,
		WindSpeed: resp.Wind.Speed,
		Condition: resp.Weather[0].Main,
	}, nil
}

// Forecast fetches the 5-day / 3-hour forecast for a city. Entries are
// returned in upstream order without filtering.
func (c *Client) Forecast(ctx context.Context, city string) ([]models.ForecastEntry, error) {
	var resp forecastResponse
	if err := c.get(ctx, endpointForecast, city, &resp); err != nil {
		return nil, err
	}
	entries := make([]models.ForecastEntry, 0, len(resp.List))
	for _, item := range resp.List {
		entries = append(entries, models.ForecastEntry{
			Time:        time.Unix(item.Dt, 0),
			TempC:       item.Main.Temp,
			Condition:   item.Weather[0].Main,
			Description: item.Weather[0].Description,
		})
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, endpoint, city string, out any) (err error) {
	requestID := uuid.NewString()
	ctx, span := otel.Tracer("weather-app/owm").Start(ctx, "owm."+endpoint)
	span.SetAttributes(
		attribute.String("owm.endpoint", endpoint),
		attribute.String("owm.city", city),
		attribute.String("request_id", requestID),
	)
	start := time.Now()
	outcome := observability.OutcomeOK
	defer func() {
		observability.ObserveUpstream(endpoint, outcome, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	u := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		outcome = observability.OutcomeTransportError
		return fmt.Errorf("creating %s request: %w", endpoint, err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	slog.Debug("owm request", "endpoint", endpoint, "city", city, "request_id", requestID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = observability.OutcomeTransportError
		return fmt.Errorf("fetching %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		outcome = observability.OutcomeTransportError
		return fmt.Errorf("reading %s body: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = observability.OutcomeStatusError
		serr := &StatusError{Status: resp.StatusCode, Body: upstreamMessage(body)}
		if IsAuthFailure(serr) {
			slog.Warn("owm rejected credentials, check OPENWEATHER_API_KEY", "endpoint", endpoint, "status", resp.StatusCode, "request_id", requestID)
		} else {
			slog.Info("owm non-success status", "endpoint", endpoint, "city", city, "status", resp.StatusCode, "request_id", requestID)
		}
		return serr
	}

	if err := decode(endpoint, body, out); err != nil {
		outcome = observability.OutcomeMalformed
		slog.Warn("owm malformed response", "endpoint", endpoint, "city", city, "request_id", requestID, "error", err)
		return err
	}
	return nil
}

// decode validates body against the endpoint schema before unmarshalling
// into out, so that missing fields surface as ErrMalformedResponse instead
// of zero values.
func decode(endpoint string, body []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	schema, err := schemaFor(endpoint)
	if err != nil {
		return err
	}
	if err := schema.Validate(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// upstreamMessage extracts the "message" field OpenWeatherMap puts in error
// bodies, falling back to the trimmed body.
func upstreamMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
