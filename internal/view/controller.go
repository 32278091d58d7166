package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rishi-o2/weather-app/internal/models"
	"github.com/rishi-o2/weather-app/internal/observability"
)

// User-facing error messages. Only one is shown at a time.
const (
	MsgEmptyQuery          = "Please enter a city"
	MsgCityNotFound        = "City not found"
	MsgForecastUnavailable = "Forecast data not available"
)

var (
	ErrEmptyQuery                = errors.New("empty query")
	ErrCurrentWeatherUnavailable = errors.New("current weather unavailable")
	ErrForecastUnavailable       = errors.New("forecast unavailable")
)

// DateLayout renders forecast timestamps as e.g. "Fri, Jan 5".
const DateLayout = "Mon, Jan 2"

type DisplayMode int

const (
	ModeChart DisplayMode = iota
	ModeGrid
)

func (m DisplayMode) String() string {
	if m == ModeGrid {
		return "grid"
	}
	return "chart"
}

func (m DisplayMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *DisplayMode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "chart":
		*m = ModeChart
	case "grid":
		*m = ModeGrid
	default:
		return fmt.Errorf("unknown display mode %q", b)
	}
	return nil
}

// Fetcher is the upstream weather source. *owm.Client and *owm.Fixture
// implement it.
type Fetcher interface {
	Current(ctx context.Context, city string) (models.CurrentWeather, error)
	Forecast(ctx context.Context, city string) ([]models.ForecastEntry, error)
}

// State is a point-in-time copy of the controller fields.
type State struct {
	Query    string                 `json:"query"`
	Current  *models.CurrentWeather `json:"current,omitempty"`
	Forecast []models.ForecastEntry `json:"forecast"`
	Error    string                 `json:"error,omitempty"`
	Mode     DisplayMode            `json:"mode"`
}

type Point struct {
	Label string  `json:"name"`
	TempC float64 `json:"temperature"`
}

// Controller owns the view state. Fetches run outside the controller as
// Tasks; their Results are committed with Apply in completion order.
type Controller struct {
	fetcher      Fetcher
	logger       *slog.Logger
	loc          *time.Location
	discardStale bool
	onChange     func(event string, s State)

	mu       sync.RWMutex
	gen      uint64
	query    string
	current  *models.CurrentWeather
	forecast []models.ForecastEntry
	errMsg   string
	mode     DisplayMode
}

type Option func(*Controller)

// WithLocation sets the time zone used for forecast dates. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithStaleDiscard controls whether results issued for an older query are
// dropped. When false, a slow response may overwrite state for a newer query.
func WithStaleDiscard(discard bool) Option {
	return func(c *Controller) { c.discardStale = discard }
}

// WithOnChange registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that caused the change, after the lock is released.
func WithOnChange(fn func(event string, s State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

func NewController(f Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:      f,
		logger:       slog.Default(),
		loc:          time.Local,
		discardStale: true,
		mode:         ModeChart,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Location() *time.Location { return c.loc }

// UpdateQuery replaces the query and clears any results shown for the
// previous text. It runs on every keystroke.
func (c *Controller) UpdateQuery(text string) {
	c.mu.Lock()
	c.query = text
	c.gen++
	c.current = nil
	c.forecast = nil
	c.unlockAndNotify("query")
}

// Search validates the query and returns the two fetch tasks for it. An
// empty query sets the error message and returns ErrEmptyQuery with no tasks.
func (c *Controller) Search() ([]Task, error) {
	c.mu.Lock()
	query, gen := c.query, c.gen
	if strings.TrimSpace(query) == "" {
		c.errMsg = MsgEmptyQuery
		c.unlockAndNotify("error")
		observability.CountViewEvent("empty_query")
		return nil, ErrEmptyQuery
	}
	c.mu.Unlock()

	observability.CountViewEvent("search")
	c.logger.Debug("search", "city", query)
	return []Task{c.fetchCurrent(query, gen), c.fetchForecast(query, gen)}, nil
}

// FetchCurrent returns a task fetching current conditions for city, tagged
// with the current query generation.
func (c *Controller) FetchCurrent(city string) Task {
	return c.fetchCurrent(city, c.generation())
}

func (c *Controller) FetchForecast(city string) Task {
	return c.fetchForecast(city, c.generation())
}

func (c *Controller) fetchCurrent(city string, gen uint64) Task {
	return func(ctx context.Context) Result {
		w, err := c.fetcher.Current(ctx, city)
		if err != nil {
			return &CurrentResult{City: city, Err: fmt.Errorf("%w: %w", ErrCurrentWeatherUnavailable, err), gen: gen}
		}
		return &CurrentResult{City: city, Weather: w, gen: gen}
	}
}

func (c *Controller) fetchForecast(city string, gen uint64) Task {
	return func(ctx context.Context) Result {
		entries, err := c.fetcher.Forecast(ctx, city)
		if err != nil {
			return &ForecastResult{City: city, Err: fmt.Errorf("%w: %w", ErrForecastUnavailable, err), gen: gen}
		}
		return &ForecastResult{City: city, Entries: entries, gen: gen}
	}
}

// Apply commits a task result. Both result kinds write the shared error
// slot, so whichever completes last decides the message.
func (c *Controller) Apply(r Result) {
	c.mu.Lock()
	if c.discardStale && r.generation() != c.gen {
		c.logger.Debug("discarding stale result", "city", r.city(), "query", c.query)
		c.mu.Unlock()
		observability.CountViewEvent("stale_discarded")
		return
	}
	r.commit(c)
	c.unlockAndNotify(r.event())
}

func (c *Controller) ToggleDisplay() {
	c.mu.Lock()
	if c.mode == ModeChart {
		c.mode = ModeGrid
	} else {
		c.mode = ModeChart
	}
	c.unlockAndNotify("mode")
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot()
}

// unlockAndNotify releases the write lock and reports the new state.
func (c *Controller) unlockAndNotify(event string) {
	if c.onChange == nil {
		c.mu.Unlock()
		return
	}
	s := c.snapshot()
	c.mu.Unlock()
	c.onChange(event, s)
}

func (c *Controller) snapshot() State {
	s := State{
		Query: c.query,
		Error: c.errMsg,
		Mode:  c.mode,
	}
	if c.current != nil {
		w := *c.current
		s.Current = &w
	}
	s.Forecast = append([]models.ForecastEntry{}, c.forecast...)
	return s
}

// ChartSeries derives the (date, temperature) series from the current forecast.
func (c *Controller) ChartSeries() []Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Series(c.forecast, c.loc)
}

func Series(entries []models.ForecastEntry, loc *time.Location) []Point {
	points := make([]Point, 0, len(entries))
	for _, e := range entries {
		points = append(points, Point{Label: FormatDate(e.Time, loc), TempC: e.TempC})
	}
	return points
}

func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

func (c *Controller) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}
