package view

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rishi-o2/weather-app/internal/models"
)

type fakeFetcher struct {
	calls       atomic.Int32
	current     models.CurrentWeather
	currentErr  error
	forecast    []models.ForecastEntry
	forecastErr error
}

func (f *fakeFetcher) Current(ctx context.Context, city string) (models.CurrentWeather, error) {
	f.calls.Add(1)
	return f.current, f.currentErr
}

func (f *fakeFetcher) Forecast(ctx context.Context, city string) ([]models.ForecastEntry, error) {
	f.calls.Add(1)
	return f.forecast, f.forecastErr
}

var lyon = models.CurrentWeather{Name: "Lyon", Country: "FR", TempC: 21.5, Humidity: 60, WindSpeed: 3.2, Condition: "Rain"}

func twoDays() []models.ForecastEntry {
	return []models.ForecastEntry{
		{Time: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), TempC: 10, Condition: "Clouds", Description: "overcast clouds"},
		{Time: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), TempC: 12, Condition: "Rain", Description: "light rain"},
	}
}

func runAll(c *Controller, tasks []Task) {
	for _, task := range tasks {
		c.Apply(task(context.Background()))
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		f := &fakeFetcher{current: lyon}
		c := NewController(f)
		c.UpdateQuery(q)

		tasks, err := c.Search()
		if !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("query %q: expected ErrEmptyQuery, got %v", q, err)
		}
		if len(tasks) != 0 {
			t.Errorf("query %q: expected no tasks, got %d", q, len(tasks))
		}
		if got := c.State().Error; got != MsgEmptyQuery {
			t.Errorf("query %q: error = %q", q, got)
		}
		if n := f.calls.Load(); n != 0 {
			t.Errorf("query %q: fetcher called %d times", q, n)
		}
	}
}

func TestSearch_Success(t *testing.T) {
	f := &fakeFetcher{current: lyon, forecast: twoDays()}
	c := NewController(f)
	c.UpdateQuery("Lyon")

	tasks, err := c.Search()
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	runAll(c, tasks)

	s := c.State()
	if s.Current == nil || *s.Current != lyon {
		t.Fatalf("current = %+v", s.Current)
	}
	if len(s.Forecast) != 2 {
		t.Fatalf("expected 2 forecast entries, got %d", len(s.Forecast))
	}
	if s.Error != "" {
		t.Errorf("error = %q", s.Error)
	}
}

func TestSearch_ClearsPreviousError(t *testing.T) {
	f := &fakeFetcher{current: lyon, forecast: twoDays()}
	c := NewController(f)
	if _, err := c.Search(); err == nil {
		t.Fatal("expected validation error")
	}
	c.UpdateQuery("Lyon")
	tasks, _ := c.Search()
	runAll(c, tasks)

	if got := c.State().Error; got != "" {
		t.Errorf("error = %q, want cleared", got)
	}
}

func TestUpdateQuery_ClearsResults(t *testing.T) {
	f := &fakeFetcher{current: lyon, forecast: twoDays()}
	c := NewController(f)
	c.UpdateQuery("Lyon")
	tasks, _ := c.Search()
	runAll(c, tasks)

	c.UpdateQuery("Lyons")
	s := c.State()
	if s.Current != nil {
		t.Errorf("current not cleared: %+v", s.Current)
	}
	if len(s.Forecast) != 0 {
		t.Errorf("forecast not cleared: %d entries", len(s.Forecast))
	}
	if s.Query != "Lyons" {
		t.Errorf("query = %q", s.Query)
	}
}

func TestUpdateQuery_WhileFetchOutstanding(t *testing.T) {
	f := &fakeFetcher{current: lyon, forecast: twoDays()}
	c := NewController(f)
	c.UpdateQuery("Lyon")
	tasks, _ := c.Search()

	// Results complete after the user kept typing.
	results := []Result{tasks[0](context.Background()), tasks[1](context.Background())}
	c.UpdateQuery("Lyon, FR")
	for _, r := range results {
		c.Apply(r)
	}

	s := c.State()
	if s.Current != nil || len(s.Forecast) != 0 {
		t.Fatalf("stale results applied: %+v", s)
	}
}

func TestApply_StaleKeptWhenDiscardDisabled(t *testing.T) {
	f := &fakeFetcher{current: lyon, forecast: twoDays()}
	c := NewController(f, WithStaleDiscard(false))
	c.UpdateQuery("Lyon")
	tasks, _ := c.Search()
	r := tasks[0](context.Background())

	c.UpdateQuery("Paris")
	c.Apply(r)

	if s := c.State(); s.Current == nil || s.Current.Name != "Lyon" {
		t.Fatalf("expected late Lyon result to overwrite, got %+v", s.Current)
	}
}

func TestFetchCurrent_Failure(t *testing.T) {
	upstream := errors.New("API returned status 404")
	f := &fakeFetcher{currentErr: upstream}
	c := NewController(f)
	c.UpdateQuery("Atlantis")

	r := c.FetchCurrent("Atlantis")(context.Background())
	cr, ok := r.(*CurrentResult)
	if !ok {
		t.Fatalf("unexpected result type %T", r)
	}
	if !errors.Is(cr.Err, ErrCurrentWeatherUnavailable) || !errors.Is(cr.Err, upstream) {
		t.Errorf("Err = %v", cr.Err)
	}
	c.Apply(r)

	s := c.State()
	if s.Error != MsgCityNotFound {
		t.Errorf("error = %q", s.Error)
	}
	if s.Current != nil {
		t.Errorf("current = %+v, want absent", s.Current)
	}
}

func TestFetchCurrent_FailureReplacesPriorResult(t *testing.T) {
	f := &fakeFetcher{current: lyon}
	c := NewController(f)
	c.UpdateQuery("Lyon")
	c.Apply(c.FetchCurrent("Lyon")(context.Background()))

	f.currentErr = errors.New("connection refused")
	c.Apply(c.FetchCurrent("Lyon")(context.Background()))

	s := c.State()
	if s.Current != nil || s.Error != MsgCityNotFound {
		t.Fatalf("state = %+v", s)
	}
}

func TestFetchForecast_Failure(t *testing.T) {
	f := &fakeFetcher{forecast: twoDays()}
	c := NewController(f)
	c.UpdateQuery("Lyon")
	c.Apply(c.FetchForecast("Lyon")(context.Background()))

	f.forecastErr = errors.New("bad gateway")
	c.Apply(c.FetchForecast("Lyon")(context.Background()))

	s := c.State()
	if s.Error != MsgForecastUnavailable {
		t.Errorf("error = %q", s.Error)
	}
	if len(s.Forecast) != 0 {
		t.Errorf("forecast = %d entries, want empty", len(s.Forecast))
	}
}

func TestApply_LastWriterWinsErrorSlot(t *testing.T) {
	f := &fakeFetcher{current: lyon, forecastErr: errors.New("timeout")}
	c := NewController(f)
	c.UpdateQuery("Lyon")
	tasks, _ := c.Search()
	current := tasks[0](context.Background())
	forecast := tasks[1](context.Background())

	c.Apply(forecast)
	if got := c.State().Error; got != MsgForecastUnavailable {
		t.Fatalf("error = %q", got)
	}
	// A later successful current-weather result clears the forecast error.
	c.Apply(current)
	if got := c.State().Error; got != "" {
		t.Fatalf("error = %q, want cleared", got)
	}
}

func TestChartSeries(t *testing.T) {
	f := &fakeFetcher{forecast: twoDays()}
	c := NewController(f, WithLocation(time.UTC))
	c.UpdateQuery("Lyon")
	c.Apply(c.FetchForecast("Lyon")(context.Background()))

	want := []Point{{Label: "Fri, Jan 5", TempC: 10}, {Label: "Sat, Jan 6", TempC: 12}}
	if got := c.ChartSeries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ChartSeries() = %v, want %v", got, want)
	}
}

func TestChartSeries_LocalTime(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	got := Series(twoDays(), ny)
	if got[0].Label != "Thu, Jan 4" {
		t.Errorf("label = %q, want Thu, Jan 4", got[0].Label)
	}
}

func TestChartSeries_Empty(t *testing.T) {
	c := NewController(&fakeFetcher{})
	if got := c.ChartSeries(); len(got) != 0 {
		t.Fatalf("expected empty series, got %v", got)
	}
}

func TestToggleDisplay(t *testing.T) {
	f := &fakeFetcher{current: lyon, forecast: twoDays()}
	c := NewController(f)
	c.UpdateQuery("Lyon")
	tasks, _ := c.Search()
	runAll(c, tasks)
	f.forecastErr = errors.New("down")
	c.Apply(c.FetchForecast("Lyon")(context.Background()))
	c.Apply(c.FetchCurrent("Lyon")(context.Background()))
	before := c.State()

	if before.Mode != ModeChart {
		t.Fatalf("default mode = %v", before.Mode)
	}
	c.ToggleDisplay()
	if m := c.State().Mode; m != ModeGrid {
		t.Fatalf("mode after toggle = %v", m)
	}
	c.ToggleDisplay()

	after := c.State()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("double toggle changed state:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestState_IsCopy(t *testing.T) {
	f := &fakeFetcher{current: lyon, forecast: twoDays()}
	c := NewController(f)
	c.UpdateQuery("Lyon")
	tasks, _ := c.Search()
	runAll(c, tasks)

	s := c.State()
	s.Current.Name = "Mutated"
	s.Forecast[0].TempC = 99

	again := c.State()
	if again.Current.Name != "Lyon" || again.Forecast[0].TempC != 10 {
		t.Fatalf("State() leaked internal storage: %+v", again)
	}
}

func TestWeatherIcon(t *testing.T) {
	tests := map[string]Icon{
		"Clouds":       IconCloud,
		"Clear":        IconSunny,
		"Snow":         IconSnow,
		"Rain":         IconRain,
		"Drizzle":      IconDrizzle,
		"Thunderstorm": IconThunderstorm,
	}
	for label, want := range tests {
		if got := WeatherIcon(label); got != want {
			t.Errorf("WeatherIcon(%q) = %q, want %q", label, got, want)
		}
	}

	for _, label := range []string{"", "Mist", "Fog", "rain", "CLEAR", "Tornado", "Smoke"} {
		if got := WeatherIcon(label); got != WeatherIcon("Clouds") {
			t.Errorf("WeatherIcon(%q) = %q, want cloud fallback", label, got)
		}
	}
}

func TestOnChange(t *testing.T) {
	var events []string
	var last State
	f := &fakeFetcher{current: lyon, forecast: twoDays()}
	c := NewController(f, WithOnChange(func(event string, s State) {
		events = append(events, event)
		last = s
	}))

	if _, err := c.Search(); err == nil {
		t.Fatal("expected validation error")
	}
	c.UpdateQuery("Lyon")
	tasks, _ := c.Search()
	runAll(c, tasks)
	c.ToggleDisplay()

	want := []string{"error", "query", "current", "forecast", "mode"}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	if last.Mode != ModeGrid || last.Current == nil || len(last.Forecast) != 2 {
		t.Fatalf("last snapshot = %+v", last)
	}

	// Stale results are not reported.
	tasks, _ = c.Search()
	c.UpdateQuery("Paris")
	runAll(c, tasks)
	if got := events[len(events)-1]; got != "query" {
		t.Fatalf("last event = %q, want query", got)
	}
}
