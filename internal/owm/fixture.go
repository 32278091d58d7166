package owm

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rishi-o2/weather-app/internal/models"
)

// Fixture serves stable sample data without network access. It is used in
// demo mode, when no API key is available.
type Fixture struct {
	now func() time.Time
}

func NewFixture() *Fixture {
	return &Fixture{now: time.Now}
}

type fixtureCity struct {
	models.CurrentWeather
	description string
}

var fixtureCities = []fixtureCity{
	{models.CurrentWeather{Name: "Budapest", Country: "HU", TempC: 22, Humidity: 48, WindSpeed: 2.6, Condition: "Clear"}, "clear sky"},
	{models.CurrentWeather{Name: "London", Country: "GB", TempC: 14.2, Humidity: 81, WindSpeed: 5.1, Condition: "Drizzle"}, "light intensity drizzle"},
	{models.CurrentWeather{Name: "New York", Country: "US", TempC: 18.4, Humidity: 63, WindSpeed: 4.3, Condition: "Clouds"}, "broken clouds"},
	{models.CurrentWeather{Name: "Tokyo", Country: "JP", TempC: 25.1, Humidity: 70, WindSpeed: 3.0, Condition: "Rain"}, "light rain"},
	{models.CurrentWeather{Name: "Paris", Country: "FR", TempC: 17.8, Humidity: 66, WindSpeed: 3.6, Condition: "Clouds"}, "scattered clouds"},
	{models.CurrentWeather{Name: "Berlin", Country: "DE", TempC: 15.3, Humidity: 72, WindSpeed: 4.9, Condition: "Rain"}, "moderate rain"},
	{models.CurrentWeather{Name: "Sydney", Country: "AU", TempC: 20.6, Humidity: 58, WindSpeed: 6.2, Condition: "Clear"}, "clear sky"},
	{models.CurrentWeather{Name: "Oslo", Country: "NO", TempC: -3.5, Humidity: 86, WindSpeed: 2.1, Condition: "Snow"}, "light snow"},
	{models.CurrentWeather{Name: "Lyon", Country: "FR", TempC: 21.5, Humidity: 60, WindSpeed: 3.2, Condition: "Rain"}, "light rain"},
	{models.CurrentWeather{Name: "Vienna", Country: "AT", TempC: 19.9, Humidity: 55, WindSpeed: 3.8, Condition: "Thunderstorm"}, "thunderstorm with rain"},
}

var fixtureConditions = []struct{ main, description string }{
	{"Clouds", "overcast clouds"},
	{"Clear", "clear sky"},
	{"Rain", "light rain"},
	{"Clouds", "few clouds"},
	{"Drizzle", "light intensity drizzle"},
	{"Snow", "light snow"},
	{"Thunderstorm", "thunderstorm"},
}

func (f *Fixture) lookup(city string) (fixtureCity, bool) {
	q := strings.ToLower(strings.TrimSpace(city))
	for _, c := range fixtureCities {
		if strings.ToLower(c.Name) == q {
			return c, true
		}
	}
	return fixtureCity{}, false
}

func (f *Fixture) Current(ctx context.Context, city string) (models.CurrentWeather, error) {
	if err := ctx.Err(); err != nil {
		return models.CurrentWeather{}, err
	}
	c, ok := f.lookup(city)
	if !ok {
		return models.CurrentWeather{}, &StatusError{Status: http.StatusNotFound, Body: "city not found"}
	}
	return c.CurrentWeather, nil
}

// Forecast returns 40 entries in 3-hour steps, like the upstream free tier.
func (f *Fixture) Forecast(ctx context.Context, city string) ([]models.ForecastEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := f.lookup(city)
	if !ok {
		return nil, &StatusError{Status: http.StatusNotFound, Body: "city not found"}
	}

	start := f.now().UTC().Truncate(3 * time.Hour).Add(3 * time.Hour)
	entries := make([]models.ForecastEntry, 0, 40)
	for i := 0; i < 40; i++ {
		t := start.Add(time.Duration(i) * 3 * time.Hour)
		// Daily swing of +/-4 degrees peaking mid-afternoon UTC.
		swing := 4 * math.Sin(2*math.Pi*float64(t.Hour()-9)/24)
		cond := fixtureConditions[(i/8)%len(fixtureConditions)]
		if i < 8 {
			cond.main, cond.description = c.Condition, c.description
		}
		entries = append(entries, models.ForecastEntry{
			Time:        t,
			TempC:       math.Round((c.TempC+swing)*10) / 10,
			Condition:   cond.main,
			Description: cond.description,
		})
	}
	return entries, nil
}
