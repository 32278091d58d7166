package view

import (
	"context"

	"github.com/rishi-o2/weather-app/internal/models"
	"github.com/rishi-o2/weather-app/internal/observability"
)

// Task performs one upstream fetch. It is safe to run on any goroutine; the
// Result it returns must be passed to Controller.Apply.
type Task func(ctx context.Context) Result

type Result interface {
	generation() uint64
	city() string
	event() string
	// commit runs with the controller lock held.
	commit(c *Controller)
}

type CurrentResult struct {
	City    string
	Weather models.CurrentWeather
	Err     error

	gen uint64
}

func (r *CurrentResult) generation() uint64 { return r.gen }
func (r *CurrentResult) city() string       { return r.City }
func (r *CurrentResult) event() string      { return "current" }

func (r *CurrentResult) commit(c *Controller) {
	if r.Err != nil {
		observability.CountViewEvent("current_failed")
		c.logger.Info("current weather unavailable", "city", r.City, "error", r.Err)
		c.errMsg = MsgCityNotFound
		c.current = nil
		return
	}
	observability.CountViewEvent("current_applied")
	w := r.Weather
	c.current = &w
	c.errMsg = ""
}

type ForecastResult struct {
	City    string
	Entries []models.ForecastEntry
	Err     error

	gen uint64
}

func (r *ForecastResult) generation() uint64 { return r.gen }
func (r *ForecastResult) city() string       { return r.City }
func (r *ForecastResult) event() string      { return "forecast" }

func (r *ForecastResult) commit(c *Controller) {
	if r.Err != nil {
		observability.CountViewEvent("forecast_failed")
		c.logger.Info("forecast unavailable", "city", r.City, "error", r.Err)
		c.errMsg = MsgForecastUnavailable
		c.forecast = nil
		return
	}
	observability.CountViewEvent("forecast_applied")
	c.forecast = r.Entries
	c.errMsg = ""
}
