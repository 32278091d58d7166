package models

import "time"

type CurrentWeather struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	TempC     float64 `json:"temp_c"`
	Humidity  float64 `json:"humidity"`
	WindSpeed float64 `json:"wind_speed"`
	Condition string  `json:"condition"`
}

// ForecastEntry is one sample of the 3-hourly forecast, kept in upstream order.
type ForecastEntry struct {
	Time        time.Time `json:"time"`
	TempC       float64   `json:"temp_c"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
}
