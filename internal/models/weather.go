package models

import "time"

// WeatherData is the current-conditions card for one city.
type WeatherData struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Country     string    `json:"country"`
	Temp        float64   `json:"temp"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	FeelsLike   float64   `json:"feelsLike"`
	Pressure    float64   `json:"pressure"`
	Visibility  float64   `json:"visibility"` // meters
	UVIndex     float64   `json:"uvIndex"`
	Timestamp   time.Time `json:"timestamp"`
}

// TempRange holds the day/night and min/max temperatures of one forecast point.
type TempRange struct {
	Day   float64 `json:"day"`
	Night float64 `json:"night"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Condition is a single weather condition as reported by the provider.
type Condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// ForecastData is one forecast point. Pop is the probability of precipitation in [0, 1].
type ForecastData struct {
	DT        int64       `json:"dt"`
	Temp      TempRange   `json:"temp"`
	Weather   []Condition `json:"weather"`
	Humidity  float64     `json:"humidity"`
	WindSpeed float64     `json:"windSpeed"`
	Pop       float64     `json:"pop"`
}

// HistoricalData summarizes one past day.
type HistoricalData struct {
	Date      string  `json:"date"` // YYYY-MM-DD
	MaxTemp   float64 `json:"maxTemp"`
	MinTemp   float64 `json:"minTemp"`
	AvgTemp   float64 `json:"avgTemp"`
	Condition string  `json:"condition"`
	Icon      string  `json:"icon"`
}

type AstronomyData struct {
	Sunrise          string  `json:"sunrise"`
	Sunset           string  `json:"sunset"`
	Moonrise         string  `json:"moonrise"`
	Moonset          string  `json:"moonset"`
	MoonPhase        string  `json:"moonPhase"`
	MoonIllumination float64 `json:"moonIllumination"`
}

// Report is everything the weather page shows for a city.
type Report struct {
	City       string           `json:"city"`
	Current    WeatherData      `json:"current"`
	Forecast   []ForecastData   `json:"forecast"`
	Historical []HistoricalData `json:"historical"`
	Astronomy  *AstronomyData   `json:"astronomy,omitempty"`
	FetchedAt  time.Time        `json:"fetchedAt"`
	Stale      bool             `json:"stale,omitempty"` // Indicates data served from stale cache
}
