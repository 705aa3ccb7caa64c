// Package pages renders the server-side HTML pages from embedded templates.
package pages

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"sort"
	"time"

	"github.com/kjstillabower/weather-forecast-app/internal/format"
	"github.com/kjstillabower/weather-forecast-app/internal/models"
	"github.com/kjstillabower/weather-forecast-app/internal/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names accepted by Render.
const (
	Home    = "home"
	Weather = "weather"
	About   = "about"
	Contact = "contact"
	Privacy = "privacy"
	Terms   = "terms"
	Error   = "error"
)

var pageNames = []string{Home, Weather, About, Contact, Privacy, Terms, Error}

// HourlyPoints is how many forecast points the hourly tab shows (24 hours).
const HourlyPoints = 8

// Renderer holds one parsed template set per page, each sharing the layout.
type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes page into w. Output is buffered so a template error writes nothing.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

var funcs = template.FuncMap{
	"temp":       func(v float64) string { return format.Temperature(v, format.Celsius) },
	"wind":       func(v float64) string { return format.WindSpeed(v, format.KilometersPerHour) },
	"pressure":   format.Pressure,
	"humidity":   format.Humidity,
	"visibility": format.Visibility,
	"date":       format.Date,
	"time":       format.Time,
	"emoji":      format.WeatherEmoji,
	"uv":         format.UVIndex,
	"moon":       format.MoonPhase,
	"pop":        format.PrecipitationPop,
	"cityName":   format.CityName,
	"pathEscape": url.PathEscape,
	"round":      format.Round,
	"condition":  condition,
}

// condition returns the main condition and icon of a forecast point.
func condition(f models.ForecastData) models.Condition {
	if len(f.Weather) == 0 {
		return models.Condition{}
	}
	return f.Weather[0]
}

// Layout is embedded by every page for the shared header and footer.
type Layout struct {
	Title     string
	RequestID string
	Year      int
}

// TrendingCity is a home-page teaser card.
type TrendingCity struct {
	Name      string
	Temp      float64
	Condition string
}

// TrendingCities are shown on the home page until real data is cached for them.
var TrendingCities = []TrendingCity{
	{Name: "New York", Temp: 22, Condition: "Sunny"},
	{Name: "London", Temp: 18, Condition: "Cloudy"},
	{Name: "Tokyo", Temp: 28, Condition: "Clear"},
	{Name: "Sydney", Temp: 15, Condition: "Rainy"},
	{Name: "Dubai", Temp: 35, Condition: "Hot"},
	{Name: "Paris", Temp: 20, Condition: "Partly Cloudy"},
}

type HomeData struct {
	Layout
	Trending  []TrendingCity
	Recent    []string
	Favorites []string
	Query     string
	Notice    string
}

// DailySummary folds one calendar day of forecast points.
type DailySummary struct {
	DT        int64
	Min       float64
	Max       float64
	Condition string
	Icon      string
	Pop       float64
}

type WeatherData struct {
	Layout
	Report     models.Report
	IsFavorite bool
	Hourly     []models.ForecastData
	Daily      []DailySummary
}

// NewWeatherData builds the weather page model from a report.
func NewWeatherData(layout Layout, report models.Report, favorite bool) WeatherData {
	hourly := report.Forecast
	if len(hourly) > HourlyPoints {
		hourly = hourly[:HourlyPoints]
	}
	return WeatherData{
		Layout:     layout,
		Report:     report,
		IsFavorite: favorite,
		Hourly:     hourly,
		Daily:      Daily(report.Forecast),
	}
}

// Daily groups forecast points by UTC calendar day. Each day takes the lowest
// Min, the highest Max, the highest Pop and its most frequent condition.
func Daily(points []models.ForecastData) []DailySummary {
	type acc struct {
		sum    DailySummary
		counts map[string]int
		icons  map[string]string
	}
	byDay := map[string]*acc{}
	var order []string
	for _, p := range points {
		day := time.Unix(p.DT, 0).UTC().Format(time.DateOnly)
		a, ok := byDay[day]
		if !ok {
			a = &acc{
				sum:    DailySummary{DT: p.DT, Min: p.Temp.Min, Max: p.Temp.Max, Pop: p.Pop},
				counts: map[string]int{},
				icons:  map[string]string{},
			}
			byDay[day] = a
			order = append(order, day)
		}
		a.sum.Min = min(a.sum.Min, p.Temp.Min)
		a.sum.Max = max(a.sum.Max, p.Temp.Max)
		a.sum.Pop = max(a.sum.Pop, p.Pop)
		c := condition(p)
		a.counts[c.Main]++
		if _, ok := a.icons[c.Main]; !ok {
			a.icons[c.Main] = c.Icon
		}
	}
	out := make([]DailySummary, 0, len(order))
	for _, day := range order {
		a := byDay[day]
		names := make([]string, 0, len(a.counts))
		for n := range a.counts {
			names = append(names, n)
		}
		sort.Slice(names, func(i, j int) bool {
			if a.counts[names[i]] != a.counts[names[j]] {
				return a.counts[names[i]] > a.counts[names[j]]
			}
			return names[i] < names[j]
		})
		if len(names) > 0 {
			a.sum.Condition = names[0]
			a.sum.Icon = a.icons[names[0]]
		}
		out = append(out, a.sum)
	}
	return out
}

type ContactData struct {
	Layout
	Form  validation.ContactForm
	Error string
	Sent  bool
}

type ErrorData struct {
	Layout
	Status  int
	Message string
}
