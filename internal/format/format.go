// Package format renders weather values as display strings. Every function is pure.
package format

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TempUnit selects the suffix for Temperature.
type TempUnit string

const (
	Celsius    TempUnit = "C"
	Fahrenheit TempUnit = "F"
)

// SpeedUnit selects the suffix for WindSpeed.
type SpeedUnit string

const (
	KilometersPerHour SpeedUnit = "kmh"
	MilesPerHour      SpeedUnit = "mph"
)

// Rating is a rounded value with a named band and the CSS colour class used to draw it.
type Rating struct {
	Value string `json:"value"`
	Level string `json:"level"`
	Color string `json:"color"`
}

// MoonPhaseInfo is the display form of a moon phase.
type MoonPhaseInfo struct {
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
}

// Round rounds half-way values toward positive infinity, so 2.5 -> 3 and -2.5 -> -2.
// NaN and infinities round to 0.
func Round(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f := math.Floor(v)
	if v-f >= 0.5 {
		f++
	}
	return int(f)
}

// Temperature returns e.g. "18°C". An empty unit means Celsius.
func Temperature(temp float64, unit TempUnit) string {
	if unit == "" {
		unit = Celsius
	}
	return strconv.Itoa(Round(temp)) + "°" + string(unit)
}

// WindSpeed returns e.g. "12 km/h" or "12 mph". An empty unit means km/h.
func WindSpeed(speed float64, unit SpeedUnit) string {
	suffix := "km/h"
	if unit == MilesPerHour {
		suffix = "mph"
	}
	return strconv.Itoa(Round(speed)) + " " + suffix
}

func Pressure(pressure float64) string {
	return strconv.Itoa(Round(pressure)) + " hPa"
}

func Humidity(humidity float64) string {
	return strconv.Itoa(Round(humidity)) + "%"
}

// Visibility takes meters and returns whole kilometers, e.g. 10000 -> "10 km".
func Visibility(meters float64) string {
	return strconv.Itoa(Round(meters/1000)) + " km"
}

// Date renders a unix timestamp (seconds) as "Tue, Oct 17" in UTC.
func Date(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("Mon, Jan 2")
}

// Time renders a unix timestamp (seconds) as 24-hour "15:04" in UTC.
func Time(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("15:04")
}

const (
	emojiSunny        = "\u2600\ufe0f"
	emojiPartlyCloudy = "\u26c5"
	emojiCloudy       = "\u2601\ufe0f"
	emojiRain         = "\U0001f327\ufe0f"
	emojiStorm        = "\u26c8\ufe0f"
	emojiSnow         = "\U0001f328\ufe0f"
	emojiFog          = "\U0001f32b\ufe0f"
	emojiWind         = "\U0001f4a8"
	emojiDefault      = "\U0001f324\ufe0f"
)

// WeatherEmoji picks an emoji from the condition text, falling back to the
// OpenWeatherMap icon code (e.g. "10d") when the text matches nothing.
func WeatherEmoji(condition, icon string) string {
	c := strings.ToLower(condition)
	switch {
	case strings.Contains(c, "clear"), strings.Contains(c, "sunny"):
		return emojiSunny
	case strings.Contains(c, "cloud"):
		if strings.Contains(c, "partly") {
			return emojiPartlyCloudy
		}
		return emojiCloudy
	case strings.Contains(c, "rain"), strings.Contains(c, "drizzle"):
		return emojiRain
	case strings.Contains(c, "storm"), strings.Contains(c, "thunder"):
		return emojiStorm
	case strings.Contains(c, "snow"):
		return emojiSnow
	case strings.Contains(c, "mist"), strings.Contains(c, "fog"):
		return emojiFog
	case strings.Contains(c, "wind"):
		return emojiWind
	}

	if icon == "" {
		return emojiDefault
	}
	code := icon
	if len(code) > 2 {
		code = code[:2]
	}
	switch code {
	case "01":
		return emojiSunny
	case "02":
		return emojiPartlyCloudy
	case "03", "04":
		return emojiCloudy
	case "09", "10":
		return emojiRain
	case "11":
		return emojiStorm
	case "13":
		return emojiSnow
	case "50":
		return emojiFog
	default:
		return emojiDefault
	}
}

// UVIndex rounds the index and classifies its risk.
func UVIndex(uv float64) Rating {
	r := Round(uv)
	v := strconv.Itoa(r)
	switch {
	case r <= 2:
		return Rating{Value: v, Level: "Low", Color: "text-green-400"}
	case r <= 5:
		return Rating{Value: v, Level: "Moderate", Color: "text-yellow-400"}
	case r <= 7:
		return Rating{Value: v, Level: "High", Color: "text-orange-400"}
	case r <= 10:
		return Rating{Value: v, Level: "Very High", Color: "text-red-400"}
	default:
		return Rating{Value: v, Level: "Extreme", Color: "text-purple-400"}
	}
}

// AQI classifies an air quality index. The value is shown as given, not rounded.
func AQI(aqi float64) Rating {
	v := strconv.FormatFloat(aqi, 'f', -1, 64)
	switch {
	case aqi <= 50:
		return Rating{Value: v, Level: "Good", Color: "text-green-400"}
	case aqi <= 100:
		return Rating{Value: v, Level: "Moderate", Color: "text-yellow-400"}
	case aqi <= 150:
		return Rating{Value: v, Level: "Unhealthy for Sensitive", Color: "text-orange-400"}
	case aqi <= 200:
		return Rating{Value: v, Level: "Unhealthy", Color: "text-red-400"}
	case aqi <= 300:
		return Rating{Value: v, Level: "Very Unhealthy", Color: "text-purple-400"}
	default:
		return Rating{Value: v, Level: "Hazardous", Color: "text-red-600"}
	}
}

// MoonPhase maps a provider phase name to an emoji and canonical name.
// Unknown phases keep their original text with a generic moon.
func MoonPhase(phase string) MoonPhaseInfo {
	p := strings.ToLower(phase)
	switch {
	case strings.Contains(p, "new"):
		return MoonPhaseInfo{Emoji: "\U0001f311", Description: "New Moon"}
	case strings.Contains(p, "waxing crescent"):
		return MoonPhaseInfo{Emoji: "\U0001f312", Description: "Waxing Crescent"}
	case strings.Contains(p, "first quarter"):
		return MoonPhaseInfo{Emoji: "\U0001f313", Description: "First Quarter"}
	case strings.Contains(p, "waxing gibbous"):
		return MoonPhaseInfo{Emoji: "\U0001f314", Description: "Waxing Gibbous"}
	case strings.Contains(p, "full"):
		return MoonPhaseInfo{Emoji: "\U0001f315", Description: "Full Moon"}
	case strings.Contains(p, "waning gibbous"):
		return MoonPhaseInfo{Emoji: "\U0001f316", Description: "Waning Gibbous"}
	case strings.Contains(p, "last quarter"), strings.Contains(p, "third quarter"):
		return MoonPhaseInfo{Emoji: "\U0001f317", Description: "Last Quarter"}
	case strings.Contains(p, "waning crescent"):
		return MoonPhaseInfo{Emoji: "\U0001f318", Description: "Waning Crescent"}
	}
	return MoonPhaseInfo{Emoji: "\U0001f319", Description: phase}
}

// CityName upper-cases the first letter of every space-separated word and
// lower-cases the rest: "new YORK" -> "New York". Hyphenated parts are not split.
func CityName(city string) string {
	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)
	words := strings.Split(city, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		_, size := utf8.DecodeRuneInString(w)
		words[i] = upper.String(w[:size]) + lower.String(w[size:])
	}
	return strings.Join(words, " ")
}

// PrecipitationPop renders a probability in [0, 1] as a percentage.
func PrecipitationPop(pop float64) string {
	return strconv.Itoa(Round(pop*100)) + "%"
}
