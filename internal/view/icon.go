package view

// Icon identifies one of the six condition icons.
type Icon string

const (
	IconCloud        Icon = "cloud"
	IconSunny        Icon = "wb_sunny"
	IconSnow         Icon = "ac_unit"
	IconRain         Icon = "opacity"
	IconDrizzle      Icon = "grain"
	IconThunderstorm Icon = "thunderstorm"
)

// WeatherIcon maps an upstream condition label to its icon. Unknown labels
// get the cloud icon.
func WeatherIcon(condition string) Icon {
	switch condition {
	case "Clouds":
		return IconCloud
	case "Clear":
		return IconSunny
	case "Snow":
		return IconSnow
	case "Rain":
		return IconRain
	case "Drizzle":
		return IconDrizzle
	case "Thunderstorm":
		return IconThunderstorm
	default:
		return IconCloud
	}
}

func (i Icon) Glyph() string {
	switch i {
	case IconSunny:
		return "☀"
	case IconSnow:
		return "❄"
	case IconRain:
		return "💧"
	case IconDrizzle:
		return "🌦"
	case IconThunderstorm:
		return "⛈"
	default:
		return "☁"
	}
}
