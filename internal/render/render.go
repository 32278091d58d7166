// Package render turns view state into terminal text: the current
// conditions card, the temperature chart and the forecast grid.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/rishi-o2/weather-app/internal/models"
	"github.com/rishi-o2/weather-app/internal/view"
)

const (
	TitleChart = "Temperature Graph"
	TitleGrid  = "7-Day Forecast"

	ToggleToGrid  = "Show 7-Day Forecast"
	ToggleToChart = "Show Temperature Graph"
)

var gridCardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1).
	MarginRight(1).
	Width(28)

type Options struct {
	// Glyphs renders icons as symbols; otherwise as [identifier].
	Glyphs      bool
	ChartHeight int
	ChartWidth  int
	GridColumns int
}

type Renderer struct {
	opts Options
}

func New(opts Options) *Renderer {
	if opts.ChartHeight <= 0 {
		opts.ChartHeight = 10
	}
	if opts.GridColumns <= 0 {
		opts.GridColumns = 3
	}
	return &Renderer{opts: opts}
}

// FormatTemp prints a value with the shortest exact representation, so 21.5
// stays "21.5" and 10 stays "10".
func FormatTemp(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (r *Renderer) Icon(i view.Icon) string {
	if r.opts.Glyphs {
		return i.Glyph()
	}
	return "[" + string(i) + "]"
}

func (r *Renderer) Current(w models.CurrentWeather) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s\n", w.Name, w.Country)
	fmt.Fprintf(&b, "Temperature: %s°C\n", FormatTemp(w.TempC))
	fmt.Fprintf(&b, "Humidity: %s%%\n", FormatTemp(w.Humidity))
	fmt.Fprintf(&b, "Wind Speed: %s m/s\n", FormatTemp(w.WindSpeed))
	fmt.Fprintf(&b, "Weather: %s %s\n", r.Icon(view.WeatherIcon(w.Condition)), w.Condition)
	return b.String()
}

// Forecast renders the forecast section for the given mode: title, toggle
// hint and either the chart or the grid. It returns "" when there is
// nothing to show.
func (r *Renderer) Forecast(mode view.DisplayMode, entries []models.ForecastEntry, loc *time.Location) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	if mode == view.ModeChart {
		fmt.Fprintf(&b, "%s\n[%s]\n\n", TitleChart, ToggleToGrid)
		b.WriteString(r.Chart(view.Series(entries, loc)))
	} else {
		fmt.Fprintf(&b, "%s\n[%s]\n\n", TitleGrid, ToggleToChart)
		b.WriteString(r.Grid(entries, loc))
	}
	return b.String()
}

// Chart plots the series as an ASCII line chart with the first and last
// date labels under the x axis.
func (r *Renderer) Chart(points []view.Point) string {
	if len(points) == 0 {
		return ""
	}
	temps := make([]float64, len(points))
	for i, p := range points {
		temps[i] = p.TempC
	}

	opts := []asciigraph.Option{
		asciigraph.Height(r.opts.ChartHeight),
		asciigraph.Precision(1),
		asciigraph.Caption("temperature (°C)"),
	}
	if r.opts.ChartWidth > 0 {
		opts = append(opts, asciigraph.Width(r.opts.ChartWidth))
	}
	graph := asciigraph.Plot(temps, opts...)

	first, last := points[0].Label, points[len(points)-1].Label
	axis := first
	if len(points) > 1 && last != first {
		width := maxLineWidth(graph)
		gap := width - len([]rune(first)) - len([]rune(last))
		if gap < 3 {
			gap = 3
		}
		axis = first + strings.Repeat(" ", gap) + last
	}
	return graph + "\n" + axis + "\n"
}

// Grid lays the entries out as cards, GridColumns per row.
func (r *Renderer) Grid(entries []models.ForecastEntry, loc *time.Location) string {
	cols := r.opts.GridColumns
	rows := make([]string, 0, (len(entries)+cols-1)/cols)
	for start := 0; start < len(entries); start += cols {
		end := min(start+cols, len(entries))

		cards := make([]string, 0, end-start)
		for _, e := range entries[start:end] {
			cards = append(cards, gridCardStyle.Render(
				fmt.Sprintf("%s - %s°C\n%s %s",
					view.FormatDate(e.Time, loc), FormatTemp(e.TempC),
					r.Icon(view.WeatherIcon(e.Condition)), e.Description),
			))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}

func maxLineWidth(s string) int {
	width := 0
	for _, line := range strings.Split(s, "\n") {
		if n := len([]rune(line)); n > width {
			width = n
		}
	}
	return width
}
