package render

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"PlantDash/internal/domain/models"
	dsvc "PlantDash/internal/domain/service"
)

const defaultChartJSURL = "https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"

// Dataset colors of the dashboard charts.
const (
	weightBorder  = "#205020"
	weightFill    = "#408040"
	averageBorder = "#ffa000"
	averageFill   = "#ffc040"
	waterBorder   = "#0030a0"
	waterFill     = "#1060c0"
)

const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script src="{{.ScriptURL}}"></script>
<style>
body { font-family: sans-serif; margin: 1em 2em; }
.status { padding: 0.5em 1em; margin-bottom: 1em; border-radius: 4px; }
.status.ok { background: #e0f0e0; color: #205020; }
.status.pending { background: #f0f0f0; color: #404040; }
.status.error { background: #fbe0e0; color: #a00000; }
.station { margin-top: 0.3em; font-size: 0.85em; }
.station span { margin-right: 1em; }
.chart { position: relative; height: 40vh; margin-bottom: 2em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div id="status" class="status {{.Status.Class}}">
<strong>{{.Status.Label}}</strong>{{if .Status.Message}}: {{.Status.Message}}{{end}}
{{- if .Status.Stale}} (showing data from {{.Status.DataAt}}){{end}}
{{- if .Status.UpdatedAt}} <small>updated {{.Status.UpdatedAt}}</small>{{end}}
{{- with .Status.Station}}
<div class="station">{{range .}}<span>{{.Name}} <b>{{.Value}}</b></span>{{end}}</div>
{{- end}}
</div>
{{if .HasData}}
<div class="chart"><canvas id="wchart"></canvas></div>
<div class="chart"><canvas id="minchart"></canvas></div>
<script>
const hline = {
  id: "hline",
  afterDatasetsDraw: function (chart, args, opts) {
    const y = chart.scales["weight-y-axis"];
    const area = chart.chartArea;
    const ctx = chart.ctx;
    (opts.lines || []).forEach(function (l) {
      const py = y.getPixelForValue(l.value);
      if (py < area.top || py > area.bottom) {
        return;
      }
      ctx.save();
      ctx.strokeStyle = l.color;
      ctx.fillStyle = l.color;
      ctx.lineWidth = 1;
      ctx.setLineDash([5, 3]);
      ctx.beginPath();
      ctx.moveTo(area.left, py);
      ctx.lineTo(area.right, py);
      ctx.stroke();
      if (l.label) {
        ctx.fillText(l.label, area.left + 4, py - 3);
      }
      ctx.restore();
    });
  }
};

const hourly = {{.Hourly}};
const minutes = {{.Minutes}};

new Chart(document.getElementById("wchart"), {
  type: "line",
  plugins: [hline],
  data: {
    labels: hourly.labels,
    datasets: [{
      label: "Plant Weight",
      yAxisID: "weight-y-axis",
      xAxisID: "hour-x-axis",
      data: hourly.weights,
      borderColor: "{{.Colors.WeightBorder}}",
      backgroundColor: "{{.Colors.WeightFill}}",
      cubicInterpolationMode: "monotone",
      order: 1
    }, {
      label: "Average Weight",
      yAxisID: "weight-y-axis",
      xAxisID: "hour-x-axis",
      data: hourly.averages,
      borderColor: "{{.Colors.AverageBorder}}",
      backgroundColor: "{{.Colors.AverageFill}}",
      borderWidth: 1,
      pointRadius: 0,
      order: 2
    }, {
      type: "bar",
      label: "Watering",
      yAxisID: "water-y-axis",
      xAxisID: "hour-x-axis",
      data: hourly.water,
      borderColor: "{{.Colors.WaterBorder}}",
      backgroundColor: "{{.Colors.WaterFill}}",
      order: 3
    }]
  },
  options: {
    animation: false,
    maintainAspectRatio: false,
    plugins: { hline: { lines: hourly.lines } },
    scales: {
      "hour-x-axis": { ticks: { maxTicksLimit: 48, maxRotation: 0 } },
      "water-y-axis": { position: "left", min: hourly.water_min, max: hourly.water_max },
      "weight-y-axis": {
        position: "right",
        suggestedMin: hourly.weight_min,
        suggestedMax: hourly.weight_max,
        grid: { drawOnChartArea: false }
      }
    }
  }
});

new Chart(document.getElementById("minchart"), {
  type: "line",
  plugins: [hline],
  data: {
    labels: minutes.labels,
    datasets: [{
      label: "Plant Weight",
      yAxisID: "weight-y-axis",
      xAxisID: "min-x-axis",
      data: minutes.weights,
      borderColor: "{{.Colors.WeightBorder}}",
      backgroundColor: "{{.Colors.WeightFill}}",
      cubicInterpolationMode: "monotone"
    }]
  },
  options: {
    animation: false,
    maintainAspectRatio: false,
    plugins: { hline: { lines: hourly.lines } },
    scales: {
      "min-x-axis": { ticks: { maxTicksLimit: 48, maxRotation: 0 } },
      "weight-y-axis": {
        position: "right",
        suggestedMin: minutes.weight_min,
        suggestedMax: minutes.weight_max
      }
    }
  }
});
</script>
{{else}}
<p id="nodata">No data yet.</p>
{{end}}
</body>
</html>
`

type statusBanner struct {
	Class     string
	Label     string
	Message   string
	Stale     bool
	DataAt    string
	UpdatedAt string
	Station   []stationKey
}

type lineData struct {
	Value float64 `json:"value"`
	Color string  `json:"color"`
	Label string  `json:"label,omitempty"`
}

type hourlyData struct {
	Labels    []int      `json:"labels"`
	Weights   []float64  `json:"weights"`
	Averages  []float64  `json:"averages"`
	Water     []float64  `json:"water"`
	WaterMin  float64    `json:"water_min"`
	WaterMax  float64    `json:"water_max"`
	WeightMin float64    `json:"weight_min"`
	WeightMax float64    `json:"weight_max"`
	Lines     []lineData `json:"lines"`
}

type minuteData struct {
	Labels    []int     `json:"labels"`
	Weights   []float64 `json:"weights"`
	WeightMin float64   `json:"weight_min"`
	WeightMax float64   `json:"weight_max"`
}

type palette struct {
	WeightBorder  string
	WeightFill    string
	AverageBorder string
	AverageFill   string
	WaterBorder   string
	WaterFill     string
}

type dashboardPage struct {
	Title     string
	ScriptURL string
	Status    statusBanner
	HasData   bool
	Hourly    hourlyData
	Minutes   minuteData
	Colors    palette
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardTemplate))

// ChartJS renders the dashboard as an HTML page drawn client side by Chart.js.
type ChartJS struct {
	scriptURL string
}

// NewChartJS creates the HTML renderer. An empty scriptURL uses the public CDN build.
func NewChartJS(scriptURL string) *ChartJS {
	if scriptURL == "" {
		scriptURL = defaultChartJSURL
	}
	return &ChartJS{scriptURL: scriptURL}
}

func (r *ChartJS) Name() string        { return "chartjs" }
func (r *ChartJS) ContentType() string { return "text/html; charset=utf-8" }

// Render writes the page. The status banner is always present; the canvases only once a bundle exists.
func (r *ChartJS) Render(w io.Writer, view dsvc.DashboardView) error {
	page := dashboardPage{
		Title:     view.Title,
		ScriptURL: r.scriptURL,
		Status:    banner(view),
		Colors: palette{
			WeightBorder:  weightBorder,
			WeightFill:    weightFill,
			AverageBorder: averageBorder,
			AverageFill:   averageFill,
			WaterBorder:   waterBorder,
			WaterFill:     waterFill,
		},
	}
	if page.Title == "" {
		page.Title = "Plant Care"
	}
	if b := view.Bundle; b != nil {
		page.HasData = true
		page.Hourly = toHourly(b.Hourly)
		page.Minutes = minuteData{
			Labels:    nonNilInts(b.Minutes.Labels),
			Weights:   nonNilFloats(b.Minutes.Weights),
			WeightMin: b.Minutes.WeightAxis.Min,
			WeightMax: b.Minutes.WeightAxis.Max,
		}
	}
	if err := dashboardTmpl.Execute(w, page); err != nil {
		return fmt.Errorf("execute dashboard template: %w", err)
	}
	return nil
}

func toHourly(h models.HourlyChart) hourlyData {
	d := hourlyData{
		Labels:    nonNilInts(h.Labels),
		Weights:   nonNilFloats(h.Weights),
		Averages:  nonNilFloats(h.Averages),
		Water:     nonNilFloats(h.Water),
		WaterMin:  h.WaterAxis.Min,
		WaterMax:  h.WaterAxis.Max,
		WeightMin: h.WeightAxis.Min,
		WeightMax: h.WeightAxis.Max,
		Lines:     make([]lineData, 0, len(h.Thresholds)),
	}
	for _, l := range h.Thresholds {
		d.Lines = append(d.Lines, lineData(l))
	}
	return d
}

func banner(view dsvc.DashboardView) statusBanner {
	s := view.Status
	b := statusBanner{Message: s.Message, Stale: s.Stale && view.Bundle != nil}
	switch s.State {
	case models.StateOK:
		b.Class, b.Label = "ok", "OK"
	case models.StateNetworkFailure:
		b.Class, b.Label = "error", "Network failure"
	case models.StateInvalidPayload:
		b.Class, b.Label = "error", "Invalid data"
	default:
		b.Class, b.Label = "pending", "Waiting for first refresh"
	}
	if !s.UpdatedAt.IsZero() {
		b.UpdatedAt = s.UpdatedAt.Format(time.RFC3339)
	}
	if b.Stale {
		b.DataAt = view.Bundle.GeneratedAt.Format(time.RFC3339)
	}
	if view.Bundle != nil {
		b.Station = stationKeys(view.Bundle.Config)
	}
	return b
}

// stationKey is a station setting shown next to the charts.
type stationKey struct {
	Name  string
	Value int
}

func stationKeys(c models.ThresholdConfig) []stationKey {
	return []stationKey{
		{"waterhour", c.WaterHour},
		{"start", c.WaterStart},
		{"refill", c.Refill},
		{"updatehour", c.UpdateHour},
	}
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nonNilFloats(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
