// Package dashboard renders CloudWatch dashboard bodies for a service's functions.
package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// ErrUnknownDashboardTemplate indicates a dashboard template name with no layout.
var ErrUnknownDashboardTemplate = errors.New("unknown dashboard template")

const (
	lambdaNamespace = "AWS/Lambda"

	gridWidth    = 24
	widgetHeight = 6
	period       = 300
)

// panel is one metric graphed for every function.
type panel struct {
	title  string
	metric string
	stat   types.Statistic
}

var panels = []panel{
	{title: "Invocations", metric: "Invocations", stat: types.StatisticSum},
	{title: "Errors", metric: "Errors", stat: types.StatisticSum},
	{title: "Duration", metric: "Duration", stat: types.StatisticAverage},
	{title: "Throttles", metric: "Throttles", stat: types.StatisticSum},
	{title: "Concurrent executions", metric: "ConcurrentExecutions", stat: types.StatisticMaximum},
}

// layout places the i-th widget.
type layout func(i int) (x, y, width, height int)

var layouts = map[string]layout{
	"default": func(i int) (int, int, int, int) {
		const columns = 2
		width := gridWidth / columns
		return (i % columns) * width, (i / columns) * widgetHeight, width, widgetHeight
	},
	"vertical": func(i int) (int, int, int, int) {
		return 0, i * widgetHeight, gridWidth, widgetHeight
	},
}

// Templates lists the known template names in sorted order.
func Templates() []string {
	names := make([]string, 0, len(layouts))
	for name := range layouts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

type body struct {
	Widgets []widget `json:"widgets"`
}

type widget struct {
	Type       string           `json:"type"`
	X          int              `json:"x"`
	Y          int              `json:"y"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Properties widgetProperties `json:"properties"`
}

type widgetProperties struct {
	Title   string  `json:"title"`
	View    string  `json:"view"`
	Stacked bool    `json:"stacked"`
	Region  string  `json:"region"`
	Stat    string  `json:"stat"`
	Period  int     `json:"period"`
	Metrics [][]any `json:"metrics"`
}

// Renderer renders dashboard bodies from the built-in layouts.
type Renderer struct{}

// NewRenderer creates a new Renderer instance.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render returns the JSON dashboard body of tmpl graphing every function.
func (r *Renderer) Render(service, stage, region string, functions []string, tmpl string) (string, error) {
	place, ok := layouts[tmpl]
	if !ok {
		return "", fmt.Errorf("%w: %q, must be one of %s", ErrUnknownDashboardTemplate, tmpl, strings.Join(Templates(), ", "))
	}

	widgets := make([]widget, 0, len(panels))
	for i, p := range panels {
		x, y, width, height := place(i)

		metrics := make([][]any, 0, len(functions))
		for _, fn := range functions {
			metrics = append(metrics, []any{lambdaNamespace, p.metric, "FunctionName", fn})
		}

		widgets = append(widgets, widget{
			Type:   "metric",
			X:      x,
			Y:      y,
			Width:  width,
			Height: height,
			Properties: widgetProperties{
				Title:   fmt.Sprintf("%s %s: %s", service, stage, p.title),
				View:    "timeSeries",
				Region:  region,
				Stat:    string(p.stat),
				Period:  period,
				Metrics: metrics,
			},
		})
	}

	b, err := json.Marshal(body{Widgets: widgets})
	if err != nil {
		return "", fmt.Errorf("cannot encode dashboard body: %w", err)
	}
	return string(b), nil
}
