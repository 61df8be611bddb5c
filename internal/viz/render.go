package viz

import (
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/query"
)

// palette is the fixed categorical colorway applied to every chart.
var palette = []string{
	"#ea5545", "#f46a9b", "#ef9b20", "#edbf33", "#ede15b",
	"#bdcf32", "#87bc45", "#27aeef", "#b33dc6",
}

// Figure is a plotly-compatible chart document: one or more traces plus
// the shared layout. It marshals directly to the JSON plotly consumes.
type Figure struct {
	Data   []map[string]any `json:"data"`
	Layout map[string]any   `json:"layout"`
}

// Render validates the spec against the result set and produces the
// figure. Layout is uniform across chart types: centered title, white
// background, bordered axes, fixed colorway.
func Render(spec Spec, rs *query.ResultSet) (*Figure, error) {
	if err := Validate(spec, rs); err != nil {
		observability.IncrementChartError()
		return nil, err
	}

	rule := chartRules[spec.Type]
	figure := &Figure{
		Data:   []map[string]any{rule.render(spec, rs)},
		Layout: baseLayout(spec),
	}
	observability.IncrementChartRendered(string(spec.Type))
	return figure, nil
}

func baseLayout(spec Spec) map[string]any {
	layout := map[string]any{
		"title": map[string]any{
			"text": spec.Title,
			"x":    0.5,
		},
		"plot_bgcolor":  "white",
		"paper_bgcolor": "white",
		"colorway":      palette,
	}
	if spec.Type != ChartPie {
		layout["xaxis"] = axis(spec.X)
		layout["yaxis"] = axis(spec.Y)
	}
	return layout
}

func axis(title string) map[string]any {
	return map[string]any{
		"title":     map[string]any{"text": title},
		"showline":  true,
		"linecolor": "black",
		"mirror":    true,
	}
}
