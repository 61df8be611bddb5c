package viz

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/askdb/askdb/internal/query"
)

// explicitTypes maps phrases a user may write to the chart type they
// name. Checked before any heuristic so an explicit request always wins.
var explicitTypes = []struct {
	phrase string
	chart  ChartType
}{
	{"density heatmap", ChartDensityHeatmap},
	{"density contour", ChartDensityContour},
	{"heatmap", ChartDensityHeatmap},
	{"contour", ChartDensityContour},
	{"scatter", ChartScatter},
	{"histogram", ChartHistogram},
	{"violin", ChartViolin},
	{"box plot", ChartBox},
	{"boxplot", ChartBox},
	{"pie", ChartPie},
	{"line chart", ChartLine},
	{"line graph", ChartLine},
	{"bar", ChartBar},
}

var temporalWords = []string{"over time", "trend", "per month", "per year", "per week", "per day", "monthly", "yearly", "weekly", "daily", "timeline", "growth"}

var partOfWholeWords = []string{"share", "proportion", "percentage", "breakdown", "composition", "split of"}

var distributionWords = []string{"distribution", "spread", "frequency"}

// Select picks a chart for the result set from the user's phrasing and
// the shape of the data, then validates the choice. The zero-row and
// zero-column cases are rejected up front.
func Select(rs *query.ResultSet, intent string) (Spec, error) {
	if len(rs.Columns) == 0 || len(rs.Rows) == 0 {
		return Spec{}, &SpecError{Reason: "result set has no data to chart"}
	}

	spec := Spec{Type: chooseType(rs, intent), Title: titleFor(intent)}
	spec.X = rs.Columns[0]
	if len(rs.Columns) > 1 {
		spec.Y = rs.Columns[1]
	}
	// Distribution charts over a single numeric column keep y empty.
	if spec.Type == ChartHistogram || spec.Type == ChartBox || spec.Type == ChartViolin {
		if len(rs.Columns) == 1 {
			spec.Y = ""
		}
	}
	if spec.Type == ChartPie && !columnIsNumeric(rs, spec.Y) {
		spec.Y = ""
	}

	if err := Validate(spec, rs); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// ChartRequested reports whether the question names a chart type
// outright, as opposed to leaving the choice to the heuristics.
func ChartRequested(intent string) bool {
	lowered := strings.ToLower(intent)
	for _, candidate := range explicitTypes {
		if strings.Contains(lowered, candidate.phrase) {
			return true
		}
	}
	return false
}

func chooseType(rs *query.ResultSet, intent string) ChartType {
	lowered := strings.ToLower(intent)

	for _, candidate := range explicitTypes {
		if strings.Contains(lowered, candidate.phrase) {
			return candidate.chart
		}
	}
	for _, word := range temporalWords {
		if strings.Contains(lowered, word) {
			return ChartLine
		}
	}
	for _, word := range partOfWholeWords {
		if strings.Contains(lowered, word) {
			return ChartPie
		}
	}
	for _, word := range distributionWords {
		if strings.Contains(lowered, word) {
			if len(rs.Columns) == 1 {
				return ChartHistogram
			}
			return ChartBox
		}
	}
	if len(rs.Columns) >= 2 && columnIsNumeric(rs, rs.Columns[0]) && columnIsNumeric(rs, rs.Columns[1]) {
		return ChartScatter
	}
	return ChartBar
}

func titleFor(intent string) string {
	trimmed := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(intent), "?!."))
	if trimmed == "" {
		return "Query results"
	}
	first, size := utf8.DecodeRuneInString(trimmed)
	return string(unicode.ToUpper(first)) + trimmed[size:]
}

func columnIsNumeric(rs *query.ResultSet, name string) bool {
	if name == "" {
		return false
	}
	values := columnValues(rs, name)
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			continue
		case string:
			if _, err := strconv.ParseFloat(v.(string), 64); err != nil {
				return false
			}
		case nil:
			continue
		default:
			return false
		}
	}
	return true
}
