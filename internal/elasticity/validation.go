package elasticity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// Error field keys.
const (
	FieldMethod    = "method"
	FieldWindow    = "window_size"
	FieldStartDate = "start_date"
	FieldEndDate   = "end_date"
	FieldPeriod    = "period"
)

// minRegressionSpan is the shortest period a REGRESSION request may cover.
const minRegressionSpan = 14 * 24 * time.Hour

var minSpanByWindow = map[string]time.Duration{
	models.WindowHourly: 24 * time.Hour,
	models.WindowDaily:  7 * 24 * time.Hour,
	models.WindowWeekly: 21 * 24 * time.Hour,
}

// ValidationError reports every offending request field. No calculation is
// created when it is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// CalculateRequest is the raw body of POST /elasticity/calculate/.
type CalculateRequest struct {
	Method     string `json:"method" example:"MIDPOINT"`
	StartDate  string `json:"start_date" example:"2025-11-01T00:00:00Z"`
	EndDate    string `json:"end_date" example:"2025-11-18T23:59:59Z"`
	WindowSize string `json:"window_size" example:"DAILY"`
}

// SubmitParams is a validated request. Dates are in UTC.
type SubmitParams struct {
	Method string
	Window string
	Start  time.Time
	End    time.Time
}

// Validate checks req against the request rules. maxSpan bounds end-start;
// now is the reference for rejecting future start dates.
func Validate(req CalculateRequest, maxSpan time.Duration, now time.Time) (SubmitParams, error) {
	fields := map[string]string{}
	var p SubmitParams

	p.Method = normalizeChoice(req.Method, models.MethodMidpoint)
	if p.Method != models.MethodMidpoint && p.Method != models.MethodRegression {
		fields[FieldMethod] = fmt.Sprintf("%q is not a valid choice. Use MIDPOINT or REGRESSION.", req.Method)
	}

	p.Window = normalizeChoice(req.WindowSize, models.WindowDaily)
	if _, ok := minSpanByWindow[p.Window]; !ok {
		fields[FieldWindow] = fmt.Sprintf("%q is not a valid choice. Use HOURLY, DAILY or WEEKLY.", req.WindowSize)
	}

	var startOK, endOK bool
	p.Start, startOK = parseDate(req.StartDate, FieldStartDate, fields)
	p.End, endOK = parseDate(req.EndDate, FieldEndDate, fields)

	if startOK && endOK {
		span := p.End.Sub(p.Start)
		switch {
		case span <= 0:
			fields[FieldEndDate] = "End date must be after start date"
		case span > maxSpan:
			fields[FieldPeriod] = fmt.Sprintf("Analysis period cannot exceed %s", days(maxSpan))
		default:
			if minSpan, ok := minSpanByWindow[p.Window]; ok && span < minSpan {
				fields[FieldPeriod] = fmt.Sprintf("For %s window, need at least %s", strings.ToLower(p.Window), days(minSpan))
			}
			if p.Method == models.MethodRegression && span < minRegressionSpan {
				fields[FieldMethod] = "Regression method requires at least 14 days of data"
			}
		}
	}
	if startOK && p.Start.After(now) {
		fields[FieldStartDate] = "Start date cannot be in the future"
	}

	if len(fields) > 0 {
		return SubmitParams{}, &ValidationError{Fields: fields}
	}
	return p, nil
}

func normalizeChoice(v, def string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}

func parseDate(raw, field string, fields map[string]string) (time.Time, bool) {
	if strings.TrimSpace(raw) == "" {
		fields[field] = "This field is required."
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		fields[field] = "Must be a valid RFC 3339 timestamp, e.g. 2025-11-01T00:00:00Z"
		return time.Time{}, false
	}
	return t.UTC(), true
}

func days(d time.Duration) string {
	n := int(d / (24 * time.Hour))
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
