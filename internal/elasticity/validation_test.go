package elasticity

import (
	"testing"
	"time"

	"github.com/kiranshivaraju/elasticbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validationNow = time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)

const maxSpan = 90 * 24 * time.Hour

func TestValidate_DefaultsAndNormalization(t *testing.T) {
	p, err := Validate(CalculateRequest{
		StartDate: "2025-11-01T00:00:00-04:00",
		EndDate:   "2025-11-18T23:59:59Z",
	}, maxSpan, validationNow)
	require.NoError(t, err)

	assert.Equal(t, models.MethodMidpoint, p.Method)
	assert.Equal(t, models.WindowDaily, p.Window)
	assert.Equal(t, time.UTC, p.Start.Location())
	assert.Equal(t, time.Date(2025, 11, 1, 4, 0, 0, 0, time.UTC), p.Start)
}

func TestValidate_CaseInsensitiveChoices(t *testing.T) {
	p, err := Validate(CalculateRequest{
		Method:     "regression",
		WindowSize: "Weekly",
		StartDate:  "2025-10-01T00:00:00Z",
		EndDate:    "2025-11-01T00:00:00Z",
	}, maxSpan, validationNow)
	require.NoError(t, err)
	assert.Equal(t, models.MethodRegression, p.Method)
	assert.Equal(t, models.WindowWeekly, p.Window)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     CalculateRequest
		field   string
		message string
	}{
		{
			name:  "unknown method",
			req:   CalculateRequest{Method: "elastic-net", StartDate: "2025-11-01T00:00:00Z", EndDate: "2025-11-18T00:00:00Z"},
			field: FieldMethod,
		},
		{
			name:  "unknown window",
			req:   CalculateRequest{WindowSize: "monthly", StartDate: "2025-11-01T00:00:00Z", EndDate: "2025-11-18T00:00:00Z"},
			field: FieldWindow,
		},
		{
			name:    "missing start",
			req:     CalculateRequest{EndDate: "2025-11-18T00:00:00Z"},
			field:   FieldStartDate,
			message: "This field is required.",
		},
		{
			name:  "unparseable end",
			req:   CalculateRequest{StartDate: "2025-11-01T00:00:00Z", EndDate: "18/11/2025"},
			field: FieldEndDate,
		},
		{
			name:    "end before start",
			req:     CalculateRequest{StartDate: "2025-11-18T00:00:00Z", EndDate: "2025-11-01T00:00:00Z"},
			field:   FieldEndDate,
			message: "End date must be after start date",
		},
		{
			name:    "end equals start",
			req:     CalculateRequest{StartDate: "2025-11-18T00:00:00Z", EndDate: "2025-11-18T00:00:00Z"},
			field:   FieldEndDate,
			message: "End date must be after start date",
		},
		{
			name:    "span over maximum",
			req:     CalculateRequest{StartDate: "2025-06-01T00:00:00Z", EndDate: "2025-11-01T00:00:00Z"},
			field:   FieldPeriod,
			message: "Analysis period cannot exceed 90 days",
		},
		{
			name:    "future start",
			req:     CalculateRequest{StartDate: "2025-12-05T00:00:00Z", EndDate: "2025-12-20T00:00:00Z"},
			field:   FieldStartDate,
			message: "Start date cannot be in the future",
		},
		{
			name:    "daily needs a week",
			req:     CalculateRequest{StartDate: "2025-11-01T00:00:00Z", EndDate: "2025-11-05T00:00:00Z"},
			field:   FieldPeriod,
			message: "For daily window, need at least 7 days",
		},
		{
			name:    "hourly needs a day",
			req:     CalculateRequest{WindowSize: "HOURLY", StartDate: "2025-11-01T00:00:00Z", EndDate: "2025-11-01T12:00:00Z"},
			field:   FieldPeriod,
			message: "For hourly window, need at least 1 day",
		},
		{
			name:    "weekly needs three weeks",
			req:     CalculateRequest{WindowSize: "WEEKLY", StartDate: "2025-11-01T00:00:00Z", EndDate: "2025-11-15T00:00:00Z"},
			field:   FieldPeriod,
			message: "For weekly window, need at least 21 days",
		},
		{
			name:    "regression needs two weeks",
			req:     CalculateRequest{Method: "REGRESSION", StartDate: "2025-11-01T00:00:00Z", EndDate: "2025-11-10T00:00:00Z"},
			field:   FieldMethod,
			message: "Regression method requires at least 14 days of data",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.req, maxSpan, validationNow)
			require.Error(t, err)

			ve, ok := IsValidation(err)
			require.True(t, ok)
			require.Contains(t, ve.Fields, tt.field)
			if tt.message != "" {
				assert.Equal(t, tt.message, ve.Fields[tt.field])
			}
		})
	}
}

func TestValidate_ReportsEveryField(t *testing.T) {
	_, err := Validate(CalculateRequest{Method: "x", WindowSize: "y"}, maxSpan, validationNow)
	ve, ok := IsValidation(err)
	require.True(t, ok)
	assert.Len(t, ve.Fields, 4)
	assert.Contains(t, ve.Error(), "end_date: This field is required.")
}
