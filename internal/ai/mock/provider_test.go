package mock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kiranshivaraju/elasticbot/internal/ai/chat"
	"github.com/kiranshivaraju/elasticbot/internal/ai/mock"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockProvider_Name(t *testing.T) {
	p := mock.NewMockProvider()
	assert.Equal(t, "mock", p.Name())
	assert.Equal(t, "mock", p.Model())
}

func TestNewMockProvider_InterpretByClassification(t *testing.T) {
	tests := []struct {
		classification string
		elasticity     float64
		want           string
	}{
		{models.ClassificationInelastic, -0.87, "demanda inelástica"},
		{models.ClassificationElastic, -1.8, "demanda elástica"},
		{models.ClassificationUnitary, -1.0, "demanda unitaria"},
		{models.ClassificationElastic, -14.2, "inusualmente alto"},
	}
	p := mock.NewMockProvider()
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			text, err := p.Interpret(context.Background(), models.InterpretationRequest{
				Elasticity:     tt.elasticity,
				Classification: tt.classification,
			})
			require.NoError(t, err)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestRuleBased_FormatsCoefficient(t *testing.T) {
	assert.Contains(t, mock.RuleBased(-0.8712, "inelastic"), "-0.87")
}

func TestNewFailingProvider(t *testing.T) {
	want := errors.New("provider down")
	p := mock.NewFailingProvider(want)
	_, err := p.Interpret(context.Background(), models.InterpretationRequest{})
	assert.ErrorIs(t, err, want)
}

func TestNewTimeoutProvider_BlocksUntilCancelled(t *testing.T) {
	p := mock.NewTimeoutProvider()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Interpret(ctx, models.InterpretationRequest{})
	assert.ErrorIs(t, err, chat.ErrInferenceTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestMockProvider_ZeroValue(t *testing.T) {
	var p mock.MockProvider
	text, err := p.Interpret(context.Background(), models.InterpretationRequest{})
	assert.NoError(t, err)
	assert.Empty(t, text)
}
