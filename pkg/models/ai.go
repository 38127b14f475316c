// Package models contains shared data models used across the elasticbot codebase.
package models

import (
	"context"
	"time"
)

// AIProvider is the core interface that all AI integrations must implement.
// Never call specific AI providers directly; always inject this interface.
type AIProvider interface {
	// Interpret turns a completed calculation into narrative text.
	Interpret(ctx context.Context, req InterpretationRequest) (string, error)
	// Name returns the provider identifier (e.g., "ollama", "openai").
	Name() string
	// Model returns the model identifier reported to clients.
	Model() string
}

// InterpretationRequest is what a provider receives. System and Prompt are
// ready to send; the numeric fields let rule-based providers answer without
// parsing the prompt.
type InterpretationRequest struct {
	System         string
	Prompt         string
	Elasticity     float64
	Classification string
	IsReliable     bool
}

// Interpretation is the response of POST /api/v1/interpret/generate/.
type Interpretation struct {
	CalculationID  string    `json:"calculation_id"`
	Interpretation string    `json:"interpretation"`
	GeneratedAt    time.Time `json:"generated_at"`
	Cached         bool      `json:"cached"`
	Model          string    `json:"model"`
}
