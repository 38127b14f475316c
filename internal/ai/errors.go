package ai

import (
	"errors"

	"github.com/kiranshivaraju/elasticbot/internal/ai/chat"
)

var (
	ErrProviderUnavailable = chat.ErrProviderUnavailable
	ErrInferenceTimeout    = chat.ErrInferenceTimeout
	ErrInvalidResponse     = chat.ErrInvalidResponse

	// ErrNotCompleted is returned when interpretation is requested for a
	// calculation that has not reached COMPLETED.
	ErrNotCompleted = errors.New("calculation not completed")
)
