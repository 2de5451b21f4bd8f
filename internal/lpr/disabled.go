package lpr

import (
	"context"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

// Disabled stands in when no API key is configured: it never sees a plate
// and has no insights.
type Disabled struct{}

func (Disabled) Recognize(context.Context, []byte, string) (string, bool) { return "", false }

func (Disabled) Summarize(context.Context, []types.AccessLog) string { return NoInsights }
