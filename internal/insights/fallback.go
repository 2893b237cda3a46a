package insights

import (
	"context"
	"fmt"

	"tally/internal/core"
	"tally/internal/services"
)

// Fallback stands in when no API key is configured. Its errors make the
// callers fall back to their canned behavior.
type Fallback struct{}

var _ services.InsightGenerator = Fallback{}

func (Fallback) Insights(context.Context, core.MonthlyStats, string) ([]string, error) {
	return nil, fmt.Errorf("insights: not configured")
}

func (Fallback) ScanReceipt(context.Context, []byte, string) (services.Receipt, error) {
	return services.Receipt{}, fmt.Errorf("insights: not configured")
}
