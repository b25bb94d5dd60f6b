package security

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

const bytesPerGB = 1_000_000_000.0
const bigQueryCostPerTB = 6.25 // USD, on-demand

// CostTracker enforces a per-query BigQuery scan limit.
type CostTracker struct {
	maxBytes int64
}

// NewCostTracker returns a tracker that refuses scans above maxBytes. A
// non-positive limit disables the check.
func NewCostTracker(maxBytes int64) *CostTracker {
	return &CostTracker{maxBytes: maxBytes}
}

// CheckLimits returns an error when a dry run reports more bytes than allowed.
func (ct *CostTracker) CheckLimits(totalBytesProcessed int64) error {
	if ct.maxBytes <= 0 || totalBytesProcessed <= ct.maxBytes {
		return nil
	}
	return fmt.Errorf("query cost limit exceeded: would process %.2fGB, limit %.2fGB",
		float64(totalBytesProcessed)/bytesPerGB, float64(ct.maxBytes)/bytesPerGB)
}

// EstimateUSD prices a scan at on-demand rates.
func EstimateUSD(totalBytesProcessed int64) float64 {
	return float64(totalBytesProcessed) / bytesPerGB / 1000.0 * bigQueryCostPerTB
}

// LogQueryCost logs the billed size of a finished query.
func (ct *CostTracker) LogQueryCost(stmt string, totalBytesProcessed int64, durationMs int64) {
	processedGB := float64(totalBytesProcessed) / bytesPerGB
	costUSD := EstimateUSD(totalBytesProcessed)

	log.Info().
		Str("event", "query_cost").
		Str("sql_hash", hashStr(stmt)).
		Float64("cost_gb", processedGB).
		Float64("cost_usd", costUSD).
		Int64("duration_ms", durationMs).
		Msgf("Query cost: %.4fGB ($%.4f) | Duration: %dms", processedGB, costUSD, durationMs)
}
