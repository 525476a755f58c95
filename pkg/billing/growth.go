package billing

import "math"

// Growth is the change of turnover in one bucket relative to the previous
// bucket and to the baseline. A nil rate means the divisor was zero.
type Growth struct {
	Period             string   `json:"period"`
	GrowthRate         *float64 `json:"growth_rate"`
	RelativeGrowthRate *float64 `json:"relative_growth_rate"`
}

// GrowthRates computes period-over-period and baseline-relative growth, in
// whole percent, for every bucket after the first.
// A non-positive or non-finite baseline is replaced by the first non-zero
// total of the series.
func GrowthRates(series []Turnover, baseline float64) []Growth {
	if len(series) < 2 {
		return []Growth{}
	}

	if baseline <= 0 || math.IsNaN(baseline) || math.IsInf(baseline, 0) {
		baseline = 0
		for _, t := range series {
			if t.TotalTurnover != 0 {
				baseline = t.TotalTurnover
				break
			}
		}
	}

	result := make([]Growth, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		current := series[i].TotalTurnover
		result = append(result, Growth{
			Period:             series[i].Period,
			GrowthRate:         percentChange(series[i-1].TotalTurnover, current),
			RelativeGrowthRate: percentChange(baseline, current),
		})
	}
	return result
}

func percentChange(from, to float64) *float64 {
	if from == 0 {
		return nil
	}
	v := math.Round((to - from) / from * 100)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
