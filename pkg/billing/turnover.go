package billing

import (
	"strconv"
	"time"
)

// PeriodKind selects the bucket size of a turnover report.
type PeriodKind string

const (
	PeriodMonthly    PeriodKind = "monthly"
	PeriodQuarterly  PeriodKind = "quarterly"
	PeriodHalfYearly PeriodKind = "halfYearly"
	PeriodYearly     PeriodKind = "yearly"
)

// yearlyBuckets is how many calendar years a yearly report covers, ending at the requested year.
const yearlyBuckets = 5

var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// ParsePeriodKind validates a period kind received from a caller.
func ParsePeriodKind(s string) (PeriodKind, error) {
	switch k := PeriodKind(s); k {
	case PeriodMonthly, PeriodQuarterly, PeriodHalfYearly, PeriodYearly:
		return k, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// Turnover is the total paid amount recognized in one bucket.
type Turnover struct {
	Period        string  `json:"period"`
	TotalTurnover float64 `json:"total_turnover"`
}

// Labels returns the canonical bucket labels of the kind for year.
func (k PeriodKind) Labels(year int) ([]string, error) {
	switch k {
	case PeriodMonthly:
		return append([]string(nil), monthLabels...), nil
	case PeriodQuarterly:
		return []string{"Q1", "Q2", "Q3", "Q4"}, nil
	case PeriodHalfYearly:
		return []string{"H1", "H2"}, nil
	case PeriodYearly:
		labels := make([]string, yearlyBuckets)
		for i := range labels {
			labels[i] = strconv.Itoa(year - yearlyBuckets + 1 + i)
		}
		return labels, nil
	default:
		return nil, ErrInvalidPeriod
	}
}

// Window returns the [from, to) start-date range a report of kind for year covers.
func (k PeriodKind) Window(year int, loc *time.Location) (from, to time.Time) {
	to = time.Date(year+1, time.January, 1, 0, 0, 0, 0, loc)
	if k == PeriodYearly {
		return time.Date(year-yearlyBuckets+1, time.January, 1, 0, 0, 0, 0, loc), to
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, loc), to
}

// bucket maps a period start date to its label.
func (k PeriodKind) bucket(start time.Time) string {
	month := int(start.Month())
	switch k {
	case PeriodMonthly:
		return monthLabels[month-1]
	case PeriodQuarterly:
		return "Q" + strconv.Itoa((month-1)/3+1)
	case PeriodHalfYearly:
		if month <= 6 {
			return "H1"
		}
		return "H2"
	default:
		return strconv.Itoa(start.Year())
	}
}

// BucketTurnover sums the paid amount of active periods starting inside the
// report window into the kind's buckets. The result always lists every label,
// with zero for buckets nothing contributed to.
func BucketTurnover(periods []Period, year int, kind PeriodKind, loc *time.Location) ([]Turnover, error) {
	labels, err := kind.Labels(year)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	from, to := kind.Window(year, loc)

	totals := make(map[string]float64, len(labels))
	for _, p := range periods {
		if p.Status != PeriodStatusActive {
			continue
		}
		start := p.StartDate.In(loc)
		if start.Before(from) || !start.Before(to) {
			continue
		}
		totals[kind.bucket(start)] += p.PaidAmount
	}

	result := make([]Turnover, len(labels))
	for i, label := range labels {
		result[i] = Turnover{Period: label, TotalTurnover: totals[label]}
	}
	return result, nil
}
