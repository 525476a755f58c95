package billingapi

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/membership/pkg/billing"
)

func (h *Handler) memberStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.ResolveStatus(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, status)
}

func (h *Handler) memberSubscription(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.ResolveCurrentInfo(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, info)
}

func (h *Handler) membersSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.MembersSummary(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, summary)
}

type activeMembersResponse struct {
	Users []string `json:"users"`
	Count int      `json:"count"`
}

func (h *Handler) activeMembers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ActiveMembers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, activeMembersResponse{Users: users, Count: len(users)})
}

func (h *Handler) turnover(w http.ResponseWriter, r *http.Request) {
	q, err := parseReportQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	series, err := h.svc.TurnoverByPeriod(r.Context(), q.year, q.kind)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, series)
}

func (h *Handler) growth(w http.ResponseWriter, r *http.Request) {
	q, err := parseReportQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rates, err := h.svc.GrowthRate(r.Context(), q.year, q.kind, q.baseline)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, rates)
}

type reportQuery struct {
	year     int
	kind     billing.PeriodKind
	baseline float64
}

// parseReportQuery reads year, period and baseline. Year defaults to the
// current UTC year and period to monthly.
func parseReportQuery(r *http.Request) (reportQuery, error) {
	values := r.URL.Query()
	q := reportQuery{year: time.Now().UTC().Year(), kind: billing.PeriodMonthly}

	if v := values.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year < 1970 || year > 9999 {
			return reportQuery{}, fmt.Errorf("%w: year %q", billing.ErrInvalidInput, v)
		}
		q.year = year
	}
	if v := values.Get("period"); v != "" {
		kind, err := billing.ParsePeriodKind(v)
		if err != nil {
			return reportQuery{}, fmt.Errorf("%w: %q", err, v)
		}
		q.kind = kind
	}
	if v := values.Get("baseline"); v != "" {
		baseline, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(baseline) || math.IsInf(baseline, 0) {
			return reportQuery{}, fmt.Errorf("%w: baseline %q", billing.ErrInvalidInput, v)
		}
		q.baseline = baseline
	}
	return q, nil
}
