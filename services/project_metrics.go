package services

import (
	"math"
	"time"

	"timesheet_app_go/models"
)

// ProjectMetrics are the derived, non-stored figures of a project.
// All percentages use the 0-100 scale.
type ProjectMetrics struct {
	PlannedProgress float64 `json:"planned_progress"`
	PendingBilling  float64 `json:"pending_billing"`
	DelayDays       int     `json:"delay_days"`
}

// ComputeProjectMetrics derives planned progress, pending billing and delay days as of now
func ComputeProjectMetrics(p *models.Project, now time.Time) ProjectMetrics {
	return ProjectMetrics{
		PlannedProgress: PlannedProgress(p.StartDate, p.EndDate, now),
		PendingBilling:  PendingBilling(p.Billing),
		DelayDays:       DelayDays(p.EndDate, p.EndDateReal),
	}
}

// PlannedProgress is the elapsed share of the [start, end] window, clamped to [0, 100]
// and rounded to two decimals. Missing dates yield 0.
func PlannedProgress(start, end *time.Time, now time.Time) float64 {
	if start == nil || end == nil {
		return 0
	}
	s, e, n := StartOfDay(*start), StartOfDay(*end), StartOfDay(now)

	if n.Before(s) {
		return 0
	}
	if !n.Before(e) {
		return 100
	}

	total := e.Sub(s).Hours() / 24
	elapsed := n.Sub(s).Hours() / 24
	return round2(elapsed / total * 100)
}

// PendingBilling is the share not yet billed. An unset billing counts as nothing billed.
func PendingBilling(billing *float64) float64 {
	if billing == nil {
		return 100
	}
	return math.Max(0, round2(100-*billing))
}

// DelayDays counts the business days the real end date overran the planned one
func DelayDays(end, endReal *time.Time) int {
	if end == nil || endReal == nil {
		return 0
	}
	return BusinessDaysBetween(*end, *endReal)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
