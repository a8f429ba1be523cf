package stats

import (
	"github.com/paiban/nurseshift/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	RequiredSlots   int     `json:"required_slots"`   // 所需班次总数
	FilledSlots     int     `json:"filled_slots"`     // 已满足班次数
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	DailyCoverage []DayCoverage        `json:"daily_coverage"`
	Understaffed  []UnderstaffedPeriod `json:"understaffed"` // 人手不足
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Day           string `json:"day"`
	Weekend       bool   `json:"weekend"`
	DayRequired   int    `json:"day_required"`
	DayAssigned   int    `json:"day_assigned"`
	NightRequired int    `json:"night_required"`
	NightAssigned int    `json:"night_assigned"`
	OffCount      int    `json:"off_count"`
}

// UnderstaffedPeriod 人手不足的班次
type UnderstaffedPeriod struct {
	Day      string          `json:"day"`
	Shift    model.ShiftKind `json:"shift"`
	Required int             `json:"required"`
	Assigned int             `json:"assigned"`
	Shortage int             `json:"shortage"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	staffing model.Staffing
}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer(staffing model.Staffing) *CoverageAnalyzer {
	return &CoverageAnalyzer{staffing: staffing}
}

// Analyze 分析覆盖率
func (c *CoverageAnalyzer) Analyze(schedule *model.Schedule) *CoverageMetrics {
	metrics := &CoverageMetrics{
		DailyCoverage:   make([]DayCoverage, 0),
		Understaffed:    make([]UnderstaffedPeriod, 0),
		OverallCoverage: 100,
	}
	if schedule == nil {
		return metrics
	}

	for i := range schedule.Days {
		day := &schedule.Days[i]
		dc := DayCoverage{
			Day:           day.Label,
			Weekend:       day.Weekend,
			DayRequired:   c.staffing.DayHeadcount(day.Weekend),
			DayAssigned:   day.Count(model.ShiftDay),
			NightRequired: c.staffing.NightRequired,
			NightAssigned: day.Count(model.ShiftNight),
			OffCount:      day.Count(model.ShiftOff),
		}
		metrics.DailyCoverage = append(metrics.DailyCoverage, dc)

		metrics.RequiredSlots += dc.DayRequired + dc.NightRequired
		metrics.FilledSlots += min(dc.DayAssigned, dc.DayRequired) + min(dc.NightAssigned, dc.NightRequired)

		if dc.DayAssigned < dc.DayRequired {
			metrics.Understaffed = append(metrics.Understaffed, UnderstaffedPeriod{
				Day:      day.Label,
				Shift:    model.ShiftDay,
				Required: dc.DayRequired,
				Assigned: dc.DayAssigned,
				Shortage: dc.DayRequired - dc.DayAssigned,
			})
		}
		if dc.NightAssigned < dc.NightRequired {
			metrics.Understaffed = append(metrics.Understaffed, UnderstaffedPeriod{
				Day:      day.Label,
				Shift:    model.ShiftNight,
				Required: dc.NightRequired,
				Assigned: dc.NightAssigned,
				Shortage: dc.NightRequired - dc.NightAssigned,
			})
		}
	}

	if metrics.RequiredSlots > 0 {
		metrics.OverallCoverage = float64(metrics.FilledSlots) / float64(metrics.RequiredSlots) * 100
	}
	return metrics
}
