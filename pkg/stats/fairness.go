package stats

import (
	"math"
	"sort"

	"github.com/paiban/nurseshift/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 出勤日数公平性
	WorkDaysGini   float64 `json:"work_days_gini"`   // 出勤基尼系数 (0=完全公平, 1=完全不公平)
	WorkDaysStdDev float64 `json:"work_days_std_dev"` // 出勤标准差
	AvgWorkDays    float64 `json:"avg_work_days"`
	MaxWorkDays    float64 `json:"max_work_days"`
	MinWorkDays    float64 `json:"min_work_days"`

	// 夜勤、周末休日公平性
	NightShiftGini float64 `json:"night_shift_gini"` // 仅统计可上夜勤的护士
	WeekendOffGini float64 `json:"weekend_off_gini"`

	// 护士级别统计
	NurseStats []NurseStat `json:"nurse_stats"`

	// 综合评分
	OverallFairnessScore float64 `json:"overall_fairness_score"` // 0-100
}

// NurseStat 护士统计及与目标的偏差
type NurseStat struct {
	Name string `json:"name"`
	NurseStats
	NightEligible bool    `json:"night_eligible"`
	Deviation     float64 `json:"deviation"` // 出勤日数与平均值的偏差百分比
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析排班公平性
func (f *FairnessAnalyzer) Analyze(nurses []*model.Nurse, schedule *model.Schedule) *FairnessMetrics {
	if len(nurses) == 0 {
		return &FairnessMetrics{OverallFairnessScore: 100}
	}

	all := ComputeAll(schedule)
	nurseStats := make([]NurseStat, len(nurses))
	workDays := make([]float64, len(nurses))
	weekendOffs := make([]float64, len(nurses))
	nightShifts := make([]float64, 0, len(nurses))

	for i, n := range nurses {
		s := all[n.Name]
		eligible := n.IsNightEligible()
		nurseStats[i] = NurseStat{Name: n.Name, NurseStats: s, NightEligible: eligible}
		workDays[i] = float64(s.WorkDays)
		weekendOffs[i] = float64(s.WeekendOffDays)
		if eligible {
			nightShifts = append(nightShifts, float64(s.NightShifts))
		}
	}

	avg := calculateMean(workDays)
	stdDev := math.Sqrt(calculateVariance(workDays, avg))
	maxDays, minDays := calculateRange(workDays)

	// 更新偏差
	for i := range nurseStats {
		if avg > 0 {
			nurseStats[i].Deviation = (float64(nurseStats[i].WorkDays) - avg) / avg * 100
		}
	}
	sort.SliceStable(nurseStats, func(i, j int) bool {
		return nurseStats[i].WorkDays > nurseStats[j].WorkDays
	})

	workGini := calculateGini(workDays)
	nightGini := calculateGini(nightShifts)
	weekendGini := calculateGini(weekendOffs)

	return &FairnessMetrics{
		WorkDaysGini:         workGini,
		WorkDaysStdDev:       stdDev,
		AvgWorkDays:          avg,
		MaxWorkDays:          maxDays,
		MinWorkDays:          minDays,
		NightShiftGini:       nightGini,
		WeekendOffGini:       weekendGini,
		NurseStats:           nurseStats,
		OverallFairnessScore: calculateOverallScore(workGini, nightGini, weekendGini, stdDev, avg),
	}
}

// calculateMean 计算平均值
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateVariance 计算方差
func calculateVariance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// calculateRange 计算极值
func calculateRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// calculateGini 计算基尼系数
func calculateGini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}

	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}

// calculateOverallScore 计算综合公平性评分
func calculateOverallScore(workGini, nightGini, weekendGini, stdDev, avg float64) float64 {
	const (
		workWeight    = 0.4
		nightWeight   = 0.25
		weekendWeight = 0.25
		stdDevWeight  = 0.1
	)

	// 基尼系数转换为分数 (0=100分, 1=0分)
	workScore := (1 - workGini) * 100
	nightScore := (1 - nightGini) * 100
	weekendScore := (1 - weekendGini) * 100

	// 变异系数越低分数越高
	cvScore := 100.0
	if avg > 0 {
		cvScore = math.Max(0, 100-stdDev/avg*200)
	}

	score := workWeight*workScore +
		nightWeight*nightScore +
		weekendWeight*weekendScore +
		stdDevWeight*cvScore

	return math.Max(0, math.Min(100, score))
}
