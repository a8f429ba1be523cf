package model

// ShiftKind 班次类型
type ShiftKind string

const (
	ShiftDay   ShiftKind = "DAY"   // 日勤
	ShiftNight ShiftKind = "NIGHT" // 夜勤
	ShiftOff   ShiftKind = "OFF"   // 休
)

// Label 返回导出用的班次名称
func (k ShiftKind) Label() string {
	switch k {
	case ShiftDay:
		return "日勤"
	case ShiftNight:
		return "夜勤"
	default:
		return "休"
	}
}

// IsWork 是否为出勤班次
func (k ShiftKind) IsWork() bool {
	return k == ShiftDay || k == ShiftNight
}

// ShiftKindFromLabel 从导出名称解析班次类型
func ShiftKindFromLabel(label string) (ShiftKind, bool) {
	switch label {
	case "日勤", string(ShiftDay):
		return ShiftDay, true
	case "夜勤", string(ShiftNight):
		return ShiftNight, true
	case "休", "", string(ShiftOff):
		return ShiftOff, true
	}
	return ShiftOff, false
}

// Assignment 某护士某日的班次分配
type Assignment struct {
	Nurse         string    `json:"nurse"`
	Shift         ShiftKind `json:"shift"`
	Violation     bool      `json:"violation"`
	OffAfterNight bool      `json:"off_after_night"` // 明け休み，不计入休日
}

// Day 排班表中的一天
type Day struct {
	HorizonDay
	Assignments []Assignment `json:"assignments"`
}

// Find 查找护士当日的分配
func (d *Day) Find(nurse string) *Assignment {
	for i := range d.Assignments {
		if d.Assignments[i].Nurse == nurse {
			return &d.Assignments[i]
		}
	}
	return nil
}

// Put 写入分配，已存在时覆盖
func (d *Day) Put(a Assignment) {
	if existing := d.Find(a.Nurse); existing != nil {
		*existing = a
		return
	}
	d.Assignments = append(d.Assignments, a)
}

// Has 护士当日是否已有分配
func (d *Day) Has(nurse string) bool {
	return d.Find(nurse) != nil
}

// Count 统计当日某班次人数
func (d *Day) Count(kind ShiftKind) int {
	n := 0
	for _, a := range d.Assignments {
		if a.Shift == kind {
			n++
		}
	}
	return n
}

// Schedule 排班表，每个周期日一项
type Schedule struct {
	Days []Day `json:"days"`
}

// NewSchedule 按周期创建空排班表
func NewSchedule(horizon Horizon) *Schedule {
	days := make([]Day, len(horizon))
	for i, h := range horizon {
		days[i] = Day{HorizonDay: h, Assignments: make([]Assignment, 0)}
	}
	return &Schedule{Days: days}
}

// Len 返回天数
func (s *Schedule) Len() int {
	return len(s.Days)
}

// Horizon 返回排班周期
func (s *Schedule) Horizon() Horizon {
	h := make(Horizon, len(s.Days))
	for i, d := range s.Days {
		h[i] = d.HorizonDay
	}
	return h
}

// Find 查找第 dayIndex 天某护士的分配
func (s *Schedule) Find(dayIndex int, nurse string) *Assignment {
	if dayIndex < 0 || dayIndex >= len(s.Days) {
		return nil
	}
	return s.Days[dayIndex].Find(nurse)
}

// Clone 深拷贝
func (s *Schedule) Clone() *Schedule {
	days := make([]Day, len(s.Days))
	for i, d := range s.Days {
		assignments := make([]Assignment, len(d.Assignments))
		copy(assignments, d.Assignments)
		days[i] = Day{HorizonDay: d.HorizonDay, Assignments: assignments}
	}
	return &Schedule{Days: days}
}

// Staffing 每日所需人数
type Staffing struct {
	DayRequired   int `json:"day_required" yaml:"day_required" validate:"gte=0"`
	NightRequired int `json:"night_required" yaml:"night_required" validate:"gte=0"`
}

// DayHeadcount 当日日勤所需人数，周末沿用夜勤人数
func (s Staffing) DayHeadcount(weekend bool) int {
	if weekend {
		return s.NightRequired
	}
	return s.DayRequired
}
