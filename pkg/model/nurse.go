package model

import "strings"

// leavePriorityKeywords 备注中出现这些词时优先处理休假
var leavePriorityKeywords = []string{"有給", "旅行", "通院"}

// Nurse 护士
type Nurse struct {
	Name       string                 `json:"name" validate:"required"`
	Note       string                 `json:"note,omitempty"`
	Capability ShiftCapability        `json:"capability"`
	Requests   map[string]RequestKind `json:"requests,omitempty"` // 日期标签 -> 希望
}

// RequestFor 返回某日的希望，未填写视为可出勤
func (n *Nurse) RequestFor(label string) RequestKind {
	if kind, ok := n.Requests[label]; ok && kind.IsValid() {
		return kind
	}
	return RequestAvailable
}

// HasLeavePriority 备注中是否有休假优先关键词
func (n *Nurse) HasLeavePriority() bool {
	for _, kw := range leavePriorityKeywords {
		if strings.Contains(n.Note, kw) {
			return true
		}
	}
	return false
}

// IsNightEligible 是否可以安排夜勤。
// 设置了勤务范围时按范围判断；未设置时，若半数以上日期的希望排除夜勤则视为不可。
func (n *Nurse) IsNightEligible() bool {
	if n.Capability.IsSet() {
		return n.Capability.AllowsNight()
	}
	if len(n.Requests) == 0 {
		return true
	}
	noNight := 0
	for _, kind := range n.Requests {
		if kind.BlocksNight() {
			noNight++
		}
	}
	return float64(noNight)/float64(len(n.Requests)) < 0.5
}

// PrioritizeLeave 返回按休假优先排序后的副本，其余保持原顺序
func PrioritizeLeave(nurses []*Nurse) []*Nurse {
	out := make([]*Nurse, 0, len(nurses))
	for _, n := range nurses {
		if n.HasLeavePriority() {
			out = append(out, n)
		}
	}
	for _, n := range nurses {
		if !n.HasLeavePriority() {
			out = append(out, n)
		}
	}
	return out
}
