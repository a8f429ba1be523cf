package model

import (
	"strings"
)

// ShiftCapability 护士申报的勤务范围，按夜勤许可程度递增
type ShiftCapability int

const (
	CapabilityUnset    ShiftCapability = iota // 未设置
	CapabilityDayOnly                         // 日勤のみ
	CapabilityDayLate                         // 日勤＋遅出
	CapabilityDayNight                        // 日勤＋夜勤（遅出なし）
	CapabilityAll                             // 全部する
)

var capabilityCodes = map[ShiftCapability]string{
	CapabilityDayOnly:  "day-only",
	CapabilityDayLate:  "day-late",
	CapabilityDayNight: "day-night",
	CapabilityAll:      "all",
}

var capabilityLabels = map[ShiftCapability]string{
	CapabilityDayOnly:  "日勤のみ",
	CapabilityDayLate:  "日勤＋遅出",
	CapabilityDayNight: "日勤＋夜勤（遅出なし）",
	CapabilityAll:      "全部する",
}

// labelAliases 标签的其他写法
var labelAliases = map[string]ShiftCapability{
	"日勤＋夜勤":       CapabilityDayNight,
	"日勤+夜勤":       CapabilityDayNight,
	"日勤+夜勤(遅出なし)": CapabilityDayNight,
	"日勤+遅出":       CapabilityDayLate,
}

// legacyCapabilities 旧数据中的布尔/字符串写法
var legacyCapabilities = map[string]ShiftCapability{
	"night": CapabilityAll,
	"late":  CapabilityDayLate,
	"day":   CapabilityDayOnly,
	"on":    CapabilityAll,
	"true":  CapabilityAll,
	"off":   CapabilityDayLate,
	"false": CapabilityDayLate,
}

// String 返回规范编码
func (c ShiftCapability) String() string {
	if code, ok := capabilityCodes[c]; ok {
		return code
	}
	return ""
}

// Label 返回显示名称
func (c ShiftCapability) Label() string {
	return capabilityLabels[c]
}

// IsSet 是否已设置
func (c ShiftCapability) IsSet() bool {
	return c != CapabilityUnset
}

// AllowsNight 是否允许夜勤
func (c ShiftCapability) AllowsNight() bool {
	return c >= CapabilityDayNight
}

// NormalizeCapability 规范化勤务范围，无法识别时返回 (CapabilityUnset, false)
func NormalizeCapability(raw string) (ShiftCapability, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return CapabilityUnset, false
	}
	lower := strings.ToLower(s)

	for c, code := range capabilityCodes {
		if lower == code {
			return c, true
		}
	}
	for c, label := range capabilityLabels {
		if s == label {
			return c, true
		}
	}
	if c, ok := labelAliases[s]; ok {
		return c, true
	}
	if c, ok := legacyCapabilities[lower]; ok {
		return c, true
	}
	return CapabilityUnset, false
}

// MarshalText 实现 encoding.TextMarshaler
func (c ShiftCapability) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler，无法识别的值视为未设置
func (c *ShiftCapability) UnmarshalText(text []byte) error {
	*c, _ = NormalizeCapability(string(text))
	return nil
}
