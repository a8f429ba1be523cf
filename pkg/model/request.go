// Package model 定义排班引擎的核心数据模型
package model

import "strings"

// RequestKind 护士某日的勤务希望
type RequestKind string

const (
	RequestAvailable RequestKind = "available"  // 可出勤（无希望）
	RequestDayOnly   RequestKind = "day-only"   // 仅日勤
	RequestDayLate   RequestKind = "day-late"   // 日勤+遅出
	RequestNightOnly RequestKind = "night-only" // 仅夜勤
	RequestPaidLeave RequestKind = "paid-leave" // 公休/有给
)

// IsValid 检查是否为已知的希望类型
func (k RequestKind) IsValid() bool {
	switch k {
	case RequestAvailable, RequestDayOnly, RequestDayLate, RequestNightOnly, RequestPaidLeave:
		return true
	}
	return false
}

// BlocksNight 该希望是否排除夜勤
func (k RequestKind) BlocksNight() bool {
	return k == RequestDayOnly || k == RequestDayLate || k == RequestPaidLeave
}

// requestPhrase 原始文本片段到希望类型的映射
type requestPhrase struct {
	phrase string
	kind   RequestKind
}

// requestPhrases 按顺序做子串匹配，先匹配到的优先
var requestPhrases = []requestPhrase{
	{"公休希望", RequestPaidLeave},
	{"有給休暇希望", RequestPaidLeave},
	{"夜勤のみ可能", RequestNightOnly},
	{"夜勤のみ可", RequestNightOnly},
	{"日勤＋遅出までなら可能", RequestDayLate},
	{"日勤＋遅出までなら可", RequestDayLate},
	{"日勤のみ可能", RequestDayOnly},
	{"日勤のみ可", RequestDayOnly},
	{"休み希望なし", RequestAvailable},
	{"勤務可能", RequestAvailable},
	{"夜勤明けならOK", RequestNightOnly},
	{"夜勤明けの休みならば歓迎", RequestNightOnly},
	{"当直明けなら可", RequestNightOnly},
	{"終日不可", RequestPaidLeave},
	{"日勤のみ不可", RequestNightOnly},
	{"日勤不可", RequestNightOnly},
	{"夜勤のみ不可", RequestDayLate},
	{"夜勤不可", RequestDayLate},
}

// legacyRequestTokens 旧版管理画面使用的标记
var legacyRequestTokens = map[string]RequestKind{
	"no-day":                  RequestNightOnly,
	"no-night":                RequestDayLate,
	"no-all":                  RequestPaidLeave,
	"no-all-but-night-before": RequestNightOnly,
}

// NormalizeRequest 将原始希望文本规范化为 RequestKind，无法识别时返回 RequestAvailable
func NormalizeRequest(raw string) RequestKind {
	s := strings.TrimSpace(raw)
	if s == "" {
		return RequestAvailable
	}

	lower := strings.ToLower(s)
	if kind := RequestKind(lower); kind.IsValid() {
		return kind
	}
	if kind, ok := legacyRequestTokens[lower]; ok {
		return kind
	}

	for _, p := range requestPhrases {
		if strings.Contains(s, p.phrase) {
			return p.kind
		}
	}
	return RequestAvailable
}

// UnmarshalText 实现 encoding.TextUnmarshaler，接受规范编码、旧标记和原始短语
func (k *RequestKind) UnmarshalText(text []byte) error {
	*k = NormalizeRequest(string(text))
	return nil
}
