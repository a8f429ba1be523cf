// Package random 提供可复现的随机源，用于草案之间的差异化
package random

// Shuffler 打乱顺序的随机源，*math/rand.Rand 也满足该接口
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// 线性同余参数 (Numerical Recipes)
const (
	lcgMultiplier = 1664525
	lcgIncrement  = 1013904223
)

// LCG 线性同余随机数生成器，状态显式保存，不依赖全局随机源
type LCG struct {
	state uint32
}

// NewLCG 使用种子创建生成器
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// Uint32 返回下一个随机数，模 2^32 由 uint32 溢出完成
func (r *LCG) Uint32() uint32 {
	r.state = r.state*lcgMultiplier + lcgIncrement
	return r.state
}

// Float64 返回 [0,1) 区间的随机数
func (r *LCG) Float64() float64 {
	return float64(r.Uint32()) / 4294967296.0
}

// Intn 返回 [0,n) 区间的随机整数
func (r *LCG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Float64() * float64(n))
}

// Shuffle Fisher-Yates 洗牌
func (r *LCG) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		swap(i, j)
	}
}

// DeriveSeed 为第 index 份草案派生种子
func DeriveSeed(base uint32, index int) uint32 {
	return base + uint32(index)*2654435761
}
