// Package compat 提供护士之间的相性表（夜勤同班限制）
package compat

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/paiban/nurseshift/pkg/errors"
)

// Status 两名护士之间的相性
type Status string

const (
	StatusOK    Status = "ok"    // 可以同班
	StatusAvoid Status = "avoid" // 尽量避免同班
	StatusBlock Status = "block" // 禁止同班
)

// Rank 限制强度，ok(1) < avoid(2) < block(3)，未知值视为 ok
func (s Status) Rank() int {
	switch s {
	case StatusAvoid:
		return 2
	case StatusBlock:
		return 3
	default:
		return 1
	}
}

// IsValid 是否为已知相性
func (s Status) IsValid() bool {
	return s == StatusOK || s == StatusAvoid || s == StatusBlock
}

// Merge 同一组合出现多个信号时取更严格的一方
func Merge(current, next Status) Status {
	if next.Rank() > current.Rank() {
		return next
	}
	if !current.IsValid() {
		return StatusOK
	}
	return current
}

// symbols 表格单元格符号
var symbols = map[string]Status{
	"○": StatusOK,
	"◯": StatusOK,
	"o": StatusOK,
	"O": StatusOK,
	"△": StatusAvoid,
	"▲": StatusAvoid,
	"×": StatusBlock,
	"x": StatusBlock,
	"X": StatusBlock,
}

// ParseSymbol 解析单元格符号，空白或无法识别时返回 false
func ParseSymbol(cell string) (Status, bool) {
	s, ok := symbols[strings.TrimSpace(cell)]
	return s, ok
}

type pairKey struct {
	a, b string
}

func keyOf(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// Pair 一组相性记录
type Pair struct {
	A      string `json:"a" validate:"required"`
	B      string `json:"b" validate:"required"`
	Status Status `json:"status" validate:"oneof=ok avoid block"`
}

// Matrix 对称的相性表，未登记的组合视为 ok
type Matrix struct {
	names []string
	known map[string]bool
	pairs map[pairKey]Status
}

// Empty 返回空相性表（全部组合为 ok）
func Empty() *Matrix {
	return &Matrix{
		known: make(map[string]bool),
		pairs: make(map[pairKey]Status),
	}
}

// New 根据名单和相性记录构建相性表
func New(names []string, pairs []Pair) *Matrix {
	m := Empty()
	for _, n := range names {
		m.addName(n)
	}
	for _, p := range pairs {
		m.Set(p.A, p.B, p.Status)
	}
	return m
}

func (m *Matrix) addName(name string) {
	name = strings.TrimSpace(name)
	if name == "" || m.known[name] {
		return
	}
	m.known[name] = true
	m.names = append(m.names, name)
}

// Set 登记一组相性，与已有记录合并
func (m *Matrix) Set(a, b string, status Status) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" || a == b || !status.IsValid() {
		return
	}
	m.addName(a)
	m.addName(b)
	k := keyOf(a, b)
	m.pairs[k] = Merge(m.pairs[k], status)
}

// Status 查询两名护士的相性，与参数顺序无关
func (m *Matrix) Status(a, b string) Status {
	if m == nil {
		return StatusOK
	}
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return StatusOK
	}
	if s, ok := m.pairs[keyOf(a, b)]; ok {
		return s
	}
	return StatusOK
}

// Blocks 候选人是否与已选人员中任意一人禁止同班
func (m *Matrix) Blocks(candidate string, selected []string) bool {
	return m.any(candidate, selected, StatusBlock)
}

// Avoids 候选人是否与已选人员中任意一人需要回避
func (m *Matrix) Avoids(candidate string, selected []string) bool {
	return m.any(candidate, selected, StatusAvoid)
}

func (m *Matrix) any(candidate string, selected []string, status Status) bool {
	for _, s := range selected {
		if m.Status(candidate, s) == status {
			return true
		}
	}
	return false
}

// Names 返回登记的护士名单
func (m *Matrix) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Pairs 返回所有非 ok 的相性记录，按名字排序
func (m *Matrix) Pairs() []Pair {
	if m == nil {
		return nil
	}
	out := make([]Pair, 0, len(m.pairs))
	for k, s := range m.pairs {
		if s == StatusOK {
			continue
		}
		out = append(out, Pair{A: k.a, B: k.b, Status: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

type matrixJSON struct {
	Names []string `json:"names"`
	Pairs []Pair   `json:"pairs"`
}

// MarshalJSON 输出 {names, pairs}
func (m *Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(matrixJSON{Names: m.Names(), Pairs: m.Pairs()})
}

// UnmarshalJSON 读取 {names, pairs}
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var raw matrixJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = *New(raw.Names, raw.Pairs)
	return nil
}

// FromGrid 从二维表格构建相性表。
// 第一行为表头（左上角单元格忽略），第一列为行标签，单元格使用 ○/△/× 符号。
func FromGrid(grid [][]string) (*Matrix, error) {
	if len(grid) < 2 {
		return nil, errors.MalformedMatrix("至少需要表头和一行数据")
	}

	header := grid[0]
	m := Empty()
	labels := 0
	for _, row := range grid[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		labels++
	}
	if labels == 0 {
		return nil, errors.MalformedMatrix("没有行标签")
	}

	for j := 1; j < len(header); j++ {
		m.addName(header[j])
	}
	for _, row := range grid[1:] {
		if len(row) == 0 {
			continue
		}
		rowName := strings.TrimSpace(row[0])
		if rowName == "" {
			continue
		}
		m.addName(rowName)
		for j := 1; j < len(row) && j < len(header); j++ {
			status, ok := ParseSymbol(row[j])
			if !ok {
				continue
			}
			m.Set(rowName, header[j], status)
		}
	}
	return m, nil
}
