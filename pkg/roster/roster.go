// Package roster 读写 CSV 格式的希望表、相性表和排班表
package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/paiban/nurseshift/pkg/compat"
	"github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/solver"
)

// 表头列名
const (
	ColumnName       = "氏名"
	ColumnNurseName  = "看護師名"
	ColumnNote       = "備考"
	ColumnCapability = "夜勤設定"
)

const bom = "\ufeff"

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

func readAll(r io.Reader) ([][]string, error) {
	records, err := newReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMalformedRoster, "CSV 解析失败")
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], bom)
	}
	return records, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// requestLayout 希望表的列位置
type requestLayout struct {
	name       int
	note       int
	capability int
	days       []int
	labels     []string
}

func parseRequestHeader(header []string) (*requestLayout, error) {
	l := &requestLayout{name: -1, note: -1, capability: -1}
	for i, raw := range header {
		h := strings.TrimSpace(raw)
		switch {
		case h == ColumnName || h == ColumnNurseName:
			l.name = i
		case h == ColumnNote:
			l.note = i
		case h == ColumnCapability:
			l.capability = i
		case model.IsDayLabel(h):
			l.days = append(l.days, i)
			l.labels = append(l.labels, h)
		}
	}
	if l.name < 0 {
		return nil, errors.MalformedRoster(1, "缺少氏名列")
	}
	if len(l.days) == 0 {
		return nil, errors.MalformedRoster(1, "没有日期列")
	}
	return l, nil
}

// ReadRequests 读取希望表：氏名、可选的備考和夜勤設定列，之后每个日期一列。
// 单元格经 NormalizeRequest 归一化，空行跳过，姓名重复时报错。
func ReadRequests(r io.Reader, year int) ([]*model.Nurse, model.Horizon, error) {
	records, err := readAll(r)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.MalformedRoster(0, "文件为空")
	}

	layout, err := parseRequestHeader(records[0])
	if err != nil {
		return nil, nil, err
	}
	horizon, err := model.HorizonFromLabels(year, layout.labels)
	if err != nil {
		return nil, nil, errors.MalformedRoster(1, err.Error())
	}

	nurses := make([]*model.Nurse, 0, len(records)-1)
	seen := make(map[string]bool)
	for i, row := range records[1:] {
		name := cell(row, layout.name)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, nil, errors.MalformedRoster(i+2, fmt.Sprintf("姓名重复: %s", name))
		}
		seen[name] = true

		n := &model.Nurse{
			Name:     name,
			Note:     cell(row, layout.note),
			Requests: make(map[string]model.RequestKind, len(layout.days)),
		}
		if c, ok := model.NormalizeCapability(cell(row, layout.capability)); ok {
			n.Capability = c
		}
		for j, col := range layout.days {
			n.Requests[layout.labels[j]] = model.NormalizeRequest(cell(row, col))
		}
		nurses = append(nurses, n)
	}
	return nurses, horizon, nil
}

// ReadMatrix 读取相性表：第一行为护士名，第一列为行名
func ReadMatrix(r io.Reader) (*compat.Matrix, error) {
	records, err := readAll(r)
	if err != nil {
		return nil, errors.MalformedMatrix(err.Error())
	}
	return compat.FromGrid(records)
}

// WriteSchedule 导出排班表，每名护士一行，按名单顺序
func WriteSchedule(w io.Writer, nurses []*model.Nurse, schedule *model.Schedule) error {
	cw := csv.NewWriter(w)

	header := append([]string{ColumnNurseName}, schedule.Horizon().Labels()...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "写入表头失败")
	}
	for _, n := range nurses {
		row := make([]string, 0, len(schedule.Days)+1)
		row = append(row, n.Name)
		for i := range schedule.Days {
			shift := model.ShiftOff
			if a := schedule.Days[i].Find(n.Name); a != nil {
				shift = a.Shift
			}
			row = append(row, shift.Label())
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "写入排班失败")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "写入排班失败")
	}
	return nil
}

// ReadSchedule 读取导出的排班表。
// 导出格式不含标记，夜勤次日的休息视为明け休み，希望违反按 nurses 的希望重新判定。
func ReadSchedule(r io.Reader, year int, nurses []*model.Nurse) (*model.Schedule, error) {
	records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.MalformedRoster(0, "文件为空")
	}

	header := records[0]
	if len(header) < 2 {
		return nil, errors.MalformedRoster(1, "没有日期列")
	}
	horizon, err := model.HorizonFromLabels(year, header[1:])
	if err != nil {
		return nil, errors.MalformedRoster(1, err.Error())
	}

	byName := make(map[string]*model.Nurse, len(nurses))
	for _, n := range nurses {
		byName[n.Name] = n
	}

	schedule := model.NewSchedule(horizon)
	for i, row := range records[1:] {
		name := cell(row, 0)
		if name == "" {
			continue
		}
		if schedule.Len() > 0 && schedule.Days[0].Has(name) {
			return nil, errors.MalformedRoster(i+2, fmt.Sprintf("姓名重复: %s", name))
		}
		nurse := byName[name]

		prev := model.ShiftOff
		for d := range schedule.Days {
			day := &schedule.Days[d]
			shift, ok := model.ShiftKindFromLabel(cell(row, d+1))
			if !ok {
				return nil, errors.MalformedRoster(i+2, fmt.Sprintf("无效的班次: %q", cell(row, d+1)))
			}
			a := model.Assignment{
				Nurse:         name,
				Shift:         shift,
				OffAfterNight: shift == model.ShiftOff && d > 0 && prev == model.ShiftNight,
			}
			if nurse != nil {
				a.Violation = solver.CheckViolation(nurse, day.Label, shift)
			}
			day.Put(a)
			prev = shift
		}
	}
	return schedule, nil
}
