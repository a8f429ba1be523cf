package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paiban/nurseshift/internal/repository"
	"github.com/paiban/nurseshift/internal/service"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/roster"
	"github.com/paiban/nurseshift/pkg/validator"
)

func validateCmd(a *app) *cobra.Command {
	var requests, schedulePath, matrixPath string
	var year, day, night int

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "校验排班表",
		Long:  `按希望表和相性表检查导出的排班表，存在错误级别的冲突时以非零状态退出。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			y := a.year(year)
			nurses, _, err := readRequestsFile(requests, y)
			if err != nil {
				return err
			}
			matrix, err := readMatrixFile(matrixPath)
			if err != nil {
				return err
			}

			f, err := os.Open(schedulePath)
			if err != nil {
				return fmt.Errorf("打开排班表失败: %w", err)
			}
			defer f.Close()
			schedule, err := roster.ReadSchedule(f, y, nurses)
			if err != nil {
				return err
			}

			staffing := model.Staffing{DayRequired: a.cfg.Scheduler.DayRequired, NightRequired: a.cfg.Scheduler.NightRequired}
			if cmd.Flags().Changed("day") {
				staffing.DayRequired = day
			}
			if cmd.Flags().Changed("night") {
				staffing.NightRequired = night
			}

			svc := service.NewScheduleService(repository.NewMemoryDraftRepository(), a.cfg.Scheduler, nil)
			resp, err := svc.Validate(&service.ValidateRequest{
				Nurses:   nurses,
				Matrix:   matrix,
				Schedule: schedule,
				Staffing: &staffing,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range resp.Conflicts {
				fmt.Fprintf(out, "[%s] %s %s: %s\n", c.Severity, c.Day, c.Type, c.Message)
			}
			for _, t := range conflictTypes {
				if n := len(validator.Filter(resp.Conflicts, t)); n > 0 {
					fmt.Fprintf(out, "  %s: %d\n", t, n)
				}
			}
			errCount := len(resp.Conflicts) - countSeverity(resp.Conflicts, validator.SeverityWarning)
			fmt.Fprintf(out, "共 %d 项冲突, 其中错误 %d 项\n", len(resp.Conflicts), errCount)
			if !resp.Valid {
				return fmt.Errorf("排班表存在 %d 项错误", errCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&requests, "requests", "r", "", "希望表 CSV 路径")
	cmd.Flags().StringVarP(&schedulePath, "schedule", "s", "", "排班表 CSV 路径")
	cmd.Flags().StringVarP(&matrixPath, "matrix", "m", "", "相性表 CSV 路径")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "排班年份")
	cmd.Flags().IntVar(&day, "day", 0, "每日日勤人数")
	cmd.Flags().IntVar(&night, "night", 0, "每日夜勤人数")
	_ = cmd.MarkFlagRequired("requests")
	_ = cmd.MarkFlagRequired("schedule")

	return cmd
}

// conflictTypes 汇总输出的顺序
var conflictTypes = []validator.ConflictType{
	validator.ConflictCoverage,
	validator.ConflictRest,
	validator.ConflictBlock,
	validator.ConflictViolationFlag,
	validator.ConflictUnderstaffed,
}

func countSeverity(conflicts []validator.Conflict, s validator.Severity) int {
	n := 0
	for _, c := range conflicts {
		if c.Severity == s {
			n++
		}
	}
	return n
}
