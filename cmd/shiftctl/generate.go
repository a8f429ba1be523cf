package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/paiban/nurseshift/internal/repository"
	"github.com/paiban/nurseshift/internal/service"
	"github.com/paiban/nurseshift/pkg/compat"
	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/roster"
	"github.com/paiban/nurseshift/pkg/scheduler/draft"
)

type generateFlags struct {
	requests string
	matrix   string
	year     int
	month    int
	out      string
	opts     service.OptionsRequest
}

func generateCmd(a *app) *cobra.Command {
	var f generateFlags
	var drafts, day, night, target, holidays, iterations int
	var seed uint32

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "从希望表生成排班草案",
		Long: `读取希望表（可选相性表），生成多份排班草案并写出 draft-<n>.csv。
数据库驱动为 postgres 时草案批次同时保存到数据库。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 只覆盖显式指定的参数，其余使用配置
			flags := cmd.Flags()
			if flags.Changed("drafts") {
				f.opts.DraftCount = &drafts
			}
			if flags.Changed("day") {
				f.opts.DayRequired = &day
			}
			if flags.Changed("night") {
				f.opts.NightRequired = &night
			}
			if flags.Changed("target") {
				f.opts.TargetWorkDays = &target
			}
			if flags.Changed("holidays") {
				f.opts.TargetHolidays = &holidays
			}
			if flags.Changed("iterations") {
				f.opts.RefineIterations = &iterations
			}
			if flags.Changed("seed") {
				f.opts.Seed = &seed
			}
			return runGenerate(cmd, a, &f)
		},
	}

	cmd.Flags().StringVarP(&f.requests, "requests", "r", "", "希望表 CSV 路径")
	cmd.Flags().StringVarP(&f.matrix, "matrix", "m", "", "相性表 CSV 路径")
	cmd.Flags().IntVarP(&f.year, "year", "y", 0, "排班年份（默认使用配置或当前年份）")
	cmd.Flags().IntVar(&f.month, "month", 0, "批次月份（默认取希望表第一天的月份）")
	cmd.Flags().StringVarP(&f.out, "out", "o", ".", "草案输出目录")
	cmd.Flags().IntVarP(&drafts, "drafts", "n", 0, "草案数量")
	cmd.Flags().Uint32Var(&seed, "seed", 0, "随机种子")
	cmd.Flags().IntVar(&day, "day", 0, "每日日勤人数")
	cmd.Flags().IntVar(&night, "night", 0, "每日夜勤人数")
	cmd.Flags().IntVar(&target, "target", 0, "目标出勤日数")
	cmd.Flags().IntVar(&holidays, "holidays", 0, "目标休日数（不指定时使用平均值）")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "公平性调整轮数")
	_ = cmd.MarkFlagRequired("requests")

	return cmd
}

func runGenerate(cmd *cobra.Command, a *app, f *generateFlags) error {
	year := a.year(f.year)
	nurses, horizon, err := readRequestsFile(f.requests, year)
	if err != nil {
		return err
	}
	if len(horizon) == 0 {
		return fmt.Errorf("希望表没有日期列: %s", f.requests)
	}
	matrix, err := readMatrixFile(f.matrix)
	if err != nil {
		return err
	}

	store, err := repository.Open(a.ctx, &a.cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := service.NewScheduleService(store.Repo, a.cfg.Scheduler, nil)
	opts := svc.Options(&f.opts)
	in := &draft.Input{Nurses: nurses, Horizon: horizon, Matrix: matrix}

	month := f.month
	if month == 0 {
		month = int(horizon[0].Date.Month())
	}
	batch, err := svc.Run(a.ctx, in, opts, year, month)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(f.out, 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "批次 %s: %d 名护士, %d 天, 种子 %d\n", batch.ID, len(nurses), len(horizon), opts.Seed)
	for _, d := range batch.Drafts {
		path := filepath.Join(f.out, fmt.Sprintf("draft-%d.csv", d.Index+1))
		if err := writeScheduleFile(path, nurses, d.Schedule); err != nil {
			return err
		}
		fmt.Fprintf(out, "草案 %d: 得分 %.2f, 公平性 %.1f, 警告 %d -> %s\n",
			d.Index+1, d.Score, d.Fairness.OverallFairnessScore, len(d.Warnings), path)
		for _, w := range d.Warnings {
			logger.Debug().Str("draft", d.ID.String()).Msg(w.Message)
		}
	}
	return nil
}

func readRequestsFile(path string, year int) ([]*model.Nurse, model.Horizon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("打开希望表失败: %w", err)
	}
	defer f.Close()
	return roster.ReadRequests(f, year)
}

// readMatrixFile 未指定路径时返回空相性表
func readMatrixFile(path string) (*compat.Matrix, error) {
	if path == "" {
		return compat.Empty(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开相性表失败: %w", err)
	}
	defer f.Close()
	return roster.ReadMatrix(f)
}

func writeScheduleFile(path string, nurses []*model.Nurse, schedule *model.Schedule) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建草案文件失败: %w", err)
	}
	if err := roster.WriteSchedule(f, nurses, schedule); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
