// shiftctl 护士排班草案命令行工具
package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/paiban/nurseshift/internal/config"
	"github.com/paiban/nurseshift/pkg/logger"
)

// app 命令共享的运行时依赖
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	ctx        context.Context
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{ctx: context.Background()}

	rootCmd := &cobra.Command{
		Use:           "shiftctl",
		Short:         "护士排班草案工具",
		Long:          `从希望表（CSV）生成多份护士排班草案，校验已有排班，检查勤务范围的写法。`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML 配置文件路径")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "日志级别 (debug, info, warn, error)")

	rootCmd.AddCommand(generateCmd(a))
	rootCmd.AddCommand(validateCmd(a))
	rootCmd.AddCommand(capabilityCmd())

	return rootCmd
}

// init 加载配置并初始化日志
func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.App.LogLevel = a.logLevel
	}
	a.cfg = cfg

	// 命令行输出占用 stdout，日志写到 stderr
	logger.Init(logger.Config{
		Level:      cfg.App.LogLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.TimeOnly,
	})
	return nil
}

// year 未指定时使用配置中的年份，再退回到当前年份
func (a *app) year(flag int) int {
	if flag > 0 {
		return flag
	}
	if a.cfg != nil && a.cfg.Scheduler.Year > 0 {
		return a.cfg.Scheduler.Year
	}
	return time.Now().Year()
}
