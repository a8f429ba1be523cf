package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paiban/nurseshift/pkg/model"
)

func capabilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capability <value>",
		Short: "显示勤务范围的规范化结果",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			c, ok := model.NormalizeCapability(raw)
			if !ok {
				fmt.Fprintf(out, "%q: 未设置（按希望判定夜勤资格）\n", raw)
				return nil
			}
			fmt.Fprintf(out, "%q: %s (%s), 夜勤: %t\n", raw, c.String(), c.Label(), c.AllowsNight())
			return nil
		},
	}
}
