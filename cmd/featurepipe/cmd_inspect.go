package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viniciusrubens/featurepipe/pkg/artifact"
)

func newInspectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the run info of the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			info, err := artifact.NewOS(cfg.Artifacts.Dir).LoadRunInfo(cfg.Artifacts.RunInfoFile)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(info, "", "    ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
