package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vearutop/tilesplit"
)

func newRootCommand() *cobra.Command {
	var (
		configFlag string
		debugFlag  bool
		inputFlag  string
		leftFlag   string
		rightFlag  string
	)

	ctx := newCommandContext(&configFlag, &debugFlag)

	rootCmd := &cobra.Command{
		Use:   "tilesplit --input <image> [--left-output <path>] [--right-output <path>]",
		Short: "Split a 16:10 or 3:2 image into two Ultra HDR preserving tiles",
		Long: `tilesplit crops an image to 16:10 and writes its left and right halves.

Ultra HDR JPEG inputs keep their gain map in both tiles. Other inputs are split
without one. Output paths default to <dir>/<stem>-left.jpg and <dir>/<stem>-right.jpg.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.TrimSpace(inputFlag)
			if input == "" {
				_ = cmd.Usage()
				return fmt.Errorf("%w: --input is required", tilesplit.ErrUsage)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			left, right := tilesplit.OutputPaths(input, cfg.Output.LeftSuffix, cfg.Output.RightSuffix)
			if leftFlag != "" {
				left = leftFlag
			}
			if rightFlag != "" {
				right = rightFlag
			}

			opts, err := ctx.options(cmd, func(res *tilesplit.Result) {
				printSummary(cmd.OutOrStdout(), input, res)
			})
			if err != nil {
				return err
			}
			return tilesplit.Run(tilesplit.SplitParams{
				Input:       input,
				LeftOutput:  left,
				RightOutput: right,
				Debug:       debugFlag,
			}, opts)
		},
	}
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", tilesplit.ErrUsage, err)
	})

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Write the diagnostic trace to stderr")
	rootCmd.Flags().StringVarP(&inputFlag, "input", "i", "", "Source image")
	rootCmd.Flags().StringVar(&leftFlag, "left-output", "", "Left tile path (default <dir>/<stem>-left.jpg)")
	rootCmd.Flags().StringVar(&rightFlag, "right-output", "", "Right tile path (default <dir>/<stem>-right.jpg)")

	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
