package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/jdecomp/internal/envcheck"
	"github.com/Iron-Ham/jdecomp/internal/errors"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured decompiler",
	Long: `Check that decompiler.path names an existing regular file.

On a terminal a failing check offers to fix the path and saves the new
value to the active config file.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res := rt.validator.Validate(ctx, rt.cfg, rt.mode)
	if !res.Usable() {
		if res.Err == nil {
			return fmt.Errorf("decompiler check failed (%s)", res.Code)
		}
		return errors.Wrap(res.Err, "decompiler check failed")
	}
	if res.Reconfigured {
		rt.persist(res.Config)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Decompiler: %s\n", envcheck.ExecutablePath(res.Config.Decompiler.Path))
	fmt.Fprintf(cmd.OutOrStdout(), "Mode: %s\n", rt.mode)
	return nil
}
