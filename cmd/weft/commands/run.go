package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/weft/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Load the given root scene files and their manifest trees",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			root, _ := cmd.Flags().GetString("root")
			watch, _ := cmd.Flags().GetBool("watch")

			return c.app.Run(cmd.Context(), args, app.RunOptions{
				Root:  root,
				Watch: watch,
			})
		},
	}
	cmd.Flags().StringP("root", "r", ".", "Directory scene file paths are resolved against")
	cmd.Flags().BoolP("watch", "w", false, "Keep running and hot-reload scene files on change")
	return cmd
}
