package cli

import (
	"github.com/spf13/cobra"

	"go-image-identifier/internal/console"
	"go-image-identifier/internal/container"
)

func newConsoleCmd(flags *rootFlags, opts []container.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Line-oriented session with command history",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.build(true, opts)
			if err != nil {
				return err
			}
			defer c.Close()

			c.Session().Start(cmd.Context())
			con := console.New(c.Session(), c.LocalFiles(), c.Metrics(), cmd.OutOrStdout())
			return con.Run(cmd.Context())
		},
	}
}
