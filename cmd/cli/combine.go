package main

import (
	"github.com/spf13/cobra"
)

func newCombineCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "combine <rule>...",
		Short: "Combine rules with OR",
		Long: `Parse every rule and fold them with OR in the given order, so
"combine a b c" prints ((a OR b) OR c).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}

			n, err := opts.engine(cmd).CombineRules(args)
			if err != nil {
				return err
			}

			return opts.printTree(cmd.OutOrStdout(), n)
		},
	}
}
