package main

import (
	"github.com/spf13/cobra"
	"github.com/thisisjab/rulezilla/rule"
)

func newParseCmd(opts *rootOptions) *cobra.Command {
	var optional []string

	cmd := &cobra.Command{
		Use:   "parse <rule>",
		Short: "Parse a rule and print its tree",
		Long: `Parse a rule and print it back fully parenthesized, or as a JSON tree
with --format json.

Examples:
  rulezilla parse "age > 18 AND dept = 'Sales'"
  rulezilla parse "age > 18 AND dept = 'Sales'" --optional dept --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}

			n, err := opts.engine(cmd).CreateRule(args[0])
			if err != nil {
				return err
			}

			return opts.printTree(cmd.OutOrStdout(), rule.MarkOptionalAll(n, optional...))
		},
	}

	cmd.Flags().StringSliceVar(&optional, "optional", nil, "attributes whose absence should not fail the rule")

	return cmd
}
