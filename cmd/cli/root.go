package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/thisisjab/rulezilla/rule"
	"github.com/thisisjab/rulezilla/rule/ast"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type rootOptions struct {
	verbose bool
	format  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "rulezilla",
		Short: "Parse, evaluate and combine rules",
		Long: `rulezilla works with rules such as

  (age > 30 AND department = 'Sales') OR salary >= 50000

without a server. Rules are parsed into trees, evaluated against JSON
records and combined with OR.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", formatText, "output format: text, json")

	cmd.AddCommand(
		newParseCmd(opts),
		newEvaluateCmd(opts),
		newCombineCmd(opts),
	)

	return cmd
}

func (o *rootOptions) engine(cmd *cobra.Command) *rule.Engine {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}

	return rule.NewEngine(slog.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{Level: level})))
}

func (o *rootOptions) validate() error {
	switch o.format {
	case formatText, formatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format %q: expected text or json", o.format)
	}
}

// printTree writes the rendered rule, or its JSON tree with --format json.
func (o *rootOptions) printTree(w io.Writer, n ast.Node) error {
	if o.format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ast.Tree{Root: n})
	}

	_, err := fmt.Fprintln(w, ast.String(n))
	return err
}
