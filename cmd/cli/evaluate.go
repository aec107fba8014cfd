package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/thisisjab/rulezilla/entity"
	"github.com/thisisjab/rulezilla/processor"
	"github.com/thisisjab/rulezilla/rule"
)

type evaluateFlags struct {
	data     string
	dataFile string
	optional []string
}

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	var flags evaluateFlags

	cmd := &cobra.Command{
		Use:   "evaluate <rule>",
		Short: "Evaluate a rule against a JSON record",
		Long: `Evaluate a rule against a JSON object given with --data, or read from
--data-file ("-" reads stdin). Prints true or false.

Examples:
  rulezilla evaluate "age > 18" --data '{"age": 20}'
  rulezilla evaluate "age > 18 AND dept = 'Sales'" --optional dept --data-file record.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}

			record, err := readRecord(cmd, flags)
			if err != nil {
				return err
			}

			e := opts.engine(cmd)

			n, err := e.CreateRule(args[0])
			if err != nil {
				return err
			}
			n = rule.MarkOptionalAll(n, flags.optional...)

			result, err := e.EvaluateRule(n, record)
			if err != nil {
				return err
			}

			if opts.format == formatJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]bool{"result": result})
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), result)
			return err
		},
	}

	cmd.Flags().StringVarP(&flags.data, "data", "d", "", "record as a JSON object")
	cmd.Flags().StringVar(&flags.dataFile, "data-file", "", `file holding the record, "-" for stdin`)
	cmd.Flags().StringSliceVar(&flags.optional, "optional", nil, "attributes whose absence should not fail the rule")
	cmd.MarkFlagsMutuallyExclusive("data", "data-file")
	cmd.MarkFlagsOneRequired("data", "data-file")

	return cmd
}

// readRecord decodes the record with the same processor the engine uses for
// JSON sources.
func readRecord(cmd *cobra.Command, flags evaluateFlags) (map[string]any, error) {
	var raw []byte

	switch {
	case flags.data != "":
		raw = []byte(flags.data)
	case flags.dataFile == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("cannot read stdin: %w", err)
		}
		raw = b
	case flags.dataFile != "":
		b, err := os.ReadFile(flags.dataFile)
		if err != nil {
			return nil, fmt.Errorf("cannot read data file: %w", err)
		}
		raw = b
	default:
		return nil, errors.New("no record given")
	}

	p, err := processor.NewJSONRecordProcessor(processor.JSONRecordProcessorConfig{Name: "cli"})
	if err != nil {
		return nil, err
	}

	return p.Process(entity.RawRecord{Source: "cli", Data: raw, ReceivedAt: time.Now()}, nil)
}
