package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/handzsujt/data-dir/datadir"
	"github.com/handzsujt/data-dir/frame"
)

var typesSpec string

var importCmd = &cobra.Command{
	Use:   "import [dir] [key] [file.csv]",
	Short: "Import a CSV file as a new dataset",
	Long: `Import reads a CSV file whose first row names the columns and stores it
as a dataset under the given key. All columns default to text; --types
assigns other column types, for example:

  ddir import ./store results/scores scores.csv --types score:number,passed:bool

Empty cells become absent values.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := datadir.Open(args[0], datadir.Append)
		if err != nil {
			return err
		}
		types, err := parseTypesSpec(typesSpec)
		if err != nil {
			return err
		}

		f, err := os.Open(args[2])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		r := csv.NewReader(f)
		header, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%s: no header row", args[2])
			}
			return fmt.Errorf("read %s: %w", args[2], err)
		}
		cols := make([]frame.Column, len(header))
		for i, name := range header {
			cols[i] = frame.Column{Name: name, Type: frame.Text}
			if t, ok := types[name]; ok {
				cols[i].Type = t
			}
		}
		fr, err := frame.New(cols)
		if err != nil {
			return err
		}

		for line := 2; ; line++ {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", args[2], err)
			}
			cells := make([]any, len(rec))
			for i, s := range rec {
				cell, err := parseCell(cols[i], s)
				if err != nil {
					return fmt.Errorf("%s line %d, column %q: %w", args[2], line, cols[i].Name, err)
				}
				cells[i] = cell
			}
			if err := fr.Append(cells...); err != nil {
				return fmt.Errorf("%s line %d: %w", args[2], line, err)
			}
		}

		if err := root.Set(args[1], datadir.NewDataSet(fr)); err != nil {
			return err
		}
		fmt.Printf("Imported %d rows into %s\n", fr.Len(), args[1])
		return nil
	},
}

func parseTypesSpec(spec string) (map[string]frame.Type, error) {
	out := map[string]frame.Type{}
	if spec == "" {
		return out, nil
	}
	for _, part := range strings.Split(spec, ",") {
		name, typ, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("bad column spec %q, want name:type", part)
		}
		out[name] = frame.Type(typ)
	}
	return out, nil
}

func parseCell(c frame.Column, s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	switch c.Type {
	case frame.Number:
		return strconv.ParseFloat(s, 64)
	case frame.Bool:
		return strconv.ParseBool(s)
	case frame.Date:
		return time.Parse(time.RFC3339, s)
	case frame.JSONB:
		return oj.ParseString(s)
	default:
		return s, nil
	}
}

func init() {
	importCmd.Flags().StringVarP(&typesSpec, "types", "t", "", "Comma-separated name:type column overrides")
	rootCmd.AddCommand(importCmd)
}
