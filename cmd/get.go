package cmd

import (
	"fmt"
	"time"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/handzsujt/data-dir/datadir"
	"github.com/handzsujt/data-dir/frame"
)

var queryExpr string

var getCmd = &cobra.Command{
	Use:   "get [dir] [key]",
	Short: "Print an element, an attribute or a JSONPath query result",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := datadir.Open(args[0], datadir.Read)
		if err != nil {
			return err
		}
		if queryExpr != "" {
			results, err := root.Query(queryExpr)
			if err != nil {
				return err
			}
			fmt.Println(oj.JSON(results, 2))
			return nil
		}
		if len(args) < 2 {
			return fmt.Errorf("a key or --query is required")
		}
		got, err := root.Get(args[1])
		if err != nil {
			return err
		}
		fmt.Println(oj.JSON(render(got), 2))
		return nil
	},
}

func render(v any) any {
	switch el := v.(type) {
	case *datadir.Group:
		return el.Document()
	case *datadir.DataSet:
		return map[string]any{
			"type":       "dataset",
			"attributes": el.Attrs,
			"records":    datasetRecords(el),
		}
	case *datadir.Raw:
		return map[string]any{"type": "raw"}
	default:
		return v
	}
}

func datasetRecords(ds *datadir.DataSet) []any {
	cols := ds.Frame.Columns()
	out := make([]any, 0, ds.Frame.Len())
	for i := 0; i < ds.Frame.Len(); i++ {
		row := ds.Frame.Row(i)
		rec := map[string]any{}
		for j, c := range cols {
			if row[j] == nil {
				continue
			}
			v := row[j]
			if t, ok := v.(time.Time); ok && c.Type == frame.Date {
				v = t.Format(time.RFC3339Nano)
			}
			rec[c.Name] = v
		}
		out = append(out, rec)
	}
	return out
}

func init() {
	getCmd.Flags().StringVarP(&queryExpr, "query", "q", "", "JSONPath expression evaluated against the whole store")
	rootCmd.AddCommand(getCmd)
}
