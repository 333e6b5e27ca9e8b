package cmd

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handzsujt/data-dir/datadir"
)

var treeStats bool

var treeCmd = &cobra.Command{
	Use:   "tree [dir]",
	Short: "Print the hierarchy of a store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := datadir.Open(args[0], datadir.Read)
		if err != nil {
			return err
		}
		for _, key := range root.List() {
			if key == "" {
				fmt.Println(args[0])
				continue
			}
			indent := strings.Repeat("  ", strings.Count(key, "/")+1)
			n, ok := root.Tree().Get(key)
			if !ok {
				continue
			}
			fmt.Printf("%s%s%s\n", indent, path.Base(key), describe(root, key, n.Element))
		}
		return nil
	},
}

func describe(root *datadir.Group, key string, el datadir.Element) string {
	switch el.(type) {
	case *datadir.Group:
		return "/"
	case *datadir.DataSet:
		if !treeStats {
			return "  [dataset]"
		}
		got, err := root.Get(key)
		if err != nil {
			return fmt.Sprintf("  [dataset: %v]", err)
		}
		ds := got.(*datadir.DataSet)
		return fmt.Sprintf("  [dataset: %d rows, %d columns]", ds.Frame.Len(), len(ds.Frame.Columns()))
	case *datadir.Raw:
		return "  [raw]"
	}
	return ""
}

func init() {
	treeCmd.Flags().BoolVarP(&treeStats, "stats", "s", false, "Load dataset payloads and print row counts")
	rootCmd.AddCommand(treeCmd)
}
