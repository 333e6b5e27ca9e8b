package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handzsujt/data-dir/datadir"
	"github.com/handzsujt/data-dir/internal/layout"
)

var layoutPath string

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create an empty store, optionally scaffolded from a layout manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := datadir.Open(args[0], datadir.Create)
		if err != nil {
			return err
		}
		if layoutPath != "" {
			m, err := layout.Load(layoutPath)
			if err != nil {
				return err
			}
			if err := m.Apply(root); err != nil {
				return err
			}
		}
		fmt.Printf("Initialized store at %s (%d elements)\n", args[0], len(root.List())-1)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVarP(&layoutPath, "layout", "l", "", "Path to an HCL layout manifest")
	rootCmd.AddCommand(initCmd)
}
