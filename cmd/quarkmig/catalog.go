package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oxhq/quarkmig/internal/lang/java"
	"github.com/oxhq/quarkmig/internal/rules"
)

type ruleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *app) rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the migration rules in the order they run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := rules.Default()
			registry, err := rules.Builtin(cat, java.NewParser(cat.NewClasspath()))
			if err != nil {
				return err
			}
			var list []ruleInfo
			for _, r := range registry.List() {
				list = append(list, ruleInfo{Name: r.Name(), Description: r.Description()})
			}
			if a.jsonOut {
				return a.printJSON(list)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for i, r := range list {
				fmt.Fprintf(tw, "%d.\t%s\t%s\n", i+1, bold(r.Name), r.Description)
			}
			return tw.Flush()
		},
	}
}
