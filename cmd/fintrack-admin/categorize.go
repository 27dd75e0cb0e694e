package main

import (
	"fmt"
	"strings"

	"fintrack/internal/categorizer"
	"fintrack/internal/defaults"

	"github.com/spf13/cobra"
)

func newCategorizeCmd(a *app) *cobra.Command {
	var merchant, file string

	cmd := &cobra.Command{
		Use:   "categorize [description]",
		Short: "Categorize a description with the default keyword dictionary",
		Long: `categorize runs the categorizer against the keyword dictionary from the
defaults file (or the built-in set) and reports which keyword matched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = a.cfg.DefaultsFile
			}
			set, err := defaults.Load(file)
			if err != nil {
				return err
			}

			dict := make([]categorizer.KeywordEntry, 0, len(set.Keywords))
			for _, k := range set.Keywords {
				dict = append(dict, categorizer.KeywordEntry{Keyword: k.Keyword, CategoryID: k.Category})
			}
			m := categorizer.Explain(categorizer.Input{
				Description: strings.Join(args, " "),
				Merchant:    merchant,
				Dictionary:  dict,
			})

			out := cmd.OutOrStdout()
			if !m.Matched() {
				fmt.Fprintln(out, "no match")
				return nil
			}
			fmt.Fprintf(out, "%s (keyword %q)\n", m.CategoryID, m.Pattern)
			return nil
		},
	}
	cmd.Flags().StringVarP(&merchant, "merchant", "m", "", "Merchant name")
	cmd.Flags().StringVarP(&file, "defaults", "f", "", "Defaults YAML file (default: $DEFAULTS_FILE or built-in)")
	return cmd
}
