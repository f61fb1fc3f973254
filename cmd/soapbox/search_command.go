package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"soapbox/internal/search"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term...>",
		Short: "Search the site for playable episodes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			term := strings.Join(args, " ")
			provider := search.New(cfg, store)
			results, err := provider.Search(cmd.Context(), term)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No playable episodes match %q.\n", term)
				return nil
			}

			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{
					result.Episode.ID,
					truncate(result.Episode.Title, 40),
					truncate(result.Excerpt, 60),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Excerpt"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
