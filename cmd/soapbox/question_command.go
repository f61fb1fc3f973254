package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"soapbox/internal/question"
)

func newQuestionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "question",
		Short: "Print the question of the week",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			provider := question.New(cfg)
			text, err := provider.Current(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
