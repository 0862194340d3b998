package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"retail-dashboard/internal/assistant"
)

func newAskCmd(a *app) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question about the filtered data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question cannot be empty")
			}

			_, view, err := a.filtered(cmd.Context(), cmd)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("mode") {
				mode = a.cfg.AssistantMode
			}
			responder := assistant.New(assistant.Options{
				Mode:        mode,
				APIKey:      a.cfg.APIKey,
				BaseURL:     a.cfg.BaseURL,
				Model:       a.cfg.Model,
				Timeout:     a.cfg.Timeout,
				Temperature: a.cfg.Temperature,
				MaxTokens:   a.cfg.MaxTokens,
			}, a.logger)

			fmt.Fprintln(a.out, responder.Answer(cmd.Context(), question, view))
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", assistant.ModeRules, "responder: rules or llm (default from config)")
	return cmd
}
