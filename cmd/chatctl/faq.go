package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/supportchat/internal/faq"
)

func newFAQCmd(g *globals) *cobra.Command {
	var path string
	load := func() (*faq.Matcher, error) {
		if path == "" {
			path = g.cfg.FAQPath
		}
		return faq.LoadOrDefault(path)
	}

	cmd := &cobra.Command{
		Use:   "faq",
		Short: "Inspect the FAQ set",
	}
	cmd.PersistentFlags().StringVar(&path, "file", "", "FAQ YAML file; defaults to FAQ_PATH or the built-in set")

	cmd.AddCommand(&cobra.Command{
		Use:   "match <question>",
		Short: "Show the FAQ answer a message would get",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := load()
			if err != nil {
				return err
			}
			entry, ok := m.Match(strings.Join(args, " "))
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no match")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Q: %s\nA: %s\n", entry.Question, entry.Answer)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List FAQ questions in match order",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := load()
			if err != nil {
				return err
			}
			for i, e := range m.Entries() {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", i+1, e.Question)
			}
			return nil
		},
	})
	return cmd
}
