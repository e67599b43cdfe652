package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jetbrains/qodana-ci/internal/logging"
	"github.com/jetbrains/qodana-ci/pkg/args"
)

func newParseArgsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse-args ARGS",
		Short: "Print how an args input is split into CLI arguments",
		Example: `  qodana-ci parse-args '--linter jetbrains/qodana-jvm --property "idea.suppress=a b"'
  qodana-ci parse-args '-l,jetbrains/qodana-jvm,--property,a=b,c'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			log, err := logging.New(flagDebug)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			tokens, err := args.NewParser(log).Parse(positional[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, token := range tokens {
				fmt.Fprintln(out, token)
			}
			if len(tokens) > 0 {
				fmt.Fprintf(out, "\n%s\n", strings.TrimSpace(args.Suggest(tokens)))
			}
			return nil
		},
	}
}
