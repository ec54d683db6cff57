package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"clientatech-agent/internal/models"
)

type askFunc func(ctx context.Context, question string) (*models.Response, error)

var quitWords = map[string]bool{"exit": true, "quit": true, "sair": true}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "repl",
		Short: "Ask questions interactively until exit, quit or sair",
		Args:  cobra.NoArgs,
		Run:   runREPLCmd,
	})
}

func runREPLCmd(cmd *cobra.Command, _ []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("build pipeline", err)
	}
	defer a.Close()

	if err := repl(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a.Ask); err != nil {
		exitErr("read input", err)
	}
}

// repl answers one question per line. A failed question prints its user
// message and the loop goes on.
func repl(ctx context.Context, in io.Reader, out io.Writer, ask askFunc) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case quitWords[strings.ToLower(line)]:
			return nil
		default:
			resp, err := ask(ctx, line)
			if err != nil {
				printFault(out, err)
			} else {
				printResponse(out, resp)
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
