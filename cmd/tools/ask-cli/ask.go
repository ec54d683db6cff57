package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question and exit",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAsk,
	})
}

func runAsk(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("build pipeline", err)
	}

	resp, err := a.Ask(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		printFault(cmd.OutOrStdout(), err)
		_ = a.Close()
		os.Exit(1)
	}
	printResponse(cmd.OutOrStdout(), resp)
	_ = a.Close()
}
