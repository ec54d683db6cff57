package main

import (
	"fmt"

	"github.com/spf13/cobra"

	invalidatecache "clientatech-agent/internal/workers/query-router/invalidate-cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the query cache",
}

func init() {
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Drop every cached answer",
		Args:  cobra.NoArgs,
		Run:   runCachePurge,
	})
	rootCmd.AddCommand(cacheCmd)
}

func runCachePurge(cmd *cobra.Command, _ []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("build pipeline", err)
	}
	defer a.Close()

	out, err := a.Invalidator.Execute(cmd.Context(), &invalidatecache.Input{Reason: "manual", Source: "ask-cli"})
	if err != nil {
		exitErr("purge cache", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d entries\n", out.Purged)
}
