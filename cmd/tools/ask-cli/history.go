package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historySize int

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently answered questions",
		Args:  cobra.NoArgs,
		Run:   runHistory,
	}
	cmd.Flags().IntVarP(&historySize, "limit", "n", 20, "Number of records")
	rootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, _ []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("build pipeline", err)
	}
	defer a.Close()

	if a.Recent == nil {
		exitErr("history", errors.New("elasticsearch history is disabled"))
	}
	records, err := a.Recent.Recent(cmd.Context(), historySize)
	if err != nil {
		exitErr("history", err)
	}

	out := cmd.OutOrStdout()
	if formatFlag == "json" {
		b, _ := json.MarshalIndent(records, "", "  ")
		fmt.Fprintln(out, string(b))
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tINTENT\tCACHE\tROWS\tFAULT\tQUESTION")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%s\t%s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.Intent, r.CacheHit, r.RowCount, r.FaultCode, r.Question)
	}
	tw.Flush()
}
