package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"diehard/db"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show previous training runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Path == "" {
			return errors.New("history is disabled: database.path is empty")
		}
		if err := db.InitDB(cfg.Database.Path); err != nil {
			return err
		}
		defer db.Close()

		logs, err := db.LoadTrainingLog(historyLimit)
		if err != nil {
			return err
		}
		return printHistory(cmd.OutOrStdout(), logs)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show (0 for all)")
}

func printHistory(out io.Writer, logs []db.TrainingLog) error {
	if len(logs) == 0 {
		_, err := fmt.Fprintln(out, "no training runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRAINED AT\tRUN ID\tMODE\tITERATIONS\tUPDATES\tACCURACY\tPRECISION\tRECALL\tROWS")
	for _, l := range logs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.2f\t%.2f\t%.2f\t%d\n",
			l.TrainedAt.Local().Format("2006-01-02 15:04:05"),
			l.RunID, l.Mode, l.Iterations, l.Updates,
			l.Accuracy, l.Precision, l.Recall, l.DataPoints)
	}
	return tw.Flush()
}
