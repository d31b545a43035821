package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/coffersTech/topicview/internal/storage"
	"github.com/coffersTech/topicview/internal/ui"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Verify an export file and print its rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summaryOnly, _ := cmd.Flags().GetBool("summary")

		reader, err := storage.NewExportReader()
		if err != nil {
			return err
		}
		exp, err := reader.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		if jsonOutput {
			if summaryOnly {
				return printJSON(os.Stdout, summaryOf(exp))
			}
			return printJSON(os.Stdout, exp.Rows)
		}
		printSummary(os.Stdout, exp)
		if summaryOnly {
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		for _, row := range exp.Rows {
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().Bool("summary", false, "print only the summary")
}

type exportSummary struct {
	Codec        string `json:"codec"`
	Rows         int    `json:"rows"`
	MinTimestamp int64  `json:"minTimestamp"`
	MaxTimestamp int64  `json:"maxTimestamp"`
}

func summaryOf(exp *storage.Export) exportSummary {
	return exportSummary{
		Codec:        exp.Codec.String(),
		Rows:         len(exp.Rows),
		MinTimestamp: exp.MinTimestamp,
		MaxTimestamp: exp.MaxTimestamp,
	}
}

func printSummary(w io.Writer, exp *storage.Export) {
	s := summaryOf(exp)
	fmt.Fprintf(w, "%s %s, %d rows", ui.RenderAccent("codec"), s.Codec, s.Rows)
	if s.Rows > 0 {
		fmt.Fprintf(w, ", %s .. %s",
			time.UnixMilli(s.MinTimestamp).UTC().Format(time.RFC3339),
			time.UnixMilli(s.MaxTimestamp).UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(w)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
