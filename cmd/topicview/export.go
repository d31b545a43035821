package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch one batch and store it as a compressed export",
	Long: `Fetch one batch and store its raw projections as an export file.

The file goes to the S3 bucket when s3_bucket is configured and to
export_dir otherwise. Filters and search do not narrow an export.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f := readFetchFlags(cmd)
		f.filters, f.search = nil, ""

		v, err := loadView(ctx, cfg, logger, f)
		if err != nil {
			return err
		}
		exporter, err := buildExporter(ctx, cfg, logger)
		if err != nil {
			return err
		}
		location, err := exporter.Export(ctx, v.controller)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, map[string]any{
				"location": location,
				"batchId":  v.controller.BatchID(),
				"rows":     len(v.controller.Rows()),
			})
		}
		fmt.Printf("Exported %d rows to %s\n", len(v.controller.Rows()), location)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("topic", "t", "", "topic to export (empty exports every topic)")
	exportCmd.Flags().StringP("partition", "p", "", "partition to export")
	exportCmd.Flags().IntP("limit", "n", 0, "maximum number of messages (default from config)")
}
