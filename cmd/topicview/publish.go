package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coffersTech/topicview/internal/source"
)

var publishCmd = &cobra.Command{
	Use:   "publish <file>",
	Short: "Publish the records of a file to NATS",
	Long: `Publish every record of a JSON or JSON-lines file on its
<prefix>.<topic>.<partition> subject. A running serve or browse picks them up.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		if cfg.NATSURL == "" {
			return errors.New("publish needs nats_url")
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		records, err := source.DecodeRecords(data)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", args[0], err)
		}

		nf, err := source.NewNATSFetcher(cfg.NATSURL, cfg.NATSPrefix, logger)
		if err != nil {
			return err
		}
		defer nf.Close()

		for _, rec := range records {
			if topic != "" {
				rec.Topic = topic
			}
			if err := nf.Publish(rec); err != nil {
				return err
			}
		}
		if err := nf.Flush(); err != nil {
			return err
		}
		logger.Info("records published", "count", len(records), "prefix", cfg.NATSPrefix)
		fmt.Printf("Published %d records\n", len(records))
		return nil
	},
}

func init() {
	publishCmd.Flags().StringP("topic", "t", "", "publish every record on this topic")
}
