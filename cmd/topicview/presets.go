package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/coffersTech/topicview/internal/presets"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List or delete saved browse presets",
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := presets.NewStore(cfg.PresetsFile)
		if err := store.Load(); err != nil {
			return err
		}
		list := store.List()
		if jsonOutput {
			return printJSON(os.Stdout, list)
		}
		if len(list) == 0 {
			fmt.Println("No presets saved")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTOPIC\tFILTERS\tSEARCH\tUPDATED")
		for _, p := range list {
			topic := p.Topic
			if topic == "" {
				topic = "*"
			} else if p.Partition != "" {
				topic += "/" + p.Partition
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, topic, formatFilters(p.Filters), p.Search,
				time.Unix(p.UpdatedAt, 0).Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var presetsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := presets.NewStore(cfg.PresetsFile)
		if err := store.Load(); err != nil {
			return err
		}
		if err := store.Delete(args[0]); err != nil {
			return fmt.Errorf("preset %q: %w", args[0], err)
		}
		fmt.Printf("Deleted preset %s\n", args[0])
		return nil
	},
}

func init() {
	presetsCmd.AddCommand(presetsListCmd)
	presetsCmd.AddCommand(presetsDeleteCmd)
}

func formatFilters(m map[string]string) string {
	parts := make([]string, 0, len(m))
	for field, expr := range m {
		parts = append(parts, field+"="+expr)
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
