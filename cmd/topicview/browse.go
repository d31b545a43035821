package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/coffersTech/topicview/internal/engine"
	"github.com/coffersTech/topicview/internal/presets"
	"github.com/coffersTech/topicview/internal/ui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Fetch one batch and print it as a table",
	Example: `  topicview browse --topic orders --limit 20
  topicview browse --filter 'amount=>=10' --search alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := readFetchFlags(cmd)
		width, _ := cmd.Flags().GetInt("width")
		presetName, _ := cmd.Flags().GetString("preset")
		saveAs, _ := cmd.Flags().GetString("save-preset")

		var store *presets.Store
		if presetName != "" || saveAs != "" {
			store = presets.NewStore(cfg.PresetsFile)
			if err := store.Load(); err != nil {
				return err
			}
		}
		if presetName != "" {
			p, ok := store.Get(presetName)
			if !ok {
				return fmt.Errorf("preset %q: %w", presetName, presets.ErrNotFound)
			}
			f = applyPreset(f, p, cmd.Flags().Changed)
		}

		v, err := loadView(cmd.Context(), cfg, logger, f)
		if err != nil {
			return err
		}
		if saveAs != "" {
			if err := store.Put(presetOf(saveAs, f, v)); err != nil {
				return fmt.Errorf("saving preset: %w", err)
			}
			logger.Info("preset saved", "name", saveAs, "file", cfg.PresetsFile)
		}
		if jsonOutput {
			return printViewJSON(os.Stdout, v)
		}
		return printViewTable(os.Stdout, v, width)
	},
}

func init() {
	addFetchFlags(browseCmd)
	browseCmd.Flags().Int("width", 0, "maximum cell width (negative disables truncation)")
	browseCmd.Flags().String("preset", "", "start from a saved preset; explicit flags win")
	browseCmd.Flags().String("save-preset", "", "save topic, filters and search under this name")
}

// applyPreset fills the flags the user did not set from p. Preset filters
// come first so a --filter on the same field replaces them.
func applyPreset(f fetchFlags, p presets.Preset, changed func(string) bool) fetchFlags {
	if !changed("topic") {
		f.topic = p.Topic
	}
	if !changed("partition") {
		f.partition = p.Partition
	}
	if !changed("search") {
		f.search = p.Search
	}
	fields := make([]string, 0, len(p.Filters))
	for field := range p.Filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	filters := make([]string, 0, len(fields)+len(f.filters))
	for _, field := range fields {
		filters = append(filters, field+"="+p.Filters[field])
	}
	f.filters = append(filters, f.filters...)
	return f
}

func presetOf(name string, f fetchFlags, v *loadedView) presets.Preset {
	return presets.Preset{
		Name:      name,
		Topic:     f.topic,
		Partition: f.partition,
		Filters:   v.grid.FilterModel(),
		Search:    v.controller.Search(),
	}
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("topic", "t", "", "topic to browse (empty browses every topic)")
	cmd.Flags().StringP("partition", "p", "", "partition to browse")
	cmd.Flags().IntP("limit", "n", 0, "maximum number of messages (default from config)")
	cmd.Flags().StringArrayP("filter", "f", nil, "column filter as field=expression (repeatable)")
	cmd.Flags().StringP("search", "s", "", "search text matched against value and key")
}

func readFetchFlags(cmd *cobra.Command) fetchFlags {
	var f fetchFlags
	f.topic, _ = cmd.Flags().GetString("topic")
	f.partition, _ = cmd.Flags().GetString("partition")
	f.limit, _ = cmd.Flags().GetInt("limit")
	f.filters, _ = cmd.Flags().GetStringArray("filter")
	f.search, _ = cmd.Flags().GetString("search")
	return f
}

type browseOutput struct {
	Title   string                    `json:"title"`
	Warning string                    `json:"warning,omitempty"`
	BatchID string                    `json:"batchId"`
	Columns []engine.ColumnDefinition `json:"columns"`
	Rows    [][]string                `json:"rows"`
}

func printViewJSON(w io.Writer, v *loadedView) error {
	cols, cells := v.grid.Render()
	if cells == nil {
		cells = [][]string{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(browseOutput{
		Title:   v.controller.Title(),
		Warning: v.controller.Warning(),
		BatchID: v.controller.BatchID(),
		Columns: cols,
		Rows:    cells,
	})
}

func printViewTable(w io.Writer, v *loadedView, width int) error {
	cols, cells := v.grid.Render()
	fmt.Fprintln(w, ui.RenderAccent(v.controller.Title()))
	if warn := v.controller.Warning(); warn != "" {
		fmt.Fprintln(w, ui.RenderWarning(warn))
	}
	if err := (ui.Table{MaxCellWidth: width}).Render(w, cols, cells); err != nil {
		return err
	}
	stats := v.controller.Stats()
	fmt.Fprintln(w, ui.RenderMuted(fmt.Sprintf("%d of %d rows, %d payload columns", len(cells), stats.Rows, stats.Columns)))
	return nil
}
