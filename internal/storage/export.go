package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coffersTech/topicview/internal/engine"
)

// Exporter snapshots the applied batch of a controller to a destination.
type Exporter struct {
	writer *ExportWriter
	dest   Destination
	logger *slog.Logger
	now    func() time.Time
}

func NewExporter(codec Codec, dest Destination, logger *slog.Logger) (*Exporter, error) {
	w, err := NewExportWriter(codec)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{writer: w, dest: dest, logger: logger, now: time.Now}, nil
}

// Export writes the raw projections of the controller's current batch and
// returns where the file went.
func (e *Exporter) Export(ctx context.Context, c *engine.Controller) (string, error) {
	rows := c.RawProjections()
	data, err := e.writer.Encode(rows)
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}
	batchID := c.BatchID()
	if batchID == "" {
		batchID = "empty"
	}
	location, err := e.dest.Put(ctx, ExportName(batchID, e.now()), data)
	if err != nil {
		return "", err
	}
	e.logger.Info("batch exported", "batch_id", batchID, "rows", len(rows), "bytes", len(data), "location", location)
	return location, nil
}
