package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coffersTech/topicview/internal/config"
	"github.com/coffersTech/topicview/internal/engine"
	"github.com/coffersTech/topicview/internal/grid"
	"github.com/coffersTech/topicview/internal/source"
	"github.com/coffersTech/topicview/internal/storage"
)

var errNoSource = errors.New("no message source configured (set kafka_brokers, nats_url or source_file)")

// buildFetcher picks the configured source. With topics listed, every topic
// is fetched through its own query and the results are merged.
func buildFetcher(c *config.Config, logger *slog.Logger) (source.Fetcher, func(), error) {
	var base source.Fetcher
	closeFn := func() {}
	switch {
	case len(c.KafkaBrokers) > 0:
		kf, err := source.NewKafkaFetcher(c.KafkaBrokers, logger)
		if err != nil {
			return nil, nil, err
		}
		base = kf
	case c.NATSURL != "":
		nf, err := source.NewNATSFetcher(c.NATSURL, c.NATSPrefix, logger)
		if err != nil {
			return nil, nil, err
		}
		base = nf
		closeFn = func() { nf.Close() }
	case c.SourceFile != "":
		base = source.NewFileFetcher(c.SourceFile, logger)
	default:
		return nil, closeFn, nil
	}

	if len(c.Topics) == 0 {
		return base, closeFn, nil
	}
	topics := make(map[string]source.Fetcher, len(c.Topics))
	for _, t := range c.Topics {
		topics[t] = base
	}
	return source.NewFanout(topics, logger), closeFn, nil
}

// buildExporter stores exports in S3 when a bucket is configured and in the
// export directory otherwise.
func buildExporter(ctx context.Context, c *config.Config, logger *slog.Logger) (*storage.Exporter, error) {
	codec, err := c.Codec()
	if err != nil {
		return nil, err
	}
	var dest storage.Destination
	if c.S3Bucket != "" {
		s3, err := storage.NewS3Destination(ctx, c.S3Bucket, c.S3Prefix, c.S3Region, c.S3Endpoint)
		if err != nil {
			return nil, err
		}
		dest = s3
	} else {
		dest = storage.NewFileDestination(c.ExportDir)
	}
	return storage.NewExporter(codec, dest, logger)
}

// fetchFlags are shared by every command that fetches one batch.
type fetchFlags struct {
	topic     string
	partition string
	limit     int
	filters   []string
	search    string
}

// loadedView is a controller with one applied batch and its grid.
type loadedView struct {
	controller *engine.Controller
	grid       *grid.Grid
}

func loadView(ctx context.Context, c *config.Config, logger *slog.Logger, f fetchFlags) (*loadedView, error) {
	fetcher, closeFetcher, err := buildFetcher(c, logger)
	if err != nil {
		return nil, err
	}
	defer closeFetcher()
	if fetcher == nil {
		return nil, errNoSource
	}

	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	timeout, err := c.Timeout()
	if err != nil {
		return nil, err
	}
	limit := f.limit
	if limit <= 0 {
		limit = c.FetchLimit
	}

	q := source.Query{Topic: f.topic, Partition: f.partition, Limit: limit, Timeout: timeout}
	ctrl := engine.NewController(q.Browse(), engine.WithLogger(logger), engine.WithLocation(loc))
	g := grid.New()
	g.OnFilterChanged(ctrl.OnFilterChanged)
	ctrl.OnGridReady(g)

	ctrl.OnFetchStarted()
	ctrl.OnBatchFetched(fetcher.Fetch(ctx, q))
	if msg := ctrl.Error(); msg != "" {
		return nil, fmt.Errorf("fetch failed: %s", msg)
	}

	filters, err := parseFilters(f.filters)
	if err != nil {
		return nil, err
	}
	if !filters.Empty() {
		if err := g.SetFilterModel(filters); err != nil {
			return nil, err
		}
	}
	if f.search != "" {
		ctrl.OnSearchChanged(f.search)
	}
	return &loadedView{controller: ctrl, grid: g}, nil
}

// parseFilters reads field=expr pairs.
func parseFilters(pairs []string) (engine.FilterModel, error) {
	m := engine.FilterModel{}
	for _, p := range pairs {
		field, expr, ok := strings.Cut(p, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("filter %q: want field=expression", p)
		}
		m[field] = expr
	}
	return m, nil
}
