package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/couchcryptid/cafepick-api/internal/adapter/cafenomad"
	kafkaadapter "github.com/couchcryptid/cafepick-api/internal/adapter/kafka"
	"github.com/couchcryptid/cafepick-api/internal/adapter/postgres"
	"github.com/couchcryptid/cafepick-api/internal/domain"
	"github.com/spf13/cobra"
)

const (
	sinkPostgres = "postgres"
	sinkKafka    = "kafka"
)

type importOptions struct {
	cities []string
	all    bool
	file   string
	sink   string
}

func newImportCommand() *cobra.Command {
	var opts importOptions
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load Cafe Nomad cities or a JSON file into Postgres or Kafka.",
		Example: `  cafepick import --all
  cafepick import --city taipei --city tainan --sink kafka
  cafepick import --file data/seed/cafes.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			rt, err := loadDeps()
			if err != nil {
				return err
			}
			return runImport(cmd.Context(), rt, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.cities, "city", nil, "city code to fetch from Cafe Nomad (repeatable)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "fetch every Cafe Nomad city")
	cmd.Flags().StringVar(&opts.file, "file", "", "read Cafe Nomad style JSON from this file instead of the API")
	cmd.Flags().StringVar(&opts.sink, "sink", sinkPostgres, "where to write: postgres or kafka")
	return cmd
}

func (o importOptions) validate() error {
	switch o.sink {
	case sinkPostgres, sinkKafka:
	default:
		return fmt.Errorf("invalid --sink %q: must be %s or %s", o.sink, sinkPostgres, sinkKafka)
	}
	if o.file == "" && !o.all && len(o.cities) == 0 {
		return errors.New("nothing to import: pass --city, --all or --file")
	}
	if o.file != "" && o.all {
		return errors.New("--file and --all are mutually exclusive")
	}
	for _, c := range o.cities {
		if o.file == "" && !cafenomad.KnownCity(c) {
			return fmt.Errorf("--city %q: %w", c, domain.ErrUnknownCity)
		}
	}
	return nil
}

// targets returns the cities to fetch from the API.
func (o importOptions) targets() []string {
	if o.all {
		return slices.Clone(cafenomad.Cities)
	}
	return o.cities
}

// sink receives the raw records of one city.
type sink interface {
	write(ctx context.Context, city string, raws []domain.RawVenue) (int, error)
	Close() error
}

type postgresSink struct {
	store  *postgres.Store
	tables *domain.Tables
}

func (s *postgresSink) write(ctx context.Context, city string, raws []domain.RawVenue) (int, error) {
	venues := deriveAll(s.tables, city, raws)
	return len(venues), s.store.UpsertVenues(ctx, venues)
}

func (s *postgresSink) Close() error { return s.store.Close() }

type kafkaSink struct {
	writer *kafkaadapter.Writer
}

func (s *kafkaSink) write(ctx context.Context, city string, raws []domain.RawVenue) (int, error) {
	raws = slices.DeleteFunc(slices.Clone(raws), func(r domain.RawVenue) bool { return r.ID == "" })
	return len(raws), s.writer.PublishRaw(ctx, city, raws)
}

func (s *kafkaSink) Close() error { return s.writer.Close() }

func openSink(ctx context.Context, rt *deps, kind string) (sink, error) {
	if kind == sinkKafka {
		return &kafkaSink{writer: kafkaadapter.NewWriter(rt.cfg, rt.logger)}, nil
	}
	if rt.cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required for the postgres sink")
	}
	store, err := postgres.Open(ctx, rt.cfg.DatabaseURL, rt.cfg.DBMaxConnections, rt.logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return &postgresSink{store: store, tables: rt.tables}, nil
}

func runImport(ctx context.Context, rt *deps, opts importOptions) error {
	out, err := openSink(ctx, rt, opts.sink)
	if err != nil {
		return err
	}
	defer out.Close()

	batches, err := collect(ctx, rt, opts)
	if err != nil {
		return err
	}

	total, failed := 0, 0
	for _, b := range batches {
		if b.err != nil {
			rt.logger.Error("fetch city failed", "city", b.city, "error", b.err)
			failed++
			continue
		}
		n, err := out.write(ctx, b.city, b.raws)
		if err != nil {
			rt.logger.Error("write city failed", "city", b.city, "sink", opts.sink, "error", err)
			failed++
			continue
		}
		rt.logger.Info("imported city", "city", b.city, "cafes", n, "sink", opts.sink)
		total += n
	}

	rt.logger.Info("import finished", "cafes", total, "cities", len(batches), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("import: %d of %d cities failed", failed, len(batches))
	}
	return nil
}

// cityBatch is the raw records of one city, or the error fetching them.
type cityBatch struct {
	city string
	raws []domain.RawVenue
	err  error
}

func collect(ctx context.Context, rt *deps, opts importOptions) ([]cityBatch, error) {
	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", opts.file, err)
		}
		raws, err := domain.ParseRawVenues(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", opts.file, err)
		}
		fallback := cafenomad.DefaultCity
		if len(opts.cities) == 1 {
			fallback = opts.cities[0]
		}
		return groupByCity(raws, fallback), nil
	}

	client := cafenomad.NewClient(rt.cfg.CafeNomadBaseURL, rt.cfg.CafeNomadTimeout, rt.logger, rt.metrics)
	targets := opts.targets()
	batches := make([]cityBatch, 0, len(targets))
	for _, city := range targets {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		raws, err := client.FetchCity(ctx, city)
		batches = append(batches, cityBatch{city: city, raws: raws, err: err})
	}
	return batches, nil
}

// groupByCity splits file records by their own city, using fallback for
// records without one. Cities keep first-seen order.
func groupByCity(raws []domain.RawVenue, fallback string) []cityBatch {
	var batches []cityBatch
	index := make(map[string]int)
	for _, r := range raws {
		city := r.City
		if city == "" {
			city = fallback
		}
		i, ok := index[city]
		if !ok {
			i = len(batches)
			index[city] = i
			batches = append(batches, cityBatch{city: city})
		}
		batches[i].raws = append(batches[i].raws, r)
	}
	return batches
}

// deriveAll maps raw records to derived venues, skipping records without an id.
func deriveAll(tables *domain.Tables, city string, raws []domain.RawVenue) []domain.Venue {
	venues := make([]domain.Venue, 0, len(raws))
	for _, r := range raws {
		if r.ID == "" {
			continue
		}
		venues = append(venues, tables.Derive(r.Venue(city)))
	}
	return venues
}
