package catalog

import (
	"bufio"
	"context"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	bloomFPR      = 0.001
	progressEvery = 1_000_000
)

// IngestReport summarises one stock ingest run.
type IngestReport struct {
	Lines   int
	Updated int
	// Unknown holds ids that are not in the catalog, sorted.
	Unknown []string
	// Skipped counts malformed lines.
	Skipped int
}

// StockIngester sums per-warehouse stock feeds and writes the totals as
// absolute product quantities.
//
// Each feed is a gzip file of "product_id,quantity" lines. Feeds are read
// concurrently against a bloom filter of the catalog ids, so only ids the
// filter admits are accumulated. The admitted ids are confirmed against the
// store before writing; false positives end up in the unknown list.
type StockIngester struct {
	store Store
	lg    *zap.Logger
}

// NewStockIngester returns an ingester writing to store.
func NewStockIngester(store Store, lg *zap.Logger) *StockIngester {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &StockIngester{store: store, lg: lg}
}

type feedResult struct {
	totals  map[string]int
	unknown map[string]struct{}
	lines   int
	skipped int
}

// Ingest reads every file in paths and updates stock for the products that
// appear in at least one feed. Products absent from all feeds are left alone.
func (s *StockIngester) Ingest(ctx context.Context, paths []string) (IngestReport, error) {
	filter, err := s.catalogFilter(ctx)
	if err != nil {
		return IngestReport{}, err
	}

	results := make([]feedResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			res, err := s.readFeed(gctx, path, filter)
			if err != nil {
				return errors.Wrapf(err, "feed %s", path)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return IngestReport{}, err
	}

	var (
		report  IngestReport
		totals  = make(map[string]int)
		unknown = make(map[string]struct{})
	)
	for _, r := range results {
		report.Lines += r.lines
		report.Skipped += r.skipped
		for id, q := range r.totals {
			totals[id] += q
		}
		for id := range r.unknown {
			unknown[id] = struct{}{}
		}
	}

	candidates := make([]string, 0, len(totals))
	for id := range totals {
		candidates = append(candidates, id)
	}
	slices.Sort(candidates)

	var updates []product.QuantityUpdate
	if len(candidates) > 0 {
		found, err := s.store.FindAllByID(ctx, candidates)
		if err != nil {
			return IngestReport{}, errors.Wrap(err, "confirm products")
		}
		confirmed := make(map[string]struct{}, len(found))
		for _, p := range found {
			confirmed[p.ID] = struct{}{}
		}
		for _, id := range candidates {
			if _, ok := confirmed[id]; !ok {
				unknown[id] = struct{}{}
				continue
			}
			updates = append(updates, product.QuantityUpdate{ID: id, Quantity: totals[id]})
		}
		if fp := len(candidates) - len(updates); fp > 0 {
			s.lg.Debug("Bloom false positives", zap.Int("count", fp))
		}
	}

	if len(updates) > 0 {
		if err := s.store.UpdateQuantity(ctx, updates); err != nil {
			return IngestReport{}, errors.Wrap(err, "update quantities")
		}
	}

	report.Updated = len(updates)
	for id := range unknown {
		report.Unknown = append(report.Unknown, id)
	}
	slices.Sort(report.Unknown)
	return report, nil
}

// catalogFilter builds a bloom filter over the catalog ids.
func (s *StockIngester) catalogFilter(ctx context.Context) (*bloom.BloomFilter, error) {
	products, err := s.store.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list catalog")
	}
	filter := bloom.NewWithEstimates(uint(max(len(products), 1)), bloomFPR)
	for _, p := range products {
		filter.AddString(p.ID)
	}
	s.lg.Info("Catalog filter built",
		zap.Int("products", len(products)),
		zap.Uint("bits", filter.Cap()),
	)
	return filter, nil
}

func (s *StockIngester) readFeed(ctx context.Context, path string, filter *bloom.BloomFilter) (feedResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return feedResult{}, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return feedResult{}, errors.Wrap(err, "gzip reader")
	}
	defer func() { _ = gz.Close() }()

	res, err := s.scanFeed(ctx, gz, filter)
	if err != nil {
		return feedResult{}, err
	}
	s.lg.Info("Feed read",
		zap.String("path", path),
		zap.Int("lines", res.lines),
		zap.Int("candidates", len(res.totals)),
		zap.Int("unknown", len(res.unknown)),
		zap.Int("skipped", res.skipped),
	)
	return res, nil
}

func (s *StockIngester) scanFeed(ctx context.Context, r io.Reader, filter *bloom.BloomFilter) (feedResult, error) {
	res := feedResult{
		totals:  make(map[string]int),
		unknown: make(map[string]struct{}),
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		res.lines++
		if res.lines%progressEvery == 0 {
			s.lg.Debug("Feed progress", zap.Int("lines", res.lines))
		}

		id, qty, ok := parseStockLine(line)
		if !ok {
			res.skipped++
			continue
		}
		if !filter.TestString(id) {
			res.unknown[id] = struct{}{}
			continue
		}
		res.totals[id] += qty
	}
	if err := sc.Err(); err != nil {
		return res, errors.Wrap(err, "scan")
	}
	return res, nil
}

// parseStockLine parses "id,quantity" with a non-negative quantity.
func parseStockLine(line string) (string, int, bool) {
	id, rawQty, found := strings.Cut(line, ",")
	if !found {
		return "", 0, false
	}
	id = strings.TrimSpace(id)
	qty, err := strconv.Atoi(strings.TrimSpace(rawQty))
	if id == "" || err != nil || qty < 0 {
		return "", 0, false
	}
	return id, qty, true
}
