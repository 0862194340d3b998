package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"retail-dashboard/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

// RequiredColumns lists the header names a dataset must carry.
var RequiredColumns = []string{
	"customer_id",
	"category",
	"quantity",
	"price",
	"invoice_date",
	"payment_method",
	"shopping_mall",
	"gender",
	"age",
}

// Day/month/year is the dataset's native format; ISO dates come from our own exports.
var dateLayouts = []string{"2/1/2006", "2006-01-02"}

type Option func(*Loader)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithCacheDir enables the on-disk snapshot of parsed rows.
func WithCacheDir(dir string) Option {
	return func(l *Loader) { l.cacheDir = dir }
}

// Loader reads the transactions file once and hands out the same table until
// Invalidate is called.
type Loader struct {
	path     string
	cacheDir string
	logger   *slog.Logger

	mu       sync.Mutex
	table    *Table
	loadedAt time.Time
}

func NewLoader(path string, opts ...Option) *Loader {
	l := &Loader{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) Path() string { return l.path }

// Load returns the cached table, reading the file on first use.
func (l *Loader) Load(ctx context.Context) (*Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.table != nil {
		return l.table, nil
	}

	if l.cacheDir != "" {
		if rows, err := l.loadSnapshot(); err == nil {
			l.table = NewTable(rows)
			l.loadedAt = time.Now()
			l.logger.Info("loaded from snapshot", "records", len(rows), "missing_dates", l.table.MissingDates())
			return l.table, nil
		}
	}

	return l.parseAndStore(ctx)
}

// Reload reads the file again, bypassing any snapshot. The cached table is
// replaced only when the new one parses; on error the previous table stays.
func (l *Loader) Reload(ctx context.Context) (*Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.parseAndStore(ctx)
}

// parseAndStore requires l.mu.
func (l *Loader) parseAndStore(ctx context.Context) (*Table, error) {
	start := time.Now()
	l.logger.Info("processing CSV file", "filename", l.path)

	rows, err := l.readFile(ctx)
	if err != nil {
		return nil, err
	}
	l.table = NewTable(rows)
	l.loadedAt = time.Now()

	if l.cacheDir != "" {
		if err := l.saveSnapshot(rows); err != nil {
			l.logger.Warn("failed to save snapshot", "error", err)
		}
	}

	l.logger.Info("csv processing complete",
		"records", len(rows),
		"missing_dates", l.table.MissingDates(),
		"duration", time.Since(start))

	return l.table, nil
}

// LoadedAt reports when the cached table was built; zero before the first Load.
func (l *Loader) LoadedAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadedAt
}

// Invalidate drops the cached table so the next Load re-reads the file.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.table = nil
}

func (l *Loader) readFile(ctx context.Context) ([]models.Transaction, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, &LoadError{Path: l.path, Err: err}
	}
	defer file.Close()

	return Parse(ctx, file, l.path, sniffDelimiter(l.path), l.logger)
}

// Parse reads a delimited transactions stream. name is used in errors only.
func Parse(ctx context.Context, r io.Reader, name string, delim rune, logger *slog.Logger) ([]models.Transaction, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Path: name, Err: errors.New("empty file")}
		}
		return nil, &LoadError{Path: name, Err: fmt.Errorf("read header: %w", err)}
	}

	cols, err := indexColumns(header)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = name
		}
		return nil, err
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &LoadError{Path: name, Err: fmt.Errorf("read rows: %w", err)}
	}

	rows := make([]models.Transaction, len(records))
	var badDates atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				tx, dateOK, err := parseRecord(records[i], cols)
				if err != nil {
					// Line 1 is the header.
					return &LoadError{Path: name, Err: fmt.Errorf("line %d: %w", i+2, err)}
				}
				if !dateOK {
					badDates.Add(1)
				}
				rows[i] = tx
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, le
		}
		return nil, &LoadError{Path: name, Err: err}
	}

	if len(rows) == 0 {
		return nil, &LoadError{Path: name, Err: errors.New("no records found")}
	}

	if n := badDates.Load(); n > 0 {
		logger.Warn("unparseable invoice dates", "rows", n, "file", name)
	}

	return rows, nil
}

type columnIndex map[string]int

func indexColumns(header []string) (columnIndex, error) {
	cols := make(columnIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		cols[key] = i
	}
	if _, ok := cols["invoice_no"]; !ok {
		if idx, ok := cols["invoice_id"]; ok {
			cols["invoice_no"] = idx
		}
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &LoadError{Missing: missing}
	}
	return cols, nil
}

func (c columnIndex) get(record []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseRecord(record []string, cols columnIndex) (models.Transaction, bool, error) {
	quantity, err := strconv.Atoi(cols.get(record, "quantity"))
	if err != nil {
		return models.Transaction{}, false, fmt.Errorf("quantity: %w", err)
	}
	price, err := strconv.ParseFloat(cols.get(record, "price"), 64)
	if err != nil {
		return models.Transaction{}, false, fmt.Errorf("price: %w", err)
	}
	age, err := strconv.Atoi(cols.get(record, "age"))
	if err != nil {
		return models.Transaction{}, false, fmt.Errorf("age: %w", err)
	}
	if quantity < 0 || price < 0 {
		return models.Transaction{}, false, errors.New("negative quantity or price")
	}

	tx := models.Transaction{
		InvoiceNo:     cols.get(record, "invoice_no"),
		CustomerID:    cols.get(record, "customer_id"),
		Gender:        cols.get(record, "gender"),
		Age:           age,
		Category:      cols.get(record, "category"),
		Quantity:      quantity,
		Price:         price,
		PaymentMethod: cols.get(record, "payment_method"),
		ShoppingMall:  cols.get(record, "shopping_mall"),
	}
	tx.InvoiceDate, tx.HasDate = ParseDate(cols.get(record, "invoice_date"))
	tx.Derive()

	return tx, tx.HasDate, nil
}

// ParseDate accepts the dataset's day/month/year layout and ISO dates.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
