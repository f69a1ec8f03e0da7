package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"probereport/internal/config"
	"probereport/internal/dataset"
	"probereport/internal/files"
	"probereport/internal/report"
)

// DatasetSummary is the list view of one dataset
type DatasetSummary struct {
	Name      string         `json:"name"`
	Rows      int            `json:"rows"`
	Files     int            `json:"files"`
	Columns   []string       `json:"columns"`
	NonFinite map[string]int `json:"non_finite,omitempty"`
}

// RowQuery selects rows of a dataset. Empty strings match everything and a
// zero Limit returns every matching row.
type RowQuery struct {
	Description string
	Filename    string
	Limit       int
}

// RowPage is the result of a row query
type RowPage struct {
	Dataset string                   `json:"dataset"`
	Columns []string                 `json:"columns"`
	Total   int                      `json:"total"`
	Count   int                      `json:"count"`
	Rows    []map[string]interface{} `json:"rows"`
}

// DatasetService serves immutable datasets built at startup
type DatasetService struct {
	results map[string]*report.Result
	order   []string
	manager *files.Manager
	logger  *slog.Logger
}

// NewDatasetService indexes results by dataset name. manager may be nil, in
// which case chart listings are always empty.
func NewDatasetService(results []*report.Result, manager *files.Manager, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DatasetService{
		results: make(map[string]*report.Result, len(results)),
		manager: manager,
		logger:  logger.With(slog.String("service", "dataset")),
	}
	for _, res := range results {
		if _, dup := s.results[res.Name]; dup {
			continue
		}
		s.results[res.Name] = res
		s.order = append(s.order, res.Name)
	}
	return s
}

// LoadDatasetService builds every configured dataset with p and wraps the
// results. Any build failure aborts startup.
func LoadDatasetService(ctx context.Context, p *report.Pipeline, cfg *config.Config, logger *slog.Logger) (*DatasetService, error) {
	results := make([]*report.Result, 0, len(cfg.Datasets))
	for _, dc := range cfg.Datasets {
		res, err := p.Build(ctx, dc)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return NewDatasetService(results, p.Manager(), logger), nil
}

// Count returns the number of datasets served
func (s *DatasetService) Count() int {
	return len(s.order)
}

// List returns a summary of every dataset in configuration order
func (s *DatasetService) List(ctx context.Context) ([]DatasetSummary, error) {
	out := make([]DatasetSummary, 0, len(s.order))
	for _, name := range s.order {
		res := s.results[name]
		ds := res.Dataset
		out = append(out, DatasetSummary{
			Name:      name,
			Rows:      ds.Len(),
			Files:     len(ds.Files),
			Columns:   append([]string{dataset.ColumnDescription, dataset.ColumnFilename}, ds.Columns...),
			NonFinite: nonZero(res.NonFinite),
		})
	}
	return out, nil
}

// Get returns the named dataset
func (s *DatasetService) Get(ctx context.Context, name string) (*dataset.Dataset, error) {
	res, ok := s.results[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	return res.Dataset, nil
}

// Rows returns the rows of a dataset matching q, in dataset order
func (s *DatasetService) Rows(ctx context.Context, name string, q RowQuery) (*RowPage, error) {
	if q.Limit < 0 {
		return nil, ErrInvalidLimit
	}
	ds, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	filtered := ds.Filter(func(r dataset.Row) bool {
		if q.Description != "" && r.Description != q.Description {
			return false
		}
		if q.Filename != "" && r.Filename != q.Filename {
			return false
		}
		return true
	})

	page := &RowPage{
		Dataset: name,
		Columns: append([]string{dataset.ColumnDescription, dataset.ColumnFilename}, ds.Columns...),
		Total:   filtered.Len(),
		Rows:    []map[string]interface{}{},
	}
	for _, row := range filtered.Rows {
		if q.Limit > 0 && len(page.Rows) >= q.Limit {
			break
		}
		page.Rows = append(page.Rows, row.Record(ds.Columns))
	}
	page.Count = len(page.Rows)

	s.logger.DebugContext(ctx, "Rows queried",
		slog.String("dataset", name),
		slog.Int("total", page.Total),
		slog.Int("returned", page.Count))
	return page, nil
}

// Files returns the provenance summary of a dataset
func (s *DatasetService) Files(ctx context.Context, name string) ([]dataset.FileSummary, error) {
	ds, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]dataset.FileSummary, len(ds.Files))
	copy(out, ds.Files)
	return out, nil
}

// Charts lists the files present in the dataset's output directory. A
// directory that does not exist yet yields an empty list.
func (s *DatasetService) Charts(ctx context.Context, name string) ([]string, error) {
	if _, ok := s.results[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	if s.manager == nil {
		return []string{}, nil
	}

	names, err := s.manager.ListFiles(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func nonZero(counts map[string]int) map[string]int {
	var out map[string]int
	for k, n := range counts {
		if n == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]int)
		}
		out[k] = n
	}
	return out
}
