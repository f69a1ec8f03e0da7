package http

import (
	"context"

	"probereport/internal/dataset"
	"probereport/internal/services"
)

// DatasetServiceInterface defines the dataset operations the browser exposes
type DatasetServiceInterface interface {
	List(ctx context.Context) ([]services.DatasetSummary, error)
	Rows(ctx context.Context, name string, q services.RowQuery) (*services.RowPage, error)
	Files(ctx context.Context, name string) ([]dataset.FileSummary, error)
	Charts(ctx context.Context, name string) ([]string, error)
}
