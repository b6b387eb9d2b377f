package insights

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/saathi/saathi-cli/internal/api"
	"github.com/saathi/saathi-cli/internal/models"
)

// Controller serves the curated-insights view: it fetches the user's reports,
// caches them in the store, derives a summary outline from them and exports
// that outline through the backend's renderers.
type Controller struct {
	store  *Store
	client *api.Client
	logger *zap.Logger
}

func NewController(store *Store, client *api.Client, logger *zap.Logger) *Controller {
	return &Controller{
		store:  store,
		client: client,
		logger: logger,
	}
}

func (c *Controller) Store() *Store { return c.store }

// Load returns the cached reports, fetching from the backend only when the
// cache is empty. Refresh forces the fetch.
func (c *Controller) Load(ctx context.Context) ([]models.Insight, error) {
	if cached := c.store.Insights(); len(cached) > 0 {
		return cached, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches the reports and replaces the cache.
func (c *Controller) Refresh(ctx context.Context) ([]models.Insight, error) {
	list, err := c.client.CuratedInsights(ctx)
	if err != nil {
		return nil, err
	}
	c.store.Set(list)
	return list, nil
}

// previewRows caps how many rows of each report appear in the outline.
const previewRows = 5

// Outline renders the cached reports as a summary outline: each report's
// title, description and up to the first few rows.
func (c *Controller) Outline() string {
	var b strings.Builder
	for _, insight := range c.store.Insights() {
		fmt.Fprintf(&b, "%s\n%s\n", insight.Title, insight.Description)
		for i, row := range insight.Rows {
			if i == previewRows {
				break
			}
			cells := make([]string, 0, len(insight.Columns))
			for _, col := range insight.Columns {
				cells = append(cells, fmt.Sprintf("%s: %v", col, row[col]))
			}
			b.WriteString(strings.Join(cells, ", "))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// ExportKind selects the rendition of an insights export.
type ExportKind string

const (
	ExportPDF   ExportKind = "pdf"
	ExportExcel ExportKind = "excel"
)

// Export downloads the insights outline in the requested format and writes it
// under dir with the export's fixed filename.
func (c *Controller) Export(ctx context.Context, kind ExportKind, dir string) (string, error) {
	var (
		blob models.BlobReply
		err  error
	)

	switch kind {
	case ExportPDF:
		blob, err = c.client.ExportOutlinePDF(ctx, c.Outline())
		blob.Filename = "curated_insights.pdf"
	case ExportExcel:
		blob, err = c.client.ExportExcel(ctx)
		blob.Filename = "curated_insights.xlsx"
	default:
		return "", fmt.Errorf("unknown export kind: %s", kind)
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, blob.Filename)
	if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
