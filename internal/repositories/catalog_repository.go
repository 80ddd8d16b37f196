package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"helpbot/internal/models"
)

// PriceLabel is the details key carrying an item's display price.
const PriceLabel = "Price"

// PriceUnknown is rendered when an item has no price detail.
const PriceUnknown = "Not specified"

// CatalogRepository reads the service catalog corpus: a JSON document of the
// form {"services": [...]}. The file is read once and kept as an immutable
// in-memory snapshot with an id index; Reload replaces the whole snapshot.
type CatalogRepository struct {
	path string

	mu    sync.RWMutex
	items []models.CatalogItem
	byID  map[string]*models.CatalogItem
}

// NewCatalogRepository loads the corpus from path.
func NewCatalogRepository(path string) (*CatalogRepository, error) {
	r := &CatalogRepository{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the corpus file and swaps in the new snapshot.
func (r *CatalogRepository) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file %s: %w", r.path, err)
	}

	var catalog models.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("failed to parse catalog file %s: %w", r.path, err)
	}

	byID := make(map[string]*models.CatalogItem, len(catalog.Services))
	for i := range catalog.Services {
		item := &catalog.Services[i]
		if item.ID == "" {
			return fmt.Errorf("catalog item %d has no id", i)
		}
		if _, dup := byID[item.ID]; dup {
			return fmt.Errorf("duplicate catalog item id: %s", item.ID)
		}
		byID[item.ID] = item
	}

	r.mu.Lock()
	r.items = catalog.Services
	r.byID = byID
	r.mu.Unlock()

	return nil
}

// All returns every catalog item in corpus order.
func (r *CatalogRepository) All() []models.CatalogItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items
}

// Len returns the number of catalog items.
func (r *CatalogRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// GetByID returns the item with the given id, or nil when unknown.
func (r *CatalogRepository) GetByID(id string) *models.CatalogItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// SearchText derives the text indexed for an item: name, category,
// sub-category, full description and every detail value, space-joined with
// empty parts skipped. List details contribute each element; string details
// contribute "label: value".
func SearchText(item *models.CatalogItem) string {
	parts := []string{
		item.Name,
		item.Category,
		item.SubCategory,
		item.FullDescription,
	}

	for _, detail := range item.Details {
		if detail.Value.IsList() {
			parts = append(parts, detail.Value.Items...)
		} else if detail.Value.Text != "" {
			parts = append(parts, detail.Label+": "+detail.Value.Text)
		}
	}

	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}

	return strings.Join(nonEmpty, " ")
}

// Price extracts an item's display price from its details.
func Price(item *models.CatalogItem) string {
	if value, ok := item.Details.Get(PriceLabel); ok && !value.IsList() && value.Text != "" {
		return value.Text
	}
	return PriceUnknown
}
