package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"helpbot/internal/models"
	"helpbot/internal/repositories"
)

const (
	// DefaultSearchLimit is used when the caller passes a non-positive limit.
	DefaultSearchLimit = 3

	// maxKeywordsPerItem caps the keyword metadata stored per catalog item.
	maxKeywordsPerItem = 10

	searchCacheTTL     = 5 * time.Minute
	searchCacheCleanup = 10 * time.Minute
)

// NoMatchesMessage is the fixed reply when a search produces no results.
const NoMatchesMessage = "🤔 Unfortunately I couldn't find any services matching your request.\n\n" +
	"Try rephrasing, or tell me more specifically what you're interested in " +
	"(for example: 'flight training', 'corporate events', 'one-on-one lessons')."

// ItemNotFoundMessage is the fixed reply for an unknown catalog item id.
const ItemNotFoundMessage = "❌ Service not found. Try searching again."

// SearchService answers free-text queries with ranked catalog matches.
// The index is built once from the corpus at startup and is read-only after
// that; a stale index after corpus edits is a known limitation.
type SearchService struct {
	embedder   EmbeddingClientInterface
	vectorRepo repositories.VectorRepository
	catalog    *repositories.CatalogRepository
	keywords   *KeywordExtractor
	logger     *log.Logger
	cache      *gocache.Cache
}

// NewSearchService creates a new search service
func NewSearchService(
	embedder EmbeddingClientInterface,
	vectorRepo repositories.VectorRepository,
	catalog *repositories.CatalogRepository,
	logger *log.Logger,
) *SearchService {
	return &SearchService{
		embedder:   embedder,
		vectorRepo: vectorRepo,
		catalog:    catalog,
		keywords:   NewKeywordExtractor(),
		logger:     logger,
		cache:      gocache.New(searchCacheTTL, searchCacheCleanup),
	}
}

// EnsureIndexed bulk-ingests the catalog into the vector index if the index
// is empty. A non-empty index is left as-is: no diffing, no freshness check.
func (s *SearchService) EnsureIndexed(ctx context.Context) error {
	if err := s.vectorRepo.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	count, err := s.vectorRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count indexed items: %w", err)
	}

	if count > 0 {
		s.logger.Printf("📊 Index already contains %d services, skipping ingestion", count)
		return nil
	}

	s.logger.Println("📦 Index is empty, loading services")
	return s.ingestCatalog(ctx)
}

// Rebuild drops the index and re-ingests the whole catalog.
func (s *SearchService) Rebuild(ctx context.Context) error {
	if err := s.vectorRepo.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset index: %w", err)
	}
	s.cache.Flush()
	return s.ingestCatalog(ctx)
}

func (s *SearchService) ingestCatalog(ctx context.Context) error {
	items := s.catalog.All()
	if len(items) == 0 {
		s.logger.Println("⚠️  Catalog is empty, nothing to index")
		return nil
	}

	s.logger.Printf("📋 Indexing %d services", len(items))

	texts := make([]string, len(items))
	for i := range items {
		texts[i] = repositories.SearchText(&items[i])
	}

	embedResp, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed catalog: %w", err)
	}
	if len(embedResp.Embeddings) != len(items) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(embedResp.Embeddings), len(items))
	}

	docs := make([]*repositories.CatalogDocument, len(items))
	for i := range items {
		item := &items[i]

		metadata := map[string]interface{}{
			"id":         item.ID,
			"name":       item.Name,
			"category":   item.Category,
			"courseCode": item.CourseCode,
			"price":      repositories.Price(item),
		}

		keywords, err := s.keywords.Extract(texts[i], maxKeywordsPerItem)
		if err != nil {
			s.logger.Printf("⚠️  Keyword extraction failed for %s: %v", item.ID, err)
		} else if len(keywords) > 0 {
			metadata["keywords"] = keywords
		}

		docs[i] = &repositories.CatalogDocument{
			ID:         item.ID,
			SearchText: texts[i],
			Embedding:  embedResp.Embeddings[i],
			Metadata:   metadata,
		}
	}

	if err := s.vectorRepo.StoreDocuments(ctx, docs); err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}

	s.logger.Printf("✅ Indexed %d services", len(items))
	return nil
}

// Search returns up to limit catalog matches ranked by descending
// similarity. Retrieval failures are swallowed and logged — the caller
// always gets a (possibly empty) slice, never an error, so the pipeline
// can fall through to "no services found" messaging.
func (s *SearchService) Search(ctx context.Context, query string, limit int) []models.SearchMatch {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	cacheKey := fmt.Sprintf("%s:%d", query, limit)
	if cached, ok := s.cache.Get(cacheKey); ok {
		matches := cached.([]models.SearchMatch)
		s.logger.Printf("🔍 Cache hit for query %q (%d matches)", query, len(matches))
		return matches
	}

	s.logger.Printf("🔍 Searching for %q (limit: %d)", query, limit)

	embedResp, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logger.Printf("❌ Failed to embed query: %v", err)
		return []models.SearchMatch{}
	}

	results, err := s.vectorRepo.Search(ctx, embedResp.Embedding, limit)
	if err != nil {
		s.logger.Printf("❌ Search failed: %v", err)
		return []models.SearchMatch{}
	}

	matches := make([]models.SearchMatch, 0, len(results))
	for _, result := range results {
		similarity := math.Round(float64(result.Score)*1000) / 1000

		matches = append(matches, models.SearchMatch{
			ItemID:         result.ItemID,
			Name:           metadataString(result.Metadata, "name"),
			Category:       metadataString(result.Metadata, "category"),
			CourseCode:     metadataString(result.Metadata, "courseCode"),
			Price:          metadataString(result.Metadata, "price"),
			Similarity:     similarity,
			RelevanceScore: math.Round(similarity*100*10) / 10,
		})
	}

	s.logger.Printf("✅ Found %d relevant services", len(matches))
	for _, match := range matches {
		s.logger.Printf("  📌 %s (relevance: %.1f%%)", match.Name, match.RelevanceScore)
	}

	s.cache.Set(cacheKey, matches, gocache.DefaultExpiration)
	return matches
}

// GetItemDetails returns the full catalog item, read from the corpus
// snapshot rather than the index so long-form fields are available.
func (s *SearchService) GetItemDetails(itemID string) *models.CatalogItem {
	item := s.catalog.GetByID(itemID)
	if item == nil {
		s.logger.Printf("⚠️  Service with id %q not found", itemID)
		return nil
	}
	return item
}

// SearchAndFormat runs a search and renders a human-readable reply: a
// numbered list of matches with key details, or the fixed no-matches text.
func (s *SearchService) SearchAndFormat(ctx context.Context, query string, limit int) string {
	matches := s.Search(ctx, query, limit)

	if len(matches) == 0 {
		return NoMatchesMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎯 Found %d matching services for you:\n\n", len(matches))

	for i, match := range matches {
		fmt.Fprintf(&b, "**%d. %s**\n", i+1, match.Name)
		fmt.Fprintf(&b, "📂 Category: %s\n", match.Category)
		fmt.Fprintf(&b, "💰 Price: %s\n", match.Price)

		if item := s.catalog.GetByID(match.ItemID); item != nil {
			if line := keyDetailsLine(item); line != "" {
				fmt.Fprintf(&b, "ℹ️ %s\n", line)
			}
		}

		fmt.Fprintf(&b, "🏷️ Code: %s\n\n", match.CourseCode)
	}

	b.WriteString("💬 Want to know more about any of these services, or do you have other questions?")
	return b.String()
}

// FormatItemDetails renders the full card for one catalog item, or the
// fixed not-found message for an unknown id.
func (s *SearchService) FormatItemDetails(itemID string) string {
	item := s.GetItemDetails(itemID)
	if item == nil {
		return ItemNotFoundMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 **%s**\n\n", item.Name)
	fmt.Fprintf(&b, "📂 Category: %s\n", item.Category)

	if item.SubCategory != "" {
		fmt.Fprintf(&b, "📁 Subcategory: %s\n", item.SubCategory)
	}

	if len(item.Details) > 0 {
		b.WriteString("\n💡 **Details:**\n")
		for _, detail := range item.Details {
			if detail.Value.IsList() {
				fmt.Fprintf(&b, "• %s:\n", detail.Label)
				for _, entry := range detail.Value.Items {
					fmt.Fprintf(&b, "  - %s\n", entry)
				}
			} else {
				fmt.Fprintf(&b, "• %s: %s\n", detail.Label, detail.Value.Text)
			}
		}
	}

	if item.FullDescription != "" {
		fmt.Fprintf(&b, "\n📖 **Description:**\n%s\n", item.FullDescription)
	}

	code := item.CourseCode
	if code == "" {
		code = "Not specified"
	}
	fmt.Fprintf(&b, "\n🏷️ Service code: %s", code)

	return b.String()
}

// keyDetailsLine picks up to two short string details, skipping the price
// (already shown on its own line).
func keyDetailsLine(item *models.CatalogItem) string {
	var parts []string
	for _, detail := range item.Details {
		if detail.Label == repositories.PriceLabel || detail.Value.IsList() {
			continue
		}
		parts = append(parts, detail.Label+": "+detail.Value.Text)
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, ", ")
}

func metadataString(metadata map[string]interface{}, key string) string {
	if value, ok := metadata[key].(string); ok {
		return value
	}
	return ""
}
