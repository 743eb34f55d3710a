package categorization

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
)

// SimilarDocument is an indexed transaction description
type SimilarDocument struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// SimilarHit is a search hit with its relevance score
type SimilarHit struct {
	ID          string
	Description string
	Score       float64
}

// SimilarityIndex finds transactions whose descriptions resemble a
// given one, backing the "apply this category to similar transactions"
// flow. The index is in-memory and rebuilt per request from the user's
// recent transactions.
type SimilarityIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

// NewSimilarityIndex creates an empty in-memory index
func NewSimilarityIndex() (*SimilarityIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create similarity index: %w", err)
	}
	return &SimilarityIndex{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("description", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// Index adds documents in one batch
func (si *SimilarityIndex) Index(docs []SimilarDocument) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	batch := si.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
	}
	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute index batch: %w", err)
	}
	return nil
}

// FindSimilar searches for descriptions resembling the query, with one
// edit of typo tolerance per term.
func (si *SimilarityIndex) FindSimilar(description string, limit int) ([]SimilarHit, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	matchQuery := bleve.NewMatchQuery(description)
	matchQuery.SetFuzziness(1)

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"description"}

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	hits := make([]SimilarHit, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		description, _ := hit.Fields["description"].(string)
		hits = append(hits, SimilarHit{
			ID:          hit.ID,
			Description: description,
			Score:       hit.Score,
		})
	}
	return hits, nil
}

// Close releases the index
func (si *SimilarityIndex) Close() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.index.Close()
}
