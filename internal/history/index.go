package history

import (
	"fmt"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// DefaultSearchLimit is used when Search gets a non-positive limit.
const DefaultSearchLimit = 10

// Result is one search hit.
type Result struct {
	Entry Entry   `json:"entry"`
	Score float64 `json:"score"`
}

// Index is an in-memory full-text index over history entries.
type Index struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
	entries    map[string]Entry
}

// NewIndex creates an empty in-memory index.
func NewIndex() (*Index, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &Index{bleveIndex: index, entries: make(map[string]Entry)}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	entryMapping := bleve.NewDocumentMapping()
	entryMapping.AddFieldMappingsAt("prompt", bleve.NewTextFieldMapping())
	entryMapping.AddFieldMappingsAt("schema", bleve.NewTextFieldMapping())

	// Generated JSON is searchable but weighs only through _all.
	jsonMapping := bleve.NewTextFieldMapping()
	jsonMapping.Store = false
	entryMapping.AddFieldMappingsAt("json", jsonMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", entryMapping)
	return indexMapping
}

// Index adds entries in one batch. Later entries with the same ID replace
// earlier ones.
func (i *Index) Index(entries []Entry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()
	for _, e := range entries {
		doc := map[string]interface{}{
			"prompt": e.Prompt,
			"schema": e.Schema,
			"json":   e.JSON,
		}
		if err := batch.Index(e.ID, doc); err != nil {
			return fmt.Errorf("failed to index entry %s: %w", e.ID, err)
		}
		i.entries[e.ID] = e
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index entries: %w", err)
	}
	return nil
}

// Search runs a match query and returns hits in score order. Ties keep the
// newer entry first.
func (i *Index) Search(query string, limit int) ([]Result, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), limit, 0, false)
	res, err := i.bleveIndex.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		e, ok := i.entries[hit.ID]
		if !ok {
			continue
		}
		results = append(results, Result{Entry: e, Score: hit.Score})
	}

	sortResults(results)
	return results, nil
}

func sortResults(results []Result) {
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Entry.Timestamp.After(results[b].Entry.Timestamp)
	})
}

// Count returns the number of indexed entries.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	n, err := i.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}
	return n, nil
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		return i.bleveIndex.Close()
	}
	return nil
}
