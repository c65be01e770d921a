// Package index maintains the full-text shop index and keeps it populated
// from the relational store.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
	bsearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
	"github.com/Aman-CERP/shopsearch/internal/search"
	"github.com/Aman-CERP/shopsearch/internal/shop"
)

// Document field names.
const (
	FieldName         = "name"
	FieldNameKeyword  = "name_keyword"
	FieldCreatedAt    = "created_at"
	FieldInVacations  = "in_vacations"
	FieldNbProducts   = "nb_products"
	FieldNbCategories = "nb_categories"
	FieldID           = "id"

	// NameKeywordAnalyzer keeps the whole lower-cased name as one token.
	NameKeywordAnalyzer = "name_keyword"
)

// BleveIndex is the full-text shop index backed by Bleve v2.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// shopDocument is the document structure for Bleve indexing.
type shopDocument struct {
	Name         string    `json:"name"`
	NameKeyword  string    `json:"name_keyword"`
	CreatedAt    time.Time `json:"created_at"`
	InVacations  bool      `json:"in_vacations"`
	NbProducts   float64   `json:"nb_products"`
	NbCategories float64   `json:"nb_categories"`
	ID           float64   `json:"id"`
}

func newShopDocument(r shop.Record) shopDocument {
	return shopDocument{
		Name:         r.Name,
		NameKeyword:  strings.ToLower(r.Name),
		CreatedAt:    shop.DateOf(r.CreatedAt),
		InVacations:  r.InVacations,
		NbProducts:   float64(r.NbProducts),
		NbCategories: float64(r.NbCategories),
		ID:           float64(r.ID),
	}
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// validateIndexIntegrity checks if a Bleve index is valid before opening.
// Returns nil if valid, error describing corruption if not.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Index doesn't exist, will be created
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}

// isCorruptionError checks if an error indicates Bleve index corruption.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		errors.Is(err, bleve.ErrorIndexMetaCorrupt)
}

// NewBleveIndex opens the shop index at path, creating it if needed.
// If path is empty, creates an in-memory index.
// A corrupted on-disk index is cleared and recreated empty.
func NewBleveIndex(path string) (*BleveIndex, error) {
	idx, err := openIndex(path)
	if err != nil {
		return nil, err
	}
	return &BleveIndex{index: idx, path: path}, nil
}

func openIndex(path string) (bleve.Index, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	if path == "" {
		return bleve.NewMemOnly(indexMapping)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if validErr := validateIndexIntegrity(path); validErr != nil {
		slog.Warn("shop_index_corrupted",
			slog.String("path", path),
			slog.String("error", validErr.Error()))

		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, shoperrors.New(shoperrors.ErrCodeCorruptIndex,
				fmt.Sprintf("index corrupted at %s and cannot be removed", path), removeErr)
		}
		slog.Info("shop_index_cleared",
			slog.String("path", path),
			slog.String("reason", "corruption detected, reindex required"))
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, indexMapping)
	} else if err != nil && isCorruptionError(err) {
		slog.Warn("shop_index_open_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))

		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, shoperrors.New(shoperrors.ErrCodeCorruptIndex,
				"index corrupted and cannot be cleared", removeErr)
		}
		idx, err = bleve.New(path, indexMapping)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}
	return idx, nil
}

// createIndexMapping maps shop documents: an analyzed name for phrase and
// token matching, a single-token lower-cased name for whole-name prefix,
// contains, fuzzy and sorting, and typed filter/sort fields.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(NameKeywordAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = NameKeywordAnalyzer

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(FieldName, nameField)
	doc.AddFieldMappingsAt(FieldNameKeyword, keywordField)
	doc.AddFieldMappingsAt(FieldCreatedAt, bleve.NewDateTimeFieldMapping())
	doc.AddFieldMappingsAt(FieldInVacations, bleve.NewBooleanFieldMapping())
	doc.AddFieldMappingsAt(FieldNbProducts, bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt(FieldNbCategories, bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt(FieldID, bleve.NewNumericFieldMapping())

	indexMapping.DefaultMapping = doc
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping, nil
}

// Index adds or replaces records in the index.
func (b *BleveIndex) Index(ctx context.Context, records []shop.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return shoperrors.IndexUnavailable("index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, r := range records {
		if err := batch.Index(docID(r.ID), newShopDocument(r)); err != nil {
			return fmt.Errorf("failed to index shop %d: %w", r.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Delete removes records from the index.
func (b *BleveIndex) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return shoperrors.IndexUnavailable("index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(docID(id))
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// DocCount returns the number of indexed shops.
func (b *BleveIndex) DocCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, shoperrors.IndexUnavailable("index is closed", nil)
	}
	return b.index.DocCount()
}

// Reset drops every document by recreating the index.
func (b *BleveIndex) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return shoperrors.IndexUnavailable("index is closed", nil)
	}

	if err := b.index.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}
	if b.path != "" {
		if err := os.RemoveAll(b.path); err != nil {
			b.closed = true
			return fmt.Errorf("failed to remove index: %w", err)
		}
	}

	idx, err := openIndex(b.path)
	if err != nil {
		b.closed = true
		return err
	}
	b.index = idx
	return nil
}

// Search runs expr with filters and returns one page of hits plus the
// total match count.
func (b *BleveIndex) Search(ctx context.Context, expr search.Expression, filters search.Filters, sortKey shop.SortKey, offset, limit int) ([]search.Hit, int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, 0, shoperrors.IndexUnavailable("index is closed", nil)
	}

	count, err := b.index.DocCount()
	if err != nil {
		return nil, 0, shoperrors.IndexUnavailable("index cannot be read", err)
	}
	if count == 0 {
		return nil, 0, shoperrors.IndexUnavailable("index is empty", nil)
	}

	// bleve sizes its collector from limit+offset; past the last document
	// only the total is needed.
	size, from := min(limit, int(min(count, uint64(math.MaxInt)))), offset
	if uint64(offset) >= count {
		size, from = 0, 0
	}
	req := bleve.NewSearchRequestOptions(buildQuery(expr, filters), size, from, false)
	req.SortByCustom(sortOrder(sortKey))

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, err
		}
		return nil, 0, shoperrors.IndexQueryError("search failed", err)
	}

	hits := make([]search.Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			return nil, 0, shoperrors.IndexQueryError(fmt.Sprintf("malformed document id %q", h.ID), err)
		}
		hits = append(hits, search.Hit{ID: id, Score: h.Score})
	}

	return hits, int(result.Total), nil
}

// Close closes the index. Later calls fail with IndexUnavailable.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

// buildQuery translates the match expression and filters to a Bleve query.
func buildQuery(expr search.Expression, filters search.Filters) query.Query {
	var text query.Query
	if expr.MatchAll() || len(expr.Clauses) == 0 {
		text = bleve.NewMatchAllQuery()
	} else {
		var should []query.Query
		for _, c := range expr.Clauses {
			should = append(should, clauseQueries(c)...)
		}
		disj := bleve.NewDisjunctionQuery(should...)
		disj.SetMin(float64(expr.MinShouldMatch))
		text = disj
	}

	must := []query.Query{text}
	if filters.InVacations != nil {
		q := bleve.NewBoolFieldQuery(*filters.InVacations)
		q.SetField(FieldInVacations)
		must = append(must, q)
	}
	if filters.CreatedAfter != nil || filters.CreatedBefore != nil {
		var start, end time.Time
		if filters.CreatedAfter != nil {
			start = *filters.CreatedAfter
		}
		if filters.CreatedBefore != nil {
			end = *filters.CreatedBefore
		}
		inclusive := true
		q := bleve.NewDateRangeInclusiveQuery(start, end, &inclusive, &inclusive)
		q.SetField(FieldCreatedAt)
		must = append(must, q)
	}

	if len(must) == 1 {
		return text
	}
	return bleve.NewConjunctionQuery(must...)
}

func clauseQueries(c search.Clause) []query.Query {
	switch c.Kind {
	case search.ClausePhrase:
		q := bleve.NewMatchPhraseQuery(c.Term)
		q.SetField(FieldName)
		q.SetBoost(c.Boost)
		return []query.Query{q}

	case search.ClausePrefix:
		out := make([]query.Query, 0, 2)
		for _, field := range []string{FieldName, FieldNameKeyword} {
			q := bleve.NewPrefixQuery(c.Term)
			q.SetField(field)
			q.SetBoost(c.Boost)
			out = append(out, q)
		}
		return out

	case search.ClauseContains:
		term := stripWildcards(c.Term)
		if term == "" {
			return nil
		}
		out := make([]query.Query, 0, 2)
		for _, field := range []string{FieldName, FieldNameKeyword} {
			q := bleve.NewWildcardQuery("*" + term + "*")
			q.SetField(field)
			q.SetBoost(c.Boost)
			out = append(out, q)
		}
		return out

	case search.ClauseFuzzy:
		match := bleve.NewMatchQuery(c.Term)
		match.SetField(FieldName)
		match.SetFuzziness(c.Fuzziness)
		match.SetBoost(c.Boost)

		fuzzy := bleve.NewFuzzyQuery(c.Term)
		fuzzy.SetField(FieldNameKeyword)
		fuzzy.SetFuzziness(c.Fuzziness)
		fuzzy.SetBoost(c.Boost)
		return []query.Query{match, fuzzy}

	case search.ClauseMatchAll:
		return []query.Query{bleve.NewMatchAllQuery()}
	}
	return nil
}

// stripWildcards removes user-supplied wildcard characters.
func stripWildcards(term string) string {
	return strings.NewReplacer("*", "", "?", "").Replace(term)
}

// sortOrder returns the Bleve order for key. Every order ends with the
// shop id so equal keys come back deterministically.
func sortOrder(key shop.SortKey) bsearch.SortOrder {
	byID := &bsearch.SortField{Field: FieldID, Type: bsearch.SortFieldAsNumber}

	switch key {
	case shop.SortRelevance:
		return bsearch.SortOrder{&bsearch.SortScore{Desc: true}, byID}
	case shop.SortName:
		return bsearch.SortOrder{&bsearch.SortField{Field: FieldNameKeyword, Type: bsearch.SortFieldAsString}, byID}
	case shop.SortCreatedAt:
		return bsearch.SortOrder{&bsearch.SortField{Field: FieldCreatedAt, Type: bsearch.SortFieldAsDate}, byID}
	case shop.SortNbProducts:
		return bsearch.SortOrder{&bsearch.SortField{Field: FieldNbProducts, Type: bsearch.SortFieldAsNumber}, byID}
	default:
		return bsearch.SortOrder{byID}
	}
}

var _ search.IndexedEngine = (*BleveIndex)(nil)
