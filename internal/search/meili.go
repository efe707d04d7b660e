package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"gantry/api/internal/store"
)

const (
	idxProcurement = "gantry_procurement"
	idxOperations  = "gantry_operations"
)

// Meili backs record search with Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the two record
// indexes. An unreachable server is tolerated: the health loop reconfigures
// once it recovers.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		searchable []string
	}{
		{
			uid: idxProcurement,
			searchable: []string{
				"engineeringItem", "siteOrganizer", "procurementOrganizer",
				"contractorName", "returnReason", "remarks",
			},
		},
		{
			uid:        idxOperations,
			searchable: []string{"category", "item", "remarks"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: "id",
		}); err != nil {
			log.Printf("search: create index %s (may already exist): %v", idx.uid, err)
		}

		index := m.client.Index(idx.uid)
		filterable := []interface{}{"projectId"}
		if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
			log.Printf("search: update filterable attrs for %s: %v", idx.uid, err)
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			log.Printf("search: update searchable attrs for %s: %v", idx.uid, err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries both record indexes (or one, when the query names a kind)
// and merges results.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	targets := []struct {
		uid  string
		kind Kind
	}{
		{idxProcurement, KindProcurement},
		{idxOperations, KindOperations},
	}

	for _, target := range targets {
		if q.Kind != "" && q.Kind != target.kind {
			continue
		}
		sr := &meili.SearchRequest{
			IndexUID:              target.uid,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
		}
		if q.ProjectID != "" {
			sr.Filter = []string{fmt.Sprintf("projectId = %q", q.ProjectID)}
		}
		queries = append(queries, sr)
	}

	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		kind := indexToKind(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, kind))
		}
	}

	return results, total, nil
}

func indexToKind(uid string) Kind {
	switch uid {
	case idxProcurement:
		return KindProcurement
	case idxOperations:
		return KindOperations
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, kind Kind) Result {
	r := Result{Kind: kind}
	r.ID = decodeString(hit, "id")
	r.ProjectID = decodeString(hit, "projectId")

	switch kind {
	case KindProcurement:
		r.Title = firstNonBlank(decodeFormattedString(hit, "engineeringItem"), decodeString(hit, "engineeringItem"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "remarks"), decodeString(hit, "remarks"))
	case KindOperations:
		r.Title = firstNonBlank(decodeFormattedString(hit, "item"), decodeString(hit, "item"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "remarks"), decodeString(hit, "remarks"))
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexProcurement adds or updates one procurement record in the index.
func (m *Meili) IndexProcurement(r store.ProcurementRecord) error {
	_, err := m.client.Index(idxProcurement).AddDocuments([]store.ProcurementRecord{r}, nil)
	return err
}

// IndexOperation adds or updates one operation record in the index.
func (m *Meili) IndexOperation(r store.OperationRecord) error {
	_, err := m.client.Index(idxOperations).AddDocuments([]store.OperationRecord{r}, nil)
	return err
}

// DeleteProcurement removes a procurement record from the index.
func (m *Meili) DeleteProcurement(id string) error {
	_, err := m.client.Index(idxProcurement).DeleteDocument(id, nil)
	return err
}

// DeleteOperation removes an operation record from the index.
func (m *Meili) DeleteOperation(id string) error {
	_, err := m.client.Index(idxOperations).DeleteDocument(id, nil)
	return err
}

// IndexAll bulk-indexes both record kinds, used at startup and after bulk
// mutations (project delete, reset).
func (m *Meili) IndexAll(procurement []store.ProcurementRecord, operations []store.OperationRecord) error {
	if len(procurement) > 0 {
		if _, err := m.client.Index(idxProcurement).AddDocuments(procurement, nil); err != nil {
			return err
		}
	}
	if len(operations) > 0 {
		if _, err := m.client.Index(idxOperations).AddDocuments(operations, nil); err != nil {
			return err
		}
	}
	return nil
}
