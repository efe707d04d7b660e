package search

import (
	"log"

	"gantry/api/internal/store"
)

// Service is the facade that tries Meilisearch first and falls back to a
// local store scan.
type Service struct {
	meili *Meili
	local *Local
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured.
func NewService(meili *Meili, local *Local) *Service {
	return &Service{meili: meili, local: local}
}

// Search tries Meilisearch if healthy, otherwise scans the store.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to local scan: %v", err)
	}

	results, total, err := s.local.Search(q)
	if err != nil {
		log.Printf("search: local scan error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexProcurement indexes one record (fire-and-forget to Meilisearch).
func (s *Service) IndexProcurement(r store.ProcurementRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexProcurement(r); err != nil {
			log.Printf("search: index procurement %s: %v", r.ID, err)
		}
	}()
}

// IndexOperation indexes one record (fire-and-forget to Meilisearch).
func (s *Service) IndexOperation(r store.OperationRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexOperation(r); err != nil {
			log.Printf("search: index operation %s: %v", r.ID, err)
		}
	}()
}

// DeleteProcurement removes a record from the index (fire-and-forget).
func (s *Service) DeleteProcurement(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteProcurement(id); err != nil {
			log.Printf("search: delete procurement %s: %v", id, err)
		}
	}()
}

// DeleteOperation removes a record from the index (fire-and-forget).
func (s *Service) DeleteOperation(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteOperation(id); err != nil {
			log.Printf("search: delete operation %s: %v", id, err)
		}
	}()
}

// ReindexAll pushes the full store contents into Meilisearch, used at
// startup and after bulk mutations (project delete, reset).
func (s *Service) ReindexAll(procurement []store.ProcurementRecord, operations []store.OperationRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexAll(procurement, operations); err != nil {
		log.Printf("search: reindex: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
