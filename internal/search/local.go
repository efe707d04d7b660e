package search

import (
	"strings"

	"gantry/api/internal/store"
)

// Records is what the local scanner reads. *store.RecordStore satisfies it.
type Records interface {
	AllProcurement() []store.ProcurementRecord
	AllOperations() []store.OperationRecord
}

// Local is the fallback searcher: a case-insensitive substring scan over
// the in-memory collections. Always available, no index to maintain.
type Local struct {
	records Records
}

func NewLocal(records Records) *Local {
	return &Local{records: records}
}

func (l *Local) Search(q Query) ([]Result, int, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" {
		return nil, 0, nil
	}

	var matched []Result
	if q.Kind == "" || q.Kind == KindProcurement {
		for _, r := range l.records.AllProcurement() {
			if q.ProjectID != "" && r.ProjectID != q.ProjectID {
				continue
			}
			if containsAny(needle, r.EngineeringItem, r.SiteOrganizer, r.ProcurementOrganizer,
				r.ContractorName, r.ReturnReason, r.Remarks) {
				matched = append(matched, Result{
					Kind:      KindProcurement,
					ID:        r.ID,
					ProjectID: r.ProjectID,
					Title:     r.EngineeringItem,
					Snippet:   r.Remarks,
				})
			}
		}
	}
	if q.Kind == "" || q.Kind == KindOperations {
		for _, r := range l.records.AllOperations() {
			if q.ProjectID != "" && r.ProjectID != q.ProjectID {
				continue
			}
			if containsAny(needle, r.Category, r.Item, r.Remarks) {
				matched = append(matched, Result{
					Kind:      KindOperations,
					ID:        r.ID,
					ProjectID: r.ProjectID,
					Title:     r.Item,
					Snippet:   r.Remarks,
				})
			}
		}
	}

	total := len(matched)
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	if q.Offset >= total {
		return nil, total, nil
	}
	end := q.Offset + limit
	if end > total {
		end = total
	}
	return matched[q.Offset:end], total, nil
}

func containsAny(needle string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
