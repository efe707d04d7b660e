package store

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"gantry/api/internal/access"
	"gantry/api/internal/util"
)

// RecordStore owns the full multi-project collections of both record kinds
// plus the project list, partitioned by project id. Every mutation is
// applied to the in-memory collection under one lock and immediately
// written through to the snapshot port; a failed flush is logged, never
// surfaced, so a mutation can lose at most itself on a crash.
type RecordStore struct {
	port   SnapshotPort
	policy access.Policy

	mu          sync.Mutex
	projects    []Project
	procurement []ProcurementRecord
	operations  []OperationRecord

	afterFlush func(Kind)
}

func NewRecordStore(port SnapshotPort, policy access.Policy) *RecordStore {
	return &RecordStore{port: port, policy: policy}
}

// SetAfterFlush installs a hook invoked after each successful snapshot
// write (the history service commits there). Must be set before Load.
func (s *RecordStore) SetAfterFlush(fn func(Kind)) {
	s.afterFlush = fn
}

// Load reads every snapshot wholesale. A missing, unreadable or corrupt
// snapshot falls back to the seeded defaults for that kind; startup never
// fails on bad persisted state.
func (s *RecordStore) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects = loadKind(ctx, s.port, KindProjects, seedProjects)
	s.procurement = loadKind(ctx, s.port, KindProcurement, seedProcurement)
	s.operations = loadKind(ctx, s.port, KindOperations, func() []OperationRecord { return []OperationRecord{} })

	// Forward-compatible defaults for snapshots written before the
	// multi-project split.
	for i := range s.procurement {
		if s.procurement[i].ProjectID == "" {
			s.procurement[i].ProjectID = DefaultProjectID
		}
	}
	for i := range s.operations {
		if s.operations[i].ProjectID == "" {
			s.operations[i].ProjectID = DefaultProjectID
		}
	}
}

func loadKind[T any](ctx context.Context, port SnapshotPort, kind Kind, seed func() []T) []T {
	payload, err := port.Load(ctx, kind)
	if err != nil {
		log.Printf("store: load %s snapshot: %v (falling back to defaults)", kind, err)
		return seed()
	}
	if len(payload) == 0 {
		return seed()
	}
	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		log.Printf("store: decode %s snapshot: %v (falling back to defaults)", kind, err)
		return seed()
	}
	if items == nil {
		items = []T{}
	}
	return items
}

func seedProjects() []Project {
	return []Project{
		{ID: DefaultProjectID, Name: "預設專案", CreatedAt: time.Now()},
	}
}

func seedProcurement() []ProcurementRecord {
	return []ProcurementRecord{
		{
			ID:                   "1",
			ProjectID:            DefaultProjectID,
			EngineeringItem:      "鋼結構工程",
			ScheduledRequestDate: "2023-10-01",
			ActualRequestDate:    "2023-10-05",
			SiteOrganizer:        "王小明",
			ProcurementOrganizer: "李大華",
		},
		{
			ID:                   "2",
			ProjectID:            DefaultProjectID,
			EngineeringItem:      "混凝土澆置",
			ScheduledRequestDate: "2023-10-15",
			ActualRequestDate:    "2023-10-10",
			SiteOrganizer:        "王小明",
			ProcurementOrganizer: "陳採購",
			Remarks:              "需優先處理",
		},
	}
}

// flush writes one kind's collection through to the snapshot port. Caller
// holds the lock. Persistence errors are logged and swallowed: the
// in-memory mutation stands either way.
func (s *RecordStore) flush(ctx context.Context, kind Kind) {
	var payload []byte
	var err error
	switch kind {
	case KindProjects:
		payload, err = json.MarshalIndent(s.projects, "", "  ")
	case KindProcurement:
		payload, err = json.MarshalIndent(s.procurement, "", "  ")
	case KindOperations:
		payload, err = json.MarshalIndent(s.operations, "", "  ")
	}
	if err != nil {
		log.Printf("store: marshal %s snapshot: %v", kind, err)
		return
	}
	if err := s.port.Save(ctx, kind, append(payload, '\n')); err != nil {
		log.Printf("store: save %s snapshot: %v", kind, err)
		return
	}
	if s.afterFlush != nil {
		s.afterFlush(kind)
	}
}

// Projects returns the project list in creation order.
func (s *RecordStore) Projects() []Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Project, len(s.projects))
	copy(out, s.projects)
	return out
}

func (s *RecordStore) GetProject(id string) (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

func (s *RecordStore) CreateProject(ctx context.Context, name string) Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	project := Project{
		ID:        util.NewID("prj"),
		Name:      name,
		CreatedAt: time.Now(),
	}
	s.projects = append(s.projects, project)
	s.flush(ctx, KindProjects)
	return project
}

func (s *RecordStore) RenameProject(ctx context.Context, id, name string) (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.projects {
		if s.projects[i].ID == id {
			s.projects[i].Name = name
			s.flush(ctx, KindProjects)
			return s.projects[i], true
		}
	}
	return Project{}, false
}

// DeleteProject removes the project and cascades to its records in both
// kinds. Records whose project never existed are unaffected (they are
// hidden at read time, not purged).
func (s *RecordStore) DeleteProject(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := -1
	for i := range s.projects {
		if s.projects[i].ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return false
	}
	s.projects = append(s.projects[:index], s.projects[index+1:]...)
	s.removeRecordsLocked(ctx, id)
	s.flush(ctx, KindProjects)
	return true
}

// ResetProject removes all records of one project from both kinds, leaving
// the project itself and every other partition untouched.
func (s *RecordStore) ResetProject(ctx context.Context, projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeRecordsLocked(ctx, projectID)
}

func (s *RecordStore) removeRecordsLocked(ctx context.Context, projectID string) {
	kept := s.procurement[:0]
	for _, r := range s.procurement {
		if r.ProjectID != projectID {
			kept = append(kept, r)
		}
	}
	s.procurement = kept

	keptOps := s.operations[:0]
	for _, r := range s.operations {
		if r.ProjectID != projectID {
			keptOps = append(keptOps, r)
		}
	}
	s.operations = keptOps

	s.flush(ctx, KindProcurement)
	s.flush(ctx, KindOperations)
}

// ListProcurement returns the project's partition in insertion order.
func (s *RecordStore) ListProcurement(projectID string) []ProcurementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProcurementRecord, 0)
	for _, r := range s.procurement {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out
}

// ListOperations returns the project's partition in insertion order.
func (s *RecordStore) ListOperations(projectID string) []OperationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OperationRecord, 0)
	for _, r := range s.operations {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out
}

// AllProcurement returns every record across projects (search fallback and
// index rebuilds read this).
func (s *RecordStore) AllProcurement() []ProcurementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProcurementRecord, len(s.procurement))
	copy(out, s.procurement)
	return out
}

// AllOperations returns every record across projects.
func (s *RecordStore) AllOperations() []OperationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OperationRecord, len(s.operations))
	copy(out, s.operations)
	return out
}

// CreateProcurement appends an empty record to the project's partition.
func (s *RecordStore) CreateProcurement(ctx context.Context, projectID string) ProcurementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := ProcurementRecord{ID: util.NewID("prc"), ProjectID: projectID}
	s.procurement = append(s.procurement, record)
	s.flush(ctx, KindProcurement)
	return record
}

// CreateOperation appends an empty record, optionally pre-assigned to a
// stage (the operations table adds rows per stage group).
func (s *RecordStore) CreateOperation(ctx context.Context, projectID, category string) OperationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := OperationRecord{ID: util.NewID("opr"), ProjectID: projectID, Category: category}
	s.operations = append(s.operations, record)
	s.flush(ctx, KindOperations)
	return record
}

var procurementFields = map[string]func(*ProcurementRecord, string){
	access.FieldEngineeringItem:      func(r *ProcurementRecord, v string) { r.EngineeringItem = v },
	access.FieldScheduledRequestDate: func(r *ProcurementRecord, v string) { r.ScheduledRequestDate = v },
	access.FieldActualRequestDate:    func(r *ProcurementRecord, v string) { r.ActualRequestDate = v },
	access.FieldSiteOrganizer:        func(r *ProcurementRecord, v string) { r.SiteOrganizer = v },
	access.FieldProcurementOrganizer: func(r *ProcurementRecord, v string) { r.ProcurementOrganizer = v },
	access.FieldReturnDate:           func(r *ProcurementRecord, v string) { r.ReturnDate = v },
	access.FieldReturnReason:         func(r *ProcurementRecord, v string) { r.ReturnReason = v },
	access.FieldResubmissionDate:     func(r *ProcurementRecord, v string) { r.ResubmissionDate = v },
	access.FieldContractorConfirm:    func(r *ProcurementRecord, v string) { r.ContractorConfirmDate = v },
	access.FieldContractorName:       func(r *ProcurementRecord, v string) { r.ContractorName = v },
	access.FieldRemarks:              func(r *ProcurementRecord, v string) { r.Remarks = v },
}

var operationFields = map[string]func(*OperationRecord, string){
	access.FieldCategory:           func(r *OperationRecord, v string) { r.Category = v },
	access.FieldItem:               func(r *OperationRecord, v string) { r.Item = v },
	access.FieldScheduledStartDate: func(r *OperationRecord, v string) { r.ScheduledStartDate = v },
	access.FieldScheduledEndDate:   func(r *OperationRecord, v string) { r.ScheduledEndDate = v },
	access.FieldActualStartDate:    func(r *OperationRecord, v string) { r.ActualStartDate = v },
	access.FieldActualEndDate:      func(r *OperationRecord, v string) { r.ActualEndDate = v },
	access.FieldRemarks:            func(r *OperationRecord, v string) { r.Remarks = v },
}

// UpdateProcurement replaces a single field, leaving the rest of the record
// untouched. Unknown ids, unknown fields and policy denials are silent
// no-ops; the current record (if any) is returned either way.
func (s *RecordStore) UpdateProcurement(ctx context.Context, id, field, value string, role access.Role) (ProcurementRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.procurement {
		if s.procurement[i].ID != id {
			continue
		}
		set, known := procurementFields[field]
		if !known || !s.policy.CanEditField(role, field) {
			return s.procurement[i], true
		}
		set(&s.procurement[i], value)
		s.flush(ctx, KindProcurement)
		return s.procurement[i], true
	}
	return ProcurementRecord{}, false
}

// UpdateOperation mirrors UpdateProcurement for the operations kind.
func (s *RecordStore) UpdateOperation(ctx context.Context, id, field, value string, role access.Role) (OperationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.operations {
		if s.operations[i].ID != id {
			continue
		}
		set, known := operationFields[field]
		if !known || !s.policy.CanEditField(role, field) {
			return s.operations[i], true
		}
		set(&s.operations[i], value)
		s.flush(ctx, KindOperations)
		return s.operations[i], true
	}
	return OperationRecord{}, false
}

func (s *RecordStore) DeleteProcurement(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.procurement {
		if s.procurement[i].ID == id {
			s.procurement = append(s.procurement[:i], s.procurement[i+1:]...)
			s.flush(ctx, KindProcurement)
			return true
		}
	}
	return false
}

func (s *RecordStore) DeleteOperation(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.operations {
		if s.operations[i].ID == id {
			s.operations = append(s.operations[:i], s.operations[i+1:]...)
			s.flush(ctx, KindOperations)
			return true
		}
	}
	return false
}
