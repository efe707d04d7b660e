package store

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"gantry/api/internal/access"
)

func newTestStore(t *testing.T) (*RecordStore, *MemorySnapshots) {
	t.Helper()
	port := NewMemorySnapshots()
	s := NewRecordStore(port, access.Policy{})
	s.Load(context.Background())
	return s, port
}

func TestLoadSeedsDefaults(t *testing.T) {
	s, _ := newTestStore(t)

	projects := s.Projects()
	if len(projects) != 1 || projects[0].ID != DefaultProjectID {
		t.Fatalf("expected seeded default project, got %+v", projects)
	}
	records := s.ListProcurement(DefaultProjectID)
	if len(records) != 2 {
		t.Fatalf("expected 2 seeded records, got %d", len(records))
	}
	if records[0].EngineeringItem != "鋼結構工程" || records[1].Remarks != "需優先處理" {
		t.Fatalf("unexpected seed content: %+v", records)
	}
	if len(s.ListOperations(DefaultProjectID)) != 0 {
		t.Fatalf("expected no seeded operation records")
	}
}

func TestLoadCorruptSnapshotFallsBack(t *testing.T) {
	port := NewMemorySnapshots()
	port.Prime(KindProcurement, []byte(`{"not":"an array"`))
	s := NewRecordStore(port, access.Policy{})
	s.Load(context.Background())

	if got := len(s.ListProcurement(DefaultProjectID)); got != 2 {
		t.Fatalf("expected seeded fallback after corrupt snapshot, got %d records", got)
	}
}

func TestLoadDefaultsMissingProjectID(t *testing.T) {
	port := NewMemorySnapshots()
	port.Prime(KindProcurement, []byte(`[{"id":"legacy-1","engineeringItem":"舊資料"}]`))
	s := NewRecordStore(port, access.Policy{})
	s.Load(context.Background())

	records := s.ListProcurement(DefaultProjectID)
	if len(records) != 1 || records[0].ID != "legacy-1" {
		t.Fatalf("legacy record not assigned to default project: %+v", records)
	}
}

func TestUpdateDeniedLeavesRecordUntouched(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	created := s.CreateProcurement(ctx, DefaultProjectID)

	before, _ := json.Marshal(created)

	// EXECUTOR does not own engineeringItem.
	after, found := s.UpdateProcurement(ctx, created.ID, access.FieldEngineeringItem, "偷改", access.RoleExecutor)
	if !found {
		t.Fatalf("record not found")
	}
	got, _ := json.Marshal(after)
	if string(got) != string(before) {
		t.Fatalf("denied update changed record: %s != %s", got, before)
	}
}

func TestUpdateUnknownFieldIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	created := s.CreateProcurement(ctx, DefaultProjectID)

	after, found := s.UpdateProcurement(ctx, created.ID, "projectId", "elsewhere", access.RoleAdmin)
	if !found {
		t.Fatalf("record not found")
	}
	if after.ProjectID != DefaultProjectID {
		t.Fatalf("unknown field write was applied: %+v", after)
	}
}

func TestUpdateByOwningRole(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	created := s.CreateOperation(ctx, DefaultProjectID, "結構工程")

	after, found := s.UpdateOperation(ctx, created.ID, access.FieldActualStartDate, "2024-03-01", access.RoleExecutor)
	if !found || after.ActualStartDate != "2024-03-01" {
		t.Fatalf("owning-role update not applied: found=%v record=%+v", found, after)
	}
	if after.Category != "結構工程" {
		t.Fatalf("unrelated field changed: %+v", after)
	}
}

func TestUpdateUnknownIDReportsNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	if _, found := s.UpdateProcurement(context.Background(), "missing", access.FieldRemarks, "x", access.RoleAdmin); found {
		t.Fatalf("expected not found for unknown id")
	}
}

func TestResetProjectLeavesOtherPartitionsAlone(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	other := s.CreateProject(ctx, "二期工程")
	s.CreateProcurement(ctx, other.ID)
	s.CreateOperation(ctx, other.ID, "設計階段")

	s.ResetProject(ctx, DefaultProjectID)

	if got := len(s.ListProcurement(DefaultProjectID)); got != 0 {
		t.Fatalf("reset left %d records in the target project", got)
	}
	if got := len(s.ListProcurement(other.ID)); got != 1 {
		t.Fatalf("reset touched another project's procurement records: %d", got)
	}
	if got := len(s.ListOperations(other.ID)); got != 1 {
		t.Fatalf("reset touched another project's operation records: %d", got)
	}
	if len(s.Projects()) != 2 {
		t.Fatalf("reset removed a project")
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	project := s.CreateProject(ctx, "臨時標案")
	s.CreateProcurement(ctx, project.ID)
	s.CreateOperation(ctx, project.ID, "假設工程")

	if !s.DeleteProject(ctx, project.ID) {
		t.Fatalf("delete reported not found")
	}
	if _, ok := s.GetProject(project.ID); ok {
		t.Fatalf("project still listed after delete")
	}
	if len(s.ListProcurement(project.ID)) != 0 || len(s.ListOperations(project.ID)) != 0 {
		t.Fatalf("cascade left records behind")
	}
	if got := len(s.ListProcurement(DefaultProjectID)); got != 2 {
		t.Fatalf("cascade touched the default project: %d", got)
	}
}

func TestSnapshotRoundTripPreservesOrder(t *testing.T) {
	s, port := newTestStore(t)
	ctx := context.Background()
	s.CreateProcurement(ctx, DefaultProjectID)
	s.CreateOperation(ctx, DefaultProjectID, "內裝工程")
	s.CreateOperation(ctx, DefaultProjectID, "設備工程")

	reloaded := NewRecordStore(port, access.Policy{})
	reloaded.Load(ctx)

	if !reflect.DeepEqual(s.AllProcurement(), reloaded.AllProcurement()) {
		t.Fatalf("procurement records did not round-trip")
	}
	if !reflect.DeepEqual(s.AllOperations(), reloaded.AllOperations()) {
		t.Fatalf("operation records did not round-trip")
	}
}

func TestSaveFailureKeepsMutation(t *testing.T) {
	s, port := newTestStore(t)
	ctx := context.Background()
	port.FailSaves(errors.New("disk full"))

	created := s.CreateProcurement(ctx, DefaultProjectID)
	if got := len(s.ListProcurement(DefaultProjectID)); got != 3 {
		t.Fatalf("mutation dropped on save failure: %d records", got)
	}
	if _, found := s.UpdateProcurement(ctx, created.ID, access.FieldRemarks, "still here", access.RoleAdmin); !found {
		t.Fatalf("record missing after failed save")
	}
}

func TestDisplayNameLockDeniesOwningRole(t *testing.T) {
	port := NewMemorySnapshots()
	s := NewRecordStore(port, access.Policy{LockDisplayName: true})
	s.Load(context.Background())
	ctx := context.Background()

	created := s.CreateProcurement(ctx, DefaultProjectID)
	after, _ := s.UpdateProcurement(ctx, created.ID, access.FieldEngineeringItem, "改名", access.RolePlanner)
	if after.EngineeringItem != "" {
		t.Fatalf("lock did not deny planner rename: %+v", after)
	}
	after, _ = s.UpdateProcurement(ctx, created.ID, access.FieldEngineeringItem, "改名", access.RoleAdmin)
	if after.EngineeringItem != "改名" {
		t.Fatalf("lock denied admin rename: %+v", after)
	}
}

func TestAfterFlushHook(t *testing.T) {
	port := NewMemorySnapshots()
	s := NewRecordStore(port, access.Policy{})
	var flushed []Kind
	s.SetAfterFlush(func(kind Kind) { flushed = append(flushed, kind) })
	s.Load(context.Background())

	s.CreateProject(context.Background(), "新專案")
	if len(flushed) == 0 || flushed[len(flushed)-1] != KindProjects {
		t.Fatalf("hook not invoked for project flush: %v", flushed)
	}
}
