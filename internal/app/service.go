// Package app orchestrates the record store, session, export, search and
// analysis services behind the HTTP surface.
package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"gantry/api/internal/access"
	"gantry/api/internal/analysis"
	"gantry/api/internal/archive"
	"gantry/api/internal/config"
	"gantry/api/internal/datemath"
	"gantry/api/internal/export"
	"gantry/api/internal/history"
	"gantry/api/internal/search"
	"gantry/api/internal/session"
	"gantry/api/internal/severity"
	"gantry/api/internal/store"
)

// Session is the resolved caller identity attached to each request.
type Session struct {
	Token       string
	Username    string
	DisplayName string
	Department  string
	Role        access.Role
}

// ProcurementView is a stored record plus its derived fields. Derived
// values are recomputed on every read, never persisted.
type ProcurementView struct {
	store.ProcurementRecord
	Variance *int           `json:"variance"`
	Status   severity.Class `json:"status"`
}

// OperationView mirrors ProcurementView for the operations table.
type OperationView struct {
	store.OperationRecord
	ScheduledDuration *int           `json:"scheduledDuration"`
	ActualDuration    *int           `json:"actualDuration"`
	Variance          *int           `json:"variance"`
	Status            severity.Class `json:"status"`
	Progress          int            `json:"progress"`
}

// Deps are the service's collaborators. Records and Sessions are
// required; the rest are optional and degrade to no-ops when nil.
type Deps struct {
	Records  *store.RecordStore
	Sessions *session.Service
	Search   *search.Service
	History  *history.Service
	Archive  *archive.Service
	Analyzer analysis.Collaborator
	Ready    func(context.Context) error
}

type Service struct {
	cfg      config.Config
	records  *store.RecordStore
	policy   access.Policy
	sessions *session.Service
	search   *search.Service
	history  *history.Service
	archive  *archive.Service
	analyzer analysis.Collaborator
	ready    func(context.Context) error

	// analysisMu is the re-entrancy guard: one analysis in flight at a
	// time, a second request is rejected, not queued.
	analysisMu sync.Mutex

	now func() time.Time
}

func New(cfg config.Config, deps Deps) *Service {
	return &Service{
		cfg:      cfg,
		records:  deps.Records,
		policy:   access.Policy{LockDisplayName: cfg.LockDisplayName},
		sessions: deps.Sessions,
		search:   deps.Search,
		history:  deps.History,
		archive:  deps.Archive,
		analyzer: deps.Analyzer,
		ready:    deps.Ready,
		now:      time.Now,
	}
}

// Ping runs the readiness checks of the configured backends.
func (s *Service) Ping(ctx context.Context) error {
	if s.ready == nil {
		return nil
	}
	return s.ready(ctx)
}

// Login resolves a trusted-claim username to a session.
func (s *Service) Login(ctx context.Context, username string) (Session, error) {
	user, token, err := s.sessions.Login(ctx, strings.TrimSpace(username))
	if errors.Is(err, session.ErrUnknownUser) {
		return Session{}, domainError(http.StatusUnauthorized, "UNKNOWN_USER", "Unknown username", nil)
	}
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:       token,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Department:  user.Department,
		Role:        user.Role,
	}, nil
}

// SessionFromToken resolves a bearer token to its session.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	user, err := s.sessions.Current(ctx, token)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	return Session{
		Token:       token,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Department:  user.Department,
		Role:        user.Role,
	}, nil
}

// Logout revokes the caller's session.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Logout(ctx, token)
}

// Users lists the login directory.
func (s *Service) Users() []session.User {
	return session.Users()
}

// ListProjects returns all projects in creation order.
func (s *Service) ListProjects() []store.Project {
	return s.records.Projects()
}

// CreateProject validates the name and appends a project.
func (s *Service) CreateProject(ctx context.Context, sess Session, name string) (store.Project, error) {
	if !s.policy.CanAddRecord(sess.Role) {
		return store.Project{}, domainError(http.StatusForbidden, "FORBIDDEN", "Role may not create projects", nil)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Project{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	return s.records.CreateProject(ctx, name), nil
}

// RenameProject updates a project's name.
func (s *Service) RenameProject(ctx context.Context, sess Session, id, name string) (store.Project, error) {
	if !s.policy.CanAddRecord(sess.Role) {
		return store.Project{}, domainError(http.StatusForbidden, "FORBIDDEN", "Role may not rename projects", nil)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Project{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	project, ok := s.records.RenameProject(ctx, id, name)
	if !ok {
		return store.Project{}, domainError(http.StatusNotFound, "NOT_FOUND", "Project not found", nil)
	}
	return project, nil
}

// DeleteProject removes a project and cascades to its records.
func (s *Service) DeleteProject(ctx context.Context, sess Session, id string) error {
	if !s.policy.CanDeleteRecord(sess.Role) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Role may not delete projects", nil)
	}
	if !s.records.DeleteProject(ctx, id) {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Project not found", nil)
	}
	s.reindexAll()
	return nil
}

// ResetProject removes every record of one project. ADMIN only: this is
// the one deliberate data-loss operation.
func (s *Service) ResetProject(ctx context.Context, sess Session, id string) error {
	if sess.Role != access.RoleAdmin {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only an administrator may reset a project", nil)
	}
	if _, ok := s.records.GetProject(id); !ok {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Project not found", nil)
	}
	s.records.ResetProject(ctx, id)
	s.reindexAll()
	return nil
}

func (s *Service) requireProject(id string) (store.Project, error) {
	project, ok := s.records.GetProject(id)
	if !ok {
		return store.Project{}, domainError(http.StatusNotFound, "NOT_FOUND", "Project not found", nil)
	}
	return project, nil
}

// ListProcurement returns the project's records with derived fields.
func (s *Service) ListProcurement(projectID string) ([]ProcurementView, error) {
	if _, err := s.requireProject(projectID); err != nil {
		return nil, err
	}
	records := s.records.ListProcurement(projectID)
	views := make([]ProcurementView, 0, len(records))
	for _, r := range records {
		views = append(views, s.procurementView(r))
	}
	return views, nil
}

func (s *Service) procurementView(r store.ProcurementRecord) ProcurementView {
	v, ok := datemath.VarianceDays(r.ScheduledRequestDate, r.ActualRequestDate)
	view := ProcurementView{
		ProcurementRecord: r,
		Status:            severity.PointEvent.Classify(v, ok),
	}
	if ok {
		variance := v
		view.Variance = &variance
	}
	return view
}

// ListOperations returns the project's records with derived fields.
func (s *Service) ListOperations(projectID string) ([]OperationView, error) {
	if _, err := s.requireProject(projectID); err != nil {
		return nil, err
	}
	records := s.records.ListOperations(projectID)
	views := make([]OperationView, 0, len(records))
	for _, r := range records {
		views = append(views, s.operationView(r))
	}
	return views, nil
}

func (s *Service) operationView(r store.OperationRecord) OperationView {
	view := OperationView{
		OperationRecord: r,
		Progress:        severity.RangeProgress(r.ActualStartDate, r.ActualEndDate, r.ScheduledEndDate, s.now()),
	}
	if d, ok := datemath.DurationDays(r.ScheduledStartDate, r.ScheduledEndDate); ok {
		scheduled := d
		view.ScheduledDuration = &scheduled
	}
	if d, ok := datemath.DurationDays(r.ActualStartDate, r.ActualEndDate); ok {
		actual := d
		view.ActualDuration = &actual
	}
	v, ok := datemath.VarianceDays(r.ScheduledEndDate, r.ActualEndDate)
	view.Status = severity.StageRange.Classify(v, ok)
	if ok {
		variance := v
		view.Variance = &variance
	}
	return view
}

// CreateProcurement appends an empty record, gated on CanAddRecord.
func (s *Service) CreateProcurement(ctx context.Context, sess Session, projectID string) (ProcurementView, error) {
	if !s.policy.CanAddRecord(sess.Role) {
		return ProcurementView{}, domainError(http.StatusForbidden, "FORBIDDEN", "Role may not add records", nil)
	}
	if _, err := s.requireProject(projectID); err != nil {
		return ProcurementView{}, err
	}
	record := s.records.CreateProcurement(ctx, projectID)
	if s.search != nil {
		s.search.IndexProcurement(record)
	}
	return s.procurementView(record), nil
}

// CreateOperation appends an empty record, optionally pre-assigned to a
// stage category.
func (s *Service) CreateOperation(ctx context.Context, sess Session, projectID, category string) (OperationView, error) {
	if !s.policy.CanAddRecord(sess.Role) {
		return OperationView{}, domainError(http.StatusForbidden, "FORBIDDEN", "Role may not add records", nil)
	}
	if _, err := s.requireProject(projectID); err != nil {
		return OperationView{}, err
	}
	record := s.records.CreateOperation(ctx, projectID, strings.TrimSpace(category))
	if s.search != nil {
		s.search.IndexOperation(record)
	}
	return s.operationView(record), nil
}

// UpdateProcurement writes one field. A denied or unknown-field write is a
// silent no-op: the current record comes back unchanged with 200.
func (s *Service) UpdateProcurement(ctx context.Context, sess Session, id, field, value string) (ProcurementView, error) {
	record, found := s.records.UpdateProcurement(ctx, id, field, value, sess.Role)
	if !found {
		return ProcurementView{}, domainError(http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
	}
	if s.search != nil {
		s.search.IndexProcurement(record)
	}
	return s.procurementView(record), nil
}

// UpdateOperation mirrors UpdateProcurement for the operations kind.
func (s *Service) UpdateOperation(ctx context.Context, sess Session, id, field, value string) (OperationView, error) {
	record, found := s.records.UpdateOperation(ctx, id, field, value, sess.Role)
	if !found {
		return OperationView{}, domainError(http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
	}
	if s.search != nil {
		s.search.IndexOperation(record)
	}
	return s.operationView(record), nil
}

// DeleteProcurement removes one record, gated on CanDeleteRecord.
func (s *Service) DeleteProcurement(ctx context.Context, sess Session, id string) error {
	if !s.policy.CanDeleteRecord(sess.Role) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Role may not delete records", nil)
	}
	if !s.records.DeleteProcurement(ctx, id) {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
	}
	if s.search != nil {
		s.search.DeleteProcurement(id)
	}
	return nil
}

// DeleteOperation removes one record, gated on CanDeleteRecord.
func (s *Service) DeleteOperation(ctx context.Context, sess Session, id string) error {
	if !s.policy.CanDeleteRecord(sess.Role) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Role may not delete records", nil)
	}
	if !s.records.DeleteOperation(ctx, id) {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
	}
	if s.search != nil {
		s.search.DeleteOperation(id)
	}
	return nil
}

// ProjectProgress computes whole-project percent-complete from the
// operations table.
func (s *Service) ProjectProgress(projectID string) (int, error) {
	if _, err := s.requireProject(projectID); err != nil {
		return 0, err
	}
	records := s.records.ListOperations(projectID)
	stages := make([]severity.StageWindow, 0, len(records))
	for _, r := range records {
		stages = append(stages, severity.StageWindow{
			Category:     r.Category,
			ActualStart:  r.ActualStartDate,
			ActualEnd:    r.ActualEndDate,
			ScheduledEnd: r.ScheduledEndDate,
		})
	}
	return severity.ProjectProgress(stages, store.TerminalStage, s.now()), nil
}

// ExportProcurementCSV serializes the project's procurement table.
func (s *Service) ExportProcurementCSV(projectID string) (*export.Result, error) {
	project, err := s.requireProject(projectID)
	if err != nil {
		return nil, err
	}
	result := export.ProcurementCSV(project.Name, s.records.ListProcurement(projectID), s.now())
	s.archive.Store(projectID, result)
	return result, nil
}

// ExportOperationsCSV serializes the project's operations control table.
func (s *Service) ExportOperationsCSV(projectID string) (*export.Result, error) {
	project, err := s.requireProject(projectID)
	if err != nil {
		return nil, err
	}
	result := export.OperationsCSV(project.Name, s.records.ListOperations(projectID), s.now())
	s.archive.Store(projectID, result)
	return result, nil
}

// ExportPDF renders both tables of a project to one PDF report.
func (s *Service) ExportPDF(projectID string) (*export.Result, error) {
	project, err := s.requireProject(projectID)
	if err != nil {
		return nil, err
	}
	progress, err := s.ProjectProgress(projectID)
	if err != nil {
		return nil, err
	}
	result, err := export.PDFReport(project.Name,
		s.records.ListProcurement(projectID),
		s.records.ListOperations(projectID),
		progress, s.now())
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return nil, domainError(http.StatusServiceUnavailable, "PDF_UNAVAILABLE", "PDF rendering is not available on this host", nil)
	}
	if err != nil {
		return nil, err
	}
	s.archive.Store(projectID, result)
	return result, nil
}

// Analyze reduces the project's procurement records and asks the external
// collaborator for a summary. One analysis runs at a time; a concurrent
// request is rejected with 409.
func (s *Service) Analyze(ctx context.Context, projectID string, filter analysis.Filter) (analysis.Result, error) {
	if _, err := s.requireProject(projectID); err != nil {
		return analysis.Result{}, err
	}
	if s.analyzer == nil {
		return analysis.Result{}, domainError(http.StatusServiceUnavailable, "ANALYSIS_UNAVAILABLE", "Analysis collaborator not configured", nil)
	}
	if !s.analysisMu.TryLock() {
		return analysis.Result{}, domainError(http.StatusConflict, "ANALYSIS_IN_FLIGHT", "An analysis is already running", nil)
	}
	defer s.analysisMu.Unlock()

	tuples := analysis.Reduce(s.records.ListProcurement(projectID), filter, s.now())
	result, err := analysis.Summarize(ctx, s.analyzer, tuples)
	if err != nil {
		return analysis.Result{}, domainError(http.StatusBadGateway, "ANALYSIS_FAILED", "Analysis failed", nil)
	}
	return result, nil
}

// Search queries records across projects.
func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// History lists the snapshot audit trail, newest first.
func (s *Service) History(limit int) ([]history.CommitInfo, error) {
	if s.history == nil {
		return []history.CommitInfo{}, nil
	}
	return s.history.History(limit)
}

func (s *Service) reindexAll() {
	if s.search == nil {
		return
	}
	s.search.ReindexAll(s.records.AllProcurement(), s.records.AllOperations())
}
