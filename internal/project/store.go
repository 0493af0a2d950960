package project

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/brandsight/rfpd/internal/errors"
)

// TaskScheduler is the slice of the processing scheduler the store drives.
// Implemented by scheduler.Scheduler; faked in tests.
type TaskScheduler interface {
	// Schedule registers a one-shot deferred completion for the project id.
	Schedule(projectID string, fire func()) error
	// Cancel stops an outstanding completion before it fires.
	Cancel(projectID string) bool
	// Outstanding reports whether a completion is still pending.
	Outstanding(projectID string) bool
	// ScheduleReply registers an independent deferred chat reply for the project.
	ScheduleReply(projectID string, fire func())
	// CancelReplies stops all pending chat replies for the project.
	CancelReplies(projectID string)
}

// ChangeKind classifies a store change notification.
type ChangeKind string

const (
	ChangeCreated         ChangeKind = "created"
	ChangeDeleted         ChangeKind = "deleted"
	ChangeJourneyAdvanced ChangeKind = "journey_advanced"
	ChangeMessageAppended ChangeKind = "message_appended"
	ChangeTopicCreated    ChangeKind = "topic_created"
	ChangeSelection       ChangeKind = "selection"
)

// Change is one store change notification delivered to watchers.
type Change struct {
	Kind      ChangeKind `json:"kind"`
	ProjectID string     `json:"project_id,omitempty"`
	TopicKey  string     `json:"topic_key,omitempty"`
	Role      Role       `json:"role,omitempty"` // set for message appends
}

// Store owns the ordered collection of projects and the active selection.
// It is the single writer: every mutation, whether a direct caller action
// or a fired timer, is serialized through its mutex.
type Store struct {
	mu       sync.RWMutex
	projects []*Project // newest-uploaded first
	byID     map[string]*Project
	selected string // active project id, "" when none
	counter  int64  // per-session id uniqueness
	template []StageTemplate
	tasks    TaskScheduler
	now      func() time.Time

	watcherMu sync.Mutex
	watchers  []chan Change

	logger zerolog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTemplate overrides the default journey stage template.
func WithTemplate(template []StageTemplate) StoreOption {
	return func(s *Store) {
		if len(template) > 0 {
			s.template = template
		}
	}
}

// WithClock overrides the store's time source (tests).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty project store.
func NewStore(logger zerolog.Logger, opts ...StoreOption) *Store {
	s := &Store{
		byID:     make(map[string]*Project),
		template: DefaultJourneyTemplate(),
		logger:   logger.With().Str("component", "project.store").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetScheduler attaches the processing scheduler. Without one, uploads
// still succeed but no deferred completion is registered (tests).
func (s *Store) SetScheduler(ts TaskScheduler) {
	s.mu.Lock()
	s.tasks = ts
	s.mu.Unlock()
}

// Watch returns a channel receiving store change notifications. Watchers
// that fall behind have notifications dropped rather than blocking the
// store.
func (s *Store) Watch() <-chan Change {
	ch := make(chan Change, 16)
	s.watcherMu.Lock()
	s.watchers = append(s.watchers, ch)
	s.watcherMu.Unlock()
	return ch
}

func (s *Store) notify(c Change) {
	s.watcherMu.Lock()
	defer s.watcherMu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- c:
		default:
		}
	}
}

// Create registers a new project for an uploaded document. Only the file
// name is validated; content is never parsed. The journey starts with
// every stage pending, the default chat topics are seeded, and a deferred
// processing completion is registered with the scheduler.
func (s *Store) Create(fileName string) (*Project, error) {
	if !AcceptsFileName(fileName) {
		return nil, apperrors.Invalidf("unsupported document type %q, expected %s", fileName, acceptedExtension)
	}

	s.mu.Lock()
	s.counter++
	p := &Project{
		ID:             fmt.Sprintf("new-%d-%d", s.now().UnixMilli(), s.counter),
		Title:          TitleFromFileName(fileName),
		SourceFileName: fileName,
		Journey:        NewJourney(s.template),
		CreatedAt:      s.now(),
	}
	s.seedDefaultTopics(p)
	s.projects = append([]*Project{p}, s.projects...)
	s.byID[p.ID] = p
	tasks := s.tasks
	s.mu.Unlock()

	if tasks != nil {
		if err := tasks.Schedule(p.ID, func() { s.CompleteProcessing(p.ID) }); err != nil {
			// Fresh ids cannot collide with an outstanding task; a failure
			// here is a programming error, not a user-facing condition.
			s.logger.Error().Err(err).Str("project_id", p.ID).Msg("failed to schedule processing")
		}
	}

	s.logger.Info().
		Str("project_id", p.ID).
		Str("title", p.Title).
		Str("file", p.SourceFileName).
		Msg("project created")
	s.notify(Change{Kind: ChangeCreated, ProjectID: p.ID})
	return p, nil
}

// Seed inserts a pre-built project (demo data) at the end of the list
// without scheduling processing.
func (s *Store) Seed(p *Project) {
	s.mu.Lock()
	if len(p.Topics) == 0 {
		s.seedDefaultTopics(p)
	}
	if p.ActiveTopicKey == "" && len(p.Topics) > 0 {
		p.ActiveTopicKey = p.Topics[0].Key
	}
	s.projects = append(s.projects, p)
	s.byID[p.ID] = p
	s.mu.Unlock()
}

// Delete removes a project. Outstanding processing and chat-reply timers
// are cancelled first so no mutation can land on the removed project. If
// the project was the active selection, the selection is cleared.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	p, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return apperrors.NotFoundf("project %s", id)
	}
	delete(s.byID, id)
	for i, q := range s.projects {
		if q.ID == id {
			s.projects = append(s.projects[:i], s.projects[i+1:]...)
			break
		}
	}
	cleared := s.selected == id
	if cleared {
		s.selected = ""
	}
	tasks := s.tasks
	s.mu.Unlock()

	if tasks != nil {
		tasks.Cancel(id)
		tasks.CancelReplies(id)
	}

	s.logger.Info().
		Str("project_id", id).
		Str("title", p.Title).
		Bool("selection_cleared", cleared).
		Msg("project deleted")
	s.notify(Change{Kind: ChangeDeleted, ProjectID: id})
	if cleared {
		s.notify(Change{Kind: ChangeSelection})
	}
	return nil
}

// Get returns the project with the given id.
func (s *Store) Get(id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, apperrors.NotFoundf("project %s", id)
	}
	return p, nil
}

// List returns the projects newest-uploaded first.
func (s *Store) List() []*Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// GetSnapshot returns a deep copy of the project, safe to read and
// serialize without holding the store lock.
func (s *Store) GetSnapshot(id string) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return Project{}, apperrors.NotFoundf("project %s", id)
	}
	return snapshot(p), nil
}

// ListSnapshots returns deep copies of all projects, newest-uploaded first.
func (s *Store) ListSnapshots() []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Project, len(s.projects))
	for i, p := range s.projects {
		out[i] = snapshot(p)
	}
	return out
}

func snapshot(p *Project) Project {
	cp := *p
	cp.Journey = make([]JourneyBlock, len(p.Journey))
	copy(cp.Journey, p.Journey)
	cp.Topics = make([]*Topic, len(p.Topics))
	for i, t := range p.Topics {
		tc := *t
		tc.Thread = make([]Message, len(t.Thread))
		copy(tc.Thread, t.Thread)
		cp.Topics[i] = &tc
	}
	if p.Analysis != nil {
		ac := *p.Analysis
		ac.RolesAndEfforts = make(map[string]int, len(p.Analysis.RolesAndEfforts))
		for k, v := range p.Analysis.RolesAndEfforts {
			ac.RolesAndEfforts[k] = v
		}
		cp.Analysis = &ac
	}
	return cp
}

// Len returns the number of projects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}

// Processing reports whether the project still has an outstanding
// simulated-analysis task.
func (s *Store) Processing(id string) bool {
	s.mu.RLock()
	tasks := s.tasks
	s.mu.RUnlock()
	return tasks != nil && tasks.Outstanding(id)
}

// CompleteProcessing applies the deferred analysis completion for a
// project: the first journey stage becomes completed, the second becomes
// in-progress, and the simulated analysis is attached. A fire for a
// deleted project is a silent no-op (cancellation by absence). Returns
// whether a mutation was applied.
func (s *Store) CompleteProcessing(id string) bool {
	s.mu.Lock()
	p, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Debug().Str("project_id", id).Msg("processing fired for deleted project, ignoring")
		return false
	}
	AdvanceFrontier(p.Journey)
	p.Analysis = simulatedAnalysis()
	s.mu.Unlock()

	s.logger.Info().Str("project_id", id).Msg("processing completed")
	s.notify(Change{Kind: ChangeJourneyAdvanced, ProjectID: id})
	return true
}

// simulatedAnalysis is the canned structured result attached on
// completion. A real analysis backend would replace this wholesale.
func simulatedAnalysis() *Analysis {
	return &Analysis{
		RolesAndEfforts: map[string]int{
			"Project Manager":    120,
			"Solution Architect": 160,
			"Developer":          320,
			"QA Engineer":        140,
		},
		Purpose:         "Engage a services partner to take over and run the scoped operation with a managed transition.",
		ScopeOfWork:     "Knowledge transfer, transition execution, steady-state operations and continuous improvement across the contracted towers.",
		PaymentTerms:    "Monthly in arrears, net 45, with service credits tied to SLA attainment.",
		KeyRequirements: "Named transition manager, governance cadence, business continuity plan and exit assistance commitments.",
	}
}

// ToggleSelect toggles the active project selection for the list view:
// selecting the already-selected project clears the selection. Returns
// the resulting active project id ("" when cleared).
func (s *Store) ToggleSelect(id string) (string, error) {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return "", apperrors.NotFoundf("project %s", id)
	}
	if s.selected == id {
		s.selected = ""
	} else {
		s.selected = id
	}
	selected := s.selected
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeSelection, ProjectID: selected})
	return selected, nil
}

// Selected returns the active project id, or "" when none is selected.
func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}
