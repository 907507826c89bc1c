// Package chatservice runs one conversational turn: it builds the model
// request, calls the provider, reconciles the answer into the store and keeps
// the session history.
package chatservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/lifeone/internal/apperr"
	"github.com/starford/lifeone/internal/assistant"
	"github.com/starford/lifeone/internal/conflict"
	"github.com/starford/lifeone/internal/llm"
	"github.com/starford/lifeone/internal/metrics"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/sse"
	"github.com/starford/lifeone/internal/store"
)

// FailureText is shown in the chat when the provider call fails.
const FailureText = "요청을 처리하는 데 실패했습니다. 잠시 후 다시 시도해 주세요."

// Publisher receives chat events. *sse.Broker implements it.
type Publisher interface {
	Publish(sse.Event)
}

// Input is one user turn.
type Input struct {
	Text  string           `json:"text"`
	Image *models.ImageRef `json:"image,omitempty"`
}

// Reply is the result of a turn.
type Reply struct {
	Message models.ChatMessage `json:"message"`
	// State is the conversation state after the turn.
	State string `json:"state"`
	// Outcome counts what was written to the store.
	Outcome store.Outcome `json:"outcome"`
	// Conflicts is set when new records wait for a decision.
	Conflicts *conflict.Report `json:"conflicts,omitempty"`
}

// Resolution is the result of a conflict decision.
type Resolution struct {
	Decision string        `json:"decision"`
	Outcome  store.Outcome `json:"outcome"`
}

// Service serialises turns per session.
type Service struct {
	st      *store.State
	client  llm.Client
	model   string
	rec     *assistant.Reconciler
	logger  *slog.Logger
	metrics *metrics.Metrics
	events  Publisher

	mu   sync.Mutex
	busy map[string]struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithModel sets the provider model name.
func WithModel(model string) Option { return func(s *Service) { s.model = model } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithMetrics sets the collectors.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithPublisher sets the event sink.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.events = p } }

// WithReconciler replaces the default reconciler, which uses the store's
// clock and id source.
func WithReconciler(r *assistant.Reconciler) Option { return func(s *Service) { s.rec = r } }

// New creates a chat service over st and client.
func New(st *store.State, client llm.Client, opts ...Option) *Service {
	s := &Service{
		st:     st,
		client: client,
		logger: slog.Default(),
		busy:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rec == nil {
		s.rec = assistant.NewReconciler(st.Now(), st.NewID, nil)
	}
	return s
}

func (s *Service) acquire(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[id]; ok {
		return fmt.Errorf("session %s: %w", id, apperr.ErrBusy)
	}
	s.busy[id] = struct{}{}
	return nil
}

func (s *Service) release(id string) {
	s.mu.Lock()
	delete(s.busy, id)
	s.mu.Unlock()
}

// SendMessage runs one turn in session id. Empty input returns the canned
// answer with apperr.ErrEmptyInput and touches nothing. A provider failure
// records an error message in the session, leaves the data untouched and
// returns apperr.ErrUpstream with that message in the reply.
func (s *Service) SendMessage(ctx context.Context, id string, in Input) (Reply, error) {
	if err := s.acquire(id); err != nil {
		return Reply{}, err
	}
	defer s.release(id)

	cs, err := s.st.GetSession(id)
	if err != nil {
		return Reply{}, err
	}

	now := s.st.Now()()
	bi := assistant.Input{
		Model:   s.model,
		History: cs.Messages,
		Text:    strings.TrimSpace(in.Text),
		Image:   in.Image,
		Now:     now,
	}
	if !bi.HasContent() {
		s.metrics.ObserveAICall(metrics.ResultEmpty, 0, 0, 0)
		return Reply{
			Message: models.ChatMessage{Role: models.RoleModel, Text: assistant.EmptyInputAnswer, CreatedAt: now},
			State:   assistant.Idle.String(),
		}, fmt.Errorf("session %s: %w", id, apperr.ErrEmptyInput)
	}

	prev := assistant.StateOf(cs.Messages)

	user := models.ChatMessage{ID: s.st.NewID(), Role: models.RoleUser, Text: bi.Text, CreatedAt: now}
	if in.Image != nil && in.Image.Data != "" {
		// Image bytes go to the provider once and are not kept in history.
		user.Image = &models.ImageRef{MIMEType: in.Image.MIMEType, URL: in.Image.URL}
	}
	if _, err := s.st.AppendMessages(id, user); err != nil {
		return Reply{}, err
	}
	s.publish(id)

	snap := s.st.Snapshot()
	bi.Context = assistant.Context{
		Contacts:   snap.Contacts,
		Schedule:   snap.Schedule,
		Expenses:   snap.Expenses,
		Diary:      snap.Diary,
		Categories: snap.Categories,
	}
	req, err := assistant.BuildRequest(bi)
	if err != nil {
		return Reply{}, fmt.Errorf("chat: build request: %w", err)
	}

	res, err := s.client.Chat(ctx, req)
	if err != nil {
		s.metrics.ObserveAICall(metrics.ResultError, res.Duration, 0, 0)
		s.logger.Error("ai call failed",
			slog.String("session", id),
			slog.String("error", err.Error()),
		)
		msg := models.ChatMessage{
			ID: s.st.NewID(), Role: models.RoleModel, Text: FailureText, IsError: true, CreatedAt: s.st.Now()(),
		}
		if _, aerr := s.st.AppendMessages(id, msg); aerr != nil {
			s.logger.Warn("record ai failure", slog.String("session", id), slog.String("error", aerr.Error()))
		}
		s.publish(id)
		return Reply{Message: msg, State: assistant.Idle.String()}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	s.metrics.ObserveAICall(metrics.ResultOK, res.Duration, res.Usage.InputTokens, res.Usage.OutputTokens)

	resp := assistant.ParseResponse(res)
	plan := s.rec.Plan(resp, prev, bi.Text, snap.Categories)
	if plan.DeletionDropped {
		s.metrics.DeletionDropped()
		s.logger.Warn("unconfirmed deletion dropped", slog.String("session", id))
	}

	// The session may have been deleted while the call was in flight.
	if _, err := s.st.GetSession(id); err != nil {
		s.logger.Info("discarding reply for deleted session", slog.String("session", id))
		return Reply{}, err
	}

	var reply Reply
	changes := plan.Changes
	if plan.Batch.Len() > 0 {
		cur := s.st.Snapshot()
		report := conflict.Detect(plan.Batch, conflict.Existing{
			Contacts: cur.Contacts, Schedule: cur.Schedule, Expenses: cur.Expenses,
		})
		if report.Empty() {
			changes.Insert = plan.Batch
		} else {
			batch := plan.Batch
			if err := s.st.SetPendingBatch(id, &batch); err != nil {
				return Reply{}, err
			}
			s.metrics.ObserveConflicts("contacts", len(report.Contacts))
			s.metrics.ObserveConflicts("schedule", len(report.Schedule))
			s.metrics.ObserveConflicts("expenses", len(report.Expenses))
			reply.Conflicts = &report
		}
	}
	reply.Outcome = s.st.Apply(changes)
	s.observeOutcome(reply.Outcome)

	msg := models.ChatMessage{
		ID:                   s.st.NewID(),
		Role:                 models.RoleModel,
		Text:                 resp.Answer,
		ClarificationNeeded:  resp.ClarificationNeeded,
		ClarificationOptions: resp.ClarificationOptions,
		WebSearchSources:     resp.WebSearchSources,
		CreatedAt:            s.st.Now()(),
	}
	next := assistant.After(resp)
	if next.Kind == assistant.AwaitingDeletionConfirmation && !next.Targets.Empty() {
		targets := next.Targets
		msg.PendingDeletion = &targets
	}
	if _, err := s.st.AppendMessages(id, msg); err != nil {
		return Reply{}, err
	}
	s.publish(id)

	reply.Message = msg
	reply.State = next.Kind.String()
	return reply, nil
}

// SelectOption answers the open clarification question of session id with
// option, which must be one of the offered options.
func (s *Service) SelectOption(ctx context.Context, id, option string) (Reply, error) {
	cs, err := s.st.GetSession(id)
	if err != nil {
		return Reply{}, err
	}
	st := assistant.StateOf(cs.Messages)
	if st.Kind == assistant.Idle {
		return Reply{}, fmt.Errorf("session %s has no open question: %w", id, apperr.ErrInvalid)
	}
	if !st.HasOption(option) {
		return Reply{}, fmt.Errorf("option %q: %w", option, apperr.ErrInvalid)
	}
	return s.SendMessage(ctx, id, Input{Text: option})
}

// ResolveConflicts commits or drops the pending batch of session id.
// Collisions are recomputed against the current store, so records edited
// since the batch was parked are taken into account. Cancel writes no record.
func (s *Service) ResolveConflicts(_ context.Context, id, decision string) (Resolution, error) {
	if !conflict.ValidDecision(decision) {
		return Resolution{}, fmt.Errorf("decision %q: %w", decision, apperr.ErrInvalid)
	}
	if err := s.acquire(id); err != nil {
		return Resolution{}, err
	}
	defer s.release(id)

	cs, err := s.st.GetSession(id)
	if err != nil {
		return Resolution{}, err
	}
	if cs.PendingBatch == nil {
		return Resolution{}, fmt.Errorf("session %s: %w", id, apperr.ErrNoPending)
	}

	snap := s.st.Snapshot()
	report := conflict.Detect(*cs.PendingBatch, conflict.Existing{
		Contacts: snap.Contacts, Schedule: snap.Schedule, Expenses: snap.Expenses,
	})
	changes := store.Changes{ClearPending: id}
	if batch, ok := conflict.Resolve(*cs.PendingBatch, report, decision); ok {
		changes.Insert = batch
	}
	out := s.st.Apply(changes)
	s.metrics.ObserveDecision(decision)
	s.observeOutcome(out)
	s.logger.Info("conflicts resolved",
		slog.String("session", id),
		slog.String("decision", decision),
		slog.Int("conflicts", report.Len()),
	)
	s.publish(id)
	return Resolution{Decision: decision, Outcome: out}, nil
}

// Pending returns the parked batch of session id and its current collisions.
func (s *Service) Pending(id string) (models.Batch, conflict.Report, error) {
	cs, err := s.st.GetSession(id)
	if err != nil {
		return models.Batch{}, conflict.Report{}, err
	}
	if cs.PendingBatch == nil {
		return models.Batch{}, conflict.Report{}, fmt.Errorf("session %s: %w", id, apperr.ErrNoPending)
	}
	snap := s.st.Snapshot()
	return *cs.PendingBatch, conflict.Detect(*cs.PendingBatch, conflict.Existing{
		Contacts: snap.Contacts, Schedule: snap.Schedule, Expenses: snap.Expenses,
	}), nil
}

// IsBusy reports whether a turn is running in session id.
func (s *Service) IsBusy(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.busy[id]
	return ok
}

func (s *Service) observeOutcome(o store.Outcome) {
	s.metrics.ObserveRecords("inserted", o.Inserted)
	s.metrics.ObserveRecords("replaced", o.Replaced)
	s.metrics.ObserveRecords("updated", o.Updated)
	s.metrics.ObserveRecords("deleted", o.Deleted)
	s.metrics.ObserveRecords("categories", len(o.Categories))
}

func (s *Service) publish(id string) {
	if s.events == nil {
		return
	}
	s.events.Publish(sse.Event{Type: sse.TypeChatUpdated, Data: map[string]string{"sessionId": id}})
}
