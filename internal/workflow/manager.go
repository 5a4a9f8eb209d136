package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/davidahmann/specgate/internal/logging"
	"github.com/davidahmann/specgate/internal/metrics"
	"github.com/davidahmann/specgate/internal/rules"
	"github.com/davidahmann/specgate/internal/scorer"
	"github.com/davidahmann/specgate/pkg/types"
)

var (
	ErrNotFound      = errors.New("workflow not found")
	ErrInvalidStatus = errors.New("invalid workflow status")
	ErrDuplicateID   = errors.New("duplicate workflow id")
)

const defaultRecentLimit = 5

const (
	msgAutoApprove   = "✅ 문서가 표준을 준수합니다. 품질 점수: %d점"
	msgReview        = "⚠️ HITL 검토가 필요합니다. 티켓: %s"
	msgMandatoryFix  = "❌ 문서 수정이 필수입니다. 티켓: %s"
	msgNotConfigured = "이슈 트래커가 설정되지 않았습니다. 검토 워크플로우를 사용할 수 없습니다."
	msgCreateFailed  = "티켓 생성 실패: %v"
)

// Manager routes assessed documents into review workflows and tracks them.
type Manager struct {
	Tracker  TicketTracker
	Registry *Registry
	Labels   rules.TrackerLabels

	// RouteTimeout bounds ticket creation when the caller's context has no
	// earlier deadline. Zero means no extra bound.
	RouteTimeout time.Duration
	RecentLimit  int

	Log     *logging.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
	NewID   func(prefix string) string
}

func NewManager(tracker TicketTracker, labels rules.TrackerLabels) *Manager {
	return &Manager{
		Tracker:     tracker,
		Registry:    NewRegistry(),
		Labels:      labels,
		RecentLimit: defaultRecentLimit,
		Log:         logging.Nop(),
		Now:         time.Now,
		NewID:       newID,
	}
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// Route enters the state machine for an assessed document. It never fails:
// every failure is recorded as a workflow in the error state.
func (m *Manager) Route(ctx context.Context, doc types.Document, result types.QualityResult) types.WorkflowRecord {
	now := m.Now().UTC()
	rec := types.WorkflowRecord{
		DocumentTitle: types.TitleOrFirstHeading(doc),
		DocumentURL:   doc.URL,
		Score:         result.Score,
		Level:         result.Level,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// an unconfigured tracker fails every route, auto approvals included
	if m.Tracker == nil || !m.Tracker.IsConfigured() {
		return m.fail(rec, errors.New(msgNotConfigured), msgNotConfigured)
	}

	action := scorer.Action(result.Level)
	if action == types.ActionAutoApprove {
		rec.ID = m.NewID("auto_approve")
		rec.Status = types.StatusAutoApprove
		rec.Message = result.Metadata.ProcessingResult.Message
		if rec.Message == "" {
			rec.Message = fmt.Sprintf(msgAutoApprove, result.Score)
		}
		return m.register(rec, nil)
	}

	draft := renderTicket(action, doc, result, m.Labels.ReviewLabels, m.Labels.MandatoryFixLabels)

	createCtx := ctx
	if m.RouteTimeout > 0 {
		var cancel context.CancelFunc
		createCtx, cancel = context.WithTimeout(ctx, m.RouteTimeout)
		defer cancel()
	}
	ticket, err := m.createTicket(createCtx, draft)
	m.Metrics.ObserveTrackerCall("create", err)
	if err != nil {
		return m.fail(rec, err, fmt.Sprintf(msgCreateFailed, err))
	}

	id, url := ticket.ID, ticket.URL
	rec.TicketID, rec.TicketURL = &id, &url
	if action == types.ActionCreateReviewTicket {
		rec.ID = m.NewID("hitl_review")
		rec.Status = types.StatusHITLReviewPending
		rec.Message = fmt.Sprintf(msgReview, url)
	} else {
		rec.ID = m.NewID("mandatory_fix")
		rec.Status = types.StatusMandatoryFixPending
		rec.Message = fmt.Sprintf(msgMandatoryFix, url)
	}
	return m.register(rec, nil)
}

// createTicket treats an expired context as a failure even if the tracker
// returned a ticket.
func (m *Manager) createTicket(ctx context.Context, draft TicketDraft) (Ticket, error) {
	ticket, err := m.Tracker.CreateTicket(ctx, draft.Title, draft.Body, draft.Labels)
	if err != nil {
		return Ticket{}, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Ticket{}, ctxErr
	}
	if ticket.ID == "" {
		return Ticket{}, errors.New("tracker returned empty ticket id")
	}
	return ticket, nil
}

func (m *Manager) fail(rec types.WorkflowRecord, cause error, message string) types.WorkflowRecord {
	rec.ID = m.NewID("error")
	rec.Status = types.StatusError
	rec.Message = message
	return m.register(rec, cause)
}

func (m *Manager) register(rec types.WorkflowRecord, cause error) types.WorkflowRecord {
	if err := m.Registry.Add(rec); err != nil {
		m.Log.Error().Err(err).Str("workflow_id", rec.ID).Msg("workflow registration failed")
	}
	ticketID := ""
	if rec.TicketID != nil {
		ticketID = *rec.TicketID
	}
	m.Log.LogRoute(rec.ID, string(rec.Status), ticketID, cause)
	m.Metrics.ObserveRoute(string(rec.Status))
	m.updatePendingGauge()
	return rec
}

// GetStatus returns the record for id, refreshing it from the tracker first
// when it is pending. Tracker failures leave the record unchanged.
func (m *Manager) GetStatus(ctx context.Context, id string) (types.WorkflowRecord, error) {
	rec, ok := m.Registry.Get(id)
	if !ok {
		return types.WorkflowRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !rec.Status.Pending() || rec.TicketID == nil {
		return rec, nil
	}
	return m.refresh(ctx, rec), nil
}

func (m *Manager) refresh(ctx context.Context, rec types.WorkflowRecord) types.WorkflowRecord {
	if m.Tracker == nil || !m.Tracker.IsConfigured() {
		return rec
	}
	info, err := m.Tracker.GetTicket(ctx, *rec.TicketID)
	m.Metrics.ObserveTrackerCall("get", err)
	if err != nil {
		m.Log.Warn().Err(err).Str("workflow_id", rec.ID).Msg("ticket status refresh failed")
		return rec
	}

	next, matched := m.statusFromLabels(info.Labels)
	from := rec.Status
	updated, ok := m.Registry.Update(rec.ID, func(r *types.WorkflowRecord) {
		r.TicketState = info.State
		r.TicketLabels = info.Labels
		// a concurrent manual update wins over a stale label read
		if matched && r.Status.Pending() {
			r.Status = next
			r.UpdatedAt = m.Now().UTC()
		}
	})
	if !ok {
		return rec
	}
	if updated.Status != from {
		m.Log.LogTransition(rec.ID, string(from), string(updated.Status), "tracker_label")
		m.updatePendingGauge()
	}
	return updated
}

// statusFromLabels checks approved, rejected, fixed in that order.
func (m *Manager) statusFromLabels(labels []string) (types.WorkflowStatus, bool) {
	have := make(map[string]bool, len(labels))
	for _, l := range labels {
		have[l] = true
	}
	for _, st := range []types.WorkflowStatus{types.StatusApproved, types.StatusRejected, types.StatusFixed} {
		if label := m.Labels.StatusLabels[string(st)]; label != "" && have[label] {
			return st, true
		}
	}
	return "", false
}

// RefreshPending re-queries every pending workflow and returns how many
// changed status.
func (m *Manager) RefreshPending(ctx context.Context) int {
	changed := 0
	for _, rec := range m.Registry.Pending() {
		if ctx.Err() != nil {
			break
		}
		if rec.TicketID == nil {
			continue
		}
		if m.refresh(ctx, rec).Status != rec.Status {
			changed++
		}
	}
	return changed
}

// UpdateStatus overwrites the status of a workflow. Any known status is
// accepted from any state, except that only records with a ticket may
// become pending. A non-empty comment is posted to the ticket; comment
// failures are logged and do not fail the update.
func (m *Manager) UpdateStatus(ctx context.Context, id string, status string, comment string) (types.WorkflowRecord, error) {
	next, ok := types.ParseWorkflowStatus(status)
	if !ok {
		return types.WorkflowRecord{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var (
		from       types.WorkflowStatus
		noTicketID bool
	)
	updated, found := m.Registry.Update(id, func(r *types.WorkflowRecord) {
		if next.Pending() && r.TicketID == nil {
			noTicketID = true
			return
		}
		from = r.Status
		r.Status = next
		r.UpdatedAt = m.Now().UTC()
	})
	if !found {
		return types.WorkflowRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if noTicketID {
		return types.WorkflowRecord{}, fmt.Errorf("%w: %s requires a ticket", ErrInvalidStatus, next)
	}
	m.Log.LogTransition(id, string(from), string(next), "manual")
	m.updatePendingGauge()

	if comment != "" && updated.TicketID != nil && m.Tracker != nil && m.Tracker.IsConfigured() {
		err := m.Tracker.AddComment(ctx, *updated.TicketID, comment)
		m.Metrics.ObserveTrackerCall("comment", err)
		if err != nil {
			m.Log.Warn().Err(err).Str("workflow_id", id).Msg("ticket comment failed")
		}
	}
	m.mirrorLabel(ctx, updated)
	return updated, nil
}

func (m *Manager) mirrorLabel(ctx context.Context, rec types.WorkflowRecord) {
	label := m.Labels.StatusLabels[string(rec.Status)]
	if label == "" || rec.TicketID == nil || m.Tracker == nil || !m.Tracker.IsConfigured() {
		return
	}
	labeler, ok := m.Tracker.(TicketLabeler)
	if !ok {
		return
	}
	err := labeler.AddLabels(ctx, *rec.TicketID, []string{label})
	m.Metrics.ObserveTrackerCall("label", err)
	if err != nil {
		m.Log.Warn().Err(err).Str("workflow_id", rec.ID).Msg("ticket label failed")
	}
}

func (m *Manager) Summary() types.WorkflowSummary {
	limit := m.RecentLimit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return m.Registry.Summary(limit)
}

func (m *Manager) updatePendingGauge() {
	if m.Metrics == nil {
		return
	}
	m.Metrics.SetPending(len(m.Registry.Pending()))
}
