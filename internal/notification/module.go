package notification

import (
	"context"
	"fmt"

	"legalsearch_backend/internal/events"
	apphttp "legalsearch_backend/internal/http"
	"legalsearch_backend/internal/notification/handler"
	"legalsearch_backend/internal/notification/inapp"
	notificationoutbox "legalsearch_backend/internal/notification/outbox"
	"legalsearch_backend/internal/notification/sse"
	"legalsearch_backend/platform/config"
	"legalsearch_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InAppStore persists notification rows.
type InAppStore interface {
	Create(ctx context.Context, p inapp.CreateParams) (inapp.Notification, error)
}

// Pusher delivers live events to connected clients. Failures are logged and
// never propagated; the durable row already exists.
type Pusher interface {
	Publish(userID uuid.UUID, event sse.Event)
	PublishRole(role string, event sse.Event)
}

// OutboxWriter queues durable email work for the scheduler worker.
type OutboxWriter interface {
	Insert(ctx context.Context, p notificationoutbox.InsertParams) (uuid.UUID, error)
}

// Module is the notification dispatcher. Every dispatch is a dual write: the
// directly addressed notification plus, for mapped categories, a mirror
// broadcast informing the originating branch role.
type Module struct {
	store  InAppStore
	sse    Pusher
	outbox OutboxWriter
	cfg    config.NotificationConfig
	log    *logger.Logger

	inAppService *inapp.Service
	sseService   *sse.Service
}

// New creates a new notification module backed by the given pool.
func New(pool *pgxpool.Pool, cfg config.NotificationConfig, log *logger.Logger) *Module {
	repo := inapp.NewRepository(pool)
	return &Module{
		store:        repo,
		cfg:          cfg,
		log:          log,
		inAppService: inapp.NewService(repo, log),
	}
}

// SetSSE injects the live delivery service.
func (m *Module) SetSSE(svc *sse.Service) {
	m.sse = svc
	m.sseService = svc
}

// SetOutbox injects the durable email outbox.
func (m *Module) SetOutbox(repo *notificationoutbox.Repository) {
	m.outbox = repo
}

// InApp exposes the read/acknowledge service for the HTTP layer.
func (m *Module) InApp() *inapp.Service {
	return m.inAppService
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes registers the module's routes under /api/v1/notifications.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	h := handler.New(m.inAppService, m.sseService)
	notifications := ctx.Protected.Group("/notifications")
	h.RegisterRoutes(notifications)
}

// NotifyUser persists a directed notification, attempts live delivery, and
// emits the category's mirror broadcast if one is mapped. The durable write
// must succeed; everything after it is best effort.
func (m *Module) NotifyUser(ctx context.Context, recipientID uuid.UUID, email string, msg Message) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("notification module not configured")
	}
	if recipientID == uuid.Nil {
		return fmt.Errorf("recipientId is required")
	}

	params := inapp.CreateParams{
		Title:       msg.Title,
		Category:    msg.Category,
		Message:     msg.Body,
		Metadata:    msg.Metadata,
		RecipientID: &recipientID,
	}
	if email != "" {
		params.RecipientEmail = &email
	}
	if msg.BranchID != uuid.Nil {
		branchID := msg.BranchID
		params.BranchID = &branchID
	}

	row, err := m.store.Create(ctx, params)
	if err != nil {
		return err
	}

	if m.sse != nil {
		m.sse.Publish(recipientID, sse.Event{
			Type:    msg.Category,
			Message: msg.Title,
			Data:    row,
		})
	}

	if mirror, ok := mirrorFor(msg); ok {
		m.broadcast(ctx, m.cfg.GetBranchRole(), mirror)
	}

	return nil
}

// NotifyRole persists a broadcast notification for every member of a role
// and optionally queues escalation emails for the given addresses.
func (m *Module) NotifyRole(ctx context.Context, role string, msg Message, emails []string) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("notification module not configured")
	}
	if role == "" {
		return fmt.Errorf("role is required")
	}

	m.broadcast(ctx, role, msg)

	if m.outbox != nil && len(emails) > 0 {
		_, err := m.outbox.Insert(ctx, notificationoutbox.InsertParams{
			Kind:     notificationoutbox.KindEscalationAlert,
			Template: "escalation_alert",
			Payload: map[string]any{
				"recipients": emails,
				"title":      msg.Title,
				"message":    msg.Body,
				"metadata":   msg.Metadata,
			},
		})
		if err != nil {
			// The in-app broadcast is already durable; a failed email queue
			// write degrades to in-app only.
			m.log.Error("failed to queue escalation email", "error", err, "role", role)
		}
	}

	return nil
}

// broadcast writes the broadcast row and pushes it to connected role members.
func (m *Module) broadcast(ctx context.Context, role string, msg Message) {
	roleName := role
	params := inapp.CreateParams{
		Title:    msg.Title,
		Category: msg.Category,
		Message:  msg.Body,
		Metadata: msg.Metadata,
		RoleName: &roleName,
	}
	if msg.BranchID != uuid.Nil {
		branchID := msg.BranchID
		params.BranchID = &branchID
	}

	row, err := m.store.Create(ctx, params)
	if err != nil {
		m.log.Error("failed to persist broadcast notification", "error", err, "role", role)
		return
	}

	if m.sse != nil {
		m.sse.PublishRole(role, sse.Event{
			Type:    msg.Category,
			Message: msg.Title,
			Data:    row,
		})
	}
}

// =============================================================================
// Event subscriptions
// =============================================================================

// RegisterHandlers subscribes the module to the solicitor-action events so
// the originating officer and branch learn about progress on their requests.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.SolicitorAccepted{}.EventName(), events.HandlerFunc(m.handleSolicitorAccepted))
	bus.Subscribe(events.SolicitorRejected{}.EventName(), events.HandlerFunc(m.handleSolicitorRejected))
	bus.Subscribe(events.RequestReturned{}.EventName(), events.HandlerFunc(m.handleRequestReturned))
	bus.Subscribe(events.RequestCompleted{}.EventName(), events.HandlerFunc(m.handleRequestCompleted))
	bus.Subscribe(events.SolicitorReminderDue{}.EventName(), events.HandlerFunc(m.handleSolicitorReminderDue))
}

func (m *Module) handleSolicitorAccepted(ctx context.Context, event events.Event) error {
	ev, ok := event.(events.SolicitorAccepted)
	if !ok {
		return nil
	}

	return m.NotifyUser(ctx, ev.OfficerID, "", Message{
		Title:    "Request accepted",
		Category: CategoryAccepted,
		Body:     fmt.Sprintf("Legal search request %s was accepted by the assigned solicitor.", ev.CaseNumber),
		Metadata: map[string]any{
			"requestId":   ev.RequestID.String(),
			"caseNumber":  ev.CaseNumber,
			"solicitorId": ev.SolicitorID.String(),
		},
		BranchID: ev.BranchID,
	})
}

func (m *Module) handleSolicitorRejected(ctx context.Context, event events.Event) error {
	ev, ok := event.(events.SolicitorRejected)
	if !ok {
		return nil
	}

	body := fmt.Sprintf("Legal search request %s was declined and is being rerouted to the next candidate.", ev.CaseNumber)
	if ev.Reason != "" {
		body = fmt.Sprintf("%s Reason: %s", body, ev.Reason)
	}

	return m.NotifyUser(ctx, ev.OfficerID, "", Message{
		Title:    "Request declined",
		Category: CategoryRejected,
		Body:     body,
		Metadata: map[string]any{
			"requestId":     ev.RequestID.String(),
			"caseNumber":    ev.CaseNumber,
			"solicitorId":   ev.SolicitorID.String(),
			"rotationOrder": ev.RotationOrder,
			"reason":        ev.Reason,
		},
		BranchID: ev.BranchID,
	})
}

func (m *Module) handleRequestReturned(ctx context.Context, event events.Event) error {
	ev, ok := event.(events.RequestReturned)
	if !ok {
		return nil
	}

	body := fmt.Sprintf("Legal search request %s was returned for more information.", ev.CaseNumber)
	if ev.Remarks != "" {
		body = fmt.Sprintf("%s Remarks: %s", body, ev.Remarks)
	}

	return m.NotifyUser(ctx, ev.OfficerID, "", Message{
		Title:    "Request returned",
		Category: CategoryReturned,
		Body:     body,
		Metadata: map[string]any{
			"requestId":   ev.RequestID.String(),
			"caseNumber":  ev.CaseNumber,
			"solicitorId": ev.SolicitorID.String(),
			"remarks":     ev.Remarks,
		},
		BranchID: ev.BranchID,
	})
}

func (m *Module) handleRequestCompleted(ctx context.Context, event events.Event) error {
	ev, ok := event.(events.RequestCompleted)
	if !ok {
		return nil
	}

	return m.NotifyUser(ctx, ev.OfficerID, "", Message{
		Title:    "Verification report submitted",
		Category: CategoryCompleted,
		Body:     fmt.Sprintf("The verification report for legal search request %s is available.", ev.CaseNumber),
		Metadata: map[string]any{
			"requestId":  ev.RequestID.String(),
			"caseNumber": ev.CaseNumber,
			"reportRef":  ev.ReportRef,
		},
		BranchID: ev.BranchID,
	})
}

// handleSolicitorReminderDue persists one in-app reminder per solicitor and
// queues the matching email through the durable outbox.
func (m *Module) handleSolicitorReminderDue(ctx context.Context, event events.Event) error {
	ev, ok := event.(events.SolicitorReminderDue)
	if !ok {
		return nil
	}

	requestIDs := make([]string, len(ev.RequestIDs))
	for i, id := range ev.RequestIDs {
		requestIDs[i] = id.String()
	}

	msg := Message{
		Title:    "Outstanding legal search requests",
		Category: CategoryReminder,
		Body: fmt.Sprintf("You have %d accepted legal search request(s) awaiting a report, the oldest since %s.",
			len(ev.RequestIDs), ev.OldestSince.Format("2 Jan 2006 15:04")),
		Metadata: map[string]any{
			"requestIds":  requestIDs,
			"oldestSince": ev.OldestSince,
		},
	}

	if err := m.NotifyUser(ctx, ev.SolicitorID, ev.SolicitorEmail, msg); err != nil {
		return err
	}

	if m.outbox == nil || ev.SolicitorEmail == "" {
		return nil
	}
	_, err := m.outbox.Insert(ctx, notificationoutbox.InsertParams{
		Kind:     notificationoutbox.KindSolicitorReminder,
		Template: "solicitor_reminder",
		Payload: map[string]any{
			"email":       ev.SolicitorEmail,
			"requestIds":  requestIDs,
			"oldestSince": ev.OldestSince,
		},
	})
	return err
}
