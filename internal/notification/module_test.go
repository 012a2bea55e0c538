package notification

import (
	"context"
	"strings"
	"testing"
	"time"

	"legalsearch_backend/internal/events"
	"legalsearch_backend/internal/notification/inapp"
	notificationoutbox "legalsearch_backend/internal/notification/outbox"
	"legalsearch_backend/platform/logger"

	"github.com/google/uuid"
)

type testNotificationConfig struct{}

func (testNotificationConfig) GetAppBaseURL() string  { return "https://portal.example.com" }
func (testNotificationConfig) GetBranchRole() string  { return "branch_staff" }
func (testNotificationConfig) GetFallbackRole() string { return "legal_services" }

type fakeInAppStore struct {
	created []inapp.CreateParams
}

func (s *fakeInAppStore) Create(_ context.Context, p inapp.CreateParams) (inapp.Notification, error) {
	s.created = append(s.created, p)
	return inapp.Notification{ID: uuid.New(), Title: p.Title, Category: p.Category}, nil
}

type fakeOutbox struct {
	inserted []notificationoutbox.InsertParams
}

func (o *fakeOutbox) Insert(_ context.Context, p notificationoutbox.InsertParams) (uuid.UUID, error) {
	o.inserted = append(o.inserted, p)
	return uuid.New(), nil
}

func newTestModule(store *fakeInAppStore, outbox *fakeOutbox) *Module {
	m := &Module{
		store: store,
		cfg:   testNotificationConfig{},
		log:   logger.New("development"),
	}
	if outbox != nil {
		m.outbox = outbox
	}
	return m
}

func TestNotifyUserMirrorsAssignmentToBranchRole(t *testing.T) {
	store := &fakeInAppStore{}
	m := newTestModule(store, nil)

	recipient := uuid.New()
	branchID := uuid.New()

	err := m.NotifyUser(context.Background(), recipient, "solicitor@example.com", Message{
		Title:    "New legal search request",
		Category: CategoryAssignment,
		Body:     "A legal search request has been routed to you for verification.",
		Metadata: map[string]any{
			"caseNumber":    "LSR-2024-0042",
			"solicitorName": "A. Advocate",
		},
		BranchID: branchID,
	})
	if err != nil {
		t.Fatalf("NotifyUser returned error: %v", err)
	}

	if len(store.created) != 2 {
		t.Fatalf("expected directed row plus mirror broadcast, got %d rows", len(store.created))
	}

	directed := store.created[0]
	if directed.RecipientID == nil || *directed.RecipientID != recipient {
		t.Errorf("directed row has wrong recipient: %v", directed.RecipientID)
	}
	if directed.RoleName != nil {
		t.Errorf("directed row must not carry a role, got %q", *directed.RoleName)
	}
	if directed.RecipientEmail == nil || *directed.RecipientEmail != "solicitor@example.com" {
		t.Errorf("directed row missing recipient email")
	}

	mirror := store.created[1]
	if mirror.RoleName == nil || *mirror.RoleName != "branch_staff" {
		t.Fatalf("mirror broadcast should target the branch role, got %v", mirror.RoleName)
	}
	if mirror.RecipientID != nil {
		t.Errorf("broadcast row must not carry a recipient id")
	}
	if mirror.BranchID == nil || *mirror.BranchID != branchID {
		t.Errorf("mirror broadcast lost the branch correlation")
	}
	if !strings.Contains(mirror.Message, "LSR-2024-0042") || !strings.Contains(mirror.Message, "A. Advocate") {
		t.Errorf("mirror body not rendered from metadata: %q", mirror.Message)
	}
}

func TestNotifyUserWithoutMirrorCategoryWritesSingleRow(t *testing.T) {
	store := &fakeInAppStore{}
	m := newTestModule(store, nil)

	err := m.NotifyUser(context.Background(), uuid.New(), "", Message{
		Title:    "Outstanding legal search requests",
		Category: CategoryReminder,
		Body:     "You have accepted requests awaiting a report.",
	})
	if err != nil {
		t.Fatalf("NotifyUser returned error: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("reminder has no mirror, expected 1 row, got %d", len(store.created))
	}
}

func TestNotifyUserRequiresRecipient(t *testing.T) {
	m := newTestModule(&fakeInAppStore{}, nil)
	if err := m.NotifyUser(context.Background(), uuid.Nil, "", Message{Title: "x"}); err == nil {
		t.Fatal("expected error for nil recipient")
	}
}

func TestNotifyRoleQueuesEscalationEmails(t *testing.T) {
	store := &fakeInAppStore{}
	outbox := &fakeOutbox{}
	m := newTestModule(store, outbox)

	msg := Message{
		Title:    "Legal search request unassigned",
		Category: CategoryEscalation,
		Body:     "No solicitor is available. Manual assignment is required.",
		Metadata: map[string]any{"caseNumber": "LSR-2024-0042"},
	}

	err := m.NotifyRole(context.Background(), "legal_services", msg, []string{"team@example.com"})
	if err != nil {
		t.Fatalf("NotifyRole returned error: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("expected 1 broadcast row, got %d", len(store.created))
	}
	if store.created[0].RoleName == nil || *store.created[0].RoleName != "legal_services" {
		t.Errorf("broadcast row targets wrong role: %v", store.created[0].RoleName)
	}

	if len(outbox.inserted) != 1 {
		t.Fatalf("expected 1 outbox row, got %d", len(outbox.inserted))
	}
	rec := outbox.inserted[0]
	if rec.Kind != notificationoutbox.KindEscalationAlert {
		t.Errorf("outbox kind = %q, want %q", rec.Kind, notificationoutbox.KindEscalationAlert)
	}
	payload, ok := rec.Payload.(map[string]any)
	if !ok {
		t.Fatalf("unexpected payload type %T", rec.Payload)
	}
	recipients, ok := payload["recipients"].([]string)
	if !ok || len(recipients) != 1 || recipients[0] != "team@example.com" {
		t.Errorf("outbox payload recipients = %v", payload["recipients"])
	}
}

func TestHandleSolicitorReminderDueQueuesEmail(t *testing.T) {
	store := &fakeInAppStore{}
	outbox := &fakeOutbox{}
	m := newTestModule(store, outbox)

	solicitorID := uuid.New()
	oldest := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	requestID := uuid.New()

	err := m.handleSolicitorReminderDue(context.Background(), events.SolicitorReminderDue{
		BaseEvent:      events.NewBaseEvent(),
		SolicitorID:    solicitorID,
		SolicitorEmail: "solicitor@example.com",
		RequestIDs:     []uuid.UUID{requestID},
		OldestSince:    oldest,
	})
	if err != nil {
		t.Fatalf("handleSolicitorReminderDue returned error: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("expected 1 in-app reminder, got %d rows", len(store.created))
	}
	if store.created[0].RecipientID == nil || *store.created[0].RecipientID != solicitorID {
		t.Errorf("reminder addressed to wrong recipient")
	}

	if len(outbox.inserted) != 1 {
		t.Fatalf("expected 1 outbox row, got %d", len(outbox.inserted))
	}
	rec := outbox.inserted[0]
	if rec.Kind != notificationoutbox.KindSolicitorReminder {
		t.Errorf("outbox kind = %q, want %q", rec.Kind, notificationoutbox.KindSolicitorReminder)
	}
	payload := rec.Payload.(map[string]any)
	if payload["email"] != "solicitor@example.com" {
		t.Errorf("outbox payload email = %v", payload["email"])
	}
	ids, ok := payload["requestIds"].([]string)
	if !ok || len(ids) != 1 || ids[0] != requestID.String() {
		t.Errorf("outbox payload requestIds = %v", payload["requestIds"])
	}
}

func TestHandleSolicitorRejectedNotifiesOfficerAndBranch(t *testing.T) {
	store := &fakeInAppStore{}
	m := newTestModule(store, nil)

	officerID := uuid.New()
	err := m.handleSolicitorRejected(context.Background(), events.SolicitorRejected{
		BaseEvent:   events.NewBaseEvent(),
		RequestID:   uuid.New(),
		BranchID:    uuid.New(),
		OfficerID:   officerID,
		SolicitorID: uuid.New(),
		CaseNumber:  "LSR-2024-0042",
		Reason:      "conflict of interest",
	})
	if err != nil {
		t.Fatalf("handleSolicitorRejected returned error: %v", err)
	}

	if len(store.created) != 2 {
		t.Fatalf("expected directed row plus mirror broadcast, got %d rows", len(store.created))
	}
	if store.created[0].RecipientID == nil || *store.created[0].RecipientID != officerID {
		t.Errorf("rejection should be addressed to the originating officer")
	}
	if !strings.Contains(store.created[0].Message, "conflict of interest") {
		t.Errorf("rejection body should carry the reason: %q", store.created[0].Message)
	}
	if store.created[1].RoleName == nil || *store.created[1].RoleName != "branch_staff" {
		t.Errorf("mirror broadcast should reach the branch role")
	}
}
