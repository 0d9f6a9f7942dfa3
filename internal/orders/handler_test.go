package orders

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/neurocanteen/canteen-go/internal/auth"
	"github.com/neurocanteen/canteen-go/internal/domain"
)

type fakeRepo struct {
	records []domain.OrderRecord
}

func (f *fakeRepo) Submit(_ context.Context, rec *domain.OrderRecord) (string, error) {
	rec.ID = "order-1"
	f.records = append(f.records, *rec)
	return rec.ID, nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID string) ([]domain.OrderRecord, error) {
	out := []domain.OrderRecord{}
	for _, rec := range f.records {
		if rec.BuyerUserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type capturedEvent struct {
	key   string
	event any
}

type fakeProducer struct {
	published []capturedEvent
}

func (f *fakeProducer) Publish(_ context.Context, key string, event any) error {
	f.published = append(f.published, capturedEvent{key: key, event: event})
	return nil
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(),
		auth.Identity{Subject: "UH1001", Role: domain.RolePatient}))
}

func TestHandler_Create(t *testing.T) {
	repo := &fakeRepo{}
	producer := &fakeProducer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(NewPublishingSubmitter(repo, producer, logger), logger)

	body := `{
		"ordered_name": "Asha",
		"item_name": "Idli (South) X 2",
		"quantity": 2,
		"category": "South",
		"price": 20000,
		"payment_type": "COD",
		"address": "Ward 4",
		"phone_no": "9876543210",
		"payment_received": false
	}`
	req := authed(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))
	rec := httptest.NewRecorder()

	handler.HandleCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(repo.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(repo.records))
	}
	stored := repo.records[0]
	if stored.BuyerUserID != "UH1001" {
		t.Errorf("buyer user id must come from the session, got %q", stored.BuyerUserID)
	}
	if stored.BuyerRole != domain.RolePatient {
		t.Errorf("buyer role must come from the session, got %q", stored.BuyerRole)
	}
	if stored.OrderDateTime.IsZero() {
		t.Error("order timestamp must be set")
	}

	if len(producer.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(producer.published))
	}
	event, ok := producer.published[0].event.(domain.OrderPlacedEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", producer.published[0].event)
	}
	if event.OrderID != "order-1" || event.PaymentType != "COD" {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestHandler_CreateWithoutSession(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(&fakeRepo{}, logger)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.HandleCreate(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestHandler_ListScopedToUser(t *testing.T) {
	repo := &fakeRepo{records: []domain.OrderRecord{
		{ID: "a", BuyerUserID: "UH1001", ItemName: "Idli (South) X 1"},
		{ID: "b", BuyerUserID: "UH2002", ItemName: "Dosa (South) X 1"},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(repo, logger)

	req := authed(httptest.NewRequest(http.MethodGet, "/orders", nil))
	rec := httptest.NewRecorder()

	handler.HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []domain.OrderRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("expected only the caller's orders, got %+v", got)
	}
}
