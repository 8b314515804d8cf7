package receipt

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloshop/orderdesk/internal/domain/auth"
	"github.com/veloshop/orderdesk/internal/domain/order"
	"github.com/veloshop/orderdesk/internal/notify"
)

// --- Mock implementations ---

type memRepo struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

func newMemRepo(orders ...*order.Order) *memRepo {
	m := &memRepo{orders: make(map[string]*order.Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memRepo) CreateOrder(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memRepo) CreateItems(_ context.Context, _ string, _ []order.Item) error { return nil }

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, _ order.ListFilter) ([]order.Order, error) {
	return nil, nil
}

func (m *memRepo) Stats(_ context.Context, _ order.ListFilter) (*order.Stats, error) {
	return &order.Stats{CountByStatus: map[order.Status]int{}}, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id string, expected order.Status, change order.StatusChange) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != expected {
		return false, nil
	}
	o.Status = change.Status
	if change.PaymentStatus != "" {
		o.PaymentStatus = change.PaymentStatus
	}
	if change.ReceiptRef != "" {
		o.ReceiptReference = change.ReceiptRef
	}
	return true, nil
}

type memStore struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (s *memStore) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return "https://files.veloshop.example/" + key, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (s *recordingSender) Dispatch(_ context.Context, msg notify.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
}

func (s *recordingSender) messages() []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Message(nil), s.sent...)
}

// --- Helpers ---

func pendingOrder(id, ownerID string) *order.Order {
	return &order.Order{
		ID:            id,
		OrderNumber:   "ORD-20260801-AAAAAA",
		OwnerID:       ownerID,
		Status:        order.StatusPending,
		PaymentStatus: order.PaymentUnpaid,
		TotalAmount:   decimal.RequireFromString("45.00"),
		Shipping:      order.ShippingAddress{Name: "Ada", Email: "ada@example.com"},
	}
}

func owner() auth.Principal {
	return auth.Principal{ID: "key-1", OwnerID: "cust-1", Email: "ada@example.com"}
}

func jpegMeta(size int64) FileMeta {
	return FileMeta{Filename: "transfer.jpg", ContentType: "image/jpeg", Size: size}
}

func newIntake(repo *memRepo, store *memStore, sender *recordingSender) *Intake {
	return NewIntake(order.NewService(repo), store, sender, "orders@veloshop.example", 0)
}

// --- Tests ---

func TestAttachReceipt_HappyPath(t *testing.T) {
	repo := newMemRepo(pendingOrder("o1", "cust-1"))
	store := &memStore{}
	sender := &recordingSender{}
	intake := newIntake(repo, store, sender)

	err := intake.AttachReceipt(context.Background(), "o1", owner(), jpegMeta(1024), strings.NewReader("jpeg-bytes"))

	require.NoError(t, err)

	o, _ := repo.Get(context.Background(), "o1")
	assert.Equal(t, order.StatusPendingReview, o.Status)
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)
	assert.Equal(t, "https://files.veloshop.example/o1.jpg", o.ReceiptReference)

	// Admin notification attempted after the commit.
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.TemplateReceiptSubmitted, msgs[0].Template)
	assert.Equal(t, "orders@veloshop.example", msgs[0].Recipient)
	assert.Equal(t, "ORD-20260801-AAAAAA", msgs[0].Params["order_number"])
}

func TestAttachReceipt_UnsupportedContentType(t *testing.T) {
	repo := newMemRepo(pendingOrder("o1", "cust-1"))
	intake := newIntake(repo, &memStore{}, &recordingSender{})

	meta := FileMeta{Filename: "evil.svg", ContentType: "image/svg+xml", Size: 100}
	err := intake.AttachReceipt(context.Background(), "o1", owner(), meta, strings.NewReader("x"))

	var vErr *order.ValidationError
	require.ErrorAs(t, err, &vErr)

	o, _ := repo.Get(context.Background(), "o1")
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Empty(t, o.ReceiptReference)
}

func TestAttachReceipt_OversizedFile(t *testing.T) {
	repo := newMemRepo(pendingOrder("o1", "cust-1"))
	store := &memStore{}
	intake := newIntake(repo, store, &recordingSender{})

	err := intake.AttachReceipt(context.Background(), "o1", owner(), jpegMeta(10<<20), strings.NewReader("x"))

	var vErr *order.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, store.keys, "oversized file must not reach the store")

	o, _ := repo.Get(context.Background(), "o1")
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Empty(t, o.ReceiptReference)
}

func TestAttachReceipt_EmptyFile(t *testing.T) {
	repo := newMemRepo(pendingOrder("o1", "cust-1"))
	intake := newIntake(repo, &memStore{}, &recordingSender{})

	err := intake.AttachReceipt(context.Background(), "o1", owner(), jpegMeta(0), strings.NewReader(""))

	var vErr *order.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestAttachReceipt_NotOwner(t *testing.T) {
	repo := newMemRepo(pendingOrder("o1", "cust-1"))
	sender := &recordingSender{}
	intake := newIntake(repo, &memStore{}, sender)

	stranger := auth.Principal{ID: "key-2", OwnerID: "cust-2", Email: "mallory@example.com"}
	err := intake.AttachReceipt(context.Background(), "o1", stranger, jpegMeta(1024), strings.NewReader("x"))

	require.ErrorIs(t, err, order.ErrForbidden)

	o, _ := repo.Get(context.Background(), "o1")
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Empty(t, sender.messages())
}

func TestAttachReceipt_OrderNotFound(t *testing.T) {
	intake := newIntake(newMemRepo(), &memStore{}, &recordingSender{})

	err := intake.AttachReceipt(context.Background(), "missing", owner(), jpegMeta(1024), strings.NewReader("x"))

	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestAttachReceipt_AlreadyInReview(t *testing.T) {
	o := pendingOrder("o1", "cust-1")
	o.Status = order.StatusPendingReview
	o.ReceiptReference = "existing.jpg"
	repo := newMemRepo(o)
	intake := newIntake(repo, &memStore{}, &recordingSender{})

	err := intake.AttachReceipt(context.Background(), "o1", owner(), jpegMeta(1024), strings.NewReader("x"))

	var itErr *order.IllegalTransitionError
	require.ErrorAs(t, err, &itErr)

	// Receipts are immutable once accepted.
	got, _ := repo.Get(context.Background(), "o1")
	assert.Equal(t, "existing.jpg", got.ReceiptReference)
}

func TestAttachReceipt_PDFAllowed(t *testing.T) {
	repo := newMemRepo(pendingOrder("o1", "cust-1"))
	store := &memStore{}
	intake := newIntake(repo, store, &recordingSender{})

	meta := FileMeta{Filename: "transfer.pdf", ContentType: "application/pdf", Size: 2048}
	err := intake.AttachReceipt(context.Background(), "o1", owner(), meta, strings.NewReader("pdf-bytes"))

	require.NoError(t, err)
	require.Len(t, store.keys, 1)
	assert.Equal(t, "o1.pdf", store.keys[0])
}
