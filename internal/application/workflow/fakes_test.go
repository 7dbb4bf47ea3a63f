package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/garyjia/zoompay/internal/application/dispatcher"
	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	"github.com/garyjia/zoompay/internal/domain/event"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// memComments is an in-memory comment log
type memComments struct {
	mu     sync.Mutex
	items  map[string][]entity.Comment
	writes int

	appendFunc func(ctx context.Context, kind domainwf.Kind, recordID string, c *entity.Comment) error
}

func newMemComments() *memComments {
	return &memComments{items: make(map[string][]entity.Comment)}
}

func commentKey(kind domainwf.Kind, id string) string { return string(kind) + "/" + id }

func (m *memComments) Append(ctx context.Context, kind domainwf.Kind, recordID string, c *entity.Comment) error {
	if m.appendFunc != nil {
		if err := m.appendFunc(ctx, kind, recordID, c); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := commentKey(kind, recordID)
	c.Seq = len(m.items[key]) + 1
	m.items[key] = append(m.items[key], *c)
	m.writes++
	return nil
}

func (m *memComments) List(ctx context.Context, kind domainwf.Kind, recordID string) ([]entity.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.Comment{}, m.items[commentKey(kind, recordID)]...), nil
}

// memReceipts is an in-memory receipt store
type memReceipts struct {
	mu       sync.Mutex
	items    map[string]*entity.Receipt
	comments *memComments
	seq      int
	writes   int

	updateFunc func(ctx context.Context, r *entity.Receipt, from domainwf.State) (bool, error)
}

func newMemReceipts(comments *memComments) *memReceipts {
	return &memReceipts{items: make(map[string]*entity.Receipt), comments: comments}
}

func (m *memReceipts) Create(ctx context.Context, r *entity.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r.ID = fmt.Sprintf("r-%d", m.seq)
	m.items[r.ID] = r.Clone()
	m.writes++
	return nil
}

func (m *memReceipts) GetByID(ctx context.Context, id string) (*entity.Receipt, error) {
	m.mu.Lock()
	r, ok := m.items[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	out := r.Clone()
	out.Comments, _ = m.comments.List(ctx, domainwf.KindReceipt, id)
	return out, nil
}

func (m *memReceipts) UpdateIfStatus(ctx context.Context, r *entity.Receipt, from domainwf.State) (bool, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, r, from)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[r.ID]
	if !ok || stored.Status != from {
		return false, nil
	}
	next := r.Clone()
	next.Comments = nil
	m.items[r.ID] = next
	m.writes++
	return true, nil
}

func (m *memReceipts) DeleteIfStatus(ctx context.Context, id, createdBy string, status domainwf.State) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[id]
	if !ok || stored.CreatedBy != createdBy || stored.Status != status {
		return false, nil
	}
	delete(m.items, id)
	m.writes++
	return true, nil
}

func (m *memReceipts) List(ctx context.Context, q port.ReceiptQuery) ([]*entity.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Receipt
	for _, r := range m.items {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memReceipts) CountByCreator(ctx context.Context, createdBy string) (entity.ReceiptCounts, error) {
	return entity.ReceiptCounts{}, nil
}

// memVouchers is an in-memory voucher store
type memVouchers struct {
	mu       sync.Mutex
	items    map[string]*entity.Voucher
	comments *memComments
	seq      int
	writes   int

	updateFunc func(ctx context.Context, v *entity.Voucher, from domainwf.State) (bool, error)
}

func newMemVouchers(comments *memComments) *memVouchers {
	return &memVouchers{items: make(map[string]*entity.Voucher), comments: comments}
}

func (m *memVouchers) Create(ctx context.Context, v *entity.Voucher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	v.ID = fmt.Sprintf("v-%d", m.seq)
	m.items[v.ID] = v.Clone()
	m.writes++
	return nil
}

func (m *memVouchers) GetByID(ctx context.Context, id string) (*entity.Voucher, error) {
	m.mu.Lock()
	v, ok := m.items[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	out := v.Clone()
	out.Comments, _ = m.comments.List(ctx, domainwf.KindVoucher, id)
	return out, nil
}

func (m *memVouchers) GetByReceiptID(ctx context.Context, receiptID string) (*entity.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.items {
		if v.ReceiptID == receiptID {
			return v.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memVouchers) UpdateIfStatus(ctx context.Context, v *entity.Voucher, from domainwf.State) (bool, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, v, from)
	}
	return m.update(v, from), nil
}

func (m *memVouchers) update(v *entity.Voucher, from domainwf.State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[v.ID]
	if !ok || stored.Status != from {
		return false
	}
	next := v.Clone()
	next.Comments = nil
	m.items[v.ID] = next
	m.writes++
	return true
}

// setStatus simulates a concurrent writer
func (m *memVouchers) setStatus(id string, s domainwf.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id].Status = s
}

func (m *memVouchers) List(ctx context.Context, q port.VoucherQuery) ([]*entity.Voucher, error) {
	return nil, nil
}

// memBlobs is an in-memory blob store
type memBlobs struct {
	mu      sync.Mutex
	items   map[string][]byte
	deleted []string
	putErr  error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{items: make(map[string][]byte)}
}

func (m *memBlobs) Put(ctx context.Context, path string, content []byte) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[path] = content
	return "mem://" + path, nil
}

func (m *memBlobs) Get(ctx context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.items[strings.TrimPrefix(ref, "mem://")]
	if !ok {
		return nil, domainwf.ErrNotFound
	}
	return data, nil
}

func (m *memBlobs) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := strings.TrimPrefix(ref, "mem://")
	delete(m.items, p)
	m.deleted = append(m.deleted, p)
	return nil
}

func (m *memBlobs) Exists(ctx context.Context, ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[strings.TrimPrefix(ref, "mem://")]
	return ok
}

func (m *memBlobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memOrphans struct {
	mu    sync.Mutex
	items []*port.OrphanedBlob
}

func (m *memOrphans) Record(ctx context.Context, b *port.OrphanedBlob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = int64(len(m.items) + 1)
	m.items = append(m.items, b)
	return nil
}

func (m *memOrphans) ListPending(ctx context.Context, olderThan time.Time) ([]*port.OrphanedBlob, error) {
	return m.items, nil
}

func (m *memOrphans) MarkDeleted(ctx context.Context, id int64, at time.Time) error { return nil }

func (m *memOrphans) CountPending(ctx context.Context) (int, error) { return len(m.items), nil }

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// mockDispatcher records events instead of running handlers
type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
	inline []event.Type
}

func (m *mockDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}
func (m *mockDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {
}
func (m *mockDispatcher) SubscribeAll(eventTypes []event.Type, name string, handler dispatcher.Handler) {
}
func (m *mockDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.mu.Lock()
	m.inline = append(m.inline, evt.Type)
	m.mu.Unlock()
	m.DispatchAsync(ctx, evt)
	return nil
}

// inlineTypes lists the events dispatched synchronously
func (m *mockDispatcher) inlineTypes() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]event.Type(nil), m.inline...)
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo { return nil }
func (m *mockDispatcher) Close() error                                          { return nil }

func (m *mockDispatcher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

// tickingClock advances one second per reading
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// harness wires the engine to in-memory stores
type harness struct {
	engine     LifecycleEngine
	receipts   *memReceipts
	vouchers   *memVouchers
	comments   *memComments
	blobs      *memBlobs
	orphans    *memOrphans
	dispatcher *mockDispatcher
}

const testMaxUpload = 1024

func newHarness() *harness {
	comments := newMemComments()
	h := &harness{
		receipts:   newMemReceipts(comments),
		vouchers:   newMemVouchers(comments),
		comments:   comments,
		blobs:      newMemBlobs(),
		orphans:    &memOrphans{},
		dispatcher: &mockDispatcher{},
	}
	clock := &tickingClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}

	h.engine = NewEngine(h.receipts, h.vouchers, h.comments, h.orphans, h.blobs, &mockTxManager{},
		WithDispatcher(h.dispatcher),
		WithClock(clock.Now),
		WithMaxUploadBytes(testMaxUpload),
	)
	return h
}

var (
	submitter = entity.Actor{ID: "u-sub", Name: "Sam Submitter", Email: "sam@acme.test", Role: domainwf.RoleSubmitter, Company: "Acme", Approved: true}
	finance   = entity.Actor{ID: "u-fin", Name: "Fay Finance", Role: domainwf.RoleFinance, Company: "Acme", Approved: true}
	creator   = entity.Actor{ID: "u-voc", Name: "Vic Voucher", Role: domainwf.RoleVoucher, Approved: true}
	checker   = entity.Actor{ID: "u-chk", Name: "Cat Checker", Role: domainwf.RoleChecker, Approved: true}
	initiator = entity.Actor{ID: "u-ini", Name: "Ian Initiator", Role: domainwf.RoleInitiator, Approved: true}
	releaser  = entity.Actor{ID: "u-pay", Name: "Pat Payment", Role: domainwf.RolePayment, Approved: true}
	superuser = entity.Actor{ID: "u-su", Name: "Sue Super", Role: domainwf.RoleSuperuser, Approved: true}
)

func validVoucherInput() CreateVoucherInput {
	return CreateVoucherInput{
		BankName:      "First Bank",
		AccountTitle:  "Acme Ltd",
		AccountNumber: "0012345678",
		Amount:        "2500",
		Description:   "Office chairs",
		Document:      Upload{Filename: "voucher.pdf", Data: []byte("%PDF-1.4")},
	}
}
