package service

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

type mockLogger struct {
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.errors = append(m.errors, msg)
}

type mockReceiptRepo struct {
	getByIDFunc        func(ctx context.Context, id string) (*entity.Receipt, error)
	listFunc           func(ctx context.Context, q port.ReceiptQuery) ([]*entity.Receipt, error)
	countByCreatorFunc func(ctx context.Context, createdBy string) (entity.ReceiptCounts, error)
}

func (m *mockReceiptRepo) Create(ctx context.Context, receipt *entity.Receipt) error {
	return nil
}

func (m *mockReceiptRepo) GetByID(ctx context.Context, id string) (*entity.Receipt, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockReceiptRepo) UpdateIfStatus(ctx context.Context, receipt *entity.Receipt, from domainwf.State) (bool, error) {
	return true, nil
}

func (m *mockReceiptRepo) DeleteIfStatus(ctx context.Context, id, createdBy string, status domainwf.State) (bool, error) {
	return true, nil
}

func (m *mockReceiptRepo) List(ctx context.Context, q port.ReceiptQuery) ([]*entity.Receipt, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, q)
	}
	return nil, nil
}

func (m *mockReceiptRepo) CountByCreator(ctx context.Context, createdBy string) (entity.ReceiptCounts, error) {
	if m.countByCreatorFunc != nil {
		return m.countByCreatorFunc(ctx, createdBy)
	}
	return entity.ReceiptCounts{}, nil
}

type mockVoucherRepo struct {
	getByIDFunc        func(ctx context.Context, id string) (*entity.Voucher, error)
	getByReceiptIDFunc func(ctx context.Context, receiptID string) (*entity.Voucher, error)
	listFunc           func(ctx context.Context, q port.VoucherQuery) ([]*entity.Voucher, error)
}

func (m *mockVoucherRepo) Create(ctx context.Context, voucher *entity.Voucher) error {
	return nil
}

func (m *mockVoucherRepo) GetByID(ctx context.Context, id string) (*entity.Voucher, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockVoucherRepo) GetByReceiptID(ctx context.Context, receiptID string) (*entity.Voucher, error) {
	if m.getByReceiptIDFunc != nil {
		return m.getByReceiptIDFunc(ctx, receiptID)
	}
	return nil, nil
}

func (m *mockVoucherRepo) UpdateIfStatus(ctx context.Context, voucher *entity.Voucher, from domainwf.State) (bool, error) {
	return true, nil
}

func (m *mockVoucherRepo) List(ctx context.Context, q port.VoucherQuery) ([]*entity.Voucher, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, q)
	}
	return nil, nil
}

type mockUserRepo struct {
	users            map[string]*entity.User
	updateFunc       func(ctx context.Context, user *entity.User) error
	passwordUpdates  int
	clearCompanyFunc func(ctx context.Context, company string) (int64, error)
	clearBankFunc    func(ctx context.Context, bank string) (int64, error)
}

func newMockUserRepo(users ...*entity.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*entity.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*entity.User, error) {
	out := make([]*entity.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *entity.User) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, user)
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return domainwf.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	m.passwordUpdates++
	return nil
}

func (m *mockUserRepo) ClearCompany(ctx context.Context, company string) (int64, error) {
	if m.clearCompanyFunc != nil {
		return m.clearCompanyFunc(ctx, company)
	}
	return 0, nil
}

func (m *mockUserRepo) ClearBank(ctx context.Context, bank string) (int64, error) {
	if m.clearBankFunc != nil {
		return m.clearBankFunc(ctx, bank)
	}
	return 0, nil
}

type mockCompanyRepo struct {
	created     []*entity.Company
	getByIDFunc func(ctx context.Context, id string) (*entity.Company, error)
	deleted     []string
}

func (m *mockCompanyRepo) Create(ctx context.Context, company *entity.Company) error {
	m.created = append(m.created, company)
	return nil
}

func (m *mockCompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockCompanyRepo) List(ctx context.Context) ([]*entity.Company, error) {
	return m.created, nil
}

func (m *mockCompanyRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockBankRepo struct {
	created     []*entity.Bank
	getByIDFunc func(ctx context.Context, id string) (*entity.Bank, error)
	deleted     []string
}

func (m *mockBankRepo) Create(ctx context.Context, bank *entity.Bank) error {
	m.created = append(m.created, bank)
	return nil
}

func (m *mockBankRepo) GetByID(ctx context.Context, id string) (*entity.Bank, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockBankRepo) List(ctx context.Context) ([]*entity.Bank, error) {
	return m.created, nil
}

func (m *mockBankRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// mockHasher "hashes" by prefixing, which is enough to test the flow
type mockHasher struct{}

func (mockHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (mockHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("password mismatch")
	}
	return nil
}

type mockTokens struct {
	issued []string
}

func (m *mockTokens) Issue(user *entity.User) (string, time.Time, error) {
	token := "token-" + user.ID
	m.issued = append(m.issued, token)
	return token, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), nil
}

func (m *mockTokens) Verify(token string) (*port.TokenClaims, error) {
	if len(token) <= len("token-") || token[:len("token-")] != "token-" {
		return nil, errors.New("signature is invalid")
	}
	return &port.TokenClaims{UserID: token[len("token-"):]}, nil
}

type mockBlobs struct {
	data map[string][]byte
}

func (m *mockBlobs) Put(ctx context.Context, path string, content []byte) (string, error) {
	m.data[path] = content
	return path, nil
}

func (m *mockBlobs) Get(ctx context.Context, ref string) ([]byte, error) {
	if d, ok := m.data[ref]; ok {
		return d, nil
	}
	return nil, domainwf.ErrNotFound
}

func (m *mockBlobs) Delete(ctx context.Context, ref string) error {
	delete(m.data, ref)
	return nil
}

func (m *mockBlobs) Exists(ctx context.Context, ref string) bool {
	_, ok := m.data[ref]
	return ok
}

type mockMedia struct {
	previews int
}

func (m *mockMedia) Normalize(data []byte, filename string) (*port.Media, error) {
	return &port.Media{Data: data, Ext: "jpg", ContentType: "image/jpeg"}, nil
}

func (m *mockMedia) Preview(data []byte) (*port.Media, error) {
	m.previews++
	return &port.Media{Data: []byte("png-preview"), Ext: "png", ContentType: "image/png"}, nil
}

type mockExtractor struct {
	extractFunc func(ctx context.Context, image []byte, mimeType string) (*port.ReceiptSuggestion, error)
}

func (m *mockExtractor) Extract(ctx context.Context, image []byte, mimeType string) (*port.ReceiptSuggestion, error) {
	return m.extractFunc(ctx, image, mimeType)
}

type mockExporter struct {
	titles []string
	rows   int
}

func (m *mockExporter) PaymentAdvice(voucher *entity.Voucher) ([]byte, error) {
	return []byte("advice-" + voucher.ID), nil
}

func (m *mockExporter) Register(title string, vouchers []*entity.Voucher) ([]byte, error) {
	m.titles = append(m.titles, title)
	m.rows = len(vouchers)
	return []byte("register"), nil
}

func actorWith(role domainwf.Role) entity.Actor {
	return entity.Actor{
		ID:       "u-" + string(role),
		Name:     "User " + string(role),
		Email:    string(role) + "@example.com",
		Role:     role,
		Company:  "Acme",
		Approved: true,
	}
}
