package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/application/service"
	"github.com/garyjia/zoompay/internal/application/workflow"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// fakeAuth resolves "token-<role>" to an actor with that role
type fakeAuth struct {
	service.AuthService
}

func (fakeAuth) Authenticate(ctx context.Context, token string) (entity.Actor, error) {
	switch {
	case token == "":
		return entity.Actor{}, fmt.Errorf("%w: missing token", service.ErrUnauthenticated)
	case token == "token-pending":
		return entity.Actor{}, fmt.Errorf("%w: account is pending approval", domainwf.ErrUnauthorized)
	case strings.HasPrefix(token, "token-"):
		role := domainwf.Role(strings.TrimPrefix(token, "token-"))
		return entity.Actor{ID: "u-" + string(role), Name: "Test " + string(role), Role: role, Company: "Acme"}, nil
	}
	return entity.Actor{}, fmt.Errorf("%w: bad token", service.ErrUnauthenticated)
}

func (fakeAuth) Login(ctx context.Context, email, password string) (*service.Session, error) {
	if password != "secret123" {
		return nil, fmt.Errorf("%w: invalid email or password", service.ErrUnauthenticated)
	}
	return &service.Session{Token: "token-finance", User: &entity.User{ID: "u1", Email: email}}, nil
}

func (fakeAuth) UpdateProfile(ctx context.Context, actor entity.Actor, in service.ProfileInput) (*entity.User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domainwf.NewValidationError("name", "name is required")
	}
	return &entity.User{ID: actor.ID, Name: in.Name, Contact: in.Contact}, nil
}

func (fakeAuth) ChangePassword(ctx context.Context, actor entity.Actor, in service.PasswordChangeInput) error {
	if in.CurrentPassword != "secret123" {
		return domainwf.NewValidationError("current_password", "current password is incorrect")
	}
	return nil
}

type fakeEngine struct {
	workflow.LifecycleEngine

	submitted   workflow.Upload
	approveText string
	voucherIn   workflow.CreateVoucherInput
	checkErr    error
}

func (e *fakeEngine) SubmitReceipt(ctx context.Context, actor entity.Actor, image workflow.Upload) (*entity.Receipt, error) {
	if image.Empty() {
		return nil, domainwf.NewValidationError("image", "image is required")
	}
	e.submitted = image
	return &entity.Receipt{ID: "r1", Status: domainwf.StatePending, CreatedBy: actor.ID}, nil
}

func (e *fakeEngine) ApproveReceipt(ctx context.Context, actor entity.Actor, receiptID, comment string) (*entity.Receipt, error) {
	e.approveText = comment
	if actor.Role != domainwf.RoleFinance {
		return nil, fmt.Errorf("%w: not finance", domainwf.ErrUnauthorized)
	}
	return &entity.Receipt{ID: receiptID, Status: domainwf.StateApproved}, nil
}

func (e *fakeEngine) CreateVoucher(ctx context.Context, actor entity.Actor, receiptID string, in workflow.CreateVoucherInput) (*entity.Voucher, *entity.Receipt, error) {
	e.voucherIn = in
	return &entity.Voucher{ID: "v1", ReceiptID: receiptID, Status: domainwf.StateVoucherCreated},
		&entity.Receipt{ID: receiptID, Status: domainwf.StateVoucherCreated, VoucherID: "v1"}, nil
}

func (e *fakeEngine) CheckVoucher(ctx context.Context, actor entity.Actor, voucherID, comment string) (*entity.Voucher, error) {
	if e.checkErr != nil {
		return nil, e.checkErr
	}
	return &entity.Voucher{ID: voucherID, Status: domainwf.StateChecked}, nil
}

type fakeQueries struct {
	service.QueryService
	queue  service.Queue
	ticket string
}

func (q *fakeQueries) VoucherQueue(ctx context.Context, actor entity.Actor, queue service.Queue, ticket string) ([]*entity.Voucher, error) {
	q.queue, q.ticket = queue, ticket
	return nil, nil
}

type fakeExports struct {
	service.ExportService
}

func (fakeExports) PaymentAdvice(ctx context.Context, actor entity.Actor, voucherID string) (*service.Workbook, error) {
	return &service.Workbook{Filename: "payment_advice_TKT-1.xlsx", Data: []byte("xlsx")}, nil
}

type fakeDocuments struct {
	service.DocumentService
}

func (fakeDocuments) Blob(ctx context.Context, actor entity.Actor, ref string) (*port.Media, error) {
	if ref != "/receipts/r1.png" {
		return nil, fmt.Errorf("%w: blob %s", domainwf.ErrNotFound, ref)
	}
	return &port.Media{Data: []byte("png"), ContentType: "image/png"}, nil
}

type testEnv struct {
	router  *gin.Engine
	engine  *fakeEngine
	queries *fakeQueries
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{engine: &fakeEngine{}, queries: &fakeQueries{}}
	cfg := DefaultServerConfig()
	cfg.Mode = gin.TestMode
	cfg.MaxUploadBytes = 64

	srv := NewServer(cfg, Services{
		Auth:      fakeAuth{},
		Engine:    env.engine,
		Queries:   env.queries,
		Router:    service.NewRoleRouter(),
		Documents: fakeDocuments{},
		Exports:   fakeExports{},
	}, nopLogger{})
	env.router = srv.Router()
	return env
}

func (env *testEnv) do(req *http.Request) (*httptest.ResponseRecorder, Response) {
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func jsonRequest(method, path, token, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func multipartRequest(t *testing.T, path, token string, fields map[string]string, fileField, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(jsonRequest(http.MethodGet, "/health", "", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"bad token", "garbage", http.StatusUnauthorized},
		{"pending account", "token-pending", http.StatusForbidden},
		{"signed in", "token-finance", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.do(jsonRequest(http.MethodGet, "/api/v1/permissions", tt.token, ""))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.status == http.StatusOK, resp.Success)
		})
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/blobs/receipts/r1.png?access_token=token-finance", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png", w.Body.String())
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", "", `{"email":"a@b.co","password":"secret123"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	w, resp = env.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", "", `{"email":"a@b.co","password":"nope"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, resp.Success)

	w, resp = env.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", "", `{not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "body", resp.Field)
}

func TestPermissions(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, jsonRequest(http.MethodGet, "/api/v1/permissions", "token-checker", ""))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data service.Permissions `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domainwf.RoleChecker, resp.Data.Role)
	assert.Contains(t, resp.Data.Queues, service.QueueChecker)
	assert.True(t, resp.Data.CanComment)
	assert.False(t, resp.Data.CanAdminister)
}

func TestSubmitReceipt(t *testing.T) {
	env := newTestEnv(t)

	req := multipartRequest(t, "/api/v1/receipts", "token-admin", nil, "image", "lunch.png", []byte("png-bytes"))
	w, resp := env.do(req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "lunch.png", env.engine.submitted.Filename)
	assert.Equal(t, []byte("png-bytes"), env.engine.submitted.Data)
}

func TestSubmitReceipt_MissingImage(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(multipartRequest(t, "/api/v1/receipts", "token-admin", map[string]string{"note": "x"}, "", "", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "image", resp.Field)
}

func TestSubmitReceipt_LargeFileIsCappedForEngine(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(multipartRequest(t, "/api/v1/receipts", "token-admin", nil, "image", "big.png", bytes.Repeat([]byte("x"), 200)))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, env.engine.submitted.Data, 65, "one byte over the limit is enough for the engine to reject it")
}

func TestApproveReceipt(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(jsonRequest(http.MethodPost, "/api/v1/receipts/r1/approve", "token-finance", `{"comment":"ok"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "ok", env.engine.approveText)

	w, _ = env.do(jsonRequest(http.MethodPost, "/api/v1/receipts/r1/approve", "token-checker", `{"comment":"ok"}`))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateVoucher(t *testing.T) {
	env := newTestEnv(t)

	fields := map[string]string{
		"bank_name":      "First Bank",
		"account_title":  "Acme",
		"account_number": "0123",
		"amount":         "2500",
		"description":    "chairs",
	}
	w, resp := env.do(multipartRequest(t, "/api/v1/receipts/r1/voucher", "token-voucher", fields, "document", "v.pdf", []byte("%PDF-")))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)

	in := env.engine.voucherIn
	assert.Equal(t, "First Bank", in.BankName)
	assert.Equal(t, "2500", in.Amount)
	assert.Equal(t, "v.pdf", in.Document.Filename)
}

func TestVoucherTransitionErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		field  string
	}{
		{"invalid transition", fmt.Errorf("%w: voucher v1 is initiated", domainwf.ErrInvalidTransition), http.StatusConflict, ""},
		{"validation", domainwf.NewValidationError("comment", "comment is required"), http.StatusBadRequest, "comment"},
		{"not found", fmt.Errorf("%w: voucher v1", domainwf.ErrNotFound), http.StatusNotFound, ""},
		{"store down", fmt.Errorf("%w: disk", domainwf.ErrStoreUnavailable), http.StatusServiceUnavailable, ""},
		{"malformed", fmt.Errorf("%w: bad status", domainwf.ErrMalformedRecord), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.engine.checkErr = tt.err

			w, resp := env.do(jsonRequest(http.MethodPost, "/api/v1/vouchers/v1/check", "token-checker", `{"comment":"x"}`))
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.field, resp.Field)
		})
	}
}

func TestVoucherQueue_Ticket(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(jsonRequest(http.MethodGet, "/api/v1/vouchers/to-initiate?ticket=TKT-12", "token-initiator", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, resp.Data)
	assert.Equal(t, service.QueueToInitiate, env.queries.queue)
	assert.Equal(t, "TKT-12", env.queries.ticket)
}

func TestExportPaymentAdvice(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, jsonRequest(http.MethodGet, "/api/v1/vouchers/v1/export", "token-payment", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "payment_advice_TKT-1.xlsx")
}

func TestExportRegister_RequiresQueue(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(jsonRequest(http.MethodGet, "/api/v1/vouchers/export", "token-payment", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "queue", resp.Field)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, statusFor(service.ErrUnauthenticated))
	assert.Equal(t, http.StatusForbidden, statusFor(domainwf.ErrUnauthorized))
	assert.Equal(t, http.StatusConflict, statusFor(domainwf.ErrConflict))
	assert.Equal(t, http.StatusBadRequest, statusFor(&domainwf.StateError{Kind: domainwf.KindReceipt, Value: "x"}))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(service.ErrSuggestionsDisabled))
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("boom")))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken(""))
}

func TestUpdateMe(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(jsonRequest(http.MethodPut, "/api/v1/me", "token-admin", `{"name":"Samira","contact":"0300"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Samira", data["name"])
	assert.Equal(t, "0300", data["contact"])

	w, resp = env.do(jsonRequest(http.MethodPut, "/api/v1/me", "token-admin", `{"name":" "}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name", resp.Field)

	w, _ = env.do(jsonRequest(http.MethodPut, "/api/v1/me", "", `{"name":"Samira"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(jsonRequest(http.MethodPut, "/api/v1/me/password", "token-checker", `{"current_password":"secret123","new_password":"battery staple"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	w, resp = env.do(jsonRequest(http.MethodPut, "/api/v1/me/password", "token-checker", `{"current_password":"nope","new_password":"battery staple"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "current_password", resp.Field)
}
