package port

import (
	"context"
	"time"

	"github.com/garyjia/zoompay/internal/domain/entity"
)

// ReceiptSuggestion is what a reader could make of a receipt image
type ReceiptSuggestion struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
	Description string  `json:"description"`
	Merchant    string  `json:"merchant,omitempty"`
	Date        string  `json:"date,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// ReceiptExtractor reads amount and description off a receipt image
type ReceiptExtractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (*ReceiptSuggestion, error)
}

// Exporter renders vouchers into spreadsheet workbooks
type Exporter interface {
	PaymentAdvice(voucher *entity.Voucher) ([]byte, error)
	Register(title string, vouchers []*entity.Voucher) ([]byte, error)
}

// TokenClaims is the identity carried by an access token
type TokenClaims struct {
	UserID    string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies access tokens
type TokenIssuer interface {
	Issue(user *entity.User) (string, time.Time, error)
	Verify(token string) (*TokenClaims, error)
}

// PasswordHasher hashes and checks account passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}
