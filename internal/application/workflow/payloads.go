package workflow

import (
	"fmt"
	"strings"

	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
	"github.com/garyjia/zoompay/pkg/utils"
)

// requireText strips control characters, trims, and rejects text when nothing is left
func requireText(field, text string) (string, error) {
	trimmed := strings.TrimSpace(utils.SanitizeString(text))
	if trimmed == "" {
		return "", domainwf.NewValidationError(field, field+" is required")
	}
	return trimmed, nil
}

// requireDocument rejects a missing upload and one larger than maxBytes.
// A non-positive maxBytes disables the size check.
func requireDocument(field string, u Upload, maxBytes int64) error {
	if u.Empty() {
		return domainwf.NewValidationError(field, field+" is required")
	}
	if maxBytes > 0 && int64(len(u.Data)) > maxBytes {
		return domainwf.NewValidationError(field, fmt.Sprintf("file exceeds %d bytes", maxBytes))
	}
	return nil
}

// voucherForm is a validated CreateVoucherInput
type voucherForm struct {
	bankName      string
	accountTitle  string
	accountNumber string
	amount        float64
	description   string
}

// validate checks the form in field order and stops at the first failure
func (in CreateVoucherInput) validate(maxUploadBytes int64) (*voucherForm, error) {
	var (
		f   voucherForm
		err error
	)

	if f.bankName, err = requireText("bankName", in.BankName); err != nil {
		return nil, err
	}
	if f.accountTitle, err = requireText("accountTitle", in.AccountTitle); err != nil {
		return nil, err
	}
	if f.accountNumber, err = requireText("accountNumber", in.AccountNumber); err != nil {
		return nil, err
	}
	if f.description, err = requireText("description", in.Description); err != nil {
		return nil, err
	}
	if f.amount, err = entity.ParseAmount(in.Amount); err != nil {
		return nil, err
	}
	if err = requireDocument("document", in.Document, maxUploadBytes); err != nil {
		return nil, err
	}

	return &f, nil
}
