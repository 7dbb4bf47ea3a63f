package workflow

import (
	"fmt"
	"math/rand/v2"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Blob categories
const (
	CategoryReceipts      = "receipts"
	CategoryVouchers      = "vouchers"
	CategoryPaymentProofs = "payment_proofs"
)

// TicketNumber derives the display label of a voucher from its creation instant
func TicketNumber(now time.Time) string {
	ms := fmt.Sprintf("%d", now.UnixMilli())
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return "VOC" + ms
}

func receiptPath(now time.Time, ext string) string {
	return fmt.Sprintf("%s/%d-%s.%s", CategoryReceipts, now.UnixMilli(), randomSuffix(8), ext)
}

func voucherPath(now time.Time, ext string) string {
	return fmt.Sprintf("%s/%d-%s.%s", CategoryVouchers, now.UnixMilli(), uuid.NewString(), ext)
}

func proofPath(voucherID string, now time.Time, ext string) string {
	return fmt.Sprintf("%s/proof_%s_%d.%s", CategoryPaymentProofs, voucherID, now.UnixMilli(), ext)
}

// extOf returns the lower-case extension of a filename without the dot
func extOf(filename, fallback string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		return fallback
	}
	return ext
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(b)
}
