package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/zoompay/internal/application/service"
	"github.com/garyjia/zoompay/internal/domain/entity"
)

// VoucherQueue returns the handler for one voucher queue. ?ticket= filters by ticket number.
func (h *Handlers) VoucherQueue(q service.Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		vouchers, err := h.svc.Queries.VoucherQueue(c.Request.Context(), currentActor(c), q, c.Query("ticket"))
		if err != nil {
			writeError(c, err)
			return
		}
		if vouchers == nil {
			vouchers = []*entity.Voucher{}
		}
		ok(c, vouchers)
	}
}

// GetVoucher handles GET /vouchers/:id
func (h *Handlers) GetVoucher(c *gin.Context) {
	v, err := h.svc.Queries.Voucher(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, v)
}

type voucherTransition func(ctx context.Context, actor entity.Actor, voucherID, text string) (*entity.Voucher, error)

// transition runs a text-bearing voucher transition with the body key pick selects
func (h *Handlers) transition(c *gin.Context, fn voucherTransition, pick func(textBody) string) {
	body, valid := bindText(c)
	if !valid {
		return
	}
	v, err := fn(c.Request.Context(), currentActor(c), c.Param("id"), pick(body))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, v)
}

func comment(b textBody) string { return b.Comment }
func reason(b textBody) string  { return b.Reason }

// CheckVoucher handles POST /vouchers/:id/check {"comment"}
func (h *Handlers) CheckVoucher(c *gin.Context) {
	h.transition(c, h.svc.Engine.CheckVoucher, comment)
}

// RejectAtCheck handles POST /vouchers/:id/check-reject {"reason"}
func (h *Handlers) RejectAtCheck(c *gin.Context) {
	h.transition(c, h.svc.Engine.RejectAtCheck, reason)
}

// InitiateVoucher handles POST /vouchers/:id/initiate {"notes"?}
func (h *Handlers) InitiateVoucher(c *gin.Context) {
	h.transition(c, h.svc.Engine.InitiateVoucher, func(b textBody) string { return b.Notes })
}

// ReleasePayment handles POST /vouchers/:id/release {"comment"}
func (h *Handlers) ReleasePayment(c *gin.Context) {
	h.transition(c, h.svc.Engine.ReleasePayment, comment)
}

// RejectPayment handles POST /vouchers/:id/payment-reject {"reason"}
func (h *Handlers) RejectPayment(c *gin.Context) {
	h.transition(c, h.svc.Engine.RejectPayment, reason)
}

// AddVoucherComment handles POST /vouchers/:id/comments {"text"}
func (h *Handlers) AddVoucherComment(c *gin.Context) {
	h.transition(c, h.svc.Engine.AddVoucherComment, func(b textBody) string { return b.Text })
}

// UploadProof handles POST /vouchers/:id/proof (multipart field "proof")
func (h *Handlers) UploadProof(c *gin.Context) {
	proof, err := h.readUpload(c, "proof")
	if err != nil {
		writeError(c, err)
		return
	}
	v, err := h.svc.Engine.UploadProof(c.Request.Context(), currentActor(c), c.Param("id"), proof)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, v)
}

// ExportPaymentAdvice handles GET /vouchers/:id/export
func (h *Handlers) ExportPaymentAdvice(c *gin.Context) {
	wb, err := h.svc.Exports.PaymentAdvice(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	sendWorkbook(c, wb)
}

// ExportRegister handles GET /vouchers/export?queue=
func (h *Handlers) ExportRegister(c *gin.Context) {
	q := c.Query("queue")
	if q == "" {
		badRequest(c, "queue", "queue is required")
		return
	}
	wb, err := h.svc.Exports.Register(c.Request.Context(), currentActor(c), service.Queue(q))
	if err != nil {
		writeError(c, err)
		return
	}
	sendWorkbook(c, wb)
}
