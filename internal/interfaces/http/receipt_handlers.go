package http

import (
	"github.com/gin-gonic/gin"

	"github.com/garyjia/zoompay/internal/application/service"
	"github.com/garyjia/zoompay/internal/application/workflow"
	"github.com/garyjia/zoompay/internal/domain/entity"
)

// SubmitReceipt handles POST /receipts (multipart field "image")
func (h *Handlers) SubmitReceipt(c *gin.Context) {
	image, err := h.readUpload(c, "image")
	if err != nil {
		writeError(c, err)
		return
	}
	r, err := h.svc.Engine.SubmitReceipt(c.Request.Context(), currentActor(c), image)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, r)
}

// MyReceipts handles GET /receipts/mine?status=
func (h *Handlers) MyReceipts(c *gin.Context) {
	h.receiptQueue(c, service.QueueMyReceipts)
}

// FinanceReceipts handles GET /finance/receipts?status=
func (h *Handlers) FinanceReceipts(c *gin.Context) {
	h.receiptQueue(c, service.QueueFinance)
}

// ApprovedReceipts handles GET /receipts/approved
func (h *Handlers) ApprovedReceipts(c *gin.Context) {
	h.receiptQueue(c, service.QueueApprovedReceipts)
}

func (h *Handlers) receiptQueue(c *gin.Context, q service.Queue) {
	views, err := h.svc.Queries.ReceiptQueue(c.Request.Context(), currentActor(c), q, c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	if views == nil {
		views = []*entity.ReceiptView{}
	}
	ok(c, views)
}

// ReceiptCounts handles GET /receipts/counts
func (h *Handlers) ReceiptCounts(c *gin.Context) {
	counts, err := h.svc.Queries.ReceiptCounts(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, counts)
}

// GetReceipt handles GET /receipts/:id
func (h *Handlers) GetReceipt(c *gin.Context) {
	view, err := h.svc.Queries.ReceiptDetail(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, view)
}

// DeleteReceipt handles DELETE /receipts/:id
func (h *Handlers) DeleteReceipt(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Engine.DeleteReceipt(c.Request.Context(), currentActor(c), id); err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"id": id, "deleted": true})
}

// ApproveReceipt handles POST /receipts/:id/approve {"comment"}
func (h *Handlers) ApproveReceipt(c *gin.Context) {
	body, valid := bindText(c)
	if !valid {
		return
	}
	r, err := h.svc.Engine.ApproveReceipt(c.Request.Context(), currentActor(c), c.Param("id"), body.Comment)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, r)
}

// RejectReceipt handles POST /receipts/:id/reject {"reason"}
func (h *Handlers) RejectReceipt(c *gin.Context) {
	body, valid := bindText(c)
	if !valid {
		return
	}
	r, err := h.svc.Engine.RejectReceipt(c.Request.Context(), currentActor(c), c.Param("id"), body.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, r)
}

// SuggestVoucher handles GET /receipts/:id/suggestion
func (h *Handlers) SuggestVoucher(c *gin.Context) {
	s, err := h.svc.Suggestions.Suggest(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, s)
}

// CreateVoucherResponse carries both records written by voucher creation
type CreateVoucherResponse struct {
	Voucher *entity.Voucher `json:"voucher"`
	Receipt *entity.Receipt `json:"receipt"`
}

// CreateVoucher handles POST /receipts/:id/voucher (multipart form with field "document")
func (h *Handlers) CreateVoucher(c *gin.Context) {
	doc, err := h.readUpload(c, "document")
	if err != nil {
		writeError(c, err)
		return
	}

	in := workflow.CreateVoucherInput{
		BankName:      c.PostForm("bank_name"),
		AccountTitle:  c.PostForm("account_title"),
		AccountNumber: c.PostForm("account_number"),
		Amount:        c.PostForm("amount"),
		Description:   c.PostForm("description"),
		Document:      doc,
	}

	v, r, err := h.svc.Engine.CreateVoucher(c.Request.Context(), currentActor(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, CreateVoucherResponse{Voucher: v, Receipt: r})
}

// GetVoucherByReceipt handles GET /receipts/:id/voucher
func (h *Handlers) GetVoucherByReceipt(c *gin.Context) {
	v, err := h.svc.Queries.VoucherByReceipt(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, v)
}
