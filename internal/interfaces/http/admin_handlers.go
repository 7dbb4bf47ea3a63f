package http

import (
	"github.com/gin-gonic/gin"

	"github.com/garyjia/zoompay/internal/application/service"
	"github.com/garyjia/zoompay/internal/domain/entity"
)

// ListCompanies handles GET /admin/companies
func (h *Handlers) ListCompanies(c *gin.Context) {
	companies, err := h.svc.Admin.ListCompanies(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if companies == nil {
		companies = []*entity.Company{}
	}
	ok(c, companies)
}

// CreateCompany handles POST /admin/companies
func (h *Handlers) CreateCompany(c *gin.Context) {
	var in service.CompanyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}
	company, err := h.svc.Admin.CreateCompany(c.Request.Context(), currentActor(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, company)
}

// DeleteCompany handles DELETE /admin/companies/:id
func (h *Handlers) DeleteCompany(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Admin.DeleteCompany(c.Request.Context(), currentActor(c), id); err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"id": id, "deleted": true})
}

// ListBanks handles GET /admin/banks
func (h *Handlers) ListBanks(c *gin.Context) {
	banks, err := h.svc.Admin.ListBanks(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if banks == nil {
		banks = []*entity.Bank{}
	}
	ok(c, banks)
}

// CreateBank handles POST /admin/banks
func (h *Handlers) CreateBank(c *gin.Context) {
	var in service.BankInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}
	bank, err := h.svc.Admin.CreateBank(c.Request.Context(), currentActor(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, bank)
}

// DeleteBank handles DELETE /admin/banks/:id
func (h *Handlers) DeleteBank(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Admin.DeleteBank(c.Request.Context(), currentActor(c), id); err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"id": id, "deleted": true})
}

// ListUsers handles GET /admin/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.svc.Admin.ListUsers(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if users == nil {
		users = []*entity.User{}
	}
	ok(c, users)
}

// AssignUser handles PUT /admin/users/:id {"role"?, "company"?, "bank"?}
func (h *Handlers) AssignUser(c *gin.Context) {
	var in service.AssignUserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}
	user, err := h.svc.Admin.AssignUser(c.Request.Context(), currentActor(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, user)
}
