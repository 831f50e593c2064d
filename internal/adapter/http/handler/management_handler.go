package handler

import (
	"affiliate-ledger/internal/adapter/http/dto"
	"affiliate-ledger/internal/core/ports"
	"affiliate-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// ManagementHandler serves operator endpoints.
type ManagementHandler struct {
	accountSvc ports.AccountService
}

// NewManagementHandler creates a new ManagementHandler.
func NewManagementHandler(accountSvc ports.AccountService) *ManagementHandler {
	return &ManagementHandler{accountSvc: accountSvc}
}

// CreateAccount handles POST /api/v1/management/account.
func (h *ManagementHandler) CreateAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	account, err := h.accountSvc.CreateAccount(c.Request.Context(), ports.NewAccount{
		Email:         req.Email,
		Commission:    req.Commission,
		NotifyBalance: req.NotifyBalance,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.AccountResponse{
		ID:            account.ID.String(),
		Email:         account.Email,
		Commission:    account.Commission,
		NotifyBalance: account.NotifyBalance,
		CreatedAt:     account.CreatedAt,
	})
}
