package handler

import (
	"async-ledger/internal/adapter/http/dto"
	"async-ledger/internal/adapter/http/middleware"
	"async-ledger/internal/core/ports"
	"async-ledger/pkg/apperror"
	"async-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler serves the account read projection.
type AccountHandler struct {
	accountSvc ports.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc ports.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// ListAccounts handles GET /api/v1/accounts.
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	accounts, err := h.accountSvc.ListAccounts(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountListResponse(accounts))
}

// GetAccount handles GET /api/v1/accounts/:id.
func (h *AccountHandler) GetAccount(c *gin.Context) {
	ownerID, accountID, ok := ownerAndAccount(c)
	if !ok {
		return
	}

	account, err := h.accountSvc.GetAccount(c.Request.Context(), ownerID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountResponse(account))
}

// ListTransferTargets handles GET /api/v1/accounts/:id/transfer-targets.
func (h *AccountHandler) ListTransferTargets(c *gin.Context) {
	ownerID, accountID, ok := ownerAndAccount(c)
	if !ok {
		return
	}

	accounts, err := h.accountSvc.ListTransferTargets(c.Request.Context(), ownerID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountListResponse(accounts))
}
