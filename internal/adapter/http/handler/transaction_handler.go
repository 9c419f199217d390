package handler

import (
	"strconv"

	"async-ledger/internal/adapter/http/dto"
	"async-ledger/internal/adapter/http/middleware"
	"async-ledger/internal/core/ports"
	"async-ledger/pkg/apperror"
	"async-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransactionHandler handles transaction requests and queries.
type TransactionHandler struct {
	txSvc ports.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txSvc ports.TransactionService) *TransactionHandler {
	return &TransactionHandler{txSvc: txSvc}
}

// CreateTransaction handles POST /api/v1/transactions.
// The transaction is settled asynchronously; the response carries it as PENDING.
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	summary, err := h.txSvc.CreateTransaction(c.Request.Context(), req.ToPort(ownerID), middleware.GetCorrelationID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, summary)
}

// ListTransactions handles GET /api/v1/accounts/:id/transactions.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	ownerID, accountID, ok := ownerAndAccount(c)
	if !ok {
		return
	}

	txs, err := h.txSvc.ListTransactions(c.Request.Context(), ownerID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionListResponse(txs))
}

// ListReversible handles GET /api/v1/accounts/:id/transactions/reversible.
func (h *TransactionHandler) ListReversible(c *gin.Context) {
	ownerID, accountID, ok := ownerAndAccount(c)
	if !ok {
		return
	}

	txs, err := h.txSvc.ListReversible(c.Request.Context(), ownerID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionListResponse(txs))
}

// ownerAndAccount reads the caller and the :id path parameter, writing the
// error response itself when either is missing.
func ownerAndAccount(c *gin.Context) (int64, int64, bool) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return 0, 0, false
	}
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || accountID <= 0 {
		response.Error(c, apperror.Validation("Invalid account id"))
		return 0, 0, false
	}
	return ownerID, accountID, true
}
