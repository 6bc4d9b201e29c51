package handler

import (
	"strings"

	"collection-gateway/internal/adapter/http/dto"
	"collection-gateway/internal/core/ports"
	"collection-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// StaffHandler handles back-office login and listings.
type StaffHandler struct {
	authSvc  ports.StaffAuthService
	querySvc ports.QueryService
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(authSvc ports.StaffAuthService, querySvc ports.QueryService) *StaffHandler {
	return &StaffHandler{authSvc: authSvc, querySvc: querySvc}
}

// Login handles POST /api/v1/staff/login.
func (h *StaffHandler) Login(c *gin.Context) {
	var req dto.StaffLoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, expiry, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.StaffLoginResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}

// ListMerchants handles GET /api/v1/staff/merchants.
func (h *StaffHandler) ListMerchants(c *gin.Context) {
	var q dto.MerchantListQuery
	if !bindQuery(c, &q) {
		return
	}

	params := ports.MerchantListParams{Page: page(q.PageQuery)}
	if name := strings.TrimSpace(q.FirstName); name != "" {
		params.FirstName = &name
	}
	merchants, total, err := h.querySvc.ListMerchants(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, listOf(merchants, total, params.Page))
}

// GetMerchant handles GET /api/v1/staff/merchants/:id.
func (h *StaffHandler) GetMerchant(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	merchant, err := h.querySvc.GetMerchant(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchant)
}

// GetMerchantBalance handles GET /api/v1/staff/merchants/:id/balance.
func (h *StaffHandler) GetMerchantBalance(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	balances, err := h.querySvc.GetBalances(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, balances)
}

// ListPayouts handles GET /api/v1/staff/payouts.
func (h *StaffHandler) ListPayouts(c *gin.Context) {
	var q dto.PayoutListQuery
	if !bindQuery(c, &q) {
		return
	}

	params := ports.PayoutListParams{MerchantID: optionalUUID(q.MerchantID), Page: page(q.PageQuery)}
	payouts, total, err := h.querySvc.ListPayouts(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, listOf(payouts, total, params.Page))
}

// GetPayout handles GET /api/v1/staff/payouts/:id.
func (h *StaffHandler) GetPayout(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	payout, err := h.querySvc.GetPayout(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payout)
}

// ListTransactions handles GET /api/v1/staff/transactions.
func (h *StaffHandler) ListTransactions(c *gin.Context) {
	var q dto.TransactionListQuery
	if !bindQuery(c, &q) {
		return
	}

	params := transactionFilters(q)
	txns, total, err := h.querySvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, listOf(txns, total, params.Page))
}
