package handler

import (
	"collection-gateway/internal/adapter/http/dto"
	"collection-gateway/internal/adapter/http/middleware"
	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"
	"collection-gateway/pkg/apperror"
	"collection-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// merchantID returns the merchant set by MerchantAuth. It writes the error
// response itself when the route was mounted without authentication.
func merchantID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(middleware.CtxMerchantID)
	id, ok := v.(uuid.UUID)
	if !exists || !ok {
		response.Error(c, apperror.ErrMissingCredentials())
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds and sanitizes the request body into req.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

func bindQuery(c *gin.Context, q any) bool {
	if err := c.ShouldBindQuery(q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	return true
}

// pathUUID parses a UUID path parameter. A malformed id is a validation
// error, not a lookup miss.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.Validation("Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUID parses a filter already checked by the uuid validator.
func optionalUUID(s string) *uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

// currency parses a code already checked by the currency validator.
func currency(code string) domain.Currency {
	cur, _ := domain.ParseCurrency(code)
	return cur
}

func page(q dto.PageQuery) ports.Page {
	return ports.Page{Limit: q.Limit, Offset: q.Offset}
}

func listOf[T any](items []T, total int64, p ports.Page) dto.ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return dto.ListResponse[T]{Items: items, Total: total, Limit: p.Limit, Offset: p.Offset}
}

// transactionFilters converts the optional query filters.
func transactionFilters(q dto.TransactionListQuery) ports.TransactionListParams {
	params := ports.TransactionListParams{MerchantID: optionalUUID(q.MerchantID), Page: page(q.PageQuery)}
	if q.Status != "" {
		status := domain.TransactionStatus(q.Status)
		params.Status = &status
	}
	if q.Currency != "" {
		cur := currency(q.Currency)
		params.Currency = &cur
	}
	return params
}
