package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	transactiondomain "github.com/smallbiznis/billingledger/internal/transaction/domain"
)

func (s *Server) ListTransactions(c *gin.Context) {
	var query struct {
		Cursor       string `form:"cursor"`
		Limit        string `form:"limit"`
		Type         string `form:"type"`
		CustomerType string `form:"customer_type"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	limit := 0
	if raw := strings.TrimSpace(query.Limit); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, transactiondomain.ErrInvalidLimit)
			return
		}
		limit = parsed
	}

	resp, err := s.transactionSvc.ListTransactions(c.Request.Context(), transactiondomain.ListTransactionsRequest{
		Cursor:       query.Cursor,
		Limit:        limit,
		Type:         strings.TrimSpace(query.Type),
		CustomerType: strings.TrimSpace(query.CustomerType),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
