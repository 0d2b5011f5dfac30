package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetWallet handles GET /api/wallet: the caller's escrow balance.
func (h *Handler) GetWallet(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), h.store.DB(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "balance": balance})
}

type topUpRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// TopUpWallet handles POST /api/wallet/topup. Funding normally arrives
// through the payment gateway; this endpoint is the escrow credit entry
// point it calls back into.
func (h *Handler) TopUpWallet(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ledger.Credit(c.Request.Context(), h.store.DB(), userID, req.Amount); err != nil {
		abortWithError(c, err)
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), h.store.DB(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "balance": balance})
}
