package handler

import (
	"affiliate-ledger/internal/adapter/http/dto"
	"affiliate-ledger/internal/core/ports"
	"affiliate-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// RatesHandler reports the published exchange rate snapshot.
type RatesHandler struct {
	status ports.RateStatus
	payout string
}

// NewRatesHandler creates a new RatesHandler.
func NewRatesHandler(status ports.RateStatus, payoutCurrency string) *RatesHandler {
	return &RatesHandler{status: status, payout: payoutCurrency}
}

// GetRates handles GET /api/v1/exchange/rates. Before the first publish it
// answers ready=false.
func (h *RatesHandler) GetRates(c *gin.Context) {
	snap := h.status.Snapshot()
	if snap == nil {
		response.OK(c, dto.RatesResponse{Ready: false, Base: h.payout})
		return
	}

	fetchedAt := snap.FetchedAt
	response.OK(c, dto.RatesResponse{
		Ready:     true,
		Base:      snap.Base,
		Provider:  snap.Provider,
		FetchedAt: &fetchedAt,
		Count:     len(snap.Rates),
		Rates:     snap.Rates,
	})
}
