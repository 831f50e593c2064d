package handler

import (
	"errors"
	"net/http"

	"affiliate-ledger/internal/adapter/http/dto"
	"affiliate-ledger/internal/core/ports"
	"affiliate-ledger/pkg/apperror"
	"affiliate-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// TrackHandler handles the tracked payment and signup endpoints.
type TrackHandler struct {
	commissionSvc ports.CommissionService
	signupSvc     ports.SignupService
	notifier      ports.Notifier
}

// NewTrackHandler creates a new TrackHandler. notifier may be nil.
func NewTrackHandler(commissionSvc ports.CommissionService, signupSvc ports.SignupService, notifier ports.Notifier) *TrackHandler {
	return &TrackHandler{commissionSvc: commissionSvc, signupSvc: signupSvc, notifier: notifier}
}

// TrackPayment handles POST /api/v1/track/payment/:tracking_id.
func (h *TrackHandler) TrackPayment(c *gin.Context) {
	var uri dto.TrackURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	var req dto.TrackPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	req.Normalize()

	credit, err := h.commissionSvc.HandlePayment(c.Request.Context(), ports.PaymentEvent{
		TrackingID: uri.TrackingID,
		Amount:     *req.Amount,
		Currency:   req.Currency,
		Trace:      req.Trace,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if credit == nil {
		response.OK(c, dto.TrackPaymentResponse{Credited: false})
		return
	}

	if h.notifier != nil {
		h.notifier.NotifyCommission(credit)
	}

	response.OK(c, dto.TrackPaymentResponse{
		Credited: true,
		EntryID:  credit.EntryID.String(),
		Amount:   &credit.Amount,
		Currency: credit.Currency,
	})
}

// TrackSignup handles POST /api/v1/track/signup/:tracking_id.
func (h *TrackHandler) TrackSignup(c *gin.Context) {
	var uri dto.TrackURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	signups, err := h.signupSvc.HandleSignup(c.Request.Context(), uri.TrackingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.notifier != nil {
		h.notifier.NotifySignup(uri.TrackingID, signups)
	}

	response.OK(c, dto.TrackSignupResponse{TrackingID: uri.TrackingID, Signups: signups})
}

// bindError maps a JSON binding failure to the error envelope.
func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ErrBodyTooLarge()
	}
	return apperror.Validation(err.Error())
}
