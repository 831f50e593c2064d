package dto

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	safeStringRe   = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)
	currencyCodeRe = regexp.MustCompile(`^[a-zA-Z]{3}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("currency_code", validateCurrencyCode)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateCurrencyCode accepts three ASCII letters in any case, surrounding
// whitespace allowed.
func validateCurrencyCode(fl validator.FieldLevel) bool {
	return currencyCodeRe.MatchString(strings.TrimSpace(fl.Field().String()))
}

// Normalize canonicalises a bound request: the currency is trimmed and
// upper-cased, the trace loses control characters and surrounding space,
// and an empty trace becomes nil.
func (r *TrackPaymentRequest) Normalize() {
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))

	if r.Trace == nil {
		return
	}
	trace := strings.TrimSpace(strings.Map(func(c rune) rune {
		if unicode.IsControl(c) {
			return -1
		}
		return c
	}, *r.Trace))
	if trace == "" {
		r.Trace = nil
		return
	}
	r.Trace = &trace
}
