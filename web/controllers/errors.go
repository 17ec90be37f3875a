package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-agentcommerce/payment/intent"
)

func statusFor(kind intent.Kind) int {
	switch kind {
	case intent.KindNotFound:
		return http.StatusNotFound
	case intent.KindConflict, intent.KindUnavailable:
		return http.StatusConflict
	case intent.KindValidation:
		return http.StatusBadRequest
	case intent.KindExpired:
		return http.StatusGone
	case intent.KindPaymentVerificationFailed, intent.KindPaymentSettlementFailed:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes an intent error as {error, kind, status}.
func abortWithError(c *gin.Context, err error) {
	kind := intent.KindOf(err)
	body := gin.H{"error": err.Error(), "kind": kind}
	var ie *intent.Error
	if errors.As(err, &ie) && ie.Status != "" {
		body["status"] = ie.Status
	}
	if kind == intent.KindInternal {
		body["error"] = "internal error"
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(statusFor(kind), body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "kind": intent.KindValidation})
}
