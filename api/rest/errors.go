package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/platemarket/game/economy"
	"github.com/kasuganosora/platemarket/game/quest"
	"github.com/kasuganosora/platemarket/game/session"
	"github.com/kasuganosora/platemarket/game/shop"
)

var statusByError = []struct {
	err    error
	status int
}{
	{economy.ErrInsufficientFunds, http.StatusPaymentRequired},
	{economy.ErrCollectionFull, http.StatusConflict},
	{economy.ErrInvalidBid, http.StatusBadRequest},
	{economy.ErrGateNotMet, http.StatusForbidden},
	{session.ErrPurchaseBlocked, http.StatusForbidden},
	{session.ErrUnknownAction, http.StatusBadRequest},
	{economy.ErrPlateNotFound, http.StatusNotFound},
	{economy.ErrAuctionNotFound, http.StatusNotFound},
	{shop.ErrUnknownShop, http.StatusNotFound},
	{quest.ErrUnknownQuest, http.StatusNotFound},
	{session.ErrUnknownJob, http.StatusNotFound},
	{session.ErrSessionNotFound, http.StatusNotFound},
}

// StatusFor maps a domain error to its HTTP status code.
func StatusFor(err error) int {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": msg})
}
