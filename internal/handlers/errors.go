package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nwssu/gymdesk/backend/internal/services"
	"github.com/nwssu/gymdesk/backend/pkg/logger"
	"github.com/nwssu/gymdesk/backend/pkg/response"
)

// respondError maps service errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	var (
		ve *services.ValidationError
		nf *services.NotFoundError
		ce *services.ConflictError
		te *services.TransactionError
	)
	switch {
	case errors.As(err, &ve):
		response.Error(c, response.NewInvalidField(ve.Field, ve.Message))
	case errors.As(err, &nf):
		response.Error(c, response.NewNotFound(nf.Error()))
	case errors.As(err, &ce):
		response.Error(c, response.NewConflict("the request collided with a concurrent change, please retry"))
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Error(c, response.NewUnauthorized(err.Error()))
	case errors.Is(err, services.ErrAccountNotActive):
		response.Error(c, response.NewForbidden("account is not activated, activate it with your member code first"))
	case errors.As(err, &te):
		logger.Error().Err(err).Str("request_id", c.GetString(logger.RequestIDKey)).Str("op", te.Op).Msg("transaction failed")
		response.Error(c, response.NewServerError("could not save changes, nothing was modified"))
	default:
		logger.Error().Err(err).Str("request_id", c.GetString(logger.RequestIDKey)).Str("path", c.FullPath()).Msg("request failed")
		response.Error(c, err)
	}
}

// parseID reads the :id path parameter.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}
