// Package handler provides the HTTP handlers for the docchat API.
package handler

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/docchat/internal/docchat/middleware"
	"github.com/kart-io/docchat/pkg/errors"
	"github.com/kart-io/docchat/pkg/utils/response"
	"github.com/kart-io/docchat/pkg/validator"
)

// respond writes a success envelope and returns it to the pool.
func respond(c *gin.Context, data interface{}) {
	resp := response.Success(data).WithRequestID(middleware.GetRequestID(c.Request.Context()))
	c.JSON(resp.HTTPStatus(), resp)
	response.Release(resp)
}

// respondMessage writes a success envelope with a custom message.
func respondMessage(c *gin.Context, message string, data interface{}) {
	resp := response.SuccessWithMessage(message, data).WithRequestID(middleware.GetRequestID(c.Request.Context()))
	c.JSON(resp.HTTPStatus(), resp)
	response.Release(resp)
}

// respondError writes the error envelope for err. Errors without an errno in
// their chain map to an internal error.
func respondError(c *gin.Context, err error) {
	resp := response.ErrFromError(err).WithRequestID(middleware.GetRequestID(c.Request.Context()))
	c.JSON(resp.HTTPStatus(), resp)
	response.Release(resp)
}

// respondBindError writes a 400 envelope for request binding failures,
// keeping translated field messages when validation produced them.
func respondBindError(c *gin.Context, err error) {
	var verrs *validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		respondError(c, errors.ErrValidationFailed.WithMessage(verrs.Error()))
		return
	}
	respondError(c, errors.ErrBadRequest.WithMessage(err.Error()))
}
