package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cuongbtq/interpreter-booking/internal/api/dto"
	"github.com/cuongbtq/interpreter-booking/internal/booking"
	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/messages"
	"github.com/gin-gonic/gin"
)

// UserHeader carries the id of the acting user
const UserHeader = "X-User-ID"

const actorKey = "actor"

// Error codes the HTTP layer adds to the booking codes
const (
	CodeInvalidRequest  = "invalid_request"
	CodeUnauthenticated = "unauthenticated"
	CodeNotFound        = "not_found"
	CodeInternal        = "internal_error"
)

// SetActor stores the resolved user on the request context
func SetActor(c *gin.Context, user *domain.User) {
	c.Set(actorKey, user)
}

// Actor returns the user resolved by the auth middleware
func Actor(c *gin.Context) *domain.User {
	if v, ok := c.Get(actorKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// requestLocale picks the catalog locale from Accept-Language
func (h *JobHandler) requestLocale(c *gin.Context) string {
	lang := strings.ToLower(c.GetHeader("Accept-Language"))
	switch {
	case strings.HasPrefix(lang, messages.LocaleEnglish):
		return messages.LocaleEnglish
	case strings.HasPrefix(lang, messages.LocaleSwedish):
		return messages.LocaleSwedish
	}
	return h.catalog.Locale()
}

// respond writes an operation outcome. A fail result is a refused business
// rule and maps to 422, or 403 when the actor has no rights on the job.
func (h *JobHandler) respond(c *gin.Context, successStatus int, res *booking.Result, err error) {
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !res.OK() {
		status := http.StatusUnprocessableEntity
		if res.Code == domain.CodeForbidden {
			status = http.StatusForbidden
		}
		c.JSON(status, res)
		return
	}
	c.JSON(successStatus, res)
}

// respondError maps engine errors to HTTP statuses
func (h *JobHandler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	locale := h.requestLocale(c)

	var (
		ve *domain.ValidationError
		ce *domain.ConflictError
		nf *domain.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		body := dto.NewErrorResponse(ve.Code, h.catalog.TextIn(locale, ve.Code, nil))
		body.Field = ve.Field
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &ce):
		c.JSON(http.StatusConflict, dto.NewErrorResponse(ce.Code, h.catalog.TextIn(locale, ce.Code, ce.Args)))
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(CodeNotFound, nf.Error()))
	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(CodeInternal, "Internal server error"))
	}
}

func (h *JobHandler) badRequest(c *gin.Context, message string, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(CodeInvalidRequest, message))
}

func (h *JobHandler) forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, dto.NewErrorResponse(domain.CodeForbidden, h.catalog.TextIn(h.requestLocale(c), domain.CodeForbidden, nil)))
}
