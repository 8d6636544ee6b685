package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reliancemove/service-quote/internal/common/domain"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Meta carries pagination totals.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Detailed is implemented by errors that carry an upstream payload to pass through.
type Detailed interface {
	error
	StatusCode() int
	Payload() interface{}
}

// Success writes 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Accepted writes 202 with data.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Envelope{Success: true, Data: data})
}

// NoContent writes 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated writes 200 with a page of items and its totals.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Meta:    &Meta{Total: total, Page: page, Limit: limit, TotalPages: pages},
	})
}

// BadRequest writes 400 with a validation error.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{
		Error: &ErrorBody{Code: domain.CodeValidation, Message: message},
	})
}

// NotFound writes 404.
func NotFound(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusNotFound, Envelope{
		Error: &ErrorBody{Code: domain.CodeNotFound, Message: message},
	})
}

// Error maps err to a status code and writes it. Upstream payloads are passed through verbatim.
func Error(c *gin.Context, err error) {
	var detailed Detailed
	if errors.As(err, &detailed) {
		status := detailed.StatusCode()
		if status < 400 {
			status = http.StatusBadGateway
		}
		c.AbortWithStatusJSON(status, Envelope{
			Error: &ErrorBody{Code: domain.CodeUpstream, Message: detailed.Error(), Details: detailed.Payload()},
		})
		return
	}

	var de *domain.DomainError
	if errors.As(err, &de) {
		c.AbortWithStatusJSON(statusFor(de.Code), Envelope{
			Error: &ErrorBody{Code: de.Code, Message: de.Message, Field: de.Field},
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, Envelope{
		Error: &ErrorBody{Code: "INTERNAL_ERROR", Message: "internal server error"},
	})
}

func statusFor(code string) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeInvalidState:
		return http.StatusUnprocessableEntity
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
