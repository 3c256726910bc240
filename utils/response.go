package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lifeflow/lifeflow/schedule"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// FieldError is one rejected input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Created returns a standard response for a newly created resource.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusCreated, 0, "created", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// ValidationFailed answers 400 with every field error carried by err.
// It reports false, writing nothing, when err holds no validation errors.
func ValidationFailed(ctx *gin.Context, code int, err error) bool {
	fe := schedule.FieldErrors(err)
	if len(fe) == 0 {
		return false
	}
	fields := make([]FieldError, 0, len(fe))
	for _, e := range fe {
		fields = append(fields, FieldError{Field: e.Field, Reason: e.Reason})
	}
	Respond(ctx, http.StatusBadRequest, code, fe[0].Error(), gin.H{"fields": fields})
	return true
}
