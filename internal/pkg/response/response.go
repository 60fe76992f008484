package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Machine-readable error codes carried in the failure envelope.
const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeConflict            = "CONFLICTING_TRANSITION"
	CodeValidation          = "VALIDATION_ERROR"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeDuplicateRequest    = "DUPLICATE_REQUEST"
	CodeInternal            = "INTERNAL_ERROR"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeMissingRequiredRole = "MISSING_REQUIRED_ROLE"
)

// Pagination metadata returned with paginated responses.
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	TotalPage   int   `json:"total_page"`
	Size        int   `json:"size"`
	HasNextPage bool  `json:"has_next_page"`
}

// envelope is the uniform response body: status is "success" or "failure",
// code is a stable machine-readable string, data carries the payload.
type envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Data    interface{} `json:"data,omitempty"`
}

type pagedData struct {
	Items      interface{} `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

// OK sends a 200 success envelope.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Status: "success", Message: "ok", Code: "OK", Data: data})
}

// Paged sends a paginated success envelope.
func Paged(c *gin.Context, items interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, envelope{
		Status:  "success",
		Message: "ok",
		Code:    "OK",
		Data:    pagedData{Items: items, Pagination: pagination},
	})
}

// Created sends a 201 success envelope.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Status: "success", Message: "created", Code: "OK", Data: data})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail sends an arbitrary failure envelope.
func Fail(c *gin.Context, httpStatus int, code, message string) {
	c.AbortWithStatusJSON(httpStatus, envelope{Status: "failure", Message: message, Code: code})
}

// BadRequest sends a 400 failure.
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, CodeBadRequest, message)
}

// Unauthorized sends a 401 failure.
func Unauthorized(c *gin.Context) {
	Fail(c, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
}

// Forbidden sends a 403 failure.
func Forbidden(c *gin.Context) {
	Fail(c, http.StatusForbidden, CodeForbidden, "you are not allowed to do that")
}

// ForbiddenMsg sends a 403 failure with a custom message.
func ForbiddenMsg(c *gin.Context, code, message string) {
	Fail(c, http.StatusForbidden, code, message)
}

// NotFound sends a 404 failure.
func NotFound(c *gin.Context) {
	Fail(c, http.StatusNotFound, CodeNotFound, "resource not found")
}

// NotFoundMsg sends a 404 failure with a custom message.
func NotFoundMsg(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, CodeNotFound, message)
}

// Conflict sends a 409 failure.
func Conflict(c *gin.Context, code, message string) {
	Fail(c, http.StatusConflict, code, message)
}

// UnprocessableEntity sends a 422 failure with field-level detail in data.
func UnprocessableEntity(c *gin.Context, message string, fields interface{}) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, envelope{
		Status:  "failure",
		Message: message,
		Code:    CodeValidation,
		Data:    fields,
	})
}

// MethodNotAllowed sends a 405 failure.
func MethodNotAllowed(c *gin.Context) {
	Fail(c, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
}

// InternalError sends a generic 500 failure. The underlying error is logged by
// the caller; it never reaches the client.
func InternalError(c *gin.Context) {
	Fail(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
}
