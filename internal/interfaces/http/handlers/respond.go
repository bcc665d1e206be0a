// Package handlers holds the gin HTTP handlers for the registration,
// hour-logging, reporting, enforcement, and analytics APIs.
package handlers

import (
	stderrors "errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opencivic/lobbyreg/pkg/errors"
)

// errorBody is the JSON error envelope every failed request returns.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// listMeta carries pagination info alongside list payloads.
type listMeta struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	body := errorBody{Code: string(code), Message: errors.DefaultMessageForCode(code)}

	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		body.Message = ae.Message
		body.Detail = ae.Detail
	}
	c.AbortWithStatusJSON(errors.HTTPStatusForCode(code), gin.H{"error": body})
}

func respondList(c *gin.Context, status int, items interface{}, total int64, limit, offset int) {
	c.JSON(status, gin.H{
		"items": items,
		"meta":  listMeta{Total: total, Limit: limit, Offset: offset},
	})
}

// queryInt parses an integer query parameter, falling back on absence or
// garbage.
func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func pagination(c *gin.Context) (limit, offset int) {
	return queryInt(c, "limit", 50), queryInt(c, "offset", 0)
}
