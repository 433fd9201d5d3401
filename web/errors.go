package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kcmvp/geoadmin/auth"
	"github.com/kcmvp/geoadmin/sqlx"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrMalformedBody = errors.New("malformed request body")
)

type problem struct {
	err     error
	status  int
	message string
}

// problems is matched in order; clients only ever see message.
var problems = []problem{
	{ErrUnknownTable, http.StatusNotFound, "table does not exist"},
	{ErrMalformedBody, http.StatusBadRequest, "malformed request body"},
	{sqlx.ErrInvalidArgument, http.StatusBadRequest, "invalid argument"},
	{sqlx.ErrKeyNotFound, http.StatusConflict, "row does not exist anymore"},
	{sqlx.ErrConstraintViolation, http.StatusConflict, "constraint violation"},
	{sqlx.ErrPoolExhausted, http.StatusServiceUnavailable, "database is busy, retry later"},
}

// StatusOf maps err to the HTTP status and the client message reported for it.
func StatusOf(err error) (int, string) {
	for _, p := range problems {
		if errors.Is(err, p.err) {
			return p.status, p.message
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// fail aborts c for err. Unauthorized callers are sent to the login page; everything
// else gets a JSON error and the cause is attached to the context for the request log.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, auth.ErrUnauthorized) {
		c.Redirect(http.StatusSeeOther, loginPath)
		c.Abort()
		return
	}
	status, message := StatusOf(err)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
