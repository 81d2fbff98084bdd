package server

import (
	"errors"
	"net/http"

	"github.com/donok1/wedding-quiz/internal/room"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type bindMessages map[string]map[string]string

type roomURI struct {
	Code string `uri:"code" binding:"required,roomcode"`
}

func bindJSON(c *gin.Context, req any, messages bindMessages, fallback string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, http.StatusBadRequest, resolveBindError(err, messages, fallback))
		return false
	}
	return true
}

// bindRoom binds and normalizes the :code path parameter.
func bindRoom(c *gin.Context) (string, bool) {
	var uri roomURI
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, http.StatusBadRequest, resolveBindError(err, bindMessages{
			"Code": {"required": "room code is required", "roomcode": "invalid room code"},
		}, "invalid room code"))
		return "", false
	}
	code, _ := room.NormalizeCode(uri.Code)
	return code, true
}

func bindQuery(c *gin.Context, req any, messages bindMessages, fallback string) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		writeError(c, http.StatusBadRequest, resolveBindError(err, messages, fallback))
		return false
	}
	return true
}

func resolveBindError(err error, messages bindMessages, fallback string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if fieldMsgs, ok := messages[verr.Field()]; ok {
				if msg, ok := fieldMsgs[verr.Tag()]; ok {
					return msg
				}
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	return "invalid request"
}
