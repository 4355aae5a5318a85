package server

import (
	"errors"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

var errBadParam = errors.New("invalid path parameter")

func parseID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param(name))
	if err != nil {
		AbortWithError(c, errBadParam)
		return 0, false
	}
	return id, true
}

func parseInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		AbortWithError(c, errBadParam)
		return 0, false
	}
	return v, true
}
