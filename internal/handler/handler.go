package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/tenant-auth/pkg/response"
)

// parseID reads the :id path parameter, writing a 400 when it is not an integer
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid id")
		return 0, false
	}
	return id, true
}
