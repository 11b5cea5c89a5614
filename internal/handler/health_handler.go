package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health 进程启动后总是返回 OK。
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Course Selector API is running"})
}
