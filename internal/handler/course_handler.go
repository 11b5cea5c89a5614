package handler

import (
	"course-advisor-go/internal/catalog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CourseHandler 提供只读的课程目录接口。
type CourseHandler struct {
	catalog *catalog.Catalog
}

// NewCourseHandler 创建一个新的 CourseHandler。
func NewCourseHandler(cat *catalog.Catalog) *CourseHandler {
	return &CourseHandler{catalog: cat}
}

// ListCourses 原样返回启动时加载的目录文档。
func (h *CourseHandler) ListCourses(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", h.catalog.Raw())
}

// GetCourse 按课程代码返回单门课程。
func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, ok := h.catalog.FindByCode(c.Param("code"))
	if !ok {
		respondStatus(c, http.StatusNotFound, "course not found")
		return
	}
	respondOK(c, "success", course)
}
