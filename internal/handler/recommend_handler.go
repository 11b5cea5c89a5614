package handler

import (
	"course-advisor-go/internal/model"
	"course-advisor-go/internal/service"

	"github.com/gin-gonic/gin"
)

// RecommendHandler 处理结构化选课推荐请求。
type RecommendHandler struct {
	service service.RecommendService
}

func NewRecommendHandler(service service.RecommendService) *RecommendHandler {
	return &RecommendHandler{service: service}
}

// RecommendRequest 定义了推荐 API 的请求体结构。
type RecommendRequest struct {
	CareerGoal     string   `json:"careerGoal" binding:"required,max=500"`
	Subject        string   `json:"subject" binding:"required,max=200"`
	EnrollmentType string   `json:"enrollmentType" binding:"omitempty,max=50"`
	AvailableDays  []string `json:"availableDays" binding:"omitempty,max=7,dive,weekday"`
}

// Recommend 返回一条或多条经过校验的课程推荐。
func (h *RecommendHandler) Recommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "Recommend", err)
		return
	}

	recs, err := h.service.Recommend(c.Request.Context(), model.RecommendRequest{
		CareerGoal:     req.CareerGoal,
		Subject:        req.Subject,
		EnrollmentType: req.EnrollmentType,
		AvailableDays:  req.AvailableDays,
	})
	if err != nil {
		respondError(c, "Recommend", err)
		return
	}
	respondOK(c, "success", recs)
}
