package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RecommendRequest 是结构化选课推荐的输入。
type RecommendRequest struct {
	CareerGoal     string   `json:"careerGoal"`
	Subject        string   `json:"subject"`
	EnrollmentType string   `json:"enrollmentType,omitempty"`
	AvailableDays  []string `json:"availableDays,omitempty"`
}

// Recommendation 是模型返回的一条课程推荐，只校验形状，不与真实目录比对。
type Recommendation struct {
	ID                CourseID       `json:"id"`
	Name              string         `json:"name"`
	Code              string         `json:"code"`
	Department        string         `json:"department,omitempty"`
	Credits           int            `json:"credits"`
	Term              string         `json:"term,omitempty"`
	Year              int            `json:"year,omitempty"`
	Description       string         `json:"description,omitempty"`
	Professor         *Professor     `json:"professor,omitempty"`
	Location          string         `json:"location,omitempty"`
	Schedule          Schedule       `json:"schedule"`
	Mode              string         `json:"mode,omitempty"`
	Availability      *Availability  `json:"availability,omitempty"`
	Prerequisites     []string       `json:"prerequisites,omitempty"`
	Textbooks         []string       `json:"textbooks,omitempty"`
	Evaluation        *Evaluation    `json:"evaluation,omitempty"`
	GradeDistribution map[string]int `json:"gradeDistribution,omitempty"`
}

// CourseID 接受 JSON 字符串或数字，统一保存为字符串。
type CourseID string

func (id *CourseID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = CourseID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number")
	}
	*id = CourseID(n.String())
	return nil
}
