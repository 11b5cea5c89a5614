// Package model 包含了应用的数据模型定义。
package model

import (
	"encoding/json"
	"fmt"
)

// Weekdays 是课程安排中允许出现的星期名称。
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// IsWeekday 判断给定名称是否为合法的星期名称（区分大小写）。
func IsWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// Course 代表目录中的一门课程。
type Course struct {
	ID                string         `json:"id,omitempty"`
	Name              string         `json:"name"`
	Code              string         `json:"code"`
	Credits           int            `json:"credits"`
	Department        string         `json:"department"`
	DepartmentCode    string         `json:"departmentCode"`
	Term              string         `json:"term"`
	Year              int            `json:"year"`
	Schedule          Schedule       `json:"schedule"`
	Mode              string         `json:"mode"`
	Location          string         `json:"location"`
	Availability      Availability   `json:"availability"`
	Professor         Professor      `json:"professor"`
	Prerequisites     []string       `json:"prerequisites"`
	Textbooks         []string       `json:"textbooks"`
	Description       string         `json:"description"`
	Evaluation        *Evaluation    `json:"evaluation,omitempty"`
	GradeDistribution map[string]int `json:"gradeDistribution,omitempty"`
}

// Key 返回课程在目录中的唯一标识：优先使用 id，缺省时退回到课程代码。
func (c Course) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Code
}

// Schedule 描述上课的星期与起止时间（"HH:MM"）。
type Schedule struct {
	Days      []string `json:"days"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
}

// Availability 描述选课人数与容量。
type Availability struct {
	Enrolled int `json:"enrolled"`
	Total    int `json:"total"`
}

// NearCapacity 当剩余名额不超过总容量的 10% 时返回 true。
func (a Availability) NearCapacity() bool {
	if a.Total <= 0 {
		return true
	}
	return a.Total-a.Enrolled <= a.Total/10
}

// Professor 是授课教师信息。目录文件中既可能是一个字符串（仅姓名），
// 也可能是包含 id/department/email/rating 的扩展对象。
type Professor struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name"`
	Department string  `json:"department,omitempty"`
	Email      string  `json:"email,omitempty"`
	Rating     float64 `json:"rating,omitempty"`
}

// UnmarshalJSON 同时兼容字符串与对象两种写法。
func (p *Professor) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*p = Professor{Name: name}
		return nil
	}
	type plain Professor
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("professor must be a string or an object: %w", err)
	}
	*p = Professor(obj)
	return nil
}

// Evaluation 是课程评价汇总。
type Evaluation struct {
	Overall      float64   `json:"overall"`
	Difficulty   float64   `json:"difficulty"`
	Workload     float64   `json:"workload"`
	Organization float64   `json:"organization"`
	Comments     []Comment `json:"comments,omitempty"`
}

// Comment 是一条学生评价。
type Comment struct {
	Text   string  `json:"text"`
	Date   string  `json:"date"`
	Rating float64 `json:"rating"`
}
