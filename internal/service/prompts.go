package service

import (
	"course-advisor-go/internal/model"
	"fmt"
	"strings"
)

// buildAdvisorInstruction 构建对话顾问的 system 指令，目录上下文只嵌入一次。
func buildAdvisorInstruction(catalogContext string) string {
	var b strings.Builder
	b.WriteString("You are a university course advisor AI. Your job is to help students pick suitable courses ")
	b.WriteString("based on their interests, goals, and the course catalog below. ")
	b.WriteString("You must only recommend courses from the provided list and explain your reasoning.\n\n")
	b.WriteString("Here is the course catalog:\n\n")
	b.WriteString(catalogContext)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Do not use bold text or any markdown formatting. Do not add backticks (`) or code blocks (```).\n")
	b.WriteString("- Do not give any information or context outside of the course catalog provided.\n")
	b.WriteString("- When you mention a professor, give only the professor's name. Never mention the professor's id, rating, department or email.\n")
	b.WriteString("- If a requested course is at or near capacity, say so and suggest a similar course from the catalog that still has seats.\n")
	b.WriteString("- Respond strictly with HTML body content only, in this shape:\n")
	b.WriteString("<html>\n<body>\n[Your response content here]\n</body>\n</html>\n")
	return b.String()
}

// recommendationSchema 是推荐结果的字段说明，附带示例值。
const recommendationSchema = `[
  {
    "id": "1",
    "name": "Introduction to Machine Learning",
    "code": "CS 4780",
    "department": "Computer Science",
    "credits": 4,
    "term": "Fall",
    "year": 2025,
    "description": "Supervised and unsupervised learning, model evaluation and neural networks.",
    "professor": {"id": "P12", "name": "Dr. Jane Smith", "department": "Computer Science", "email": "jsmith@university.edu", "rating": 4.6},
    "location": "Gates Hall 114",
    "schedule": {"days": ["Monday", "Wednesday"], "startTime": "10:10", "endTime": "11:25"},
    "mode": "in-person",
    "availability": {"enrolled": 120, "total": 150},
    "prerequisites": ["CS 2110", "MATH 2940"],
    "textbooks": ["Pattern Recognition and Machine Learning"],
    "evaluation": {"overall": 4.4, "difficulty": 3.9, "workload": 3.7, "organization": 4.2, "comments": [{"text": "Challenging but rewarding.", "date": "2024-12-15", "rating": 4.5}]},
    "gradeDistribution": {"A": 40, "B": 50, "C": 20, "D": 5, "F": 2}
  }
]`

// buildRecommendPrompt 构建结构化推荐的 prompt，要求模型只返回 JSON 数组。
func buildRecommendPrompt(catalogContext string, req model.RecommendRequest) string {
	var b strings.Builder
	b.WriteString("You are a university course advisor AI. Recommend courses for a student.\n")
	fmt.Fprintf(&b, "Career goal: %s\n", req.CareerGoal)
	fmt.Fprintf(&b, "Subject of interest: %s\n", req.Subject)
	if t := strings.TrimSpace(req.EnrollmentType); t != "" {
		fmt.Fprintf(&b, "The student prefers %s enrollment; only recommend courses whose mode matches this preference.\n", t)
	}
	if len(req.AvailableDays) > 0 {
		fmt.Fprintf(&b, "The student is only available on %s; only recommend courses that meet exclusively on these days.\n",
			strings.Join(req.AvailableDays, ", "))
	}
	b.WriteString("\nPrefer courses from this catalog:\n\n")
	b.WriteString(catalogContext)
	b.WriteString("\n\nRespond with only a JSON array of one or more course objects and nothing else: ")
	b.WriteString("no prose, no markdown, no code fences. Every object must use exactly these field names ")
	b.WriteString("(the values below are examples):\n")
	b.WriteString(recommendationSchema)
	b.WriteString("\nThe fields id, name, code, schedule and credits are required. credits and year are integers, ")
	b.WriteString("schedule days are full English weekday names and times use 24-hour HH:MM.\n")
	return b.String()
}
