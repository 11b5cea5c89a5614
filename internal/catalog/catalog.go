// Package catalog 在启动时加载课程目录，并在进程生命周期内只读地提供给其他组件。
package catalog

import (
	"context"
	"course-advisor-go/internal/config"
	"course-advisor-go/internal/model"
	"course-advisor-go/pkg/storage"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Separator 连接各门课程摘要，构成完整的目录上下文。
const Separator = "\n---\n"

var ErrEmptyCatalog = errors.New("catalog: no courses found")

type document struct {
	Courses []model.Course `json:"courses"`
}

// Catalog 是加载后不可变的课程目录。
type Catalog struct {
	raw     []byte
	courses []model.Course
	byCode  map[string]int
	context string
}

// Load 解析 {"courses": [...]} 格式的目录文档并校验。
func Load(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}

	// Unmarshal 会拒绝文档之后的多余内容
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalog: malformed document: %w", err)
	}
	if len(doc.Courses) == 0 {
		return nil, ErrEmptyCatalog
	}

	seen := make(map[string]int, len(doc.Courses))
	byCode := make(map[string]int, len(doc.Courses))
	summaries := make([]string, 0, len(doc.Courses))
	for i, c := range doc.Courses {
		if strings.TrimSpace(c.Code) == "" || strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("catalog: course #%d is missing code or name", i)
		}
		if prev, ok := seen[c.Key()]; ok {
			return nil, fmt.Errorf("catalog: duplicate course identifier %q (#%d and #%d)", c.Key(), prev, i)
		}
		seen[c.Key()] = i
		if _, ok := byCode[c.Code]; !ok {
			byCode[c.Code] = i
		}
		summaries = append(summaries, Summarize(c))
	}

	return &Catalog{
		raw:     raw,
		courses: doc.Courses,
		byCode:  byCode,
		context: strings.Join(summaries, Separator),
	}, nil
}

// LoadFile 从本地文件加载目录。
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Open 根据配置选择本地文件或 MinIO 对象作为目录来源。
func Open(ctx context.Context, cfg config.CatalogConfig, bucket string) (*Catalog, error) {
	switch cfg.Source {
	case config.CatalogSourceMinIO:
		obj, err := storage.OpenObject(ctx, bucket, cfg.Object)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		defer obj.Close()
		return Load(obj)
	default:
		return LoadFile(cfg.Path)
	}
}

// Summarize 将一门课程渲染为固定格式的多行文本。
func Summarize(c model.Course) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course Name: %s\n", c.Name)
	fmt.Fprintf(&b, "Code: %s\n", c.Code)
	fmt.Fprintf(&b, "Credits: %d\n", c.Credits)
	fmt.Fprintf(&b, "Department: %s (%s)\n", c.Department, c.DepartmentCode)
	fmt.Fprintf(&b, "Term: %s %d\n", c.Term, c.Year)
	fmt.Fprintf(&b, "Schedule: %s %s-%s\n", strings.Join(c.Schedule.Days, ", "), c.Schedule.StartTime, c.Schedule.EndTime)
	fmt.Fprintf(&b, "Mode: %s\n", c.Mode)
	fmt.Fprintf(&b, "Location: %s\n", c.Location)
	fmt.Fprintf(&b, "Availability: %d/%d enrolled\n", c.Availability.Enrolled, c.Availability.Total)
	fmt.Fprintf(&b, "Professor: %s\n", c.Professor.Name)
	fmt.Fprintf(&b, "Prerequisites: %s\n", joinOrNone(c.Prerequisites))
	fmt.Fprintf(&b, "Textbooks: %s\n", joinOrNone(c.Textbooks))
	fmt.Fprintf(&b, "Description: %s\n", c.Description)
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

// Context 返回所有课程摘要拼接而成的目录上下文。
func (c *Catalog) Context() string {
	return c.context
}

// Courses 返回课程列表的副本。
func (c *Catalog) Courses() []model.Course {
	out := make([]model.Course, len(c.courses))
	copy(out, c.courses)
	return out
}

// Len 返回课程数量。
func (c *Catalog) Len() int {
	return len(c.courses)
}

// Raw 返回原始目录文档，GET /courses 原样输出。
func (c *Catalog) Raw() []byte {
	return c.raw
}

// FindByCode 按课程代码查找课程（大小写不敏感）。
func (c *Catalog) FindByCode(code string) (model.Course, bool) {
	if i, ok := c.byCode[code]; ok {
		return c.courses[i], true
	}
	for _, course := range c.courses {
		if strings.EqualFold(course.Code, code) {
			return course, true
		}
	}
	return model.Course{}, false
}
