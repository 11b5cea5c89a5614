package handler

import (
	"course-advisor-go/internal/model"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,64}$`)
	registerOnce    sync.Once
)

// RegisterValidators 向 gin 的校验器注册自定义规则：weekday 与 username。
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
			return model.IsWeekday(fl.Field().String())
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
	})
}

// describeBindError 将 validator 的错误转成简短可读的描述。
func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "malformed JSON body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "weekday":
			msgs = append(msgs, fmt.Sprintf("%s must be a weekday name such as Monday", field))
		case "username":
			msgs = append(msgs, fmt.Sprintf("%s must be 3-64 letters, digits, '.', '_' or '-'", field))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s violates %s=%s", field, fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
