package validator

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Validator 定义校验器接口
type Validator interface {
	// Struct 校验结构体
	Struct(s any) error

	// StructCtx 带上下文校验结构体
	StructCtx(ctx context.Context, s any) error

	// GetValidator 获取底层的 validator 实例
	GetValidator() *validator.Validate
}

// FieldError 字段错误
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationErrors 翻译后的校验错误集合
type ValidationErrors struct {
	Fields  []FieldError
	message string
}

func (ve *ValidationErrors) Error() string {
	return ve.message
}

// IsValidationError 检查是否为校验错误
func IsValidationError(err error) bool {
	var ve *ValidationErrors
	return errors.As(err, &ve)
}

// Validate 全局校验器实例
var (
	Validate Validator
	once     sync.Once
)

func init() {
	once.Do(func() {
		Validate = New()
	})
}

type validatorImpl struct {
	validator *validator.Validate
	trans     ut.Translator
}

// New 创建新的校验器实例
func New() Validator {
	v := &validatorImpl{
		validator: validator.New(),
	}

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	if trans, found := uni.GetTranslator("en"); found {
		v.trans = trans
		_ = en_translations.RegisterDefaultTranslations(v.validator, trans)
	}

	return v
}

// Struct 校验结构体
func (v *validatorImpl) Struct(s any) error {
	if s == nil {
		return errors.New("validation target cannot be nil")
	}
	return v.translateError(v.validator.Struct(s))
}

// StructCtx 带上下文校验结构体
func (v *validatorImpl) StructCtx(ctx context.Context, s any) error {
	if s == nil {
		return errors.New("validation target cannot be nil")
	}
	return v.translateError(v.validator.StructCtx(ctx, s))
}

// GetValidator 获取底层的 validator 实例
func (v *validatorImpl) GetValidator() *validator.Validate {
	return v.validator
}

// translateError 翻译错误
func (v *validatorImpl) translateError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || v.trans == nil {
		return err
	}

	result := &ValidationErrors{}
	var messages []string
	for _, fe := range validationErrors {
		message := fe.Translate(v.trans)
		result.Fields = append(result.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: message,
		})
		messages = append(messages, message)
	}
	result.message = strings.Join(messages, "; ")

	return result
}
