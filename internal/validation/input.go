package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
)

// Константы валидации
const (
	MinQuestionLength   = 3
	MaxQuestionLength   = 20000
	MaxAttachmentsCount = 30
	MaxAttachmentName   = 255
	MaxAttachmentSize   = 200 << 20 // 200 MB
	MaxVersionNameLen   = 100
	MaxNotesLength      = 2000
	MaxCriteriaCount    = 100
)

const defaultMimeType = "application/octet-stream"

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateQuestionText проверяет текст запроса клиента.
func ValidateQuestionText(text string) error {
	if err := ValidateNonEmpty("текст запроса", text); err != nil {
		return err
	}
	return ValidateLength("текст запроса", strings.TrimSpace(text), MinQuestionLength, MaxQuestionLength)
}

// ValidateAttachment проверяет метаданные одного вложения.
func ValidateAttachment(name string, size int64) error {
	if err := ValidateNonEmpty("имя вложения", name); err != nil {
		return err
	}
	if err := ValidateLength("имя вложения", name, 0, MaxAttachmentName); err != nil {
		return err
	}
	if size < 0 {
		return fmt.Errorf("размер вложения не может быть отрицательным")
	}
	if size > MaxAttachmentSize {
		return fmt.Errorf("размер вложения не может превышать %d МБ", MaxAttachmentSize>>20)
	}
	return nil
}

// ValidateAttachmentsCount ограничивает количество вложений в одном запросе.
func ValidateAttachmentsCount(n int) error {
	if n > MaxAttachmentsCount {
		return fmt.Errorf("количество вложений не может превышать %d", MaxAttachmentsCount)
	}
	return nil
}

// AttachmentType возвращает MIME тип вложения: заявленный клиентом или определённый по расширению.
func AttachmentType(name, declared string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return strings.ToLower(declared)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return defaultMimeType
	}
	kind := filetype.GetType(ext)
	if kind == filetype.Unknown || kind.MIME.Value == "" {
		return defaultMimeType
	}
	return kind.MIME.Value
}

// ValidateCustomerType проверяет тип клиента, пустое значение допустимо.
func ValidateCustomerType(customerType string, valid map[string]struct{}) error {
	if customerType == "" {
		return nil
	}
	if _, ok := valid[customerType]; !ok {
		return fmt.Errorf("неверный тип клиента: %s", customerType)
	}
	return nil
}
