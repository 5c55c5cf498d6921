package apperr

import (
	"errors"
	"fmt"
)

// Kind - 에러 분류
type Kind string

const (
	KindValidation Kind = "validation"
	KindEncoding   Kind = "encoding"
	KindTransport  Kind = "transport"
	KindMalformed  Kind = "malformed_response"
	KindBusy       Kind = "busy"
)

// Error codes (API 응답용)
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeEncoding       = "ENCODING_ERROR"
	ErrCodeTransport      = "TRANSPORT_ERROR"
	ErrCodeMalformed      = "MALFORMED_RESPONSE"
	ErrCodeBusy           = "BUSY"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// Sentinel 에러 - errors.Is 비교용
var (
	ErrValidation = errors.New("validation error")
	ErrEncoding   = errors.New("encoding error")
	ErrTransport  = errors.New("transport error")
	ErrMalformed  = errors.New("malformed response")
	ErrBusy       = errors.New("action already in progress")
)

// Error - 분류된 애플리케이션 에러
type Error struct {
	Kind    Kind
	Message string
	// Raw - 모델 원문 응답 (MalformedResponse 진단용)
	Raw string
	// Quota - TransportError 중 429/quota 계열 여부
	Quota bool
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is - Kind 별 sentinel 과 매칭
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrEncoding:
		return e.Kind == KindEncoding
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrMalformed:
		return e.Kind == KindMalformed
	case ErrBusy:
		return e.Kind == KindBusy
	}
	return false
}

func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func Encoding(message string, err error) error {
	return &Error{Kind: KindEncoding, Message: message, Err: err}
}

func Transport(message string, err error) error {
	return &Error{Kind: KindTransport, Message: message, Err: err}
}

func Malformed(raw string, err error) error {
	return &Error{
		Kind:    KindMalformed,
		Message: "Gagal mem-parsing respons JSON dari AI. Respons tidak valid.",
		Raw:     raw,
		Err:     err,
	}
}

func Busy(action string) error {
	return &Error{Kind: KindBusy, Message: fmt.Sprintf("%s masih berjalan, mohon tunggu", action)}
}

// KindOf - 에러 Kind 추출 (분류되지 않은 에러는 빈 문자열)
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Code - API 응답용 에러 코드
func Code(err error) string {
	switch KindOf(err) {
	case KindValidation:
		return ErrCodeValidation
	case KindEncoding:
		return ErrCodeEncoding
	case KindTransport:
		return ErrCodeTransport
	case KindMalformed:
		return ErrCodeMalformed
	case KindBusy:
		return ErrCodeBusy
	}
	return ErrCodeInternalError
}

// UserMessage - 사용자에게 보여줄 메시지
// Validation/Busy 는 메시지 그대로, 나머지는 단일 형식으로 변환
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case KindValidation, KindBusy:
			return appErr.Message
		}
		return "Terjadi kesalahan: " + appErr.Message
	}
	return "Terjadi kesalahan tidak diketahui"
}

// QuotaExceeded - 429/quota 계열 TransportError
func QuotaExceeded(err error) error {
	return &Error{
		Kind:    KindTransport,
		Message: "Kuota API telah habis. Silakan coba lagi nanti.",
		Quota:   true,
		Err:     err,
	}
}

// IsQuota - quota 계열 TransportError 여부
func IsQuota(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Quota
}

// FinalMessage - generate-final 실패 메시지
func FinalMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case KindValidation, KindBusy:
			return appErr.Message
		}
		return "Terjadi kesalahan saat menghasilkan prompt final: " + appErr.Message
	}
	return "Terjadi kesalahan tidak diketahui"
}
