package errors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/status"
)

// AppError 클라이언트에 보여줄 메시지와 코드를 내부 원인 에러와 함께 보관합니다.
type AppError struct {
	code    string
	message string
	cause   error
}

// NewAppError cause는 로그에만 남고 응답에는 message만 나갑니다.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{code: code, message: message, cause: cause}
}

func (e *AppError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("[%s] %s", e.code, e.message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
}

func (e *AppError) Code() string    { return e.code }
func (e *AppError) Message() string { return e.message }
func (e *AppError) Unwrap() error   { return e.cause }

// GRPCStatus grpc/status 패키지가 AppError를 상태로 변환할 때 사용합니다.
func (e *AppError) GRPCStatus() *status.Status {
	return status.New(ToGRPCCode(e.code), e.message)
}

// CodeOf 에러 체인의 첫 AppError 코드를 반환합니다. 없으면 INTERNAL.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.code
	}
	return ErrInternal
}

// Lookup 에러 체인에서 AppError를 찾습니다.
func Lookup(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
