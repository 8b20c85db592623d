package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// 응답 본문의 "code" 필드 값
const (
	ErrInternal           = "INTERNAL"
	ErrNotFound           = "NOT_FOUND"
	ErrInvalidArgument    = "INVALID_ARGUMENT"
	ErrUnauthenticated    = "UNAUTHENTICATED"
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrConflict           = "CONFLICT"
	ErrPreconditionFailed = "PRECONDITION_FAILED"
	ErrUpstream           = "UPSTREAM"
	ErrTimeout            = "TIMEOUT"
	ErrNotImplemented     = "NOT_IMPLEMENTED"
)

type transportCodes struct {
	status int
	grpc   codes.Code
}

// 코드별 HTTP 상태와 gRPC 코드
var registry = map[string]transportCodes{
	ErrInternal:           {http.StatusInternalServerError, codes.Internal},
	ErrNotFound:           {http.StatusNotFound, codes.NotFound},
	ErrInvalidArgument:    {http.StatusBadRequest, codes.InvalidArgument},
	ErrUnauthenticated:    {http.StatusUnauthorized, codes.Unauthenticated},
	ErrUnauthorized:       {http.StatusForbidden, codes.PermissionDenied},
	ErrConflict:           {http.StatusConflict, codes.Aborted},
	ErrPreconditionFailed: {http.StatusPreconditionFailed, codes.FailedPrecondition},
	ErrUpstream:           {http.StatusBadGateway, codes.Unavailable},
	ErrTimeout:            {http.StatusGatewayTimeout, codes.DeadlineExceeded},
	ErrNotImplemented:     {http.StatusNotImplemented, codes.Unimplemented},
}

// byStatus 역방향 조회 테이블. 422는 INVALID_ARGUMENT로 취급합니다.
var byStatus = func() map[int]string {
	m := make(map[int]string, len(registry)+1)
	for code, t := range registry {
		m[t.status] = code
	}
	m[http.StatusUnprocessableEntity] = ErrInvalidArgument
	return m
}()

// ToHTTPStatus 에러 코드의 HTTP 상태. 모르는 코드는 500입니다.
func ToHTTPStatus(code string) int {
	if t, ok := registry[code]; ok {
		return t.status
	}
	return http.StatusInternalServerError
}

// ToGRPCCode 에러 코드의 gRPC 코드. 모르는 코드는 Internal입니다.
func ToGRPCCode(code string) codes.Code {
	if t, ok := registry[code]; ok {
		return t.grpc
	}
	return codes.Internal
}

// CodeForHTTPStatus echo.HTTPError처럼 상태만 있는 에러에 코드를 붙일 때 사용합니다.
func CodeForHTTPStatus(status int) string {
	if code, ok := byStatus[status]; ok {
		return code
	}
	return ErrInternal
}
