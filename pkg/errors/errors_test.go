package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCodeMappings(t *testing.T) {
	tests := []struct {
		code   string
		status int
		grpc   codes.Code
	}{
		{ErrInternal, http.StatusInternalServerError, codes.Internal},
		{ErrNotFound, http.StatusNotFound, codes.NotFound},
		{ErrInvalidArgument, http.StatusBadRequest, codes.InvalidArgument},
		{ErrUnauthenticated, http.StatusUnauthorized, codes.Unauthenticated},
		{ErrUnauthorized, http.StatusForbidden, codes.PermissionDenied},
		{ErrConflict, http.StatusConflict, codes.Aborted},
		{ErrPreconditionFailed, http.StatusPreconditionFailed, codes.FailedPrecondition},
		{ErrUpstream, http.StatusBadGateway, codes.Unavailable},
		{ErrTimeout, http.StatusGatewayTimeout, codes.DeadlineExceeded},
		{ErrNotImplemented, http.StatusNotImplemented, codes.Unimplemented},
		{"SOMETHING_ELSE", http.StatusInternalServerError, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, ToHTTPStatus(tt.code))
			assert.Equal(t, tt.grpc, ToGRPCCode(tt.code))
		})
	}
}

func TestCodeForHTTPStatus(t *testing.T) {
	assert.Equal(t, ErrNotFound, CodeForHTTPStatus(http.StatusNotFound))
	assert.Equal(t, ErrInvalidArgument, CodeForHTTPStatus(http.StatusUnprocessableEntity))
	assert.Equal(t, ErrUpstream, CodeForHTTPStatus(http.StatusBadGateway))
	assert.Equal(t, ErrInternal, CodeForHTTPStatus(http.StatusTeapot))
}

func TestAppError(t *testing.T) {
	cause := fmt.Errorf("tier lookup: %w", assert.AnError)
	err := fmt.Errorf("handler: %w", NewAppError(ErrNotFound, "tier not found", cause))

	appErr, ok := Lookup(err)
	require.True(t, ok)
	assert.Equal(t, ErrNotFound, appErr.Code())
	assert.Equal(t, "tier not found", appErr.Message())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, ErrNotFound, CodeOf(err))
	assert.Equal(t, ErrInternal, CodeOf(assert.AnError))

	st, ok := status.FromError(appErr)
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
	assert.Equal(t, "tier not found", st.Message())
}

func TestLogError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	LogError(logger, nil, "ignored")
	LogError(logger, NewAppError(ErrInvalidArgument, "bad input", nil), "client error")
	LogError(logger, assert.AnError, "server error")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, ErrInvalidArgument, entries[0].ContextMap()["error_code"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, ErrInternal, entries[1].ContextMap()["error_code"])
}
