package errors

import (
	"go.uber.org/zap"
)

// LogError 5xx 코드는 Error, 나머지는 Debug 레벨로 기록합니다.
// 4xx 요청은 접근 로그에 이미 Warn으로 남습니다.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}

	code := CodeOf(err)
	fields = append([]zap.Field{zap.Error(err), zap.String("error_code", code)}, fields...)

	if ToHTTPStatus(code) >= 500 {
		logger.Error(msg, fields...)
		return
	}
	logger.Debug(msg, fields...)
}
