package logger

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	apperrors "github.com/wekeepgrowing/semo-keyhub/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 원문 대신 앞부분만 남기는 헤더
var maskedHeaders = map[string]bool{
	"Authorization":    true,
	"Stripe-Signature": true,
}

// healthPaths 접근 로그에서 빠지는 경로
var healthPaths = map[string]bool{
	"/health": true,
	"/ready":  true,
}

// NewEchoRequestLogger 요청 한 건당 접근 로그 한 줄을 남깁니다.
// 상태 코드에 따라 Info/Warn/Error 레벨을 고릅니다.
func NewEchoRequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return healthPaths[c.Request().URL.Path]
		},
		HandleError:  true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogMethod:    true,
		LogURIPath:   true,
		LogRoutePath: true,
		LogRequestID: true,
		LogUserAgent: true,
		LogStatus:    true,
		LogError:     true,
		LogHeaders:   []string{"Content-Type", "Authorization", "Stripe-Signature"},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := accessFields(v)

			level, msg := zapcore.InfoLevel, "Request completed"
			switch {
			case v.Error != nil:
				level, msg = zapcore.ErrorLevel, "Request failed"
				fields = append(fields, zap.Error(v.Error))
			case v.Status >= http.StatusInternalServerError:
				level, msg = zapcore.ErrorLevel, "Server error"
			case v.Status >= http.StatusBadRequest:
				level, msg = zapcore.WarnLevel, "Client error"
			}
			if ce := logger.Check(level, msg); ce != nil {
				ce.Write(fields...)
			}
			return nil
		},
	})
}

func accessFields(v middleware.RequestLoggerValues) []zap.Field {
	fields := make([]zap.Field, 0, 10)
	fields = append(fields,
		zap.String("request.method", v.Method),
		zap.String("request.path", v.URIPath),
		zap.String("request.route", v.RoutePath),
		zap.String("request.request_id", v.RequestID),
		zap.String("request.remote_ip", v.RemoteIP),
		zap.String("request.user_agent", v.UserAgent),
		zap.Int("response.status", v.Status),
		zap.Duration("response.latency", v.Latency),
	)

	headers := make(map[string]string, len(v.Headers))
	for name, values := range v.Headers {
		if len(values) == 0 {
			continue
		}
		if maskedHeaders[name] {
			headers[name] = maskValue(values[0])
			continue
		}
		headers[name] = values[0]
	}
	if len(headers) > 0 {
		fields = append(fields, zap.Any("request.headers", headers))
	}
	return fields
}

// maskValue 토큰 앞 10자만 남깁니다. 짧은 값은 전부 가립니다.
func maskValue(val string) string {
	if len(val) <= 15 {
		return "[MASKED]"
	}
	return val[:10] + "..."
}

// WithEchoLogger Echo의 Logger와 에러 핸들러를 zap 기반으로 교체합니다.
// 응답 본문은 {"error": 메시지, "code": 에러 코드} 형태이며 원인 에러는 로그에만 남습니다.
func WithEchoLogger(e *echo.Echo, logger *zap.Logger) {
	e.Logger = NewEchoZapLogger(logger)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		appErr := asAppError(err)
		status := apperrors.ToHTTPStatus(appErr.Code())
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		}

		apperrors.LogError(logger, appErr, "HTTP error",
			zap.Int("status", status),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path))

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"error": appErr.Message(), "code": appErr.Code()})
		}
		if err != nil {
			logger.Error("Failed to send error response", zap.Error(err))
		}
	}
}

// asAppError echo.HTTPError는 상태 코드에 맞는 AppError로, 알 수 없는 에러는 ErrInternal로 감쌉니다.
func asAppError(err error) *apperrors.AppError {
	if he, ok := err.(*echo.HTTPError); ok {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		return apperrors.NewAppError(apperrors.CodeForHTTPStatus(he.Code), message, he.Internal)
	}
	if appErr, ok := apperrors.Lookup(err); ok {
		return appErr
	}
	return apperrors.NewAppError(apperrors.ErrInternal, http.StatusText(http.StatusInternalServerError), err)
}

// EchoZapLogger echo.Logger를 zap으로 구현합니다. Echo 내부 로그(시작 배너, 미들웨어 경고 등)에 쓰입니다.
type EchoZapLogger struct {
	Logger *zap.Logger
	level  log.Lvl
	prefix string
}

func NewEchoZapLogger(logger *zap.Logger) *EchoZapLogger {
	return &EchoZapLogger{Logger: logger.Named("echo"), level: log.INFO}
}

// zapLevels gommon 레벨을 zap 레벨로 바꿉니다.
var zapLevels = map[log.Lvl]zapcore.Level{
	log.DEBUG: zapcore.DebugLevel,
	log.INFO:  zapcore.InfoLevel,
	log.WARN:  zapcore.WarnLevel,
	log.ERROR: zapcore.ErrorLevel,
}

func (l *EchoZapLogger) emit(lvl log.Lvl, msg string, fields ...zap.Field) {
	if lvl < l.level {
		return
	}
	if ce := l.Logger.Check(zapLevels[lvl], msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *EchoZapLogger) Output() io.Writer   { return &zapWriter{logger: l.Logger} }
func (l *EchoZapLogger) SetOutput(io.Writer) {}
func (l *EchoZapLogger) Level() log.Lvl      { return l.level }
func (l *EchoZapLogger) SetLevel(v log.Lvl)  { l.level = v }
func (l *EchoZapLogger) SetHeader(string)    {}
func (l *EchoZapLogger) Prefix() string      { return l.prefix }
func (l *EchoZapLogger) SetPrefix(p string)  { l.prefix = p }

func (l *EchoZapLogger) Print(i ...interface{})            { l.emit(log.INFO, fmt.Sprint(i...)) }
func (l *EchoZapLogger) Printf(f string, i ...interface{}) { l.emit(log.INFO, fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Printj(j log.JSON)                 { l.emit(log.INFO, "echo", zap.Any("json", j)) }

func (l *EchoZapLogger) Debug(i ...interface{})            { l.emit(log.DEBUG, fmt.Sprint(i...)) }
func (l *EchoZapLogger) Debugf(f string, i ...interface{}) { l.emit(log.DEBUG, fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Debugj(j log.JSON)                 { l.emit(log.DEBUG, "echo", zap.Any("json", j)) }

func (l *EchoZapLogger) Info(i ...interface{})            { l.emit(log.INFO, fmt.Sprint(i...)) }
func (l *EchoZapLogger) Infof(f string, i ...interface{}) { l.emit(log.INFO, fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Infoj(j log.JSON)                 { l.emit(log.INFO, "echo", zap.Any("json", j)) }

func (l *EchoZapLogger) Warn(i ...interface{})            { l.emit(log.WARN, fmt.Sprint(i...)) }
func (l *EchoZapLogger) Warnf(f string, i ...interface{}) { l.emit(log.WARN, fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Warnj(j log.JSON)                 { l.emit(log.WARN, "echo", zap.Any("json", j)) }

func (l *EchoZapLogger) Error(i ...interface{})            { l.emit(log.ERROR, fmt.Sprint(i...)) }
func (l *EchoZapLogger) Errorf(f string, i ...interface{}) { l.emit(log.ERROR, fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Errorj(j log.JSON)                 { l.emit(log.ERROR, "echo", zap.Any("json", j)) }

func (l *EchoZapLogger) Fatal(i ...interface{})            { l.Logger.Fatal(fmt.Sprint(i...)) }
func (l *EchoZapLogger) Fatalf(f string, i ...interface{}) { l.Logger.Fatal(fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Fatalj(j log.JSON)                 { l.Logger.Fatal("echo", zap.Any("json", j)) }

func (l *EchoZapLogger) Panic(i ...interface{})            { l.Logger.Panic(fmt.Sprint(i...)) }
func (l *EchoZapLogger) Panicf(f string, i ...interface{}) { l.Logger.Panic(fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Panicj(j log.JSON)                 { l.Logger.Panic("echo", zap.Any("json", j)) }

// zapWriter Echo가 Output()에 직접 쓰는 로그를 Info로 옮깁니다.
type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Write(p []byte) (int, error) {
	w.logger.Info(string(p))
	return len(p), nil
}
