package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 로거 설정. 서비스 설정 파일의 log 섹션에 대응합니다.
type Config struct {
	Level       string `mapstructure:"level"`  // debug, info, warn, error
	Format      string `mapstructure:"format"` // json, console
	Output      string `mapstructure:"output"` // stdout, stderr, file
	FilePath    string `mapstructure:"file_path"`
	Development bool   `mapstructure:"development"`

	// Service 모든 로그에 붙는 service 필드
	Service string `mapstructure:"service"`
}

// ParseLevel 알 수 없는 값은 info로 취급합니다.
func ParseLevel(level string) zapcore.Level {
	parsed, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return parsed
}

// NewZapLogger 설정에 맞는 인코더와 출력 대상으로 zap 로거를 만듭니다.
// Error 이상은 스택 트레이스를 남기고, 개발 모드에서는 호출 위치도 남깁니다.
func NewZapLogger(cfg Config) (*zap.Logger, error) {
	sink, err := openSink(cfg)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(cfg), sink, zap.NewAtomicLevelAt(ParseLevel(cfg.Level)))

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Development {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.Service != "" {
		opts = append(opts, zap.Fields(zap.String("service", cfg.Service)))
	}
	return zap.New(core, opts...), nil
}

// newEncoder 운영 환경은 ECS 필드 이름(@timestamp, log.level)을 쓰는 JSON이 기본입니다.
func newEncoder(cfg Config) zapcore.Encoder {
	var ec zapcore.EncoderConfig
	if cfg.Development {
		ec = zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		ec = zap.NewProductionEncoderConfig()
		ec.TimeKey = "@timestamp"
		ec.LevelKey = "log.level"
		ec.MessageKey = "message"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if cfg.Format == "console" {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openSink(cfg Config) (zapcore.WriteSyncer, error) {
	switch cfg.Output {
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	case "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("log.file_path is required when log.output is file")
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("로그 파일 열기 실패: %w", err)
		}
		return zapcore.AddSync(f), nil
	default:
		return zapcore.Lock(os.Stdout), nil
	}
}
