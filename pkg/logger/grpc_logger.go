package logger

import (
	"context"
	"path"
	"strings"
	"time"

	apperrors "github.com/wekeepgrowing/semo-keyhub/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewGrpcUnaryServerInterceptor는 단일 요청/응답 gRPC 메서드에 대한 로깅 인터셉터를 생성합니다.
// 핸들러가 AppError를 반환하면 대응하는 gRPC 상태로 바꿔 돌려줍니다.
// health 체크 호출은 debug 레벨로만 남깁니다.
func NewGrpcUnaryServerInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		startTime := time.Now()
		resp, err := handler(ctx, req)
		if appErr, ok := apperrors.Lookup(err); ok {
			err = appErr.GRPCStatus().Err()
		}

		code := status.Code(err)
		fields := []zap.Field{
			zap.String("grpc.service", strings.TrimPrefix(path.Dir(info.FullMethod), "/")),
			zap.String("grpc.method", path.Base(info.FullMethod)),
			zap.String("grpc.code", code.String()),
			zap.Duration("grpc.duration", time.Since(startTime)),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		switch {
		case code == codes.OK && strings.HasPrefix(info.FullMethod, "/grpc.health."):
			logger.Debug("gRPC 요청 완료", fields...)
		case code == codes.OK:
			logger.Info("gRPC 요청 완료", fields...)
		case isTransient(code):
			logger.Warn("gRPC 요청 실패", fields...)
		default:
			logger.Error("gRPC 요청 오류", fields...)
		}

		return resp, err
	}
}

func isTransient(code codes.Code) bool {
	switch code {
	case codes.Canceled, codes.DeadlineExceeded, codes.ResourceExhausted,
		codes.Aborted, codes.Unavailable:
		return true
	}
	return false
}
