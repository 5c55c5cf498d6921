package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config - 로거 설정
type Config struct {
	Level    string // debug, info, warn, error
	Encoding string // json / console
	Output   string // stdout(기본), stderr 또는 파일 경로
}

// New - 서버용 zap.Logger (ISO8601, 대문자 레벨)
func New(cfg Config) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	encoding := strings.ToLower(cfg.Encoding)
	if encoding != "console" && encoding != "json" {
		encoding = "json"
	}

	output := cfg.Output
	if output == "" {
		output = "stdout"
	}
	return build(cfg.Level, encoding, encoderCfg, output)
}

// ForCLI - CLI 명령용 preset
// console 형식, 색상 레벨, 짧은 시각, stderr 출력 (stdout 은 명령 결과 전용)
func ForCLI(level string) (*zap.Logger, error) {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderCfg.EncodeDuration = zapcore.StringDurationEncoder

	return build(level, "console", encoderCfg, "stderr")
}

func build(rawLevel, encoding string, encoderCfg zapcore.EncoderConfig, output string) (*zap.Logger, error) {
	level, known := parseLevel(rawLevel)

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if !known {
		logger.Warn("Invalid log level, using info", zap.String("level", rawLevel))
	}
	return logger, nil
}

// parseLevel - 빈 값은 info, 알 수 없는 값은 info + false
func parseLevel(raw string) (zapcore.Level, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return zapcore.InfoLevel, true
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return zapcore.InfoLevel, false
	}
	return level, true
}
