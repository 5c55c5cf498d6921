package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scene-prompt-server/modules/common/config"
	"scene-prompt-server/modules/common/gemini"
	"scene-prompt-server/modules/common/logger"
	"scene-prompt-server/modules/composer"
)

var rootCmd = &cobra.Command{
	Use:   "scene-prompt-server",
	Short: "Scene prompt composer for video and image generation models",
	Long: `Scene prompt composer.

Turns a short idea or a reference image into a structured scene description
(subject, action, setting, lighting, camera, ...) and derives five final
prompts from it: an Indonesian paragraph, its English translation, an English
field listing, an English JSON object and a five-act story.

Commands:
  serve     HTTP API + WebSocket state events
  develop   fill scene fields from an idea or an image
  generate  produce the five final prompts from a scene file
  fields    list the scene fields of a variant`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, developCmd, generateCmd, fieldsCmd)
}

// app - 명령 실행에 필요한 공통 구성요소
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *composer.Service
}

// logMode - 로거 preset 선택
type logMode int

const (
	serverLogs logMode = iota // LOG_ENCODING 형식, stdout
	cliLogs                   // console 형식, stderr
)

// newApp - 설정 로드 → 로거 → Gemini 클라이언트 → Service
func newApp(ctx context.Context, mode logMode) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var log *zap.Logger
	if mode == cliLogs {
		log, err = logger.ForCLI(cfg.LogLevel)
	} else {
		log, err = logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	if !cfg.EnvFileLoaded {
		log.Warn("⚠️  .env file not found, using environment variables")
	}

	client, err := gemini.NewClient(ctx, gemini.Options{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.GeminiModel,
		Temperature: cfg.GeminiTemperature,
		Timeout:     cfg.ModelTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  log,
		service: composer.NewService(client, log),
	}, nil
}
