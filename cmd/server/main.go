package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elysium-server/internal/ai"
	"elysium-server/internal/config"
	"elysium-server/internal/handler"
	"elysium-server/internal/pipeline"
	"elysium-server/internal/prompt"
	"elysium-server/internal/session"
	"elysium-server/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Загружаем .env файл (если есть) для локальной разработки
	_ = godotenv.Load()

	log.Println("Запуск игрового сервера...")

	// Загружаем конфигурацию
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	rootLogger := logger.New(cfg.Log)

	// Генераторы: текст (openai/ollama) и иллюстрации
	textGen, err := ai.NewTextGenerator(cfg.AI, rootLogger)
	if err != nil {
		rootLogger.Fatal().Err(err).Msg("Не удалось создать текстовый генератор")
	}
	imageGen := ai.NewImageGenerator(cfg.Image, rootLogger)

	// Сборка пайплайна хода
	composer := prompt.NewComposer(cfg.AI.Model, cfg.History.TokenBudget, cfg.Image.PromptStyleSuffix, rootLogger)
	orchestrator := pipeline.NewOrchestrator(composer, textGen, imageGen, rootLogger)
	sessions := session.NewManager(rootLogger)
	wsHandler := handler.NewWSHandler(sessions, orchestrator, rootLogger)

	// Настройка Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	e.GET("/ws/game", wsHandler.Handle)
	e.Static("/", cfg.Server.StaticDir)

	// Отдельный сервер метрик, чтобы не светить их наружу
	metricsServer := &http.Server{
		Addr:    ":" + cfg.Server.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		rootLogger.Info().Str("port", cfg.Server.MetricsPort).Msg("Metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rootLogger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	// Запуск сервера в горутине
	go func() {
		rootLogger.Info().Str("port", cfg.Server.Port).Msg("Game server listening")
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			rootLogger.Fatal().Err(err).Msg("Ошибка запуска сервера")
		}
	}()

	// Ожидание сигнала завершения для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	rootLogger.Info().Msg("Получен сигнал завершения, начинаем graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		rootLogger.Error().Err(err).Msg("Ошибка при graceful shutdown Echo")
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		rootLogger.Error().Err(err).Msg("Ошибка при остановке сервера метрик")
	}

	rootLogger.Info().Int("active_sessions", sessions.Count()).Msg("Сервер остановлен")
}
