package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит всю конфигурацию сервера.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	AI      AIConfig
	Image   ImageConfig
	History HistoryConfig
}

// ServerConfig содержит настройки HTTP сервера.
type ServerConfig struct {
	Port        string `envconfig:"PORT" default:"8080"`         // Основной порт (WebSocket + статика)
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"` // Порт для Prometheus метрик
	StaticDir   string `envconfig:"STATIC_DIR" default:"./static"`
}

// LogConfig содержит настройки логирования.
type LogConfig struct {
	Level   string `envconfig:"LOG_LEVEL" default:"info"`
	Console bool   `envconfig:"LOG_CONSOLE" default:"false"` // Человекочитаемый вывод вместо JSON
}

// AIConfig содержит настройки текстового генератора.
type AIConfig struct {
	ClientType     string        `envconfig:"AI_CLIENT_TYPE" default:"openai"` // openai | ollama
	BaseURL        string        `envconfig:"AI_BASE_URL" default:"https://openrouter.ai/api/v1"`
	Model          string        `envconfig:"AI_MODEL" default:"deepseek/deepseek-chat"`
	Timeout        time.Duration `envconfig:"AI_TEXT_TIMEOUT" default:"60s"`
	Temperature    float64       `envconfig:"AI_TEMPERATURE" default:"0.8"`
	MaxTokens      int           `envconfig:"AI_MAX_TOKENS" default:"1024"`
	MaxAttempts    int           `envconfig:"AI_MAX_ATTEMPTS" default:"2"`
	BaseRetryDelay time.Duration `envconfig:"AI_BASE_RETRY_DELAY" default:"1s"`
	// Секретное поле БЕЗ envconfig тега
	APIKey string
}

// ImageConfig содержит настройки генератора иллюстраций.
// Таймаут отдельный от текстового: генерация картинки заметно медленнее.
type ImageConfig struct {
	BaseURL           string        `envconfig:"IMAGE_API_URL" required:"true"`
	Timeout           time.Duration `envconfig:"IMAGE_TIMEOUT" default:"120s"`
	MaxAttempts       int           `envconfig:"IMAGE_MAX_ATTEMPTS" default:"2"`
	BaseRetryDelay    time.Duration `envconfig:"IMAGE_BASE_RETRY_DELAY" default:"2s"`
	PromptStyleSuffix string        `envconfig:"IMAGE_PROMPT_STYLE_SUFFIX" default:", beautiful digital art, fantasy, cinematic lighting"`
	// Секретное поле БЕЗ envconfig тега
	APIKey string
}

// HistoryConfig содержит настройки истории повествования.
type HistoryConfig struct {
	TokenBudget int `envconfig:"HISTORY_TOKEN_BUDGET" default:"3000"` // Бюджет токенов на промпт продолжения
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	var loadErr error
	cfg.AI.APIKey, loadErr = ReadSecret("ai_api_key")
	if loadErr != nil {
		return nil, loadErr
	}
	// Ключ генератора изображений опционален: локальные эндпоинты не требуют
	// авторизации, а без ключа сервер деградирует до текста при отказах
	cfg.Image.APIKey, loadErr = ReadSecret("image_api_key")
	if loadErr != nil {
		log.Printf("Image API Key не задан, запросы к генератору изображений пойдут без авторизации: %v", loadErr)
		cfg.Image.APIKey = ""
	}

	// Логируем загруженную конфигурацию (кроме ключей)
	log.Printf("Конфигурация загружена (секреты из файлов/окружения):")
	log.Printf("  Port: %s, Metrics Port: %s", cfg.Server.Port, cfg.Server.MetricsPort)
	log.Printf("  Static Dir: %s", cfg.Server.StaticDir)
	log.Printf("  AI Client Type: %s", cfg.AI.ClientType)
	log.Printf("  AI Base URL: %s", cfg.AI.BaseURL)
	log.Printf("  AI Model: %s", cfg.AI.Model)
	log.Printf("  AI Text Timeout: %v", cfg.AI.Timeout)
	log.Printf("  AI Max Attempts: %d, Base Retry Delay: %v", cfg.AI.MaxAttempts, cfg.AI.BaseRetryDelay)
	log.Printf("  Image API URL: %s", cfg.Image.BaseURL)
	log.Printf("  Image Timeout: %v", cfg.Image.Timeout)
	log.Printf("  History Token Budget: %d", cfg.History.TokenBudget)
	log.Println("  AI API Key: [ЗАГРУЖЕН]")
	if cfg.Image.APIKey != "" {
		log.Println("  Image API Key: [ЗАГРУЖЕН]")
	} else {
		log.Println("  Image API Key: [НЕ ЗАДАН]")
	}

	return &cfg, nil
}
