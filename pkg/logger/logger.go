package logger

import (
	"os"
	"time"

	"elysium-server/internal/config"

	"github.com/rs/zerolog"
)

// New настраивает корневой логгер сервера.
// По умолчанию пишем JSON в stdout; LOG_CONSOLE=true включает
// человекочитаемый вывод для разработки.
func New(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if cfg.Console {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Caller().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
}
