package ai

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"elysium-server/internal/domain"

	"github.com/rs/zerolog"
)

// doWithRetry выполняет call до maxAttempts раз. Повторяется только
// ErrUpstreamUnavailable (транзиентный сбой); терминальные ошибки этапа
// возвращаются сразу. Задержка экспоненциальная с джиттером.
func doWithRetry(ctx context.Context, logger zerolog.Logger, maxAttempts int, baseDelay time.Duration, call func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, domain.ErrUpstreamUnavailable) {
			return lastErr
		}
		if attempt == maxAttempts {
			logger.Warn().Err(lastErr).Int("attempts", maxAttempts).Msg("Достигнуто максимальное количество попыток вызова генератора")
			break
		}

		delay := float64(baseDelay) * math.Pow(2, float64(attempt-1))
		jitter := delay * 0.1
		delay += jitter * (rand.Float64()*2 - 1)
		waitDuration := time.Duration(delay)
		if waitDuration < baseDelay {
			waitDuration = baseDelay
		}
		logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("wait", waitDuration).Msg("Транзиентная ошибка генератора, повтор после задержки")

		select {
		case <-time.After(waitDuration):
		case <-ctx.Done():
			return lastErr
		}
	}
	return lastErr
}
