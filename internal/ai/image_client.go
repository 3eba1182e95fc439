package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"elysium-server/internal/config"
	"elysium-server/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// imageAPIRequest — тело запроса к API генерации изображений
// (совместимо с HuggingFace Inference и аналогичными эндпоинтами).
type imageAPIRequest struct {
	Inputs string `json:"inputs"`
}

// Потолок размера ответа: иллюстрация сцены больше этого — признак
// сломанного апстрима, а не валидная картинка.
const maxImageResponseBytes = 16 << 20

// imageGenerator реализует ImageGenerator поверх HTTP API,
// принимающего JSON с промптом и возвращающего сырые байты PNG.
type imageGenerator struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxAttempts    int
	baseRetryDelay time.Duration
	logger         zerolog.Logger
}

// NewImageGenerator создает адаптер генератора иллюстраций.
func NewImageGenerator(cfg config.ImageConfig, logger zerolog.Logger) ImageGenerator {
	return &imageGenerator{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		maxAttempts:    cfg.MaxAttempts,
		baseRetryDelay: cfg.BaseRetryDelay,
		logger:         logger.With().Str("component", "ImageGenerator").Logger(),
	}
}

// Generate запрашивает иллюстрацию по визуальному промпту.
func (g *imageGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	var imageData []byte

	err := doWithRetry(ctx, g.logger, g.maxAttempts, g.baseRetryDelay, func(ctx context.Context) error {
		startTime := time.Now()
		data, err := g.callImageAPI(ctx, prompt)
		duration := time.Since(startTime)

		if err != nil {
			generatorRequestsTotal.With(prometheus.Labels{"generator": "image", "status": "error"}).Inc()
			g.logger.Warn().Err(err).Dur("duration", duration).Msg("Ошибка API генерации изображения")
			return err
		}

		generatorRequestsTotal.With(prometheus.Labels{"generator": "image", "status": "success"}).Inc()
		generatorRequestDuration.With(prometheus.Labels{"generator": "image"}).Observe(duration.Seconds())
		imageBytesGenerated.Observe(float64(len(data)))
		g.logger.Debug().Dur("duration", duration).Int("size_bytes", len(data)).Msg("Изображение получено")

		imageData = data
		return nil
	})

	return imageData, err
}

// callImageAPI выполняет один HTTP вызов без повторов.
func (g *imageGenerator) callImageAPI(ctx context.Context, prompt string) ([]byte, error) {
	reqBodyBytes, err := json.Marshal(imageAPIRequest{Inputs: prompt})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request payload: %v", domain.ErrUpstreamRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(reqBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domain.ErrUpstreamRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// Сетевые ошибки и таймауты — транзиентные
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := readBoundedBody(resp.Body, maxImageResponseBytes)

	if resp.StatusCode != http.StatusOK {
		// 503 у inference-эндпоинтов означает прогрев модели — повторяемо
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: API returned status %d: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, string(bodyBytes))
		}
		return nil, fmt.Errorf("%w: API returned status %d: %s", domain.ErrUpstreamRejected, resp.StatusCode, string(bodyBytes))
	}

	if readErr != nil {
		if errors.Is(readErr, errBodyTooLarge) {
			return nil, fmt.Errorf("%w: API response exceeds %d bytes", domain.ErrUpstreamRejected, maxImageResponseBytes)
		}
		return nil, fmt.Errorf("%w: failed to read response body: %v", domain.ErrUpstreamUnavailable, readErr)
	}
	if len(bodyBytes) == 0 {
		return nil, fmt.Errorf("%w: API returned empty image data", domain.ErrUpstreamRejected)
	}

	return bodyBytes, nil
}

var errBodyTooLarge = errors.New("response body exceeds size limit")

// readBoundedBody читает тело ответа не более limit байт;
// превышение — errBodyTooLarge.
func readBoundedBody(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}
