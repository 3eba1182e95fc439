package domain

import "errors"

// Стандартные ошибки приложения
var (
	// Ошибки генераторов (текст/изображение)
	ErrUpstreamUnavailable = errors.New("upstream generator unavailable")          // Транзиентная: сеть/таймаут, допускает повтор
	ErrUpstreamRejected    = errors.New("upstream generator rejected the request") // Терминальная для этапа: апстрим явно отказал
	ErrMalformedResponse   = errors.New("upstream response has unexpected shape")  // Терминальная: ответ распарсен, но контракт нарушен

	// Ошибки сессий
	ErrSessionBusy     = errors.New("session already has an active turn")
	ErrSessionNotFound = errors.New("session not found")

	// Нарушение внутреннего инварианта (некорректное использование History Store)
	ErrInvalidState = errors.New("invalid history state")
)
