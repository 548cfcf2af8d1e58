package domain

import "errors"

// Стандартные ошибки модуля.
var (
	// Ошибки хранилища
	ErrStateNotFound   = errors.New("relationship state not found")
	ErrTraitsNotFound  = errors.New("character traits not found")
	ErrVersionConflict = errors.New("state version conflict")

	// Ошибки генерации: единственная категория, которая всплывает наружу
	// как сбой хода; состояние при этом не мутирует.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// Общие ошибки запросов
	ErrInvalidInput = errors.New("invalid input data")
	ErrEmptyMessage = errors.New("empty message")
)
