package services

import (
	"errors"

	"github.com/Dosada05/mahjong-scorebook/repositories"
)

// Общие ошибки, используемые в сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации ввода
	ErrValidationFailed    = errors.New("validation failed")
	ErrInvalidPlayerCount  = errors.New("player count must be 3 or 4")
	ErrPlayerNameRequired  = errors.New("player name is required")
	ErrPlayerNameTooLong   = errors.New("player name must be at most 4 characters")
	ErrDuplicatePlayerName = errors.New("player names must be unique")
	ErrValueCountMismatch  = errors.New("number of values does not match the player count")
	ErrNoChipsSelected     = errors.New("no chip entries selected")

	// Ошибки состояния игры
	ErrGameFinished  = errors.New("game is already finished")
	ErrGameHasRounds = errors.New("game already has recorded rounds")

	// Ошибки, специфичные для сущностей
	ErrGameNotFound  = errors.New("game not found")
	ErrRoundNotFound = errors.New("round not found")
	ErrChipNotFound  = errors.New("chip entry not found")
)

// MaxPlayerNameLength is counted in UTF-16 code units, not bytes.
const MaxPlayerNameLength = 4

// handleRepositoryError переводит ошибки репозиториев в ошибки сервисного слоя.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrGameNotFound):
		return ErrGameNotFound
	case errors.Is(err, repositories.ErrRoundNotFound):
		return ErrRoundNotFound
	case errors.Is(err, repositories.ErrChipNotFound):
		return ErrChipNotFound
	case errors.Is(err, repositories.ErrInvalidRoster):
		return ErrValidationFailed
	default:
		return err
	}
}
