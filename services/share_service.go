package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Dosada05/mahjong-scorebook/models"
	"github.com/Dosada05/mahjong-scorebook/repositories"
	"github.com/Dosada05/mahjong-scorebook/sharecode"
)

// ShareService экспортирует игру в код и импортирует коды как новые
// завершённые игры.
type ShareService struct {
	db        *sql.DB
	gameRepo  repositories.GameRepository
	scoreRepo repositories.ScoreRepository
	chipRepo  repositories.ChipRepository
	clock     repositories.Clock
	logger    *slog.Logger
}

func NewShareService(
	db *sql.DB,
	gameRepo repositories.GameRepository,
	scoreRepo repositories.ScoreRepository,
	chipRepo repositories.ChipRepository,
	clock repositories.Clock,
	logger *slog.Logger,
) *ShareService {
	if clock == nil {
		clock = repositories.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ShareService{
		db:        db,
		gameRepo:  gameRepo,
		scoreRepo: scoreRepo,
		chipRepo:  chipRepo,
		clock:     clock,
		logger:    logger,
	}
}

// Export encodes the game as a version 2 share code.
func (s *ShareService) Export(ctx context.Context, gameID int) (string, error) {
	game, err := s.gameRepo.GetByID(ctx, nil, gameID)
	if err != nil {
		return "", handleRepositoryError(err)
	}
	scores, err := s.scoreRepo.ListByGame(ctx, nil, gameID)
	if err != nil {
		return "", fmt.Errorf("failed to load scores of game %d: %w", gameID, err)
	}
	chips, err := s.chipRepo.ListByGame(ctx, nil, gameID)
	if err != nil {
		return "", fmt.Errorf("failed to load chips of game %d: %w", gameID, err)
	}

	code, err := sharecode.Encode(&sharecode.Snapshot{
		Version:     sharecode.CurrentVersion,
		PlayerCount: game.PlayerCount,
		StartDate:   game.StartDate,
		Players:     game.Players,
		Scores:      scores,
		Chips:       chips,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode game %d: %w", gameID, err)
	}

	s.logger.InfoContext(ctx, "Game exported", slog.Int("game_id", gameID), slog.Int("code_length", len(code)))
	return code, nil
}

// Import декодирует код и сохраняет его как новую завершённую игру.
// Код проверяется целиком до первой записи; вставка идёт одной транзакцией.
func (s *ShareService) Import(ctx context.Context, code string) (*models.Game, error) {
	snap, err := sharecode.Decode(code, s.clock())
	if err != nil {
		s.logger.WarnContext(ctx, "Share code rejected", slog.Any("error", err))
		return nil, err
	}

	game := &models.Game{
		PlayerCount: snap.PlayerCount,
		StartDate:   snap.StartDate,
		Players:     snap.Players,
		Finished:    true,
	}
	err = repositories.RunInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		if err := s.gameRepo.Create(ctx, tx, game); err != nil {
			return err
		}
		for i := range snap.Scores {
			snap.Scores[i].GameID = game.ID
		}
		for i := range snap.Chips {
			snap.Chips[i].GameID = game.ID
		}
		if err := s.scoreRepo.InsertRows(ctx, tx, snap.Scores); err != nil {
			return err
		}
		return s.chipRepo.InsertRows(ctx, tx, snap.Chips)
	})
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	game.RoundCount = countRounds(snap.Scores)
	s.logger.InfoContext(ctx, "Game imported",
		slog.Int("game_id", game.ID),
		slog.Int("version", snap.Version),
		slog.Int("rounds", game.RoundCount),
	)
	return game, nil
}

func countRounds(scores []models.Score) int {
	rounds := make(map[int]struct{})
	for _, sc := range scores {
		rounds[sc.RoundIndex] = struct{}{}
	}
	return len(rounds)
}
