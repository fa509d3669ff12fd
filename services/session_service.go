package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf16"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/mahjong-scorebook/models"
	"github.com/Dosada05/mahjong-scorebook/repositories"
	"github.com/Dosada05/mahjong-scorebook/scoring"
)

// SessionService управляет жизненным циклом игры: старт, запись ханчанов и
// чипов, удаление с перенумерацией, приостановка и завершение.
type SessionService interface {
	StartGame(ctx context.Context, playerCount int, names []string) (*models.Game, error)
	GetCurrentGame(ctx context.Context) (*models.GameDetail, error)
	GetGame(ctx context.Context, gameID int) (*models.GameDetail, error)
	RecordRound(ctx context.Context, gameID int, points []int) (*models.Round, error)
	RecordChips(ctx context.Context, gameID int, chips []int) (*models.ChipEvent, error)
	DeleteRound(ctx context.Context, gameID, roundIndex int) error
	DeleteChips(ctx context.Context, gameID int, ids []int) error
	SuspendGame(ctx context.Context, gameID int) (*models.Game, error)
	FinishGame(ctx context.Context, gameID int) (*models.GameDetail, error)
	AbandonGame(ctx context.Context, gameID int) error
	DeleteGame(ctx context.Context, gameID int) error
	ListUnfinished(ctx context.Context) ([]models.Game, error)
	ListFinished(ctx context.Context) ([]models.Game, error)
	ClearAll(ctx context.Context) error
}

type sessionService struct {
	db        *sql.DB
	gameRepo  repositories.GameRepository
	scoreRepo repositories.ScoreRepository
	chipRepo  repositories.ChipRepository
	logger    *slog.Logger
}

func NewSessionService(
	db *sql.DB,
	gameRepo repositories.GameRepository,
	scoreRepo repositories.ScoreRepository,
	chipRepo repositories.ChipRepository,
	logger *slog.Logger,
) SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &sessionService{
		db:        db,
		gameRepo:  gameRepo,
		scoreRepo: scoreRepo,
		chipRepo:  chipRepo,
		logger:    logger,
	}
}

// StartGame создаёт новую игру. Приостановленные игры при этом закрываются:
// пустые удаляются, остальные помечаются завершёнными.
func (s *sessionService) StartGame(ctx context.Context, playerCount int, names []string) (*models.Game, error) {
	roster, err := validatePlayers(playerCount, names)
	if err != nil {
		return nil, err
	}

	game := &models.Game{PlayerCount: playerCount, Players: roster}
	err = repositories.RunInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		suspended, err := s.gameRepo.ListUnfinished(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to list unfinished games: %w", err)
		}
		for _, g := range suspended {
			if g.RoundCount == 0 {
				if err := s.gameRepo.Delete(ctx, tx, g.ID); err != nil {
					return fmt.Errorf("failed to drop empty game %d: %w", g.ID, err)
				}
				s.logger.InfoContext(ctx, "Empty suspended game dropped", slog.Int("game_id", g.ID))
				continue
			}
			if err := s.gameRepo.Finish(ctx, tx, g.ID); err != nil {
				return fmt.Errorf("failed to finish suspended game %d: %w", g.ID, err)
			}
			s.logger.InfoContext(ctx, "Suspended game finished", slog.Int("game_id", g.ID), slog.Int("rounds", g.RoundCount))
		}
		return s.gameRepo.Create(ctx, tx, game)
	})
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "Game started", slog.Int("game_id", game.ID), slog.Int("player_count", playerCount))
	return game, nil
}

func validatePlayers(playerCount int, names []string) ([]string, error) {
	if playerCount < models.MinPlayers || playerCount > models.MaxPlayers {
		return nil, ErrInvalidPlayerCount
	}
	if len(names) != playerCount {
		return nil, fmt.Errorf("%w: got %d names for %d players", ErrValueCountMismatch, len(names), playerCount)
	}

	roster := make([]string, len(names))
	seen := make(map[string]struct{}, len(names))
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("%w: seat %d", ErrPlayerNameRequired, i+1)
		}
		if nameLength(name) > MaxPlayerNameLength {
			return nil, fmt.Errorf("%w: %q", ErrPlayerNameTooLong, name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePlayerName, name)
		}
		seen[name] = struct{}{}
		roster[i] = name
	}
	return roster, nil
}

// nameLength считает UTF-16 единицы, как поле ввода в приложении:
// эмодзи вне BMP занимает две.
func nameLength(name string) int {
	return len(utf16.Encode([]rune(name)))
}

func (s *sessionService) GetCurrentGame(ctx context.Context) (*models.GameDetail, error) {
	game, err := s.gameRepo.GetCurrent(ctx, nil)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.loadDetail(ctx, game)
}

func (s *sessionService) GetGame(ctx context.Context, gameID int) (*models.GameDetail, error) {
	game, err := s.gameRepo.GetByID(ctx, nil, gameID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.loadDetail(ctx, game)
}

// loadDetail собирает данные экрана игры; запросы идут параллельно.
func (s *sessionService) loadDetail(ctx context.Context, game *models.Game) (*models.GameDetail, error) {
	var (
		scores []models.Score
		chips  []models.Chip
		next   int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if scores, err = s.scoreRepo.ListByGame(gCtx, nil, game.ID); err != nil {
			return fmt.Errorf("failed to load scores of game %d: %w", game.ID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if chips, err = s.chipRepo.ListByGame(gCtx, nil, game.ID); err != nil {
			return fmt.Errorf("failed to load chips of game %d: %w", game.ID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if next, err = s.scoreRepo.NextRoundIndex(gCtx, nil, game.ID); err != nil {
			return fmt.Errorf("failed to load next round of game %d: %w", game.ID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load game detail", slog.Int("game_id", game.ID), slog.Any("error", err))
		return nil, err
	}

	return &models.GameDetail{
		Game:           game,
		Players:        game.Players,
		Rounds:         scoring.GroupRounds(scores),
		ChipEvents:     scoring.GroupChipEvents(chips),
		NextRoundIndex: next,
		Summaries:      scoring.Summarize(game.Players, scores, chips),
	}, nil
}

// activeGame loads the game inside tx and rejects finished games.
func (s *sessionService) activeGame(ctx context.Context, tx repositories.SQLExecutor, gameID int) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, tx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Finished {
		return nil, ErrGameFinished
	}
	return game, nil
}

// RecordRound принимает очки в порядке рассадки (ростера).
func (s *sessionService) RecordRound(ctx context.Context, gameID int, points []int) (*models.Round, error) {
	var round *models.Round
	err := repositories.RunInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		game, err := s.activeGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if len(points) != game.PlayerCount {
			return fmt.Errorf("%w: got %d points for %d players", ErrValueCountMismatch, len(points), game.PlayerCount)
		}
		if err := scoring.ValidateDeltas(points); err != nil {
			return err
		}

		byPlayer := make(map[string]int, len(points))
		for i, name := range game.Players {
			byPlayer[name] = points[i]
		}
		ranks := scoring.CalculateRanks(byPlayer)

		entries := make([]models.ScoreEntry, len(points))
		for i, name := range game.Players {
			entries[i] = models.ScoreEntry{Player: name, Point: points[i], Rank: ranks[name]}
		}

		next, err := s.scoreRepo.NextRoundIndex(ctx, tx, gameID)
		if err != nil {
			return fmt.Errorf("failed to get next round index: %w", err)
		}
		rows, err := s.scoreRepo.Record(ctx, tx, gameID, next, entries)
		if err != nil {
			return err
		}
		round = &models.Round{
			Index:         next,
			Timestamp:     rows[0].Timestamp,
			FormattedTime: rows[0].FormattedTime,
			Scores:        rows,
		}
		return nil
	})
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "Round recorded", slog.Int("game_id", gameID), slog.Int("round_index", round.Index))
	return round, nil
}

// RecordChips записывает событие чипов. Тег раунда: текущий ханчан - 1,
// то есть 0 до первого записанного ханчана.
func (s *sessionService) RecordChips(ctx context.Context, gameID int, chips []int) (*models.ChipEvent, error) {
	var event *models.ChipEvent
	err := repositories.RunInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		game, err := s.activeGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if len(chips) != game.PlayerCount {
			return fmt.Errorf("%w: got %d chip values for %d players", ErrValueCountMismatch, len(chips), game.PlayerCount)
		}
		if err := scoring.ValidateDeltas(chips); err != nil {
			return err
		}

		entries := make([]models.ChipEntry, len(chips))
		for i, name := range game.Players {
			entries[i] = models.ChipEntry{Player: name, ChipPoint: chips[i]}
		}

		next, err := s.scoreRepo.NextRoundIndex(ctx, tx, gameID)
		if err != nil {
			return fmt.Errorf("failed to get next round index: %w", err)
		}
		rows, err := s.chipRepo.Record(ctx, tx, gameID, next-1, entries)
		if err != nil {
			return err
		}
		event = &models.ChipEvent{
			RoundIndex:    next - 1,
			Timestamp:     rows[0].Timestamp,
			FormattedTime: rows[0].FormattedTime,
			Chips:         rows,
		}
		return nil
	})
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "Chips recorded", slog.Int("game_id", gameID), slog.Int("round_tag", event.RoundIndex))
	return event, nil
}

func (s *sessionService) DeleteRound(ctx context.Context, gameID, roundIndex int) error {
	err := repositories.RunInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		if _, err := s.activeGame(ctx, tx, gameID); err != nil {
			return err
		}
		return s.scoreRepo.DeleteRound(ctx, tx, gameID, roundIndex)
	})
	if err != nil {
		return handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Round deleted", slog.Int("game_id", gameID), slog.Int("round_index", roundIndex))
	return nil
}

// DeleteChips удаляет отдельные записи или целое событие (по его IDs).
func (s *sessionService) DeleteChips(ctx context.Context, gameID int, ids []int) error {
	if len(ids) == 0 {
		return ErrNoChipsSelected
	}
	err := repositories.RunInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		if _, err := s.activeGame(ctx, tx, gameID); err != nil {
			return err
		}
		return s.chipRepo.DeleteByIDs(ctx, tx, gameID, ids)
	})
	if err != nil {
		return handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Chips deleted", slog.Int("game_id", gameID), slog.Int("count", len(ids)))
	return nil
}

// SuspendGame ничего не меняет в хранилище: игра остаётся незавершённой и
// доступна в списке для продолжения.
func (s *sessionService) SuspendGame(ctx context.Context, gameID int) (*models.Game, error) {
	game, err := s.activeGame(ctx, nil, gameID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Game suspended", slog.Int("game_id", gameID), slog.Int("rounds", game.RoundCount))
	return game, nil
}

// FinishGame returns the final standings of the game.
func (s *sessionService) FinishGame(ctx context.Context, gameID int) (*models.GameDetail, error) {
	err := repositories.RunInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		if _, err := s.activeGame(ctx, tx, gameID); err != nil {
			return err
		}
		return s.gameRepo.Finish(ctx, tx, gameID)
	})
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Game finished", slog.Int("game_id", gameID))
	return s.GetGame(ctx, gameID)
}

// AbandonGame удаляет активную игру, только если в ней ещё нет ханчанов.
func (s *sessionService) AbandonGame(ctx context.Context, gameID int) error {
	err := repositories.RunInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		game, err := s.activeGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if game.RoundCount > 0 {
			return ErrGameHasRounds
		}
		return s.gameRepo.Delete(ctx, tx, gameID)
	})
	if err != nil {
		return handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Game abandoned", slog.Int("game_id", gameID))
	return nil
}

// DeleteGame removes a finished game, or an unfinished one without rounds.
// An unfinished game with rounds must be finished first.
func (s *sessionService) DeleteGame(ctx context.Context, gameID int) error {
	err := repositories.RunInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		game, err := s.gameRepo.GetByID(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if !game.Finished && game.RoundCount > 0 {
			return ErrGameHasRounds
		}
		return s.gameRepo.Delete(ctx, tx, gameID)
	})
	if err != nil {
		return handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Game deleted", slog.Int("game_id", gameID))
	return nil
}

func (s *sessionService) ListUnfinished(ctx context.Context) ([]models.Game, error) {
	return s.gameRepo.ListUnfinished(ctx, nil)
}

func (s *sessionService) ListFinished(ctx context.Context) ([]models.Game, error) {
	return s.gameRepo.ListFinished(ctx, nil)
}

func (s *sessionService) ClearAll(ctx context.Context) error {
	if err := s.gameRepo.ClearAll(ctx, nil); err != nil {
		return err
	}
	s.logger.WarnContext(ctx, "All games cleared")
	return nil
}
