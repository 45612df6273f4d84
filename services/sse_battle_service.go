package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"battle-seoul/models"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BattleTally is the payload of a tally event on the battle stream.
type BattleTally struct {
	BattleID      string              `json:"battleId"`
	ItemAVotes    int64               `json:"itemAVotes"`
	ItemBVotes    int64               `json:"itemBVotes"`
	TotalVotes    int64               `json:"totalVotes"`
	CurrentLeader models.Leader       `json:"currentLeader"`
	Status        models.BattleStatus `json:"status"`
	EndsAt        time.Time           `json:"endsAt"`
}

func tallyOf(b *models.Battle, now time.Time) BattleTally {
	status := b.Status
	if status != models.BattleEnded {
		status = b.StatusAt(now)
	}
	return BattleTally{
		BattleID:      b.ID,
		ItemAVotes:    b.ItemA.Votes,
		ItemBVotes:    b.ItemB.Votes,
		TotalVotes:    b.TotalVotes,
		CurrentLeader: b.CurrentLeader,
		Status:        status,
		EndsAt:        b.EndsAt,
	}
}

// BattleStreamService pushes live tallies of one battle over server-sent events.
type BattleStreamService struct {
	Battles      *BattleStore
	PollInterval time.Duration
	Clock        clockwork.Clock
	Logger       *zap.Logger
}

func NewBattleStreamService(db *gorm.DB, clock clockwork.Clock, logger *zap.Logger) *BattleStreamService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BattleStreamService{
		Battles:      NewBattleStore(db),
		PollInterval: 2 * time.Second,
		Clock:        clock,
		Logger:       logger.Named("stream"),
	}
}

// StreamBattleSSE sends the current tally, then a tally event whenever the battle
// version changes, and closes with an ended event once voting is over.
func (s *BattleStreamService) StreamBattleSSE(c *fiber.Ctx) error {
	battleID := c.Params("id")
	ctx := c.UserContext()

	battle, err := s.Battles.GetBattle(ctx, battleID)
	if err != nil {
		return err
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	done := c.Context().Done()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		lastVersion := battle.Version
		if !s.writeTally(w, battle) {
			return
		}

		ticker := s.Clock.NewTicker(s.PollInterval)
		defer ticker.Stop()

		for {
			if tallyOf(battle, s.Clock.Now()).Status == models.BattleEnded {
				fmt.Fprintf(w, "event: ended\ndata: {\"battleId\":%q}\n\n", battle.ID)
				_ = w.Flush()
				return
			}

			select {
			case <-ticker.Chan():
				fresh, err := s.Battles.GetBattle(ctx, battleID)
				if err != nil {
					s.Logger.Warn("stream poll failed", zap.String("battle_id", battleID), zap.Error(err))
					continue
				}
				battle = fresh
				if battle.Version == lastVersion {
					// keepalive comment
					if _, err := w.WriteString(":\n\n"); err != nil {
						return
					}
					if err := w.Flush(); err != nil {
						return
					}
					continue
				}
				lastVersion = battle.Version
				if !s.writeTally(w, battle) {
					return
				}
			case <-done:
				return
			}
		}
	})
	return nil
}

// writeTally reports false once the client has gone away.
func (s *BattleStreamService) writeTally(w *bufio.Writer, b *models.Battle) bool {
	payload, err := json.Marshal(tallyOf(b, s.Clock.Now()))
	if err != nil {
		s.Logger.Error("encode tally", zap.Error(err))
		return false
	}
	fmt.Fprintf(w, "event: tally\ndata: %s\n\n", payload)
	return w.Flush() == nil
}
