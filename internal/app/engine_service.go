package app

import (
	"context"
	"log"
	"time"

	"codium-engine/internal/domain"
)

// SessionRepository abstracts how battle sessions are stored (in-memory,
// Redis-backed, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	DeleteIfEnded(sessionID string)
}

// SetRepository loads question-set content (from cache/backing store).
type SetRepository interface {
	GetSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// LeaderboardClient is the external ranking service.
type LeaderboardClient interface {
	Submit(ctx context.Context, playerID, displayName string, score int) error
	GetTop(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	GetSelf(ctx context.Context, playerID string) (*domain.LeaderboardEntry, error)
}

// RunOutcome is what the engine reports once a session finishes and its
// rewards have been merged.
type RunOutcome struct {
	Result   SubmitResult              `json:"result"`
	Progress *domain.ProgressionRecord `json:"progress,omitempty"`
	// Saved is false when persistence failed; the run still completed and
	// its rewards were reported, they just did not stick.
	Saved bool `json:"saved"`
}

// EngineService binds sessions, content, the progression ledger and the
// leaderboard into the engine's use cases.
type EngineService struct {
	sessions    SessionRepository
	sets        SetRepository
	ledger      *Ledger
	leaderboard LeaderboardClient
	spawnCfg    SpawnConfig
	topN        int
}

func NewEngineService(sessions SessionRepository, sets SetRepository, ledger *Ledger, leaderboard LeaderboardClient, spawnCfg SpawnConfig, topN int) *EngineService {
	if topN <= 0 {
		topN = 50
	}
	return &EngineService{
		sessions:    sessions,
		sets:        sets,
		ledger:      ledger,
		leaderboard: leaderboard,
		spawnCfg:    spawnCfg,
		topN:        topN,
	}
}

// Start loads the set and begins a fresh run for the player. An existing run
// for the same player/set is replaced.
func (s *EngineService) Start(ctx context.Context, playerID, displayName, setID string) (Snapshot, error) {
	set, err := s.sets.GetSet(ctx, setID)
	if err != nil {
		return Snapshot{}, err
	}
	session, err := NewSession(sessionID(setID, playerID), playerID, displayName, set, s.spawnCfg)
	if err != nil {
		return Snapshot{}, err
	}
	s.sessions.Put(session)
	return session.Snapshot(), nil
}

// Session resolves a running session.
func (s *EngineService) Session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Submit processes one answer. When the submission ends the run with a Win,
// the rewards are merged into durable progress and the new total score is
// submitted to the leaderboard before returning; both failures are logged
// and swallowed so gameplay feedback is never blocked.
func (s *EngineService) Submit(ctx context.Context, sessionID string, sub domain.Submission) (RunOutcome, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return RunOutcome{}, err
	}
	res, err := session.Submit(sub)
	if err != nil {
		return RunOutcome{}, err
	}
	return s.settle(ctx, session, res), nil
}

// ExpireTimer feeds a question-timer expiry into the session as a forced
// failure.
func (s *EngineService) ExpireTimer(ctx context.Context, sessionID string) (RunOutcome, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return RunOutcome{}, err
	}
	res, err := session.ExpireTimer()
	if err != nil {
		return RunOutcome{}, err
	}
	return s.settle(ctx, session, res), nil
}

func (s *EngineService) settle(ctx context.Context, session *Session, res SubmitResult) RunOutcome {
	out := RunOutcome{Result: res, Saved: true}
	if !res.Finished || res.Rewards == nil {
		return out
	}

	rec, err := s.ledger.ApplyRun(ctx, session.PlayerID(), session.SetID(),
		res.Rewards.Stars, res.Rewards.Score, res.Rewards.Coins, res.XPGained)
	if err != nil {
		// Run completed but progress not saved. No automatic retry.
		log.Printf("progression save failed for %s: %v", session.PlayerID(), err)
		out.Saved = false
		return out
	}
	out.Progress = &rec

	// Leaderboard submission is independent of progression persistence.
	if s.leaderboard != nil {
		if err := s.leaderboard.Submit(ctx, session.PlayerID(), session.DisplayName(), rec.TotalScore); err != nil {
			log.Printf("leaderboard submit failed for %s: %v", session.PlayerID(), err)
		}
	}
	return out
}

// Restart resets a session in place.
func (s *EngineService) Restart(sessionID string) (Snapshot, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	session.Restart()
	return session.Snapshot(), nil
}

// Leave drops the session once it has ended.
func (s *EngineService) Leave(sessionID string) {
	s.sessions.DeleteIfEnded(sessionID)
}

// Subscribe streams session snapshots. The caller must invoke cancel.
func (s *EngineService) Subscribe(sessionID string) (<-chan Snapshot, func(), error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// StartSpawning starts the candidate-answer cadence for a session.
func (s *EngineService) StartSpawning(sessionID string, interval time.Duration) (<-chan string, func(), error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	picks, cancel := session.StartSpawning(interval)
	return picks, cancel, nil
}

// Ranking fetches the top page plus the viewer's own entry and renders
// display rows.
func (s *EngineService) Ranking(ctx context.Context, selfID string) ([]domain.RankRow, error) {
	if s.leaderboard == nil {
		return nil, nil
	}
	top, err := s.leaderboard.GetTop(ctx, s.topN)
	if err != nil {
		return nil, err
	}
	var self *domain.LeaderboardEntry
	if selfID != "" {
		self, err = s.leaderboard.GetSelf(ctx, selfID)
		if err != nil {
			// The page is still worth showing without the self row.
			log.Printf("leaderboard self lookup failed for %s: %v", selfID, err)
			self = nil
		}
	}
	return RenderRanking(top, self, selfID), nil
}

// Profile loads the durable account record for display.
func (s *EngineService) Profile(ctx context.Context, playerID string) (domain.ProgressionRecord, error) {
	return s.ledger.Load(ctx, playerID)
}

// AcknowledgeLevelUp clears the one-time level-up notice.
func (s *EngineService) AcknowledgeLevelUp(ctx context.Context, playerID string) error {
	return s.ledger.AcknowledgeLevelUp(ctx, playerID)
}

func sessionID(setID, playerID string) string {
	return setID + ":" + playerID
}
