package app

import (
	"sync"
	"time"

	"codium-engine/internal/domain"
)

// Snapshot is the presentation-facing view of a session. It carries
// everything a client needs to draw the current question and both heart bars.
type Snapshot struct {
	SessionID         string              `json:"sessionId"`
	SetID             string              `json:"setId"`
	State             string              `json:"state"`
	QuestionIndex     int                 `json:"questionIndex"`
	QuestionID        string              `json:"questionId,omitempty"`
	Prompt            string              `json:"prompt,omitempty"`
	ContextLine       string              `json:"contextLine,omitempty"`
	Mode              domain.QuestionMode `json:"mode,omitempty"`
	PlayerLives       int                 `json:"playerLives"`
	OpponentLives     int                 `json:"opponentLives"`
	MaxLives          int                 `json:"maxLives"`
	NextRequiredIndex int                 `json:"nextRequiredIndex"`
	Collected         []string            `json:"collected,omitempty"`
	Candidates        []string            `json:"candidates,omitempty"`
	TimeLimitSeconds  float64             `json:"timeLimitSeconds,omitempty"`
	Accepting         bool                `json:"accepting"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// SubmitResult reports one processed submission.
type SubmitResult struct {
	Verdict          domain.Verdict       `json:"verdict"`
	Hint             string               `json:"hint,omitempty"`
	Explanation      string               `json:"explanation,omitempty"`
	PlayerLives      int                  `json:"playerLives"`
	OpponentLives    int                  `json:"opponentLives"`
	State            string               `json:"state"`
	QuestionAdvanced bool                 `json:"questionAdvanced"`
	Finished         bool                 `json:"finished"`
	Rewards          *domain.RewardResult `json:"rewards,omitempty"`
	XPGained         int                  `json:"xpGained,omitempty"`
}

// Session sequences one quiz-battle run. It owns the session state and
// processes one submission at a time; the Validate→Lives→Reward pipeline for
// a submission completes before the next one starts.
type Session struct {
	id          string
	playerID    string
	displayName string
	set         domain.QuestionSet
	spawnCfg    SpawnConfig
	now         func() time.Time

	mu            sync.Mutex
	qIndex        int
	nextRequired  int
	wrongAttempts int
	collected     []string
	lives         *LivesTracker
	spawner       *Spawner
	accepting     bool
	rewards       *domain.RewardResult
	endedCh       chan struct{}
	subscribers   map[chan Snapshot]struct{}
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id, playerID, displayName string, set domain.QuestionSet, spawnCfg SpawnConfig) (*Session, error) {
	return newSessionWithClock(id, playerID, displayName, set, spawnCfg, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(id, playerID, displayName string, set domain.QuestionSet, spawnCfg SpawnConfig, now func() time.Time) (*Session, error) {
	if len(set.Questions) == 0 {
		return nil, domain.ErrEmptySet
	}
	s := &Session{
		id:          id,
		playerID:    playerID,
		displayName: displayName,
		set:         set,
		spawnCfg:    spawnCfg,
		now:         now,
		subscribers: make(map[chan Snapshot]struct{}),
	}
	s.mu.Lock()
	s.initLocked()
	s.mu.Unlock()
	return s, nil
}

func (s *Session) initLocked() {
	s.qIndex = 0
	s.nextRequired = 0
	s.wrongAttempts = 0
	s.collected = nil
	s.rewards = nil
	s.lives = NewLivesTracker(len(s.set.Questions), s.set.StartingLives)
	s.spawner = NewSpawner(s.spawnCfg)
	s.accepting = true
	s.endedCh = make(chan struct{})
}

func (s *Session) ID() string          { return s.id }
func (s *Session) PlayerID() string    { return s.playerID }
func (s *Session) DisplayName() string { return s.displayName }
func (s *Session) SetID() string       { return s.set.ID }

// IsEmpty reports whether the session has finished and can be dropped.
func (s *Session) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.lives.IsActive()
}

// Submit runs one answer through the Validate→Lives→Reward pipeline.
func (s *Session) Submit(sub domain.Submission) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lives.IsActive() {
		return SubmitResult{}, domain.ErrSessionEnded
	}
	if len(sub.Values) == 0 {
		return SubmitResult{}, domain.ErrNoSubmission
	}
	if !s.accepting {
		// Paused between questions; the host resumes before play continues.
		return SubmitResult{}, domain.ErrNotAccepting
	}

	q := s.set.Questions[s.qIndex]
	verdict := Validate(q, sub, s.nextRequired)

	if verdict.Accepted {
		return s.handleCorrectLocked(q, sub, verdict), nil
	}
	return s.handleWrongLocked(q, verdict), nil
}

func (s *Session) handleCorrectLocked(q domain.Question, sub domain.Submission, verdict domain.Verdict) SubmitResult {
	res := SubmitResult{Verdict: verdict}

	if verdict.SequenceAdvanced && !verdict.SequenceComplete {
		// Mid-sequence catch: lock the line in, no damage yet.
		s.collected = append(s.collected, sub.Values[0])
		s.nextRequired++
		res.PlayerLives = s.lives.PlayerLives()
		res.OpponentLives = s.lives.OpponentLives()
		res.State = s.lives.State().String()
		s.broadcastLocked()
		return res
	}

	if verdict.SequenceComplete {
		s.collected = append(s.collected, sub.Values[0])
		s.nextRequired++
		res.Explanation = joinNonEmpty(q.StepExplanations)
	}

	s.lives.RegisterSuccess(q.Cost())

	if s.lives.State() == StateWon {
		s.finishLocked()
		stars := StarsFromLives(s.lives.PlayerLives())
		rewards := RewardsFromStars(stars)
		s.rewards = &rewards
		res.Rewards = &rewards
		res.XPGained = s.set.XP()
		res.Finished = true
	} else {
		s.advanceQuestionLocked()
		res.QuestionAdvanced = true
	}

	res.PlayerLives = s.lives.PlayerLives()
	res.OpponentLives = s.lives.OpponentLives()
	res.State = s.lives.State().String()
	s.broadcastLocked()
	return res
}

func (s *Session) handleWrongLocked(q domain.Question, verdict domain.Verdict) SubmitResult {
	s.wrongAttempts++
	s.lives.RegisterFailure(q.Cost())

	res := SubmitResult{
		Verdict:       verdict,
		Hint:          s.hintLocked(q),
		PlayerLives:   s.lives.PlayerLives(),
		OpponentLives: s.lives.OpponentLives(),
		State:         s.lives.State().String(),
	}
	if s.lives.State() == StateLost {
		s.finishLocked()
		res.Finished = true
	}
	s.broadcastLocked()
	return res
}

// ExpireTimer feeds a question timeout into the pipeline as a forced failure.
// The question advances afterwards so a stuck player is not asked the same
// thing again.
func (s *Session) ExpireTimer() (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lives.IsActive() {
		return SubmitResult{}, domain.ErrSessionEnded
	}

	q := s.set.Questions[s.qIndex]
	s.lives.RegisterFailure(q.Cost())

	res := SubmitResult{
		Verdict:       domain.Verdict{Accepted: false, Reason: domain.ReasonTimeout},
		PlayerLives:   s.lives.PlayerLives(),
		OpponentLives: s.lives.OpponentLives(),
		State:         s.lives.State().String(),
	}
	if s.lives.State() == StateLost {
		s.finishLocked()
		res.Finished = true
	} else {
		s.advanceQuestionLocked()
		res.QuestionAdvanced = true
	}
	s.broadcastLocked()
	return res, nil
}

// Pause stops the session from accepting answers (and spawn picks) while the
// host shows an explanation; Resume restores play.
func (s *Session) Pause() {
	s.mu.Lock()
	s.accepting = false
	s.broadcastLocked()
	s.mu.Unlock()
}

func (s *Session) Resume() {
	s.mu.Lock()
	if s.lives.IsActive() {
		s.accepting = true
	}
	s.broadcastLocked()
	s.mu.Unlock()
}

// Restart re-initializes the run in place. Any running spawn loop observes
// the old generation's ended channel closing and stops for good.
func (s *Session) Restart() {
	s.mu.Lock()
	if s.endedCh != nil {
		select {
		case <-s.endedCh:
		default:
			close(s.endedCh)
		}
	}
	s.initLocked()
	s.broadcastLocked()
	s.mu.Unlock()
}

// Rewards returns the run's reward result, nil unless the session was Won.
func (s *Session) Rewards() *domain.RewardResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewards
}

func (s *Session) advanceQuestionLocked() {
	if s.qIndex+1 < len(s.set.Questions) {
		s.qIndex++
	}
	s.nextRequired = 0
	s.wrongAttempts = 0
	s.collected = nil
	s.spawner.Reset()
}

func (s *Session) finishLocked() {
	s.accepting = false
	select {
	case <-s.endedCh:
	default:
		close(s.endedCh)
	}
}

// hintLocked rotates through the question's wrong-answer hints per attempt.
func (s *Session) hintLocked(q domain.Question) string {
	if len(q.WrongHints) == 0 {
		return ""
	}
	idx := (s.wrongAttempts - 1) % len(q.WrongHints)
	if idx < 0 {
		idx = 0
	}
	return q.WrongHints[idx]
}

// Subscribe returns a channel receiving snapshots on every state change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// Deliver the registration-time snapshot before any broadcast can run.
	// The buffer is empty here, so this send cannot block.
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// StartSpawning runs the candidate-answer cadence on a ticker. Picks pause
// while the session is not accepting answers and stop permanently the moment
// the session ends or restarts. The caller must invoke the cancel function.
func (s *Session) StartSpawning(interval time.Duration) (<-chan string, func()) {
	picks := make(chan string)
	done := make(chan struct{})

	s.mu.Lock()
	endedCh := s.endedCh
	s.mu.Unlock()

	go func() {
		defer close(picks)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-endedCh:
				return
			case <-ticker.C:
			}

			s.mu.Lock()
			if !s.lives.IsActive() {
				s.mu.Unlock()
				return
			}
			if !s.accepting {
				s.mu.Unlock()
				continue
			}
			text := s.spawner.PickNext(s.spawnPoolLocked(), s.expectedLocked())
			s.mu.Unlock()

			select {
			case picks <- text:
			case <-done:
				return
			case <-endedCh:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() { once.Do(func() { close(done) }) }
	return picks, cancel
}

// Snapshot returns the current presentation view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	q := s.set.Questions[s.qIndex]
	collected := make([]string, len(s.collected))
	copy(collected, s.collected)
	return Snapshot{
		SessionID:         s.id,
		SetID:             s.set.ID,
		State:             s.lives.State().String(),
		QuestionIndex:     s.qIndex,
		QuestionID:        q.ID,
		Prompt:            q.Prompt,
		ContextLine:       q.ContextLine,
		Mode:              q.Mode,
		PlayerLives:       s.lives.PlayerLives(),
		OpponentLives:     s.lives.OpponentLives(),
		MaxLives:          s.lives.MaxLives(),
		NextRequiredIndex: s.nextRequired,
		Collected:         collected,
		Candidates:        s.spawnPoolLocked(),
		TimeLimitSeconds:  q.TimeLimitSeconds,
		Accepting:         s.accepting,
		UpdatedAt:         s.now(),
	}
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale update so slow clients never block play.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// spawnPoolLocked is every answer and distractor the current question knows,
// deduplicated, non-empty.
func (s *Session) spawnPoolLocked() []string {
	q := s.set.Questions[s.qIndex]
	seen := make(map[string]struct{})
	var pool []string
	add := func(items []string) {
		for _, text := range items {
			if text == "" {
				continue
			}
			if _, ok := seen[text]; ok {
				continue
			}
			seen[text] = struct{}{}
			pool = append(pool, text)
		}
	}
	add(q.CorrectOrder)
	if q.CorrectAnswer != "" {
		add([]string{q.CorrectAnswer})
	}
	add(q.AcceptedValues)
	add(q.Distractors)
	return pool
}

// expectedLocked is the item the player still needs: the next sequence line,
// or the correct answer for single-answer modes.
func (s *Session) expectedLocked() string {
	q := s.set.Questions[s.qIndex]
	if q.Mode == domain.ModeSequence {
		ordered := nonEmpty(q.CorrectOrder)
		if s.nextRequired >= 0 && s.nextRequired < len(ordered) {
			return ordered[s.nextRequired]
		}
		return ""
	}
	return q.CorrectAnswer
}

func joinNonEmpty(items []string) string {
	out := ""
	for _, s := range items {
		if s == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += s
	}
	return out
}
