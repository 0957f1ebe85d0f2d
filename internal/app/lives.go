package app

// BattleState is the lives state machine phase.
type BattleState int

const (
	StateActive BattleState = iota
	StateWon
	StateLost
)

func (s BattleState) String() string {
	switch s {
	case StateWon:
		return "won"
	case StateLost:
		return "lost"
	default:
		return "active"
	}
}

// LivesTracker holds the two independent life counters for one run. Both
// start at max(1, questionCount) unless a fixed value is configured. Won and
// Lost are terminal: further Register calls are no-ops.
type LivesTracker struct {
	player   int
	opponent int
	max      int
	state    BattleState
}

// NewLivesTracker sizes both pools. configured > 0 wins over questionCount.
func NewLivesTracker(questionCount, configured int) *LivesTracker {
	lives := questionCount
	if configured > 0 {
		lives = configured
	}
	if lives < 1 {
		lives = 1
	}
	return &LivesTracker{player: lives, opponent: lives, max: lives, state: StateActive}
}

// RegisterSuccess damages the opponent. Transitions to Won at zero.
func (t *LivesTracker) RegisterSuccess(cost int) {
	if t.state != StateActive {
		return
	}
	t.opponent = clampFloor(t.opponent - cost)
	if t.opponent == 0 {
		t.state = StateWon
	}
}

// RegisterFailure damages the player. Transitions to Lost at zero.
func (t *LivesTracker) RegisterFailure(cost int) {
	if t.state != StateActive {
		return
	}
	t.player = clampFloor(t.player - cost)
	if t.player == 0 {
		t.state = StateLost
	}
}

func (t *LivesTracker) IsActive() bool     { return t.state == StateActive }
func (t *LivesTracker) State() BattleState { return t.state }
func (t *LivesTracker) PlayerLives() int   { return t.player }
func (t *LivesTracker) OpponentLives() int { return t.opponent }
func (t *LivesTracker) MaxLives() int      { return t.max }

func clampFloor(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
