package domain

// TokenKind classifies a parsed player input.
type TokenKind string

const (
	KindStringLiteral TokenKind = "string_literal"
	KindNumber        TokenKind = "number"
	KindIdentifier    TokenKind = "identifier"
	KindInvalid       TokenKind = "invalid"
)

// AnswerToken is the typed form of a raw player input. Value holds the inner
// text for string literals (quotes stripped) and the trimmed text otherwise.
// Raw preserves the original input, quotes included.
type AnswerToken struct {
	Kind  TokenKind `json:"kind"`
	Value string    `json:"value"`
	Raw   string    `json:"raw"`
}

// Quoted reports whether the raw input carried outer double quotes.
func (t AnswerToken) Quoted() bool {
	return t.Kind == KindStringLiteral
}

// QuestionMode selects which validation path a question uses.
type QuestionMode string

const (
	// ModeExactKind matches a single typed token against an expected kind
	// and accepted values.
	ModeExactKind QuestionMode = "exact_kind"
	// ModeEvaluate binds number tokens to fixed slots and checks
	// a + b*c against the target value.
	ModeEvaluate QuestionMode = "evaluate"
	// ModeSequence requires free-text answers submitted in a fixed order.
	ModeSequence QuestionMode = "sequence"
	// ModeFreeText accepts literal answers case-insensitively or by regex.
	ModeFreeText QuestionMode = "free_text"
)

// Question is an immutable question definition, loaded once per session.
type Question struct {
	ID          string       `json:"id"`
	Prompt      string       `json:"prompt"`
	ContextLine string       `json:"contextLine,omitempty"`
	Mode        QuestionMode `json:"mode"`

	// Exact-kind mode.
	ExpectedKind   TokenKind `json:"expectedKind,omitempty"`
	CorrectAnswer  string    `json:"correctAnswer,omitempty"`
	AcceptedValues []string  `json:"acceptedValues,omitempty"`

	// Evaluate mode: result of a + b*c over the slots must equal TargetValue.
	TargetValue int `json:"targetValue,omitempty"`

	// Sequence mode.
	CorrectOrder []string `json:"correctOrder,omitempty"`
	IgnoreCase   bool     `json:"ignoreCase,omitempty"`

	// Free-text mode.
	AcceptedAnswers []string `json:"acceptedAnswers,omitempty"`
	AcceptedRegex   []string `json:"acceptedRegex,omitempty"`

	Distractors      []string `json:"distractors,omitempty"`
	WrongHints       []string `json:"wrongHints,omitempty"`
	StepExplanations []string `json:"stepExplanations,omitempty"`

	// LifeCost is how many hearts a success removes from the opponent and a
	// failure removes from the player. Zero means 1.
	LifeCost int `json:"lifeCost,omitempty"`
	// TimeLimitSeconds is the per-question limit; 0 means no limit.
	TimeLimitSeconds float64 `json:"timeLimitSeconds,omitempty"`
}

// Cost returns the effective life cost, never below 1.
func (q Question) Cost() int {
	if q.LifeCost < 1 {
		return 1
	}
	return q.LifeCost
}

// QuestionSet is the content of one challenge (shrine).
type QuestionSet struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
	// RewardXP is granted on a cleared run. Defaults to 50 if zero.
	RewardXP int `json:"rewardXp,omitempty"`
	// StartingLives overrides the max(1, len(Questions)) default when > 0.
	StartingLives int `json:"startingLives,omitempty"`
}

// XP returns the effective run reward, defaulting to 50.
func (s QuestionSet) XP() int {
	if s.RewardXP <= 0 {
		return 50
	}
	return s.RewardXP
}

// Submission carries the player's raw answer values. Exact-kind, free-text
// and sequence questions use Values[0]; evaluate mode binds each value to a
// slot in order.
type Submission struct {
	Values []string `json:"values"`
}

// FailureReason explains why a submission was rejected.
type FailureReason string

const (
	ReasonNone            FailureReason = ""
	ReasonInvalidToken    FailureReason = "invalid_token"
	ReasonKindMismatch    FailureReason = "kind_mismatch"
	ReasonValueMismatch   FailureReason = "value_mismatch"
	ReasonQuotingMismatch FailureReason = "quoting_mismatch"
	ReasonWrongResult     FailureReason = "wrong_result"
	ReasonNotNextInOrder  FailureReason = "not_next_in_order"
	ReasonUnanswerable    FailureReason = "unanswerable"
	ReasonTimeout         FailureReason = "timeout"
)

// Verdict is the outcome of validating one submission.
type Verdict struct {
	Accepted bool          `json:"accepted"`
	Reason   FailureReason `json:"reason,omitempty"`
	// SequenceAdvanced is true when an accepted sequence answer moved the
	// required pointer; SequenceComplete when it was the final item.
	SequenceAdvanced bool `json:"sequenceAdvanced,omitempty"`
	SequenceComplete bool `json:"sequenceComplete,omitempty"`
}

// RewardResult is the derived outcome of a cleared run.
type RewardResult struct {
	Stars int `json:"stars"`
	Score int `json:"score"`
	Coins int `json:"coins"`
}

// ProgressionRecord is the durable cumulative account state, owned by the
// progression ledger and read-modify-written as a whole.
type ProgressionRecord struct {
	Level           int             `json:"level"`
	TotalXP         int             `json:"totalXp"`
	NextXPThreshold int             `json:"nextXpThreshold"`
	TotalScore      int             `json:"totalScore"`
	TotalCoins      int             `json:"totalCoins"`
	BestStars       map[string]int  `json:"bestStars,omitempty"`
	BestScore       map[string]int  `json:"bestScore,omitempty"`
	Cleared         map[string]bool `json:"cleared,omitempty"`

	// Transient outcome of the last ApplyRun.
	LevelsGained   int  `json:"levelsGained,omitempty"`
	BonusCoins     int  `json:"bonusCoins,omitempty"`
	LevelUpPending bool `json:"levelUpPending,omitempty"`
	LevelUpBonus   int  `json:"levelUpBonus,omitempty"`
}

// LeaderboardEntry is one fetched ranking row. Rank is 0-based as returned by
// the backing service; display formatting adds 1.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// RankRow is a display-ready leaderboard line.
type RankRow struct {
	Rank        int    `json:"rank"`
	RankLabel   string `json:"rankLabel"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
	IsSelf      bool   `json:"isSelf,omitempty"`
	Separator   bool   `json:"separator,omitempty"`
}
