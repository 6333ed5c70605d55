package app

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

// GameService is the single source of truth for the live game. Every
// mutation goes through one of its named operations: validate against the
// current state, apply the invariant-preserving update, append the event to
// the session log, and broadcast a full snapshot to every subscriber, all
// under one mutex. That single hold serializes races between contestants
// (buzz-offs resolve purely by arrival order at the lock) and guarantees the
// log order matches the order mutations were applied in.
type GameService struct {
	recorder     *Recorder
	clock        func() time.Time
	tickInterval time.Duration
	rnd          *rand.Rand

	mu            sync.RWMutex
	contestants   []*domain.Contestant
	buzzOrder     []string
	gameType      domain.GameType
	config        domain.GameConfig
	questions     []domain.Question
	questionIndex int
	answers       map[string]string
	revealed      bool
	correctAnswer string
	transports    map[string]string // transport key -> contestant id
	subscribers   map[chan domain.Snapshot]struct{}

	// countdown identity; a nil channel means no countdown is outstanding.
	countdownCancel chan struct{}
}

// NewGameService builds a game service recording into the given recorder.
func NewGameService(recorder *Recorder) *GameService {
	return NewGameServiceWithClock(recorder, time.Now)
}

// NewGameServiceWithClock is test-only for deterministic timestamps.
func NewGameServiceWithClock(recorder *Recorder, now func() time.Time) *GameService {
	return &GameService{
		recorder:     recorder,
		clock:        now,
		tickInterval: time.Second,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
		gameType:     domain.GameTypeBuzzer,
		config:       domain.GameConfig{Type: domain.GameTypeBuzzer},
		answers:      make(map[string]string),
		transports:   make(map[string]string),
		subscribers:  make(map[chan domain.Snapshot]struct{}),
	}
}

// Subscribe returns a channel receiving the current snapshot immediately and
// a fresh snapshot after every mutation. The caller must invoke cancel to
// avoid leaks.
func (s *GameService) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

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

// Snapshot returns the complete current game state.
func (s *GameService) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// AddContestant creates a contestant with a fresh server-assigned id.
func (s *GameService) AddContestant(name string) (domain.Contestant, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Contestant{}, domain.ErrEmptyName
	}

	s.mu.Lock()
	c := &domain.Contestant{
		ID:   s.newContestantIDLocked(),
		Name: name,
	}
	s.contestants = append(s.contestants, c)
	created := *c
	s.recorder.LogContestantAdd(created)
	s.broadcastLocked()
	s.mu.Unlock()

	return created, nil
}

// RemoveContestant deletes a contestant and purges it from the buzz order
// and answer map.
func (s *GameService) RemoveContestant(id string) error {
	s.mu.Lock()
	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrContestantNotFound
	}
	removed := *s.contestants[idx]
	s.contestants = append(s.contestants[:idx], s.contestants[idx+1:]...)
	s.buzzOrder = removeID(s.buzzOrder, id)
	delete(s.answers, id)
	s.recorder.LogContestantRemove(removed)
	s.broadcastLocked()
	s.mu.Unlock()

	return nil
}

// ReorderContestants replaces display order. The id list must be an exact
// permutation of the current contestants; anything else is rejected and the
// list is left untouched, never partially applied.
func (s *GameService) ReorderContestants(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) != len(s.contestants) {
		return domain.ErrInvalidReorder
	}
	seen := make(map[string]bool, len(ids))
	reordered := make([]*domain.Contestant, 0, len(ids))
	for _, id := range ids {
		idx := s.indexOfLocked(id)
		if idx < 0 || seen[id] {
			return domain.ErrInvalidReorder
		}
		seen[id] = true
		reordered = append(reordered, s.contestants[idx])
	}
	s.contestants = reordered
	s.broadcastLocked()
	return nil
}

// UpdateScore sets a contestant's score to an absolute value. In buzzer mode
// a strict increase is treated as the scoring buzz and resets the round
// (compatibility shim from the original panel, where awarding a point also
// armed the next round).
func (s *GameService) UpdateScore(id string, score int) error {
	s.mu.Lock()
	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrContestantNotFound
	}
	c := s.contestants[idx]
	oldScore := c.Score
	c.Score = score
	if s.gameType == domain.GameTypeBuzzer && score > oldScore {
		s.startNextRoundLocked()
	}
	s.recorder.LogScoreUpdate(*c, oldScore, score, "manual_update")
	s.broadcastLocked()
	s.mu.Unlock()

	return nil
}

// ResetBuzzers clears every buzzed flag plus the buzz order, answers, reveal
// flag, and correct answer. Usable in any mode.
func (s *GameService) ResetBuzzers() {
	s.mu.Lock()
	s.resetRoundLocked()
	s.recorder.LogBuzzerReset()
	s.broadcastLocked()
	s.mu.Unlock()
}

// ResetScores zeroes every contestant's score, logging one score update per
// contestant with reason "reset".
func (s *GameService) ResetScores() {
	s.mu.Lock()
	for _, c := range s.contestants {
		old := c.Score
		c.Score = 0
		s.recorder.LogScoreUpdate(*c, old, 0, "reset")
	}
	s.broadcastLocked()
	s.mu.Unlock()
}

// SetGameType switches the active variant. A type switch is a hard reset: it
// stops any running timer and clears buzz order, answers, reveal flag,
// correct answer, and type-specific config.
func (s *GameService) SetGameType(t domain.GameType) error {
	if !t.Valid() {
		return domain.ErrInvalidGameType
	}

	s.mu.Lock()
	s.stopCountdownLocked()
	s.gameType = t
	s.config = domain.GameConfig{Type: t}
	s.resetRoundLocked()
	s.recorder.LogGameTypeChange(t)
	s.broadcastLocked()
	s.mu.Unlock()

	return nil
}

// SetGameConfig replaces the active config wholesale; callers must resend
// every field they want preserved. The same round-reset cascade as a type
// switch applies so config edits never leak stale per-round data forward.
func (s *GameService) SetGameConfig(cfg domain.GameConfig) {
	s.mu.Lock()
	s.stopCountdownLocked()
	questionChanged := s.gameType == domain.GameTypeMultipleChoice &&
		cfg.Question != "" && cfg.Question != s.config.Question
	cfg.Type = s.gameType
	s.config = cfg
	s.resetRoundLocked()
	if questionChanged {
		s.recorder.LogQuestionChange(s.questionIndex, cfg.Question, cfg.Options)
	}
	s.broadcastLocked()
	s.mu.Unlock()
}

// SetQuestions loads the full question list and rewinds to the first entry.
func (s *GameService) SetQuestions(questions []domain.Question) {
	s.mu.Lock()
	s.questions = append([]domain.Question(nil), questions...)
	s.questionIndex = 0
	s.broadcastLocked()
	s.mu.Unlock()
}

// SetCurrentQuestion moves the question cursor and swaps the active question
// into the config, running the usual round-reset cascade.
func (s *GameService) SetCurrentQuestion(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.questions) {
		s.mu.Unlock()
		return fmt.Errorf("question index %d out of range", index)
	}
	q := s.questions[index]
	s.questionIndex = index
	s.config.Question = q.Text
	s.config.Options = append([]string(nil), q.Options...)
	s.correctAnswer = q.Answer
	s.resetBuzzLocked()
	s.answers = make(map[string]string)
	s.revealed = false
	s.recorder.LogQuestionChange(index, q.Text, q.Options)
	s.broadcastLocked()
	s.mu.Unlock()

	return nil
}

// SetCorrectAnswer stores the scoring comparison string; it affects neither
// scores nor reveal state by itself.
func (s *GameService) SetCorrectAnswer(answer string) {
	s.mu.Lock()
	s.correctAnswer = answer
	s.broadcastLocked()
	s.mu.Unlock()
}

// RevealAnswers flips the monotonic reveal flag. On the transition from
// not-revealed to revealed in multiple-choice, every contestant whose
// submission matches the correct answer gains exactly one point; repeated
// calls never double-award.
func (s *GameService) RevealAnswers() {
	s.mu.Lock()
	if s.revealed {
		s.mu.Unlock()
		return
	}
	s.revealed = true

	s.recorder.LogAnswerReveal(s.correctAnswer, s.answers)
	if s.gameType == domain.GameTypeMultipleChoice && s.correctAnswer != "" {
		for _, c := range s.contestants {
			if answer, ok := s.answers[c.ID]; ok && answer == s.correctAnswer {
				old := c.Score
				c.Score++
				s.recorder.LogScoreUpdate(*c, old, c.Score, "correct_answer")
			}
		}
	}
	s.broadcastLocked()
	s.mu.Unlock()
}

// SubmitAnswer records a contestant's answer, overwriting any prior one.
// Submissions are only accepted in multiple-choice or two-option mode before
// reveal; anything else is silently dropped. Late answers are an expected
// artifact of network latency, not an error.
func (s *GameService) SubmitAnswer(id, answer string) {
	s.mu.Lock()
	accepting := (s.gameType == domain.GameTypeMultipleChoice || s.gameType == domain.GameTypeTwoOption) && !s.revealed
	idx := s.indexOfLocked(id)
	if !accepting || idx < 0 {
		s.mu.Unlock()
		return
	}
	s.answers[id] = answer
	var correct *bool
	if s.gameType == domain.GameTypeMultipleChoice && s.correctAnswer != "" {
		v := answer == s.correctAnswer
		correct = &v
	}
	s.recorder.LogAnswerSubmit(*s.contestants[idx], answer, correct)
	s.broadcastLocked()
	s.mu.Unlock()
}

// Buzz locks in a contestant for the current buzzer round. At-most-once: a
// duplicate buzz from an already-buzzed contestant is suppressed without a
// log entry or broadcast. Arrival order at the lock is the buzz order.
func (s *GameService) Buzz(id string, clientTimestamp int64) {
	s.mu.Lock()
	idx := s.indexOfLocked(id)
	if s.gameType != domain.GameTypeBuzzer || idx < 0 {
		s.mu.Unlock()
		return
	}
	c := s.contestants[idx]
	if c.Buzzed {
		s.mu.Unlock()
		return
	}
	c.Buzzed = true
	if !containsID(s.buzzOrder, id) {
		s.buzzOrder = append(s.buzzOrder, id)
	}
	// The rank and the log position are fixed under the same mutex hold, so
	// the session log can never contradict the assigned buzz order.
	s.recorder.LogBuzz(*c, len(s.buzzOrder), s.clock().UnixMilli(), clientTimestamp)
	s.broadcastLocked()
	s.mu.Unlock()
}

// Connect marks a contestant as present and remembers which transport the
// presence came from, so a later disconnect of that transport clears it.
func (s *GameService) Connect(id, transportKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOfLocked(id)
	if idx < 0 {
		return domain.ErrContestantNotFound
	}
	s.contestants[idx].Connected = true
	if transportKey != "" {
		s.transports[transportKey] = id
	}
	s.broadcastLocked()
	return nil
}

// Disconnect looks up the contestant by the departing transport's prior
// association; a contestant with no live transport simply stays in state.
func (s *GameService) Disconnect(transportKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.transports[transportKey]
	if !ok {
		return
	}
	delete(s.transports, transportKey)
	if idx := s.indexOfLocked(id); idx >= 0 {
		s.contestants[idx].Connected = false
		s.broadcastLocked()
	}
}

// startNextRoundLocked clears buzzed flags and the buzz order after a
// scoring buzz, arming the next round.
func (s *GameService) startNextRoundLocked() {
	s.resetBuzzLocked()
}

func (s *GameService) resetBuzzLocked() {
	for _, c := range s.contestants {
		c.Buzzed = false
	}
	s.buzzOrder = nil
}

// resetRoundLocked is the cascade shared by resetBuzzers, type switches, and
// config replacement.
func (s *GameService) resetRoundLocked() {
	s.resetBuzzLocked()
	s.answers = make(map[string]string)
	s.revealed = false
	s.correctAnswer = ""
}

func (s *GameService) indexOfLocked(id string) int {
	for i, c := range s.contestants {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *GameService) newContestantIDLocked() string {
	for {
		id := fmt.Sprintf("c-%08x", s.rnd.Uint32())
		if s.indexOfLocked(id) < 0 {
			return id
		}
	}
}

func (s *GameService) snapshotLocked() domain.Snapshot {
	contestants := make([]domain.Contestant, 0, len(s.contestants))
	for _, c := range s.contestants {
		contestants = append(contestants, *c)
	}
	answers := make(map[string]string, len(s.answers))
	for id, answer := range s.answers {
		answers[id] = answer
	}
	cfg := s.config
	cfg.Options = append([]string(nil), s.config.Options...)
	return domain.Snapshot{
		Contestants:          contestants,
		BuzzOrder:            append([]string(nil), s.buzzOrder...),
		GameType:             s.gameType,
		GameConfig:           cfg,
		Questions:            append([]domain.Question(nil), s.questions...),
		CurrentQuestionIndex: s.questionIndex,
		Answers:              answers,
		RevealAnswers:        s.revealed,
		CorrectAnswer:        s.correctAnswer,
	}
}

func (s *GameService) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest pending snapshot so a slow client never blocks
			// the mutation path; it will catch up from the newest one.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
