package domain

// GameType names which state-machine variant is currently active.
type GameType string

const (
	GameTypeBuzzer         GameType = "buzzer"
	GameTypeMultipleChoice GameType = "multiple-choice"
	GameTypeTwoOption      GameType = "two-option"
	GameTypeTimerOnly      GameType = "timer-only"
)

// Valid reports whether t is one of the known game types.
func (t GameType) Valid() bool {
	switch t {
	case GameTypeBuzzer, GameTypeMultipleChoice, GameTypeTwoOption, GameTypeTimerOnly:
		return true
	}
	return false
}

// Contestant is a player in the live game. IDs are server-assigned and never
// taken from clients.
type Contestant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Buzzed    bool   `json:"buzzed"`
	Connected bool   `json:"connected"`
}

// TimerState is the countdown attached to the active game config.
// Remaining > 0 with Running=false means paused; Remaining == 0 with
// Running=false means expired or never started.
type TimerState struct {
	Duration  int  `json:"duration,omitempty"`
	Remaining int  `json:"remaining"`
	Running   bool `json:"running"`
}

// GameConfig carries the variant-specific settings for the active game type.
// The Type tag says which fields are meaningful: Question and Options for
// multiple-choice, a two-element Options list for two-option, Timer for any
// variant.
type GameConfig struct {
	Type     GameType   `json:"type"`
	Question string     `json:"question,omitempty"`
	Options  []string   `json:"options,omitempty"`
	Timer    TimerState `json:"timer"`
}

// Question is one entry of the loaded question list.
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  string   `json:"answer,omitempty"`
}

// Snapshot is the full game state broadcast to every connected view after
// each mutation. Clients always render from a complete snapshot, never a
// diff.
type Snapshot struct {
	Contestants          []Contestant      `json:"contestants"`
	BuzzOrder            []string          `json:"buzzOrder"`
	GameType             GameType          `json:"gameType"`
	GameConfig           GameConfig        `json:"gameConfig"`
	Questions            []Question        `json:"questions"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
	Answers              map[string]string `json:"answers"`
	RevealAnswers        bool              `json:"revealAnswers"`
	CorrectAnswer        string            `json:"correctAnswer"`
}

// EventKind tags a recorded game event.
type EventKind string

const (
	EventSessionStart     EventKind = "session_start"
	EventSessionEnd       EventKind = "session_end"
	EventBuzz             EventKind = "buzz"
	EventScoreUpdate      EventKind = "score_update"
	EventGameTypeChange   EventKind = "game_type_change"
	EventQuestionChange   EventKind = "question_change"
	EventAnswerSubmit     EventKind = "answer_submit"
	EventAnswerReveal     EventKind = "answer_reveal"
	EventTimerStart       EventKind = "timer_start"
	EventTimerStop        EventKind = "timer_stop"
	EventTimerTick        EventKind = "timer_tick"
	EventContestantAdd    EventKind = "contestant_add"
	EventContestantRemove EventKind = "contestant_remove"
	EventBuzzerReset      EventKind = "buzzer_reset"
)

// Event is one timestamped entry of a session's log. Timestamp is
// milliseconds since the Unix epoch; timestamps are non-decreasing in append
// order within a session.
type Event struct {
	SessionID string         `json:"sessionId"`
	Kind      EventKind      `json:"kind"`
	Timestamp int64          `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// SessionInfo summarizes the recorder's current session for status queries.
type SessionInfo struct {
	SessionID   string `json:"sessionId"`
	IsActive    bool   `json:"isActive"`
	StartTime   int64  `json:"startTime,omitempty"`
	RemainingMS int64  `json:"remainingTimeMs,omitempty"`
	TotalEvents int    `json:"totalEvents"`
}

// Marker is a frame-indexed, color-tagged timeline annotation derived from an
// Event, in the shape DaVinci Resolve's scripting API consumes.
type Marker struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	Note     string `json:"note"`
	Start    int    `json:"start"`
	Duration int    `json:"duration"`
}
