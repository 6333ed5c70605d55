package app

import (
	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

// Domain log helpers. Each builds the structured payload the marker note
// formatters consume later; keys here are part of the session-file format.

func (r *Recorder) LogBuzz(c domain.Contestant, rank int, serverTS, clientTS int64) {
	payload := map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"rank":       rank,
		"serverTime": serverTS,
	}
	if clientTS > 0 {
		payload["clientTime"] = clientTS
	}
	r.Log(domain.EventBuzz, payload)
}

func (r *Recorder) LogScoreUpdate(c domain.Contestant, oldScore, newScore int, reason string) {
	r.Log(domain.EventScoreUpdate, map[string]any{
		"id":     c.ID,
		"name":   c.Name,
		"old":    oldScore,
		"new":    newScore,
		"delta":  newScore - oldScore,
		"reason": reason,
	})
}

func (r *Recorder) LogGameTypeChange(t domain.GameType) {
	r.Log(domain.EventGameTypeChange, map[string]any{"gameType": string(t)})
}

func (r *Recorder) LogQuestionChange(index int, text string, options []string) {
	r.Log(domain.EventQuestionChange, map[string]any{
		"index":   index,
		"text":    text,
		"options": options,
	})
}

// LogAnswerSubmit records a submission; correct is nil when correctness is
// not determinable (no correct answer set, or not a scored variant).
func (r *Recorder) LogAnswerSubmit(c domain.Contestant, answer string, correct *bool) {
	payload := map[string]any{
		"id":     c.ID,
		"name":   c.Name,
		"answer": answer,
	}
	if correct != nil {
		payload["correct"] = *correct
	}
	r.Log(domain.EventAnswerSubmit, payload)
}

func (r *Recorder) LogAnswerReveal(correctAnswer string, answers map[string]string) {
	snapshot := make(map[string]string, len(answers))
	for id, answer := range answers {
		snapshot[id] = answer
	}
	r.Log(domain.EventAnswerReveal, map[string]any{
		"correctAnswer": correctAnswer,
		"answers":       snapshot,
	})
}

func (r *Recorder) LogTimerStart(durationSeconds int, resumed bool) {
	payload := map[string]any{"duration": durationSeconds}
	if resumed {
		payload["resumed"] = true
	}
	r.Log(domain.EventTimerStart, payload)
}

func (r *Recorder) LogTimerStop(remainingSeconds int) {
	r.Log(domain.EventTimerStop, map[string]any{"remaining": remainingSeconds})
}

func (r *Recorder) LogTimerTick(remainingSeconds int) {
	r.Log(domain.EventTimerTick, map[string]any{"remaining": remainingSeconds})
}

func (r *Recorder) LogContestantAdd(c domain.Contestant) {
	r.Log(domain.EventContestantAdd, map[string]any{"id": c.ID, "name": c.Name})
}

func (r *Recorder) LogContestantRemove(c domain.Contestant) {
	r.Log(domain.EventContestantRemove, map[string]any{"id": c.ID, "name": c.Name})
}

func (r *Recorder) LogBuzzerReset() {
	r.Log(domain.EventBuzzerReset, nil)
}
