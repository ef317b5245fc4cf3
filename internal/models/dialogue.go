package models

import (
	"strings"
)

// CandidateSet is one game: the candidates shown to the questioner and the target only the oracle knows.
type CandidateSet struct {
	ID     int
	Items  []string
	Target string
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a role conversation.
type Message struct {
	Role    Role
	Content string
}

// Metrics are the uncertainty scores reported by the model service for one output. All values are in [0,1].
type Metrics struct {
	Confidence            float64
	ObservedConsistency   float64
	SelfReportedCertainty float64
}

// TurnRecord is the row persisted for every question and answer exchange.
type TurnRecord struct {
	DialogueID      int
	// Attempt counts tries of the dialogue from 1. It is not part of the tabular log.
	Attempt         int
	IntraDialogueID int
	Target          string
	Question        string
	Answer          string
	QuestionMetrics Metrics
	AnswerMetrics   Metrics
	QuestionTimeMS  int64
	AnswerTimeMS    int64
}

// TranscriptSentinel separates dialogue blocks in the transcript log.
const TranscriptSentinel = "******************"

// transcriptPreamble is the number of lines, sentinel and target, that are never shown to the models.
const transcriptPreamble = 2

// Transcript is the human-readable rendering of one dialogue attempt.
type Transcript struct {
	lines []string
}

// NewTranscript starts a transcript with the sentinel and target lines.
func NewTranscript(target string) *Transcript {
	return &Transcript{
		lines: []string{TranscriptSentinel, "target = " + target},
	}
}

// AddQuestioner appends a "questioner: " line.
func (t *Transcript) AddQuestioner(text string) {
	t.lines = append(t.lines, "questioner: "+text)
}

// AddAnswerer appends an "answerer: " line.
func (t *Transcript) AddAnswerer(text string) {
	t.lines = append(t.lines, "answerer: "+text)
}

// Dialogue renders the lines after the preamble, the context given to both models.
func (t *Transcript) Dialogue() string {
	return strings.Join(t.lines[transcriptPreamble:], "\n")
}

// Lines returns a copy of all lines including the preamble.
func (t *Transcript) Lines() []string {
	lines := make([]string, len(t.lines))
	copy(lines, t.lines)
	return lines
}

// Dialogue is a successfully finished game ready to be persisted.
type Dialogue struct {
	ID      int
	Target  string
	Attempt int
	Turns   int
	Lines   []string
}
