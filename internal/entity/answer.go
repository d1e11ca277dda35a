package entity

import (
	"encoding/json"
	"time"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

// Outcome tells which terminal state of the pipeline produced an answer
type Outcome string

const (
	OutcomeAnswered        Outcome = "answered"
	OutcomeRejected        Outcome = "rejected"
	OutcomeNoEvidence      Outcome = "no_evidence"
	OutcomeLexicalFallback Outcome = "lexical_fallback"
	OutcomeFailed          Outcome = "failed"
)

// Citation is a provenance reference to a chunk that was placed in the context.
type Citation struct {
	Chapter   string  `json:"chapter"`
	Section   string  `json:"section,omitempty"`
	Page      *int    `json:"page,omitempty"`
	Edition   string  `json:"edition"`
	Relevance float64 `json:"relevance"`
}

type GeneratedAnswer struct {
	Content            string              `json:"content"`
	Confidence         Confidence          `json:"confidence"`
	Citations          []Citation          `json:"citations"`
	RetrievedDocuments []RetrievedDocument `json:"retrieved_documents"`
	ProcessingTime     time.Duration       `json:"-"`
	Outcome            Outcome             `json:"outcome"`
	Model              string              `json:"model,omitempty"`
	SessionID          string              `json:"session_id,omitempty"`
}

// MarshalJSON reports processing time in milliseconds.
func (a GeneratedAnswer) MarshalJSON() ([]byte, error) {
	type alias GeneratedAnswer
	return json.Marshal(struct {
		alias
		ProcessingTimeMs int64 `json:"processing_time_ms"`
	}{
		alias:            alias(a),
		ProcessingTimeMs: a.ProcessingTime.Milliseconds(),
	})
}

type StreamEventKind string

const (
	StreamEventProgress StreamEventKind = "progress"
	StreamEventDelta    StreamEventKind = "delta"
	StreamEventFinal    StreamEventKind = "final"
)

// StreamEvent is one item of a streamed answer. Progress and delta events
// carry Text, the single final event carries Answer and is always last.
type StreamEvent struct {
	Kind   StreamEventKind  `json:"kind"`
	Text   string           `json:"text,omitempty"`
	Answer *GeneratedAnswer `json:"answer,omitempty"`
}

func ProgressEvent(text string) StreamEvent {
	return StreamEvent{Kind: StreamEventProgress, Text: text}
}

func DeltaEvent(text string) StreamEvent {
	return StreamEvent{Kind: StreamEventDelta, Text: text}
}

func FinalEvent(answer *GeneratedAnswer) StreamEvent {
	return StreamEvent{Kind: StreamEventFinal, Answer: answer}
}
