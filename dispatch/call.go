package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/toolcall/executor"
	"github.com/jonwraymond/toolcall/toolerr"
)

// Call is one tool call issued by the model.
//
// Name is the wire name the model used. When Name is empty or is not a wire
// name, Namespace and Operation are used instead.
type Call struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Namespace   string         `json:"namespace,omitempty"`
	Operation   string         `json:"operation,omitempty"`
	Args        map[string]any `json:"args,omitempty"`
	MessageID   string         `json:"messageId,omitempty"`
	OperationID string         `json:"operationId,omitempty"`
	TopicID     string         `json:"topicId,omitempty"`
}

// Context returns the executor context of c.
func (c Call) Context() executor.Context {
	return executor.Context{MessageID: c.MessageID, OperationID: c.OperationID, TopicID: c.TopicID}
}

// ParseArgs decodes model-produced arguments. Anything that is not a JSON
// object yields an empty map.
func ParseArgs(raw string) map[string]any {
	out := map[string]any{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed == nil {
		return out
	}
	return parsed
}

// Phase is the lifecycle position of a call.
type Phase int

// Phases. Succeeded, Failed and Cancelled are terminal.
const (
	PhasePending Phase = iota
	PhaseRunning
	PhaseSucceeded
	PhaseFailed
	PhaseCancelled
)

var phaseNames = [...]string{"pending", "running", "succeeded", "failed", "cancelled"}

// String returns the lower-case phase name.
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether p is a final phase.
func (p Phase) Terminal() bool {
	return p >= PhaseSucceeded && p <= PhaseCancelled
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, bool) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), true
		}
	}
	return PhasePending, false
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	parsed, ok := ParsePhase(string(b))
	if !ok {
		return fmt.Errorf("unknown phase %q", b)
	}
	*p = parsed
	return nil
}

// Outcome is the settled result of a call.
type Outcome struct {
	CallID    string          `json:"callId"`
	Namespace string          `json:"namespace"`
	Operation string          `json:"operation"`
	Phase     Phase           `json:"phase"`
	Result    executor.Result `json:"result"`
}

// Record is the side-channel entry of a call.
type Record struct {
	CallID    string         `json:"callId"`
	Phase     Phase          `json:"phase"`
	Loading   bool           `json:"loading"`
	State     any            `json:"state,omitempty"`
	Error     *toolerr.Error `json:"error,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
