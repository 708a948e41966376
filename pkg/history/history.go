package history

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhiramiramadas/minibot/internal/store"
)

// historyKey is the storage key for the persisted turn sequence.
const historyKey = "conversationHistory"

// ackText is the synthesized model acknowledgement prefixed to provider
// payloads when an instruction or context is present.
const ackText = "Understood."

// Log is the ordered conversation history. Appends are in-memory; callers
// decide when to Persist (normally after each completed exchange).
type Log struct {
	kv     store.Storer
	logger *zap.Logger
	turns  []Turn
}

// NewLog creates an empty log over the given store.
func NewLog(kv store.Storer, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{kv: kv, logger: logger}
}

// Append adds a turn to the in-memory sequence. It does not persist.
func (l *Log) Append(turn Turn) {
	l.turns = append(l.turns, turn)
}

// Len returns the number of turns currently held.
func (l *Log) Len() int {
	return len(l.turns)
}

// Turns returns a copy of the current sequence.
func (l *Log) Turns() []Turn {
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Persist serializes the full sequence, overwriting the stored copy.
func (l *Log) Persist() error {
	data, err := json.Marshal(l.turns)
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}
	if err := l.kv.Set(historyKey, string(data)); err != nil {
		return fmt.Errorf("history: persist: %w", err)
	}
	return nil
}

// Restore loads the persisted sequence into memory and returns it.
// Malformed stored data fails soft: the log comes back empty and the
// condition is logged, never surfaced to the caller.
func (l *Log) Restore() []Turn {
	l.turns = nil

	data, ok, err := l.kv.Get(historyKey)
	if err != nil {
		l.logger.Warn("failed to read conversation history", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var turns []Turn
	if err := json.Unmarshal([]byte(data), &turns); err != nil {
		l.logger.Warn("failed to parse conversation history, starting fresh", zap.Error(err))
		return nil
	}

	l.turns = turns
	return l.Turns()
}

// Clear empties the in-memory sequence and deletes the persisted copy.
func (l *Log) Clear() error {
	l.turns = nil
	if err := l.kv.Delete(historyKey); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	return nil
}

// BuildRequestPayload produces the turn sequence to send to the provider.
//
// When systemInstruction or personalizedContext is present, a leading
// instruction/acknowledgement pair is synthesized ahead of the real history.
// That pair exists only in the payload; Persist never writes it. Parts the
// provider does not accept (hosted file references kept for re-display) are
// dropped from the payload.
func (l *Log) BuildRequestPayload(systemInstruction, personalizedContext string) []Turn {
	var instruction string
	switch {
	case systemInstruction != "" && personalizedContext != "":
		instruction = fmt.Sprintf("System Instruction: %s Additional Context: %s", systemInstruction, personalizedContext)
	case systemInstruction != "":
		instruction = fmt.Sprintf("System Instruction: %s", systemInstruction)
	case personalizedContext != "":
		instruction = fmt.Sprintf("Context: %s", personalizedContext)
	}

	payload := make([]Turn, 0, len(l.turns)+2)
	if instruction != "" {
		payload = append(payload,
			Turn{Role: RoleUser, Parts: []Part{TextPart(instruction)}},
			Turn{Role: RoleModel, Parts: []Part{TextPart(ackText)}},
		)
	}

	for _, turn := range l.turns {
		parts := make([]Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			switch p.Kind {
			case PartText, PartInlineData:
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		payload = append(payload, Turn{Role: turn.Role, Parts: parts})
	}

	return payload
}
