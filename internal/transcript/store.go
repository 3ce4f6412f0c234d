package transcript

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"aura/internal/types"
)

const keyPrefix = "aura_chat_"

// ScopeKey builds the storage key for a (userId, sessionId) scope. Anonymous
// and pre-session states get stable placeholders so a scope always has a key.
func ScopeKey(userID, sessionID string) string {
	if userID == "" {
		userID = "anon"
	}
	if sessionID == "" {
		sessionID = "nosession"
	}
	return keyPrefix + userID + "_" + sessionID
}

// Store serializes the ordered message sequence for a scope through a
// Capability.
type Store struct {
	capability Capability
	logger     *zap.Logger
}

// NewStore creates a store over the given capability.
func NewStore(capability Capability, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{capability: capability, logger: logger}
}

// Save persists the transcript for the scope. Best-effort: history is a
// convenience, so failures are logged and swallowed rather than surfaced.
func (s *Store) Save(ctx context.Context, userID, sessionID string, messages []types.ChatMessage) {
	data, err := json.Marshal(messages)
	if err != nil {
		s.logger.Debug("transcript marshal failed", zap.Error(err))
		return
	}
	key := ScopeKey(userID, sessionID)
	if err := s.capability.Set(ctx, key, string(data)); err != nil {
		s.logger.Debug("transcript save failed", zap.String("key", key), zap.Error(err))
	}
}

// Load returns the stored transcript for the scope. The second return is
// false when nothing valid is stored; the caller's in-memory transcript must
// be left untouched in that case.
func (s *Store) Load(ctx context.Context, userID, sessionID string) ([]types.ChatMessage, bool) {
	key := ScopeKey(userID, sessionID)
	raw, ok, err := s.capability.Get(ctx, key)
	if err != nil {
		s.logger.Debug("transcript load failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var messages []types.ChatMessage
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		// Stored value is not a sequence; leave memory untouched.
		s.logger.Debug("transcript corrupt, ignoring", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return messages, true
}
