// Package session manages the persistent per-profile identity: the session
// token, its user preferences, and the conversations the user flagged as
// important. One Manager is constructed at startup and passed to whatever
// needs it; there is no ambient global.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abhiramiramadas/minibot/internal/store"
)

const (
	tokenKey   = "sessionToken"
	createdKey = "sessionCreated"

	prefsSuffix     = "_preferences"
	importantSuffix = "_important_conversations"
)

// ImportantConversation is a user-flagged conversation summary kept for
// later relevance matching. The collection is append-only and scoped to
// the session token.
type ImportantConversation struct {
	ID       string    `json:"id"`
	Summary  string    `json:"summary"`
	Tags     []string  `json:"tags"`
	MarkedAt time.Time `json:"markedAt"`
	// RelevanceScore is fixed at 1.0 on creation. No decay or ranking is
	// applied yet.
	RelevanceScore float64 `json:"relevanceScore"`
}

// ExportData is the user-facing data portability snapshot.
type ExportData struct {
	SessionToken           string                  `json:"sessionToken"`
	Preferences            Preferences             `json:"preferences"`
	ImportantConversations []ImportantConversation `json:"importantConversations"`
	SessionCreated         string                  `json:"sessionCreated"`
}

// Manager owns the session token and everything persisted under it.
type Manager struct {
	kv     store.Storer
	logger *zap.Logger

	token     string
	createdAt string
	prefs     Preferences
	important []ImportantConversation
}

// NewManager loads the existing session from the store, or initializes a
// fresh one on first run. Malformed persisted preference data falls back to
// defaults and is logged, never surfaced.
func NewManager(kv store.Storer, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{kv: kv, logger: logger}
	if err := m.loadOrCreate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) loadOrCreate() error {
	token, ok, err := m.kv.Get(tokenKey)
	if err != nil {
		return fmt.Errorf("session: read token: %w", err)
	}
	if !ok {
		if err := m.initFresh(); err != nil {
			return err
		}
	} else {
		m.token = token
		created, _, err := m.kv.Get(createdKey)
		if err != nil {
			return fmt.Errorf("session: read created: %w", err)
		}
		m.createdAt = created
	}

	m.prefs = m.loadPreferences()
	m.important = m.loadImportant()
	return nil
}

func (m *Manager) initFresh() error {
	m.token = generateToken()
	m.createdAt = time.Now().Format(time.RFC3339)
	if err := m.kv.Set(tokenKey, m.token); err != nil {
		return fmt.Errorf("session: store token: %w", err)
	}
	if err := m.kv.Set(createdKey, m.createdAt); err != nil {
		return fmt.Errorf("session: store created: %w", err)
	}
	return nil
}

// generateToken produces an opaque unique session identifier.
func generateToken() string {
	b := make([]byte, 5)
	rand.Read(b)
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(b))
}

func (m *Manager) loadPreferences() Preferences {
	data, ok, err := m.kv.Get(m.token + prefsSuffix)
	if err != nil {
		m.logger.Warn("failed to read preferences", zap.Error(err))
		return DefaultPreferences()
	}
	if !ok {
		return DefaultPreferences()
	}

	var prefs Preferences
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		m.logger.Warn("failed to parse preferences, using defaults", zap.Error(err))
		return DefaultPreferences()
	}
	if prefs.FavoriteTopics == nil {
		prefs.FavoriteTopics = []string{}
	}
	return prefs
}

func (m *Manager) loadImportant() []ImportantConversation {
	data, ok, err := m.kv.Get(m.token + importantSuffix)
	if err != nil {
		m.logger.Warn("failed to read important conversations", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var important []ImportantConversation
	if err := json.Unmarshal([]byte(data), &important); err != nil {
		m.logger.Warn("failed to parse important conversations, starting empty", zap.Error(err))
		return nil
	}
	return important
}

// Token returns the session token.
func (m *Manager) Token() string { return m.token }

// CreatedAt returns the session creation timestamp as stored (RFC 3339).
func (m *Manager) CreatedAt() string { return m.createdAt }

// Preferences returns a copy of the current preference set.
func (m *Manager) Preferences() Preferences { return m.prefs.clone() }

// Important returns a copy of the flagged conversations in creation order.
func (m *Manager) Important() []ImportantConversation {
	out := make([]ImportantConversation, len(m.important))
	copy(out, m.important)
	return out
}

func (m *Manager) savePreferences() error {
	data, err := json.Marshal(m.prefs)
	if err != nil {
		return fmt.Errorf("session: marshal preferences: %w", err)
	}
	if err := m.kv.Set(m.token+prefsSuffix, string(data)); err != nil {
		return fmt.Errorf("session: save preferences: %w", err)
	}
	return nil
}

func (m *Manager) saveImportant() error {
	data, err := json.Marshal(m.important)
	if err != nil {
		return fmt.Errorf("session: marshal important conversations: %w", err)
	}
	if err := m.kv.Set(m.token+importantSuffix, string(data)); err != nil {
		return fmt.Errorf("session: save important conversations: %w", err)
	}
	return nil
}

// SetPersonality sets the preferred AI personality. Empty means default.
func (m *Manager) SetPersonality(personality string) error {
	m.prefs.PreferredPersonality = personality
	return m.savePreferences()
}

// SetStyle sets the conversation style. Analysis overwrites this value on
// every run, so an explicit choice only holds until the next exchange.
func (m *Manager) SetStyle(style Style) error {
	m.prefs.ConversationStyle = style
	return m.savePreferences()
}

// SetReminders updates the reminder preferences.
func (m *Manager) SetReminders(prefs ReminderPreferences) error {
	m.prefs.ReminderPreferences = prefs
	return m.savePreferences()
}

// SetPrivacy updates the privacy settings.
func (m *Manager) SetPrivacy(settings PrivacySettings) error {
	m.prefs.PrivacySettings = settings
	return m.savePreferences()
}

// AddTopic appends a topic to the favorites. Duplicates (exact,
// case-sensitive) are rejected silently; the list keeps only the most
// recent entries when it exceeds the cap.
func (m *Manager) AddTopic(topic string) error {
	return m.AddTopics([]string{topic})
}

// AddTopics appends each new topic in order, then applies the FIFO cap.
func (m *Manager) AddTopics(topics []string) error {
	changed := false
	for _, topic := range topics {
		if topic == "" || containsString(m.prefs.FavoriteTopics, topic) {
			continue
		}
		m.prefs.FavoriteTopics = append(m.prefs.FavoriteTopics, topic)
		changed = true
	}
	if len(m.prefs.FavoriteTopics) > maxFavoriteTopics {
		m.prefs.FavoriteTopics = m.prefs.FavoriteTopics[len(m.prefs.FavoriteTopics)-maxFavoriteTopics:]
		changed = true
	}
	if !changed {
		return nil
	}
	return m.savePreferences()
}

// RemoveTopic drops a topic from the favorites if present.
func (m *Manager) RemoveTopic(topic string) error {
	for i, t := range m.prefs.FavoriteTopics {
		if t == topic {
			m.prefs.FavoriteTopics = append(m.prefs.FavoriteTopics[:i], m.prefs.FavoriteTopics[i+1:]...)
			return m.savePreferences()
		}
	}
	return nil
}

// MarkImportant appends a flagged conversation and persists immediately.
func (m *Manager) MarkImportant(id, summary string, tags []string) error {
	m.important = append(m.important, ImportantConversation{
		ID:             id,
		Summary:        summary,
		Tags:           append([]string(nil), tags...),
		MarkedAt:       time.Now(),
		RelevanceScore: 1.0,
	})
	return m.saveImportant()
}

// Export returns the full user data snapshot.
func (m *Manager) Export() ExportData {
	return ExportData{
		SessionToken:           m.token,
		Preferences:            m.Preferences(),
		ImportantConversations: m.Important(),
		SessionCreated:         m.createdAt,
	}
}

// Clear deletes all session-scoped persisted data and re-initializes a
// fresh token with default preferences. The old token's data is gone for
// good; there is no way back.
func (m *Manager) Clear() error {
	for _, key := range []string{tokenKey, createdKey, m.token + prefsSuffix, m.token + importantSuffix} {
		if err := m.kv.Delete(key); err != nil {
			return fmt.Errorf("session: clear %s: %w", key, err)
		}
	}

	if err := m.initFresh(); err != nil {
		return err
	}
	m.prefs = DefaultPreferences()
	m.important = nil
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
