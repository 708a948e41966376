package session

// Style is the user's conversational style preference.
type Style string

const (
	StyleCasual   Style = "casual"
	StyleFormal   Style = "formal"
	StyleBalanced Style = "balanced"
)

// Frequency controls how often reminders fire.
type Frequency string

const (
	FrequencySmart  Frequency = "smart"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// maxFavoriteTopics caps the topic list; the oldest entries are evicted
// first when the cap is exceeded.
const maxFavoriteTopics = 20

// ReminderPreferences configures reminder behavior.
type ReminderPreferences struct {
	Enabled   bool      `json:"enabled"`
	Frequency Frequency `json:"frequency"`
}

// PrivacySettings gate the personalization features.
type PrivacySettings struct {
	RememberConversations bool `json:"rememberConversations"`
	SharePersonalInfo     bool `json:"sharePersonalInfo"`
}

// Preferences is the per-session user preference set. It is persisted as
// JSON under <token>_preferences.
type Preferences struct {
	PreferredPersonality string              `json:"preferredPersonality"`
	FavoriteTopics       []string            `json:"favoriteTopics"`
	ConversationStyle    Style               `json:"conversationStyle"`
	ReminderPreferences  ReminderPreferences `json:"reminderPreferences"`
	PrivacySettings      PrivacySettings     `json:"privacySettings"`
}

// DefaultPreferences returns the preference set for a fresh session.
func DefaultPreferences() Preferences {
	return Preferences{
		PreferredPersonality: "",
		FavoriteTopics:       []string{},
		ConversationStyle:    StyleBalanced,
		ReminderPreferences: ReminderPreferences{
			Enabled:   true,
			Frequency: FrequencySmart,
		},
		PrivacySettings: PrivacySettings{
			RememberConversations: true,
			SharePersonalInfo:     false,
		},
	}
}

func (p Preferences) clone() Preferences {
	out := p
	out.FavoriteTopics = append([]string(nil), p.FavoriteTopics...)
	return out
}
