// Package personalize derives topics, conversational style and a textual
// context from the conversation history, and matches flagged conversations
// against new messages. It mutates the preferences owned by the session
// manager; it holds no persistent state of its own.
package personalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/orsinium-labs/stopwords"
	"go.uber.org/zap"

	"github.com/abhiramiramadas/minibot/pkg/history"
	"github.com/abhiramiramadas/minibot/pkg/session"
)

// ErrMemorySuppressed is returned by RelevantContext when the user has
// disabled conversation memory.
var ErrMemorySuppressed = errors.New("personalize: conversation memory disabled")

// minAnalyzableTurns is the history length below which Analyze is a no-op.
const minAnalyzableTurns = 2

// maxRelevantConversations caps RelevantContext results.
const maxRelevantConversations = 3

// Phrase sets for style scoring. A message containing any phrase of a set
// bumps that set's counter once.
var (
	formalPhrases = []string{"please", "thank you", "could you"}
	casualPhrases = []string{"hey", "gonna", "btw"}
)

// Engine derives personalization data for one session.
type Engine struct {
	session *session.Manager
	logger  *zap.Logger

	topics    *topicDictionary
	stopwords *stopwords.Stopwords
}

// NewEngine creates an engine bound to a session manager.
func NewEngine(m *session.Manager, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dict, err := compileTopicDictionary()
	if err != nil {
		return nil, fmt.Errorf("personalize: compile topic dictionary: %w", err)
	}
	return &Engine{
		session:   m,
		logger:    logger,
		topics:    dict,
		stopwords: stopwords.MustGet("en"),
	}, nil
}

// Analyze inspects the history and updates the session preferences: newly
// detected topics are appended to the favorites, and the conversation style
// is re-inferred. The inferred style overwrites whatever was stored, every
// run. Histories shorter than two turns are ignored.
func (e *Engine) Analyze(turns []history.Turn) error {
	if len(turns) < minAnalyzableTurns {
		return nil
	}

	userMessages := userTexts(turns)

	detected := e.topics.detect(strings.Join(userMessages, " "))
	if err := e.session.AddTopics(detected); err != nil {
		return err
	}

	style := detectStyle(userMessages)
	if err := e.session.SetStyle(style); err != nil {
		return err
	}

	if len(detected) > 0 {
		e.logger.Debug("conversation analyzed",
			zap.Strings("topics", detected),
			zap.String("style", string(style)))
	}
	return nil
}

// userTexts collects the leading text part of each user turn.
func userTexts(turns []history.Turn) []string {
	var out []string
	for _, turn := range turns {
		if turn.Role != history.RoleUser || len(turn.Parts) == 0 {
			continue
		}
		if p := turn.Parts[0]; p.Kind == history.PartText {
			out = append(out, p.Text)
		} else {
			out = append(out, "")
		}
	}
	return out
}

func detectStyle(messages []string) session.Style {
	formal, casual := 0, 0
	for _, msg := range messages {
		if containsAny(msg, formalPhrases) {
			formal++
		}
		if containsAny(msg, casualPhrases) {
			casual++
		}
	}

	switch {
	case formal > casual:
		return session.StyleFormal
	case casual > formal:
		return session.StyleCasual
	default:
		return session.StyleBalanced
	}
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// PersonalizedContext builds the sentence fragment injected into provider
// requests: preferred personality, favorite topics and style preference,
// joined by period-space. The style fragment is always present.
func (e *Engine) PersonalizedContext() string {
	prefs := e.session.Preferences()

	var context []string
	if prefs.PreferredPersonality != "" {
		context = append(context, fmt.Sprintf("User prefers AI personality: %s", prefs.PreferredPersonality))
	}
	if len(prefs.FavoriteTopics) > 0 {
		context = append(context, fmt.Sprintf("User is interested in: %s", strings.Join(prefs.FavoriteTopics, ", ")))
	}
	context = append(context, fmt.Sprintf("Conversation style preference: %s", prefs.ConversationStyle))

	return strings.Join(context, ". ")
}

// RelevantContext returns up to three flagged conversations whose tags or
// summary contain any word of the message longer than three characters, in
// creation order. When the user has turned conversation memory off it
// returns ErrMemorySuppressed regardless of content.
func (e *Engine) RelevantContext(message string) ([]session.ImportantConversation, error) {
	if !e.session.Preferences().PrivacySettings.RememberConversations {
		return nil, ErrMemorySuppressed
	}

	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(message)) {
		if len(word) > 3 {
			keywords = append(keywords, word)
		}
	}

	var relevant []session.ImportantConversation
	for _, conv := range e.session.Important() {
		if conversationMatches(conv, keywords) {
			relevant = append(relevant, conv)
			if len(relevant) == maxRelevantConversations {
				break
			}
		}
	}
	return relevant, nil
}

func conversationMatches(conv session.ImportantConversation, keywords []string) bool {
	summary := strings.ToLower(conv.Summary)
	for _, kw := range keywords {
		if strings.Contains(summary, kw) {
			return true
		}
		for _, tag := range conv.Tags {
			if strings.Contains(strings.ToLower(tag), kw) {
				return true
			}
		}
	}
	return false
}

// SuggestTags proposes up to max tag candidates for a conversation: the
// distinct words of text longer than three characters that are not common
// English stopwords, in order of appearance.
func (e *Engine) SuggestTags(text string, max int) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if len(word) <= 3 || seen[word] || e.stopwords.Contains(word) {
			continue
		}
		seen[word] = true
		tags = append(tags, word)
		if len(tags) == max {
			break
		}
	}
	return tags
}
