package personalize

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhiramiramadas/minibot/internal/store"
	"github.com/abhiramiramadas/minibot/pkg/history"
	"github.com/abhiramiramadas/minibot/pkg/session"
)

func newEngine(t *testing.T) (*Engine, *session.Manager) {
	t.Helper()
	kv, err := store.NewSQLiteStore()
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	m, err := session.NewManager(kv, nil)
	require.NoError(t, err)
	e, err := NewEngine(m, nil)
	require.NoError(t, err)
	return e, m
}

func exchange(userText, modelText string) []history.Turn {
	return []history.Turn{
		{Role: history.RoleUser, Parts: []history.Part{history.TextPart(userText)}},
		{Role: history.RoleModel, Parts: []history.Part{history.TextPart(modelText)}},
	}
}

func TestAnalyzeShortHistoryIsNoOp(t *testing.T) {
	e, m := newEngine(t)

	turns := []history.Turn{
		{Role: history.RoleUser, Parts: []history.Part{history.TextPart("I love programming")}},
	}
	require.NoError(t, e.Analyze(turns))
	assert.Empty(t, m.Preferences().FavoriteTopics)
	assert.Equal(t, session.StyleBalanced, m.Preferences().ConversationStyle)
}

func TestAnalyzeDetectsTopics(t *testing.T) {
	e, m := newEngine(t)

	require.NoError(t, e.Analyze(exchange("I love programming and making music", "nice")))
	assert.Equal(t, []string{"technology", "creativity"}, m.Preferences().FavoriteTopics)
}

func TestAnalyzeTopicSubstringMatch(t *testing.T) {
	e, m := newEngine(t)

	// "Tech" inside "fintech", case-insensitive
	require.NoError(t, e.Analyze(exchange("What do you think of FINTECH startups?", "well...")))
	assert.Contains(t, m.Preferences().FavoriteTopics, "technology")
}

func TestAnalyzeSharedKeywordDetectsBothTopics(t *testing.T) {
	e, m := newEngine(t)

	// "study" belongs to both science and education
	require.NoError(t, e.Analyze(exchange("I read a study yesterday", "interesting")))
	topics := m.Preferences().FavoriteTopics
	assert.Equal(t, []string{"science", "education"}, topics)
}

func TestAnalyzeIgnoresModelText(t *testing.T) {
	e, m := newEngine(t)

	require.NoError(t, e.Analyze(exchange("hello there", "let me tell you about programming and software")))
	assert.Empty(t, m.Preferences().FavoriteTopics)
}

func TestAnalyzeTopicCapEvictsOldest(t *testing.T) {
	e, m := newEngine(t)

	// Pre-fill 19 manual topics, then detect several more
	for i := 0; i < 19; i++ {
		require.NoError(t, m.AddTopic(fmt.Sprintf("manual-%02d", i)))
	}
	require.NoError(t, e.Analyze(exchange("programming research and art money", "ok")))

	topics := m.Preferences().FavoriteTopics
	require.Len(t, topics, 20)
	// 19 manual + 4 detected = 23, oldest 3 evicted
	assert.NotContains(t, topics, "manual-00")
	assert.NotContains(t, topics, "manual-02")
	assert.Contains(t, topics, "manual-03")
	assert.Equal(t, "business", topics[19])
}

func TestAnalyzeInfersFormalStyle(t *testing.T) {
	e, m := newEngine(t)

	turns := append(
		exchange("could you please explain this", "sure"),
		exchange("thank you, please continue", "of course")...)
	require.NoError(t, e.Analyze(turns))
	assert.Equal(t, session.StyleFormal, m.Preferences().ConversationStyle)
}

func TestAnalyzeInfersCasualStyle(t *testing.T) {
	e, m := newEngine(t)

	turns := append(
		exchange("hey what's up", "hello"),
		exchange("btw I'm gonna head out", "bye")...)
	require.NoError(t, e.Analyze(turns))
	assert.Equal(t, session.StyleCasual, m.Preferences().ConversationStyle)
}

func TestAnalyzeOverwritesExplicitStyle(t *testing.T) {
	e, m := newEngine(t)

	require.NoError(t, m.SetStyle(session.StyleFormal))
	require.NoError(t, e.Analyze(exchange("what time is it", "noon")))
	// Neither phrase set matched: inference resets the explicit choice
	assert.Equal(t, session.StyleBalanced, m.Preferences().ConversationStyle)
}

func TestPersonalizedContext(t *testing.T) {
	e, m := newEngine(t)

	// Defaults: only the style fragment
	assert.Equal(t, "Conversation style preference: balanced", e.PersonalizedContext())

	require.NoError(t, m.SetPersonality("wise mentor"))
	require.NoError(t, m.AddTopics([]string{"technology", "science"}))
	require.NoError(t, m.SetStyle(session.StyleFormal))

	assert.Equal(t,
		"User prefers AI personality: wise mentor. "+
			"User is interested in: technology, science. "+
			"Conversation style preference: formal",
		e.PersonalizedContext())
}

func TestRelevantContextMatchesTag(t *testing.T) {
	e, m := newEngine(t)

	require.NoError(t, m.MarkImportant("c1", "talked about AI ethics", []string{"technology", "ethics"}))

	relevant, err := e.RelevantContext("tell me about ethics today")
	require.NoError(t, err)
	require.Len(t, relevant, 1)
	assert.Equal(t, "c1", relevant[0].ID)
}

func TestRelevantContextMatchesSummary(t *testing.T) {
	e, m := newEngine(t)

	require.NoError(t, m.MarkImportant("c1", "discussed holiday plans for Lisbon", nil))

	relevant, err := e.RelevantContext("what about lisbon again")
	require.NoError(t, err)
	require.Len(t, relevant, 1)
}

func TestRelevantContextShortTokensIgnored(t *testing.T) {
	e, m := newEngine(t)

	require.NoError(t, m.MarkImportant("c1", "the cat sat", []string{"cat"}))

	// Every token is <= 3 chars, so nothing can match
	relevant, err := e.RelevantContext("cat sat on a mat")
	require.NoError(t, err)
	assert.Empty(t, relevant)
}

func TestRelevantContextTruncatesToThreeInOrder(t *testing.T) {
	e, m := newEngine(t)

	for i := 1; i <= 5; i++ {
		require.NoError(t, m.MarkImportant(fmt.Sprintf("c%d", i), "about travel", nil))
	}

	relevant, err := e.RelevantContext("any travel ideas?")
	require.NoError(t, err)
	require.Len(t, relevant, 3)
	assert.Equal(t, "c1", relevant[0].ID)
	assert.Equal(t, "c3", relevant[2].ID)
}

func TestRelevantContextSuppressed(t *testing.T) {
	e, m := newEngine(t)

	require.NoError(t, m.MarkImportant("c1", "talked about AI ethics", []string{"ethics"}))
	require.NoError(t, m.SetPrivacy(session.PrivacySettings{RememberConversations: false}))

	_, err := e.RelevantContext("tell me about ethics today")
	assert.True(t, errors.Is(err, ErrMemorySuppressed))
}

func TestSuggestTags(t *testing.T) {
	e, _ := newEngine(t)

	tags := e.SuggestTags("We talked about the quantum computing breakthrough, again!", 3)
	assert.Equal(t, []string{"talked", "quantum", "computing"}, tags)
}

func TestSuggestTagsFiltersStopwordsAndShortWords(t *testing.T) {
	e, _ := newEngine(t)

	tags := e.SuggestTags("this is about them and those it was", 5)
	assert.Empty(t, tags)
}
