package personalize

import (
	"strings"

	"github.com/coregx/ahocorasick"
)

// topicKeywords maps each topic tag to the keywords that signal it. A topic
// is detected when any of its keywords appears as a substring of the user's
// lowercased text. Order matters: detected topics are reported in table
// order.
var topicKeywords = []struct {
	Topic    string
	Keywords []string
}{
	{"technology", []string{"computer", "software", "programming", "code", "tech", "ai", "machine learning"}},
	{"science", []string{"research", "experiment", "theory", "hypothesis", "study", "analysis"}},
	{"creativity", []string{"art", "music", "writing", "creative", "design", "poetry"}},
	{"health", []string{"health", "fitness", "exercise", "wellness", "medical"}},
	{"education", []string{"learn", "study", "school", "university", "education", "knowledge"}},
	{"business", []string{"business", "market", "finance", "money", "investment", "career"}},
}

// topicDictionary scans text for topic keywords with a single Aho-Corasick
// automaton. One pattern may signal several topics ("study" is both science
// and education), so patterns map to topic lists.
type topicDictionary struct {
	ac            *ahocorasick.Automaton
	patternTopics [][]string
	order         []string
}

func compileTopicDictionary() (*topicDictionary, error) {
	dict := &topicDictionary{
		patternTopics: [][]string{},
	}

	patternIndex := make(map[string]int)
	var patterns []string

	for _, entry := range topicKeywords {
		dict.order = append(dict.order, entry.Topic)
		for _, kw := range entry.Keywords {
			key := strings.ToLower(kw)
			if idx, exists := patternIndex[key]; exists {
				dict.patternTopics[idx] = append(dict.patternTopics[idx], entry.Topic)
				continue
			}
			idx := len(patterns)
			patterns = append(patterns, key)
			patternIndex[key] = idx
			dict.patternTopics = append(dict.patternTopics, []string{entry.Topic})
		}
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	dict.ac = automaton

	return dict, nil
}

// detect returns the topics whose keywords occur in text, in table order.
// Matching is plain substring over the lowercased text; "ai" inside a longer
// word counts, same as the substring scan this replaces.
func (d *topicDictionary) detect(text string) []string {
	if text == "" {
		return nil
	}

	haystack := []byte(strings.ToLower(text))
	matches := d.ac.FindAllOverlapping(haystack)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	for _, m := range matches {
		for _, topic := range d.patternTopics[m.PatternID] {
			seen[topic] = true
		}
	}

	detected := make([]string, 0, len(seen))
	for _, topic := range d.order {
		if seen[topic] {
			detected = append(detected, topic)
		}
	}
	return detected
}
