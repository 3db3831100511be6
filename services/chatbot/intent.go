package chatbot

import (
	"regexp"
	"strings"
)

// IntentKind tells the composer how to treat a message
type IntentKind string

const (
	IntentPlain    IntentKind = "plain"
	IntentExercise IntentKind = "exercise"
	IntentLesson   IntentKind = "lesson_plan"
)

// Intent is the classification result of a user message.
// ExerciseType and Level are set for IntentExercise, Category and Topic
// for IntentLesson.
type Intent struct {
	Kind         IntentKind
	ExerciseType string
	Level        string
	Category     string
	Topic        string
}

const (
	defaultExerciseType = "general"
	defaultLevel        = "intermediate"
	generalCategory     = "general"
)

var (
	levelWords = []string{"beginner", "intermediate", "advanced"}

	exerciseTypes = []string{"grammar", "vocabulary", "conversation", "reading", "writing", "pronunciation", "exam"}

	skillTopics = []string{"grammar", "vocabulary", "reading", "writing", "listening", "speaking", "pronunciation"}

	grammarKeywords    = []string{"verb", "tense", "preposition", "article", "noun", "adjective"}
	vocabularyKeywords = []string{"word", "definition", "meaning", "synonym"}

	levelWordRe = regexp.MustCompile(`\b(beginner|intermediate|advanced)s?\b`)
)

const wordPunctuation = ".,!?;:'\"[]()"

const exerciseNouns = `(?:exercise|practice|quiz|task|drill|test|homework|assignment)s?`

type rule struct {
	pattern *regexp.Regexp
	extract func(m []string) Intent
}

// exerciseRules are tried before lessonRules; the first match wins
var exerciseRules = []rule{
	{
		// "beginner grammar exercise", "advanced level writing tasks"
		pattern: regexp.MustCompile(`\b(beginner|intermediate|advanced)s?\s+(?:level\s+)?(\w+)\s+` + exerciseNouns + `\b`),
		extract: func(m []string) Intent {
			return Intent{Kind: IntentExercise, Level: m[1], ExerciseType: m[2]}
		},
	},
	{
		// "give me a vocabulary quiz", "create some reading exercises"
		pattern: regexp.MustCompile(`\b(?:give me|create|make|generate|write)\s+(?:(?:a|an|some)\s+)?(\w+)\s+` + exerciseNouns + `\b`),
		extract: func(m []string) Intent {
			return Intent{Kind: IntentExercise, ExerciseType: m[1]}
		},
	},
	{
		// "exercise for beginners", "practice on pronunciation advanced"
		pattern: regexp.MustCompile(`\b` + exerciseNouns + `\b(?:\s+(?:for|on|about))?(?:\s+(\w+))?(?:\s+(beginner|intermediate|advanced)s?\b)?`),
		extract: func(m []string) Intent {
			return Intent{Kind: IntentExercise, ExerciseType: m[1], Level: m[2]}
		},
	},
}

var lessonRules = []*regexp.Regexp{
	regexp.MustCompile(`lesson plan (?:on|for|about) (\w+)`),
	regexp.MustCompile(`plan (?:a|the) lesson (?:on|for|about) (\w+)`),
	regexp.MustCompile(`how to teach (\w+)`),
	regexp.MustCompile(`teaching (\w+)`),
}

// Classify decides whether message asks for an exercise, a lesson plan,
// or is an ordinary chat message.
func Classify(message string) Intent {
	lower := strings.ToLower(message)

	for _, r := range exerciseRules {
		if m := r.pattern.FindStringSubmatch(lower); m != nil {
			return normalizeExercise(r.extract(m), lower)
		}
	}

	for _, re := range lessonRules {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		topic := m[1]
		if contains(skillTopics, topic) {
			return Intent{Kind: IntentLesson, Category: topic}
		}
		return Intent{Kind: IntentLesson, Category: lessonCategory(lower), Topic: topic}
	}

	return Intent{Kind: IntentPlain}
}

// WantsMethodology reports whether message asks about teaching methods
func WantsMethodology(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "teaching method") || strings.Contains(lower, "methodology")
}

func normalizeExercise(in Intent, lower string) Intent {
	if lvl, ok := asLevel(in.ExerciseType); ok {
		if in.Level == "" {
			in.Level = lvl
		}
		in.ExerciseType = ""
	}
	if lvl, ok := asLevel(in.Level); ok {
		in.Level = lvl
	}

	if !contains(exerciseTypes, in.ExerciseType) {
		in.ExerciseType = defaultExerciseType
		for _, word := range messageWords(lower) {
			if contains(exerciseTypes, word) {
				in.ExerciseType = word
				break
			}
		}
	}

	if in.Level == "" {
		in.Level = defaultLevel
		if m := levelWordRe.FindStringSubmatch(lower); m != nil {
			in.Level = m[1]
		}
	}
	return in
}

func lessonCategory(lower string) string {
	words := messageWords(lower)
	switch {
	case hasKeyword(words, grammarKeywords):
		return "grammar"
	case hasKeyword(words, vocabularyKeywords):
		return "vocabulary"
	}
	return generalCategory
}

// messageWords splits lower into words stripped of surrounding punctuation
func messageWords(lower string) []string {
	fields := strings.Fields(lower)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := strings.Trim(f, wordPunctuation); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// hasKeyword matches whole words, singular or with a plural "s"
func hasKeyword(words, keywords []string) bool {
	for _, w := range words {
		if contains(keywords, w) || contains(keywords, strings.TrimSuffix(w, "s")) {
			return true
		}
	}
	return false
}

// asLevel accepts "beginner" as well as "beginners"
func asLevel(word string) (string, bool) {
	word = strings.TrimSuffix(word, "s")
	if contains(levelWords, word) {
		return word, true
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
