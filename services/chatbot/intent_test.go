package chatbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		message string
		want    Intent
	}{
		{"Give me a beginner grammar exercise", Intent{Kind: IntentExercise, ExerciseType: "grammar", Level: "beginner"}},
		{"How to teach vocabulary", Intent{Kind: IntentLesson, Category: "vocabulary"}},
		{"What's the weather like?", Intent{Kind: IntentPlain}},
		{"Can you give me a vocabulary quiz?", Intent{Kind: IntentExercise, ExerciseType: "vocabulary", Level: "intermediate"}},
		{"I want an advanced level writing task", Intent{Kind: IntentExercise, ExerciseType: "writing", Level: "advanced"}},
		{"Some practice for beginners please", Intent{Kind: IntentExercise, ExerciseType: "general", Level: "beginner"}},
		{"Create some exercises about pronunciation", Intent{Kind: IntentExercise, ExerciseType: "pronunciation", Level: "intermediate"}},
		{"Homework on reading advanced", Intent{Kind: IntentExercise, ExerciseType: "reading", Level: "advanced"}},
		{"Lesson plan on prepositions of place for verb lovers", Intent{Kind: IntentLesson, Category: "grammar", Topic: "prepositions"}},
		{"Plan a lesson about synonyms and word meaning", Intent{Kind: IntentLesson, Category: "vocabulary", Topic: "synonyms"}},
		{"Any tips on teaching travel?", Intent{Kind: IntentLesson, Category: "general", Topic: "travel"}},
		{"What is the latest news?", Intent{Kind: IntentPlain}},
	}

	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.message))
		})
	}
}

func TestExerciseRulesWinOverLessonRules(t *testing.T) {
	got := Classify("teaching grammar with a quiz")
	assert.Equal(t, IntentExercise, got.Kind)
	assert.Equal(t, "grammar", got.ExerciseType)
}

func TestLessonCategoryMatchesWholeWords(t *testing.T) {
	cases := map[string]string{
		"How to teach adverbs":                     "general",
		"Lesson plan on idioms with intense drama": "general",
		"Lesson plan on passwords":                 "general",
		"Lesson plan on idioms for phrasal verbs":  "grammar",
		"Teaching tenses, step by step":            "grammar",
		"Teaching collocations: a definition":      "vocabulary",
	}
	for message, want := range cases {
		t.Run(message, func(t *testing.T) {
			got := Classify(message)
			assert.Equal(t, IntentLesson, got.Kind)
			assert.Equal(t, want, got.Category)
		})
	}
}

func TestWantsMethodology(t *testing.T) {
	assert.True(t, WantsMethodology("Which Teaching Method works best?"))
	assert.True(t, WantsMethodology("explain your methodology"))
	assert.False(t, WantsMethodology("teach me methods of cooking"))
}
