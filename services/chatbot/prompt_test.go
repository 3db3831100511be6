package chatbot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/services/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstPick(int) int { return 0 }

func newTestComposer() *Composer {
	return NewComposer(DefaultLibrary()).WithPicker(firstPick)
}

func TestDefaultLibraryLoads(t *testing.T) {
	lib := DefaultLibrary()
	for _, typ := range []string{"grammar", "vocabulary", "conversation", "reading", "writing", "pronunciation"} {
		for _, lvl := range []string{"beginner", "intermediate", "advanced"} {
			assert.Len(t, lib.Exercises[typ][lvl], 5, "%s/%s", typ, lvl)
		}
	}
	assert.Len(t, lib.Exercises["exam"], 3)
	assert.Len(t, lib.Methodologies, 5)
	assert.Equal(t, "Present Simple Tense", lib.LessonPlans["grammar"]["present_simple"].Title)
	assert.Len(t, lib.LessonPlans["vocabulary"]["business"].Structure, 8)
}

func TestLoadLibraryRejectsMissingGrammar(t *testing.T) {
	_, err := LoadLibrary([]byte("exercises:\n  reading:\n    beginner: [\"x\"]\n"))
	assert.Error(t, err)
}

func TestExercisePromptFallbacks(t *testing.T) {
	c := newTestComposer()

	p := c.ExercisePrompt("general", "expert")
	assert.Contains(t, p, "Please generate an English intermediate level grammar exercise.")
	assert.Contains(t, p, `"Rewrite these sentences using the passive voice: {sentences}"`)
	assert.Contains(t, p, "3. Example answers or a solution key")
	assert.True(t, strings.HasSuffix(p, "appropriate for intermediate level English learners."))

	p = c.ExercisePrompt("exam", "advanced")
	assert.Contains(t, p, "intermediate level exam exercise")
	assert.Contains(t, p, "Cambridge")
}

func TestLessonPlanPromptUsesPredefinedStructure(t *testing.T) {
	c := newTestComposer()

	p := c.LessonPlanPrompt("general", "travel")
	assert.Contains(t, p, "Please generate a detailed English lesson plan on travel.")
	assert.Contains(t, p, "9. Materials needed")
	assert.Contains(t, p, "Use this structure for the Travel Vocabulary lesson:")
	assert.Contains(t, p, "1. Introduction: Why learning travel vocabulary is important 2. Types of transportation")

	p = c.LessonPlanPrompt("vocabulary", "")
	assert.Contains(t, p, "lesson plan on vocabulary.")
	assert.NotContains(t, p, "Use this structure")
}

func TestComposePlainMessageCarriesSessionContext(t *testing.T) {
	c := newTestComposer()
	history := []gemini.Turn{
		{Role: gemini.RoleUser, Text: "hi"},
		{Role: gemini.RoleModel, Text: "hello"},
	}

	p := c.Compose(ComposeInput{
		Intent:  Intent{Kind: IntentPlain},
		Message: "What is a gerund?",
		Session: &SessionContext{ProficiencyLevel: "beginner", LearningFocus: "grammar"},
		History: history,
	})

	assert.Equal(t, "[Context: User is at beginner level focusing on grammar] What is a gerund?", p.Message)
	assert.False(t, p.OneShot)
	require.Len(t, p.History, 3)
	assert.True(t, strings.HasPrefix(p.History[0].Text, personaFraming))
	assert.Equal(t, gemini.RoleUser, p.History[0].Role)
	assert.Equal(t, history, p.History[1:])
}

func TestComposeBoundsHistory(t *testing.T) {
	c := newTestComposer()
	history := make([]gemini.Turn, 15)
	for i := range history {
		history[i] = gemini.Turn{Role: gemini.RoleUser, Text: fmt.Sprintf("turn %d", i)}
	}

	p := c.Compose(ComposeInput{
		Intent:  Intent{Kind: IntentPlain},
		Message: "next",
		Session: &SessionContext{ProficiencyLevel: "intermediate", LearningFocus: "general"},
		History: history,
	})

	require.Len(t, p.History, MaxHistoryTurns+1)
	assert.Equal(t, "turn 5", p.History[1].Text)
	assert.Equal(t, "turn 14", p.History[MaxHistoryTurns].Text)
}

func TestComposeNewSessionSendsPersonaOnly(t *testing.T) {
	c := newTestComposer()
	p := c.Compose(ComposeInput{
		Intent:  Intent{Kind: IntentExercise, ExerciseType: "grammar", Level: "beginner"},
		Message: "give me a beginner grammar exercise",
		Session: &SessionContext{ProficiencyLevel: "beginner", LearningFocus: "grammar", IsNew: true},
	})

	require.Len(t, p.History, 1)
	assert.False(t, p.OneShot)
	assert.NotContains(t, p.Message, "[Context:")
	assert.Contains(t, p.Message, "beginner level grammar exercise")
}

func TestComposeWithoutSessionIsOneShot(t *testing.T) {
	c := newTestComposer()
	p := c.Compose(ComposeInput{Intent: Intent{Kind: IntentPlain}, Message: "Hello"})

	assert.True(t, p.OneShot)
	require.Len(t, p.History, 3)
	assert.Equal(t, gemini.RoleModel, p.History[1].Role)
	assert.Equal(t, acknowledgement, p.History[1].Text)
	assert.Equal(t, "Hello", p.History[2].Text)
}

func TestComposeAppendsMethodology(t *testing.T) {
	c := newTestComposer()
	p := c.Compose(ComposeInput{Intent: Intent{Kind: IntentPlain}, Message: "Which teaching method should I use?"})

	assert.True(t, strings.HasPrefix(p.Message, "Which teaching method should I use?"))
	assert.Contains(t, p.Message, "\n\nConsider discussing this methodology: Communicative Language Teaching (CLT):")
	assert.Contains(t, p.Message, "Best for: Developing speaking fluency")
}

func TestHistoryFromMessagesMapsRoles(t *testing.T) {
	turns := HistoryFromMessages([]model.ChatMessage{
		{Role: model.MessageRoleUser, Content: "q"},
		{Role: model.MessageRoleAssistant, Content: "a"},
	})
	assert.Equal(t, []gemini.Turn{{Role: "user", Text: "q"}, {Role: "model", Text: "a"}}, turns)
}

func TestCacheKeys(t *testing.T) {
	a := ResponseKey(4, "Hello")
	assert.True(t, strings.HasPrefix(a, "response_4_"))
	assert.Len(t, strings.TrimPrefix(a, "response_4_"), 16)
	assert.Equal(t, a, ResponseKey(4, "Hello"))
	assert.NotEqual(t, a, ResponseKey(5, "Hello"))
	assert.NotEqual(t, a, ResponseKey(4, "hello"))
}
