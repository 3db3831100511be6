package chatbot

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/services/gemini"
)

// MaxHistoryTurns bounds the stored turns sent along with a new message
const MaxHistoryTurns = 10

// SessionContext is what the composer needs to know about the session
type SessionContext struct {
	ProficiencyLevel string
	LearningFocus    string
	// IsNew is true when the session has no messages before this one
	IsNew bool
}

// ComposeInput gathers everything a prompt is built from
type ComposeInput struct {
	Intent  Intent
	Message string
	// Session is nil for one-off requests without a session
	Session *SessionContext
	// History is the stored conversation, oldest first, excluding Message
	History []gemini.Turn
	// Persona overrides the built-in persona when non-empty
	Persona string
}

// Payload is what is sent to the completion client. When OneShot is set
// History already ends with the user message and is sent as-is.
type Payload struct {
	Message string
	History []gemini.Turn
	OneShot bool
}

// Composer builds completion payloads from classified messages
type Composer struct {
	lib  *Library
	pick func(n int) int
}

// NewComposer creates a composer over lib. Template and methodology choice
// is random.
func NewComposer(lib *Library) *Composer {
	return &Composer{lib: lib, pick: rand.IntN}
}

// WithPicker replaces the random choice, used by tests
func (c *Composer) WithPicker(pick func(n int) int) *Composer {
	c.pick = pick
	return c
}

// Compose builds the payload for one user turn
func (c *Composer) Compose(in ComposeInput) Payload {
	enhanced := c.enhance(in)

	persona := in.Persona
	if persona == "" {
		persona = Persona
	}
	personaTurn := gemini.Turn{Role: gemini.RoleUser, Text: personaFraming + persona}

	switch {
	case in.Session == nil:
		return Payload{
			Message: enhanced,
			OneShot: true,
			History: []gemini.Turn{
				personaTurn,
				{Role: gemini.RoleModel, Text: acknowledgement},
				{Role: gemini.RoleUser, Text: enhanced},
			},
		}
	case in.Session.IsNew || len(in.History) == 0:
		return Payload{Message: enhanced, History: []gemini.Turn{personaTurn}}
	}

	history := in.History
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}
	turns := make([]gemini.Turn, 0, len(history)+1)
	turns = append(turns, personaTurn)
	turns = append(turns, history...)
	return Payload{Message: enhanced, History: turns}
}

func (c *Composer) enhance(in ComposeInput) string {
	var enhanced string
	switch in.Intent.Kind {
	case IntentExercise:
		enhanced = c.ExercisePrompt(in.Intent.ExerciseType, in.Intent.Level)
	case IntentLesson:
		enhanced = c.LessonPlanPrompt(in.Intent.Category, in.Intent.Topic)
	default:
		enhanced = in.Message
		if in.Session != nil {
			enhanced = fmt.Sprintf("[Context: User is at %s level focusing on %s] %s",
				in.Session.ProficiencyLevel, in.Session.LearningFocus, enhanced)
		}
	}

	if WantsMethodology(in.Message) && len(c.lib.Methodologies) > 0 {
		m := c.lib.Methodologies[c.pick(len(c.lib.Methodologies))]
		enhanced += "\n\nConsider discussing this methodology: " + m.String()
	}
	return enhanced
}

// ExercisePrompt asks the model for a complete exercise built around a
// randomly chosen template of the given type and level.
func (c *Composer) ExercisePrompt(exerciseType, level string) string {
	exerciseType, level, templates := c.lib.ExerciseTemplates(exerciseType, level)
	template := ""
	if len(templates) > 0 {
		template = templates[c.pick(len(templates))]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Please generate an English %s level %s exercise.\n", level, exerciseType)
	fmt.Fprintf(&b, "Use this template as inspiration: \"%s\"\n\n", template)
	b.WriteString("Fill in all the necessary details to make this a complete and useful exercise.\n")
	b.WriteString("Include:\n")
	b.WriteString("1. Clear instructions\n")
	b.WriteString("2. The exercise content\n")
	b.WriteString("3. Example answers or a solution key\n")
	b.WriteString("4. Learning tips related to this exercise\n\n")
	fmt.Fprintf(&b, "Make sure the exercise is appropriate for %s level English learners.", level)
	return b.String()
}

// LessonPlanPrompt asks for a nine-part lesson plan on topic, or on the
// category when no topic was given.
func (c *Composer) LessonPlanPrompt(category, topic string) string {
	subject := topic
	if subject == "" {
		subject = category
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Please generate a detailed English lesson plan on %s.\n\n", subject)
	b.WriteString("The lesson plan should include:\n\n")
	b.WriteString("1. Lesson objectives\n")
	b.WriteString("2. Target language points\n")
	b.WriteString("3. Warm-up activity (5-10 minutes)\n")
	b.WriteString("4. Presentation of new language/concepts (10-15 minutes)\n")
	b.WriteString("5. Controlled practice activities (10-15 minutes)\n")
	b.WriteString("6. Free practice activities (10-15 minutes)\n")
	b.WriteString("7. Assessment or feedback activity\n")
	b.WriteString("8. Homework or extension activities\n")
	b.WriteString("9. Materials needed\n\n")
	b.WriteString("Please ensure the lesson plan is well-structured, engaging, and follows best practices for ")
	b.WriteString("language teaching. Include clear instructions for the teacher and estimated timing for each section.")

	if plan, ok := c.lib.LessonPlan(category, topic); ok {
		fmt.Fprintf(&b, "\n\nUse this structure for the %s lesson:\n\n", plan.Title)
		b.WriteString(strings.Join(plan.Structure, " "))
		b.WriteString("\n\nExpand on each section with detailed content and activities.")
	}
	return b.String()
}

// FirstMessagePrefix tags the opening message of a session with its settings
func FirstMessagePrefix(level, focus string) string {
	return fmt.Sprintf("[English level: %s, Focus: %s] ", level, focus)
}

// HistoryFromMessages converts stored messages, oldest first, to turns
func HistoryFromMessages(messages []model.ChatMessage) []gemini.Turn {
	turns := make([]gemini.Turn, 0, len(messages))
	for _, m := range messages {
		role := gemini.RoleUser
		if m.Role == model.MessageRoleAssistant {
			role = gemini.RoleModel
		}
		turns = append(turns, gemini.Turn{Role: role, Text: m.Content})
	}
	return turns
}
