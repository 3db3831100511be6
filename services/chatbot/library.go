package chatbot

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultLibraryYAML []byte

// LessonPlan is a predefined outline for a lesson topic
type LessonPlan struct {
	Title     string   `yaml:"title"`
	Structure []string `yaml:"structure"`
}

// Methodology is a teaching approach the assistant can recommend
type Methodology struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	BestFor     string `yaml:"best_for"`
}

func (m Methodology) String() string {
	return fmt.Sprintf("%s: %s Best for: %s", m.Name, m.Description, m.BestFor)
}

// Library holds the exercise templates, lesson plans and methodologies
type Library struct {
	// Exercises maps exercise type to level (or exam name) to templates
	Exercises     map[string]map[string][]string   `yaml:"exercises"`
	LessonPlans   map[string]map[string]LessonPlan `yaml:"lesson_plans"`
	Methodologies []Methodology                    `yaml:"methodologies"`
}

// LoadLibrary parses a library document
func LoadLibrary(data []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("parse template library: %w", err)
	}
	if len(lib.Exercises) == 0 {
		return nil, fmt.Errorf("template library has no exercises")
	}
	if _, ok := lib.Exercises[fallbackExerciseType]; !ok {
		return nil, fmt.Errorf("template library has no %q exercises", fallbackExerciseType)
	}
	return &lib, nil
}

// DefaultLibrary returns the embedded library. It panics if the embedded
// document is malformed.
func DefaultLibrary() *Library {
	lib, err := LoadLibrary(defaultLibraryYAML)
	if err != nil {
		panic(err)
	}
	return lib
}

const (
	fallbackExerciseType  = "grammar"
	fallbackExerciseLevel = "intermediate"
)

// ExerciseTemplates resolves the templates for an exercise type and level.
// Unknown types fall back to grammar and unknown levels to intermediate.
// Types keyed by something other than level (exam) return every template
// of the type when the level has no entry.
func (l *Library) ExerciseTemplates(exerciseType, level string) (resolvedType, resolvedLevel string, templates []string) {
	byLevel, ok := l.Exercises[exerciseType]
	if !ok {
		exerciseType = fallbackExerciseType
		byLevel = l.Exercises[exerciseType]
	}
	if t, ok := byLevel[level]; ok {
		return exerciseType, level, t
	}
	if t, ok := byLevel[fallbackExerciseLevel]; ok {
		return exerciseType, fallbackExerciseLevel, t
	}

	keys := make([]string, 0, len(byLevel))
	for k := range byLevel {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		templates = append(templates, byLevel[k]...)
	}
	return exerciseType, fallbackExerciseLevel, templates
}

// LessonPlan finds a predefined plan for topic, preferring category
func (l *Library) LessonPlan(category, topic string) (LessonPlan, bool) {
	if topic == "" {
		return LessonPlan{}, false
	}
	if plan, ok := l.LessonPlans[category][topic]; ok {
		return plan, true
	}

	categories := make([]string, 0, len(l.LessonPlans))
	for c := range l.LessonPlans {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		if plan, ok := l.LessonPlans[c][topic]; ok {
			return plan, true
		}
	}
	return LessonPlan{}, false
}
