package model

// ContentStatus is the publication state of a lesson or vocabulary entry
type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusPublished ContentStatus = "published"
	StatusArchived  ContentStatus = "archived"
)

// Valid reports whether s is a known content status
func (s ContentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Level is the CEFR-like difficulty of a video lesson or vocabulary entry
type Level string

const (
	LevelBeginner          Level = "beginner"
	LevelElementary        Level = "elementary"
	LevelPreIntermediate   Level = "pre_intermediate"
	LevelIntermediate      Level = "intermediate"
	LevelUpperIntermediate Level = "upper_intermediate"
	LevelAdvanced          Level = "advanced"
)

// Levels lists every difficulty level from easiest to hardest
var Levels = []Level{
	LevelBeginner,
	LevelElementary,
	LevelPreIntermediate,
	LevelIntermediate,
	LevelUpperIntermediate,
	LevelAdvanced,
}

// Valid reports whether l is a known level
func (l Level) Valid() bool {
	for _, known := range Levels {
		if l == known {
			return true
		}
	}
	return false
}
