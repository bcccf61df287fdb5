// Package session turns a flat stream of normalized sets into a calendar
// view: per-day sessions split into exercise blocks, preserving execution
// order and superset structure. Display only — the metric engine reads the
// set stream directly.
package session

import (
	"sort"
	"time"

	"github.com/claude/liftstate/internal/models"
)

// UnknownExerciseName labels blocks whose exercise reference cannot be
// resolved. Such blocks are retained so data is never silently lost from
// the history view.
const UnknownExerciseName = "Unknown exercise"

// blockMinutes is the constant per-block duration estimate. Session length
// is not measured by the log.
const blockMinutes = 8

// BlockExercise is one exercise's sets within a block.
type BlockExercise struct {
	ExerciseID   string       `json:"exerciseId"`
	ExerciseName string       `json:"exerciseName"`
	Sets         []models.Set `json:"sets"`
}

// Block is one unit of a session: a standalone exercise or a true superset
// of two or more distinct exercises sharing a group id.
type Block struct {
	SupersetGroupID string          `json:"supersetGroupId,omitempty"`
	IsSuperset      bool            `json:"isSuperset"`
	Exercises       []BlockExercise `json:"exercises"`
	Note            string          `json:"note,omitempty"`

	minOrder int
}

// Session is one calendar day of training.
type Session struct {
	Date             time.Time `json:"date"`
	MuscleGroups     []string  `json:"muscleGroups"`
	Blocks           []Block   `json:"blocks"`
	EstimatedMinutes int       `json:"estimatedMinutes"`
}

// Aggregate groups sets by calendar day and by (exercise, superset group),
// newest day first. A superset group shared by fewer than two distinct
// exercises on a day is reclassified as ordinary sequential sets.
func Aggregate(sets []models.Set, exercises map[string]models.Exercise) []Session {
	byDay := make(map[time.Time][]models.Set)
	for _, s := range sets {
		d := s.Day()
		byDay[d] = append(byDay[d], s)
	}

	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	sessions := make([]Session, 0, len(days))
	for _, d := range days {
		sessions = append(sessions, buildSession(d, byDay[d], exercises))
	}
	return sessions
}

func buildSession(day time.Time, sets []models.Set, exercises map[string]models.Exercise) Session {
	// A "superset" needs at least two different movements; demote group ids
	// that only ever tag one exercise on this day.
	namesPerGroup := make(map[string]map[string]bool)
	for _, s := range sets {
		if s.SupersetGroupID == "" {
			continue
		}
		if namesPerGroup[s.SupersetGroupID] == nil {
			namesPerGroup[s.SupersetGroupID] = make(map[string]bool)
		}
		namesPerGroup[s.SupersetGroupID][exerciseName(s.ExerciseID, exercises)] = true
	}

	type blockKey struct {
		group string // non-empty for true supersets
		name  string // exercise name for standalone blocks
	}
	blocks := make(map[blockKey]*Block)
	var order []blockKey

	for _, s := range sets {
		group := s.SupersetGroupID
		if group != "" && len(namesPerGroup[group]) <= 1 {
			group = ""
		}
		name := exerciseName(s.ExerciseID, exercises)

		key := blockKey{group: group}
		if group == "" {
			key.name = name
		}
		b, ok := blocks[key]
		if !ok {
			b = &Block{
				SupersetGroupID: group,
				IsSuperset:      group != "",
				minOrder:        s.Order,
			}
			blocks[key] = b
			order = append(order, key)
		}
		if s.Order < b.minOrder {
			b.minOrder = s.Order
		}
		if b.Note == "" && s.Note != "" {
			b.Note = s.Note
		}
		addSet(b, s, name)
	}

	session := Session{Date: day}
	muscle := make(map[string]bool)

	for _, key := range order {
		b := blocks[key]
		for i := range b.Exercises {
			be := &b.Exercises[i]
			sort.Slice(be.Sets, func(x, y int) bool { return be.Sets[x].Order < be.Sets[y].Order })
			if ex, ok := exercises[be.ExerciseID]; ok && ex.MuscleGroup != "" {
				muscle[ex.MuscleGroup] = true
			}
		}
		session.Blocks = append(session.Blocks, *b)
	}
	sort.SliceStable(session.Blocks, func(i, j int) bool {
		return session.Blocks[i].minOrder < session.Blocks[j].minOrder
	})

	for g := range muscle {
		session.MuscleGroups = append(session.MuscleGroups, g)
	}
	sort.Strings(session.MuscleGroups)
	session.EstimatedMinutes = len(session.Blocks) * blockMinutes
	return session
}

func addSet(b *Block, s models.Set, name string) {
	for i := range b.Exercises {
		if b.Exercises[i].ExerciseID == s.ExerciseID {
			b.Exercises[i].Sets = append(b.Exercises[i].Sets, s)
			return
		}
	}
	b.Exercises = append(b.Exercises, BlockExercise{
		ExerciseID:   s.ExerciseID,
		ExerciseName: name,
		Sets:         []models.Set{s},
	})
}

func exerciseName(id string, exercises map[string]models.Exercise) string {
	if ex, ok := exercises[id]; ok {
		return ex.Name
	}
	return UnknownExerciseName
}
