package entity

import "github.com/google/uuid"

type HelperPoints struct {
	HelperID uuid.UUID `json:"helper_id"`
	Points   int       `json:"points"`
}

type levelStep struct {
	minPoints int
	title     string
}

// пороги уровней помощника
var levels = []levelStep{
	{0, "Débutant"},
	{50, "Aide volontaire"},
	{100, "Assistant expérimenté"},
	{250, "Expert de l'entraide"},
	{500, "Maître de la générosité"},
}

type PointsSummary struct {
	HelperID uuid.UUID `json:"helper_id"`
	Points   int       `json:"points"`
	Level    int       `json:"level"`
	Title    string    `json:"title"`
	// NextLevelPoints - 0 на максимальном уровне
	NextLevelPoints int `json:"next_level_points,omitempty"`
	Progress        int `json:"progress"`
}

func SummarizePoints(helperID uuid.UUID, points int) PointsSummary {
	idx := 0
	for i, step := range levels {
		if points >= step.minPoints {
			idx = i
		}
	}

	summary := PointsSummary{
		HelperID: helperID,
		Points:   points,
		Level:    idx + 1,
		Title:    levels[idx].title,
		Progress: 100,
	}

	if idx+1 < len(levels) {
		floor := levels[idx].minPoints
		next := levels[idx+1].minPoints
		summary.NextLevelPoints = next
		summary.Progress = (points - floor) * 100 / (next - floor)
	}

	return summary
}
