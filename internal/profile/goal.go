package profile

import "strings"

// Goal is the template family a free-text goal maps to.
type Goal string

const (
	GoalWeightLoss     Goal = "weight_loss"
	GoalMuscleGain     Goal = "muscle_gain"
	GoalToning         Goal = "toning"
	GoalGeneralFitness Goal = "general_fitness"
)

// ClassifyGoal matches the goal text case-insensitively. Order matters:
// "loss" wins over "gain", which wins over toning.
func ClassifyGoal(goals string) Goal {
	g := strings.ToLower(goals)
	switch {
	case strings.Contains(g, "loss"):
		return GoalWeightLoss
	case strings.Contains(g, "gain"):
		return GoalMuscleGain
	case strings.Contains(g, "ton"), strings.Contains(g, "definition"):
		return GoalToning
	default:
		return GoalGeneralFitness
	}
}
