package domain

// Goal is a user's primary nutrition goal.
type Goal string

const (
	// GoalNone applies no goal-specific boost.
	GoalNone Goal = ""
	// GoalWeightLoss favors low-calorie, high-protein foods.
	GoalWeightLoss Goal = "weight_loss"
	// GoalMuscleGain favors high-protein foods.
	GoalMuscleGain Goal = "muscle_gain"
	// GoalHeartHealth favors low-sodium, high-fiber foods.
	GoalHeartHealth Goal = "heart_health"
)

// ParseGoal maps a wire value to a Goal.
func ParseGoal(s string) (Goal, error) {
	switch Goal(s) {
	case GoalNone, GoalWeightLoss, GoalMuscleGain, GoalHeartHealth:
		return Goal(s), nil
	default:
		return GoalNone, ErrUnknownGoal
	}
}

// Profile holds the user constraints the recommender filters by.
type Profile struct {
	Goal         Goal
	Restrictions []string // excluded category names, lower-cased
}

// Recommendation is one ranked meal suggestion.
type Recommendation struct {
	Food   FoodRecord
	Score  float64
	Reason string
}
