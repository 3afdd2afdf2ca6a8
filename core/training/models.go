package training

import (
	"time"

	"github.com/trezcool/forma/core"
)

// Workout difficulties
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

var (
	ExerciseOrderingFields = []string{"name", "muscle_group", "equipment", "created_at"}
	WorkoutOrderingFields  = []string{"name", "difficulty", "estimated_minutes", "created_at"}
	ProgramOrderingFields  = []string{"name", "duration_weeks", "published", "created_at"}
)

type Exercise struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	MuscleGroup string    `json:"muscle_group" db:"muscle_group"`
	Equipment   string    `json:"equipment" db:"equipment"`
	VideoID     string    `json:"video_id" db:"video_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type Workout struct {
	ID               string            `json:"id" db:"id"`
	Name             string            `json:"name" db:"name"`
	Description      string            `json:"description" db:"description"`
	Difficulty       string            `json:"difficulty" db:"difficulty"`
	EstimatedMinutes int               `json:"estimated_minutes" db:"estimated_minutes"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
	Exercises        []WorkoutExercise `json:"exercises,omitempty" db:"-"`
}

type WorkoutExercise struct {
	ID          string `json:"id" db:"id"`
	WorkoutID   string `json:"workout_id" db:"workout_id"`
	ExerciseID  string `json:"exercise_id" db:"exercise_id"`
	Position    int    `json:"position" db:"position"`
	Sets        int    `json:"sets" db:"sets"`
	Reps        string `json:"reps" db:"reps"` // "8-12", "AMRAP"...
	RestSeconds int    `json:"rest_seconds" db:"rest_seconds"`
	Notes       string `json:"notes" db:"notes"`
}

type Program struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	DurationWeeks int       `json:"duration_weeks" db:"duration_weeks"`
	MembershipID  *string   `json:"membership_id" db:"membership_id"`
	Published     bool      `json:"published" db:"published"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Period is a named, closed range of weeks [StartWeek, EndWeek] of a Program.
type Period struct {
	ID        string `json:"id" db:"id"`
	ProgramID string `json:"program_id" db:"program_id"`
	Name      string `json:"name" db:"name"`
	StartWeek int    `json:"start_week" db:"start_week"`
	EndWeek   int    `json:"end_week" db:"end_week"`
}

// Overlaps reports whether the closed week ranges of p and o intersect.
func (p Period) Overlaps(o Period) bool {
	return p.StartWeek <= o.EndWeek && o.StartWeek <= p.EndWeek
}

type Week struct {
	ID        string `json:"id" db:"id"`
	ProgramID string `json:"program_id" db:"program_id"`
	PeriodID  string `json:"period_id" db:"period_id"`
	Number    int    `json:"number" db:"number"`
}

type ProgramWorkout struct {
	ID        string `json:"id" db:"id"`
	WeekID    string `json:"week_id" db:"week_id"`
	WorkoutID string `json:"workout_id" db:"workout_id"`
	DayOfWeek int    `json:"day_of_week" db:"day_of_week"` // 1 (Monday) - 7
	Position  int    `json:"position" db:"position"`
}

type (
	// Schedule is a program laid out as periods -> weeks -> workouts.
	Schedule struct {
		Program Program          `json:"program"`
		Periods []PeriodSchedule `json:"periods"`
	}

	PeriodSchedule struct {
		Period
		Weeks []WeekSchedule `json:"weeks"`
	}

	WeekSchedule struct {
		Week
		Workouts []ScheduledWorkout `json:"workouts"`
	}

	ScheduledWorkout struct {
		ProgramWorkout
		WorkoutName string `json:"workout_name"`
	}
)

type NewExercise struct {
	Name        string `json:"name" validate:"notblank"`
	Description string `json:"description"`
	MuscleGroup string `json:"muscle_group"`
	Equipment   string `json:"equipment"`
	VideoID     string `json:"video_id"`
}

func (ne *NewExercise) Validate() error {
	ne.Name = core.CleanString(ne.Name)
	ne.MuscleGroup = core.CleanString(ne.MuscleGroup, true /* lower */)
	ne.Equipment = core.CleanString(ne.Equipment, true /* lower */)
	ne.VideoID = core.CleanString(ne.VideoID)
	return core.Validate.Struct(ne)
}

type NewWorkoutExercise struct {
	ExerciseID  string `json:"exercise_id" validate:"required"`
	Sets        int    `json:"sets" validate:"min=1"`
	Reps        string `json:"reps"`
	RestSeconds int    `json:"rest_seconds" validate:"min=0"`
	Notes       string `json:"notes"`
}

type NewWorkout struct {
	Name             string               `json:"name" validate:"notblank"`
	Description      string               `json:"description"`
	Difficulty       string               `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	EstimatedMinutes int                  `json:"estimated_minutes" validate:"min=0"`
	Exercises        []NewWorkoutExercise `json:"exercises" validate:"dive"`
}

func (nw *NewWorkout) Validate() error {
	nw.Name = core.CleanString(nw.Name)
	nw.Difficulty = core.CleanString(nw.Difficulty, true /* lower */)
	return core.Validate.Struct(nw)
}

// WorkoutExercisesUpdate replaces the whole exercise list of a workout.
type WorkoutExercisesUpdate struct {
	Exercises []NewWorkoutExercise `json:"exercises" validate:"dive"`
}

func (wu *WorkoutExercisesUpdate) Validate() error { return core.Validate.Struct(wu) }

type NewProgram struct {
	Name          string  `json:"name" validate:"notblank"`
	Description   string  `json:"description"`
	DurationWeeks int     `json:"duration_weeks" validate:"min=1,max=104"`
	MembershipID  *string `json:"membership_id"`
	Published     bool    `json:"published"`
}

func (np *NewProgram) Validate() error {
	np.Name = core.CleanString(np.Name)
	if np.MembershipID != nil {
		np.MembershipID = core.StringPtr(core.CleanString(*np.MembershipID))
	}
	return core.Validate.Struct(np)
}

type NewPeriod struct {
	Name      string `json:"name" validate:"notblank"`
	StartWeek int    `json:"start_week" validate:"min=1"`
	EndWeek   int    `json:"end_week" validate:"min=1,gtefield=StartWeek"`
}

func (np *NewPeriod) Validate() error {
	np.Name = core.CleanString(np.Name)
	return core.Validate.Struct(np)
}

type NewProgramWorkout struct {
	WorkoutID string `json:"workout_id" validate:"required"`
	DayOfWeek int    `json:"day_of_week" validate:"min=1,max=7"`
	Position  int    `json:"position" validate:"min=0"`
}

func (np *NewProgramWorkout) Validate() error { return core.Validate.Struct(np) }

type ExerciseFilter struct {
	Search      string
	MuscleGroup string
}

type WorkoutFilter struct {
	Search     string
	Difficulty string
}

type ProgramFilter struct {
	Search       string
	Published    *bool
	MembershipID string
}
