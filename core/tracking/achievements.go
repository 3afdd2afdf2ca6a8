package tracking

import (
	"context"
	"net/mail"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
)

// Streak counts the consecutive calendar days with at least one workout,
// going back from the most recent workout day.
func Streak(days []time.Time) int {
	if len(days) == 0 {
		return 0
	}
	dates := make([]time.Time, 0, len(days))
	seen := make(map[time.Time]bool, len(days))
	for _, d := range days {
		d = core.DateOf(d)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	streak := 1
	for i := 1; i < len(dates); i++ {
		if !dates[i].Equal(dates[i-1].AddDate(0, 0, -1)) {
			break
		}
		streak++
	}
	return streak
}

func (svc *service) CreateAchievement(ctx context.Context, na NewAchievement) (Achievement, error) {
	if _, err := svc.repo.GetAchievementByCode(ctx, na.Code); err == nil {
		return Achievement{}, core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
	} else if !core.IsNotFound(err) {
		return Achievement{}, errors.Wrap(err, "finding achievement by code")
	}
	a := Achievement{
		Code:        na.Code,
		Name:        na.Name,
		Description: na.Description,
		Kind:        na.Kind,
		Threshold:   na.Threshold,
		CreatedAt:   core.NowFunc().UTC(),
	}
	return svc.repo.CreateAchievement(ctx, a)
}

func (svc *service) ListAchievements(ctx context.Context) ([]Achievement, error) {
	return svc.repo.ListAchievements(ctx)
}

func (svc *service) GetAchievement(ctx context.Context, id string) (Achievement, error) {
	return svc.repo.GetAchievement(ctx, id)
}

func (svc *service) UpdateAchievement(ctx context.Context, a Achievement, na NewAchievement) (Achievement, error) {
	if na.Code != a.Code {
		if _, err := svc.repo.GetAchievementByCode(ctx, na.Code); err == nil {
			return Achievement{}, core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
		} else if !core.IsNotFound(err) {
			return Achievement{}, errors.Wrap(err, "finding achievement by code")
		}
	}
	a.Code = na.Code
	a.Name = na.Name
	a.Description = na.Description
	a.Kind = na.Kind
	a.Threshold = na.Threshold
	return svc.repo.UpdateAchievement(ctx, a)
}

func (svc *service) DeleteAchievement(ctx context.Context, id string) error {
	return svc.repo.DeleteAchievement(ctx, id)
}

func (svc *service) SeedAchievements(ctx context.Context) (int, error) {
	var created int
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, na := range DefaultAchievements {
			if _, err := svc.repo.GetAchievementByCode(ctx, na.Code); err == nil {
				continue
			} else if !core.IsNotFound(err) {
				return errors.Wrap(err, "finding achievement by code")
			}
			if _, err := svc.CreateAchievement(ctx, na); err != nil {
				return errors.Wrap(err, "creating achievement "+na.Code)
			}
			created++
		}
		return nil
	})
	return created, err
}

func (svc *service) UserAchievements(ctx context.Context, userID string) ([]UserAchievement, error) {
	return svc.repo.ListUserAchievements(ctx, userID)
}

// evaluate unlocks the achievements of kinds the user now satisfies and emails them about it.
// Failures are logged: the triggering log entry is already stored.
func (svc *service) evaluate(ctx context.Context, userID string, kinds ...string) {
	unlocked, err := svc.unlock(ctx, userID, kinds)
	if err != nil {
		svc.logger.Error("evaluating achievements", errors.Wrap(err, userID))
		return
	}
	if len(unlocked) == 0 {
		return
	}

	usr, err := svc.users.GetByID(ctx, userID)
	if err != nil {
		svc.logger.Error("finding user by ID", errors.Wrap(err, userID))
		return
	}
	if usr.Email == "" {
		return
	}
	for _, a := range unlocked {
		msg, err := svc.composer.Compose(ctx, EmailAchievementUnlocked, []mail.Address{{Name: usr.Name, Address: usr.Email}}, map[string]string{
			"name":                    usr.DisplayName(),
			"achievement_name":        a.Name,
			"achievement_description": a.Description,
		})
		if err != nil {
			svc.logger.Error("composing email", errors.Wrap(err, EmailAchievementUnlocked), usr)
			continue
		}
		svc.mailSvc.SendMessages(msg)
	}
}

func (svc *service) unlock(ctx context.Context, userID string, kinds []string) ([]Achievement, error) {
	var unlocked []Achievement
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		catalogue, err := svc.repo.ListAchievements(ctx)
		if err != nil {
			return errors.Wrap(err, "listing achievements")
		}
		owned, err := svc.repo.ListUserAchievements(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "listing user achievements")
		}
		has := make(map[string]bool, len(owned))
		for _, ua := range owned {
			has[ua.AchievementID] = true
		}

		wanted := make(map[string]bool, len(kinds))
		for _, k := range kinds {
			wanted[k] = true
		}
		values := make(map[string]int)
		now := core.NowFunc().UTC()
		for _, a := range catalogue {
			if !wanted[a.Kind] || has[a.ID] {
				continue
			}
			v, ok := values[a.Kind]
			if !ok {
				if v, err = svc.kindValue(ctx, userID, a.Kind); err != nil {
					return err
				}
				values[a.Kind] = v
			}
			if v < a.Threshold {
				continue
			}
			created, err := svc.repo.UnlockAchievement(ctx, UserAchievement{UserID: userID, AchievementID: a.ID, UnlockedAt: now})
			if err != nil {
				return errors.Wrap(err, "unlocking achievement")
			}
			if created {
				unlocked = append(unlocked, a)
			}
		}
		return nil
	})
	return unlocked, err
}

func (svc *service) kindValue(ctx context.Context, userID, kind string) (int, error) {
	switch kind {
	case KindWorkoutCount:
		n, err := svc.repo.CountWorkoutLogs(ctx, userID, TimeRange{})
		return n, errors.Wrap(err, "counting workout logs")
	case KindWorkoutStreak:
		days, err := svc.repo.WorkoutDays(ctx, userID)
		if err != nil {
			return 0, errors.Wrap(err, "listing workout days")
		}
		return Streak(days), nil
	case KindMeasurementCount:
		n, err := svc.repo.CountMeasurements(ctx, userID)
		return n, errors.Wrap(err, "counting measurements")
	case KindNutritionDays:
		n, err := svc.repo.CountNutritionDays(ctx, userID)
		return n, errors.Wrap(err, "counting nutrition days")
	}
	return 0, nil
}
