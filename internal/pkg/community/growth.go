// Package community implements the growth reward: when a space reaches the
// member threshold, its owner receives permanent free access, exactly once
// per space.
package community

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/TimoLindner/Fanlume/app/models"
	"github.com/TimoLindner/Fanlume/app/repository"
	"github.com/TimoLindner/Fanlume/internal/pkg/env"
	"github.com/TimoLindner/Fanlume/internal/pkg/mail"
	"gorm.io/gorm"
)

const defaultGrowthThreshold = 1000

// Service watches space membership changes and hands out the growth reward.
type Service struct {
	spaces    repository.SpaceRepository
	users     repository.UserRepository
	db        *gorm.DB
	threshold int
}

// NewService wires the growth reward service with its threshold from the
// environment.
func NewService(db *gorm.DB) *Service {
	threshold := defaultGrowthThreshold
	if raw := env.GetEnv("GROWTH_REWARD_THRESHOLD", ""); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			threshold = parsed
		} else {
			log.Printf("[Community] invalid GROWTH_REWARD_THRESHOLD %q, using %d", raw, defaultGrowthThreshold)
		}
	}
	repos := repository.NewRepositories(db)
	return &Service{spaces: repos.Space, users: repos.User, db: db, threshold: threshold}
}

// NewServiceWith builds a Service from explicit collaborators, used by tests.
func NewServiceWith(spaces repository.SpaceRepository, users repository.UserRepository, db *gorm.DB, threshold int) *Service {
	return &Service{spaces: spaces, users: users, db: db, threshold: threshold}
}

// Threshold returns the member count at which the reward fires.
func (s *Service) Threshold() int {
	return s.threshold
}

// OnMembershipChanged is called by the membership collaborator after every
// join or leave, with the new count. Crossing the threshold grants the space
// owner free access. The grant fires at most once per space: the conditional
// rewarded-flag update is the gate, so concurrent joins around the threshold
// cannot double-grant, and dropping below and re-crossing does not re-fire.
func (s *Service) OnMembershipChanged(ctx context.Context, spaceID uint, memberCount int) error {
	_ = ctx
	if err := s.spaces.UpdateMemberCount(spaceID, memberCount); err != nil {
		return err
	}
	if memberCount < s.threshold {
		return nil
	}

	granted, err := s.spaces.MarkGrowthRewarded(spaceID)
	if err != nil {
		return err
	}
	if !granted {
		return nil
	}

	space, err := s.spaces.GetByID(spaceID)
	if err != nil {
		return err
	}
	if err := s.users.SetFreeAccess(space.OwnerID, true); err != nil {
		return err
	}
	log.Printf("[Community] space %d reached %d members, granted free access to owner %d", spaceID, memberCount, space.OwnerID)

	s.notifyOwner(space)
	return nil
}

func (s *Service) notifyOwner(space *models.Space) {
	content := fmt.Sprintf("Your space %q reached %d members. You now have free access to all paid content.", space.Name, s.threshold)
	if s.db != nil {
		if err := models.CreateNotification(s.db, space.OwnerID, models.NOTIFICATION_GROWTH_REWARD, content, space.ID); err != nil {
			log.Printf("[Community] failed to create growth notification for user %d: %v", space.OwnerID, err)
		}
	}

	owner, err := s.users.GetByID(space.OwnerID)
	if err != nil || owner.Email == "" {
		return
	}
	go func(to, name string) {
		body := fmt.Sprintf("<p>Congratulations %s!</p><p>%s</p>", name, content)
		if err := mail.SendMail(to, "Your space hit a milestone", body); err != nil {
			log.Printf("[Community] failed to send growth mail to %s: %v", to, err)
		}
	}(owner.Email, owner.Name)
}
