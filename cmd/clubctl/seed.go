package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/services"
)

const seedPassword = "password123"

type seedResult struct {
	Users, Clubs, Challenges, Entries int
}

// seeder создает демо-данные через сервисы, поэтому лидерборды заполняются как в рабочем режиме.
type seeder struct {
	svc   *services.Services
	faker *gofakeit.Faker
	now   time.Time
}

func newSeeder(svc *services.Services, seed uint64) *seeder {
	return &seeder{
		svc:   svc,
		faker: gofakeit.New(seed),
		now:   time.Now().UTC().Truncate(24 * time.Hour),
	}
}

func (s *seeder) Run(ctx context.Context, userCount, clubCount int) (*seedResult, error) {
	if userCount < 2 || clubCount < 1 {
		return nil, fmt.Errorf("need at least 2 users and 1 club, got %d users and %d clubs", userCount, clubCount)
	}
	res := &seedResult{}

	users := make([]*models.User, 0, userCount)
	for i := 0; i < userCount; i++ {
		first, last := s.faker.FirstName(), s.faker.LastName()
		email := fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i+1)
		out, err := s.svc.Auth.Register(ctx, services.RegisterInput{
			Email:     email,
			Password:  seedPassword,
			FirstName: first,
			LastName:  last,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", email, err)
		}
		users = append(users, out.User)
	}
	res.Users = len(users)

	for i := 0; i < clubCount; i++ {
		admin := users[i%len(users)]
		// Каждый третий клуб закрытый: в него попадают только по приглашению.
		private := i%3 == 2
		description := fmt.Sprintf("%s %s club", s.faker.Adjective(), strings.ToLower(s.faker.Hobby()))
		club, err := s.svc.Clubs.Create(ctx, admin.ID, services.CreateClubInput{
			Name:        s.faker.Company(),
			Description: &description,
			IsPrivate:   private,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to seed club: %w", err)
		}
		res.Clubs++

		members := []*models.User{admin}
		for _, u := range users {
			if u.ID == admin.ID || !s.faker.Bool() {
				continue
			}
			if err := s.addMember(ctx, club, admin, u); err != nil {
				return nil, err
			}
			members = append(members, u)
		}

		for _, higher := range []bool{true, false} {
			ch, err := s.createChallenge(ctx, club, admin, higher)
			if err != nil {
				return nil, err
			}
			res.Challenges++

			for _, m := range members {
				for n := s.faker.Number(1, 3); n > 0; n-- {
					if _, err := s.svc.Entries.Submit(ctx, m.ID, services.SubmitEntryInput{
						ChallengeID: ch.ID,
						Score:       s.score(higher),
					}); err != nil {
						return nil, fmt.Errorf("failed to seed entry: %w", err)
					}
					res.Entries++
				}
			}
		}
	}
	return res, nil
}

func (s *seeder) addMember(ctx context.Context, club *models.Club, admin, user *models.User) error {
	if !club.IsPrivate {
		if _, err := s.svc.Memberships.Join(ctx, club.ID, user.ID); err != nil {
			return fmt.Errorf("failed to join club %d: %w", club.ID, err)
		}
		return nil
	}
	inv, err := s.svc.Invitations.Invite(ctx, club.ID, user.ID, admin.ID)
	if err != nil {
		return fmt.Errorf("failed to invite user %d: %w", user.ID, err)
	}
	if _, err := s.svc.Invitations.Accept(ctx, inv.ID, user.ID); err != nil {
		return fmt.Errorf("failed to accept invitation %d: %w", inv.ID, err)
	}
	return nil
}

func (s *seeder) createChallenge(ctx context.Context, club *models.Club, admin *models.User, higher bool) (*models.Challenge, error) {
	input := services.CreateChallengeInput{
		ClubID:         club.ID,
		Duration:       models.DurationWeekly,
		StartDate:      s.now,
		EndDate:        s.now.Add(7 * 24 * time.Hour),
		IsHigherBetter: &higher,
	}
	if higher {
		unit := "reps"
		input.Title = "Push-up week"
		input.Description = "Most push-ups in one set"
		input.ScoreType = "count"
		input.ScoreUnit = &unit
	} else {
		unit := "seconds"
		input.Title = "1 km row"
		input.Description = "Fastest 1000 m on the rower"
		input.ScoreType = "time"
		input.ScoreUnit = &unit
	}
	ch, err := s.svc.Challenges.Create(ctx, admin.ID, input)
	if err != nil {
		return nil, fmt.Errorf("failed to seed challenge: %w", err)
	}
	return ch, nil
}

func (s *seeder) score(higher bool) string {
	if higher {
		return strconv.Itoa(s.faker.Number(10, 120))
	}
	return strconv.FormatFloat(s.faker.Float64Range(180, 420), 'f', 1, 64)
}
