package services

import (
	"log/slog"

	"github.com/Dosada05/club-challenges/auth"
	"github.com/Dosada05/club-challenges/metrics"
	"github.com/Dosada05/club-challenges/repositories"
	"github.com/Dosada05/club-challenges/storage"
)

// Services - все доменные сервисы поверх одного хранилища.
type Services struct {
	Auth        AuthService
	Users       UserService
	Clubs       ClubService
	Memberships MembershipService
	Invitations InvitationService
	Challenges  ChallengeService
	Entries     EntryService
}

type Dependencies struct {
	Store     *repositories.Store
	Tokens    *auth.TokenManager
	Uploader  storage.FileUploader
	Publisher LeaderboardPublisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func New(deps Dependencies) *Services {
	st := deps.Store
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Services{
		Auth:        NewAuthService(st.Users, deps.Tokens, logger),
		Users:       NewUserService(st.Users, st.Challenges, st.Entries, st.Tx, deps.Uploader, deps.Publisher, deps.Metrics, logger),
		Clubs:       NewClubService(st.Clubs, st.Members, st.Tx, deps.Uploader, logger),
		Memberships: NewMembershipService(st.Clubs, st.Members, st.Invitations, st.Tx, logger),
		Invitations: NewInvitationService(st.Clubs, st.Members, st.Invitations, st.Users, st.Tx, logger),
		Challenges:  NewChallengeService(st.Clubs, st.Members, st.Challenges, st.Entries, st.Tx, deps.Publisher, deps.Metrics, logger),
		Entries:     NewEntryService(st.Members, st.Challenges, st.Entries, st.Users, st.Tx, deps.Publisher, deps.Metrics, logger),
	}
}
