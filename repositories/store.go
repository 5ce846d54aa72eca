package repositories

import (
	"database/sql"
	"log/slog"
)

// Store groups the repositories of one backing store with its transactor.
type Store struct {
	Users       UserRepository
	Clubs       ClubRepository
	Members     MemberRepository
	Invitations InvitationRepository
	Challenges  ChallengeRepository
	Entries     EntryRepository
	Tx          Transactor
}

func NewPostgresStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		Users:       NewPostgresUserRepository(db),
		Clubs:       NewPostgresClubRepository(db),
		Members:     NewPostgresMemberRepository(db),
		Invitations: NewPostgresInvitationRepository(db),
		Challenges:  NewPostgresChallengeRepository(db),
		Entries:     NewPostgresEntryRepository(db),
		Tx:          NewPostgresTransactor(db, logger),
	}
}

func (s *MemoryStore) Store() *Store {
	return &Store{
		Users:       s.Users(),
		Clubs:       s.Clubs(),
		Members:     s.Members(),
		Invitations: s.Invitations(),
		Challenges:  s.Challenges(),
		Entries:     s.Entries(),
		Tx:          s,
	}
}
