package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/club-challenges/models"
)

var errMemoryExecutor = errors.New("memory store does not execute SQL")

// MemoryStore keeps every table in process memory. It backs STORE_DRIVER=memory
// and the service tests. One mutex serializes transactions and standalone calls;
// a failed transaction restores the snapshot taken when it began.
type MemoryStore struct {
	mu  sync.Mutex
	now func() time.Time

	users       map[int]models.User
	clubs       map[int]models.Club
	members     map[int]models.ClubMember
	invitations map[int]models.ClubInvitation
	challenges  map[int]models.Challenge
	entries     map[int]models.ChallengeEntry
	seq         memorySequences

	faults map[string]error
}

type memorySequences struct {
	users, clubs, members, invitations, challenges, entries int
}

// Names accepted by FailOn.
const (
	FaultUpdateTopScores = "challenges.UpdateTopScores"
	FaultCreateEntry     = "entries.Create"
	FaultCreateMember    = "members.Create"
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		users:       map[int]models.User{},
		clubs:       map[int]models.Club{},
		members:     map[int]models.ClubMember{},
		invitations: map[int]models.ClubInvitation{},
		challenges:  map[int]models.Challenge{},
		entries:     map[int]models.ChallengeEntry{},
		faults:      map[string]error{},
	}
}

// SetClock overrides the time source used for created/updated timestamps.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailOn makes the named operation return err until cleared with a nil err.
func (s *MemoryStore) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *MemoryStore) Users() UserRepository             { return &memoryUserRepository{s} }
func (s *MemoryStore) Clubs() ClubRepository             { return &memoryClubRepository{s} }
func (s *MemoryStore) Members() MemberRepository         { return &memoryMemberRepository{s} }
func (s *MemoryStore) Invitations() InvitationRepository { return &memoryInvitationRepository{s} }
func (s *MemoryStore) Challenges() ChallengeRepository   { return &memoryChallengeRepository{s} }
func (s *MemoryStore) Entries() EntryRepository          { return &memoryEntryRepository{s} }

// memoryTx is handed to transaction callbacks so repository calls made with it
// skip locking the already held store mutex.
type memoryTx struct {
	store *MemoryStore
}

func (memoryTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errMemoryExecutor
}

func (memoryTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errMemoryExecutor
}

func (memoryTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, exec SQLExecutor) error) (txErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if txErr != nil {
			s.restore(snap)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, &memoryTx{store: s})
}

func txFromExec(exec SQLExecutor) (*memoryTx, bool) {
	tx, ok := exec.(*memoryTx)
	return tx, ok
}

// lock acquires the store mutex unless exec is this store's open transaction.
func (s *MemoryStore) lock(exec SQLExecutor) func() {
	if tx, ok := txFromExec(exec); ok && tx.store == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) fault(op string) error {
	return s.faults[op]
}

type memorySnapshot struct {
	users       map[int]models.User
	clubs       map[int]models.Club
	members     map[int]models.ClubMember
	invitations map[int]models.ClubInvitation
	challenges  map[int]models.Challenge
	entries     map[int]models.ChallengeEntry
	seq         memorySequences
}

func (s *MemoryStore) snapshot() memorySnapshot {
	challenges := make(map[int]models.Challenge, len(s.challenges))
	for id, ch := range s.challenges {
		ch.TopScores = ch.TopScores.Clone()
		challenges[id] = ch
	}
	return memorySnapshot{
		users:       copyMap(s.users),
		clubs:       copyMap(s.clubs),
		members:     copyMap(s.members),
		invitations: copyMap(s.invitations),
		challenges:  challenges,
		entries:     copyMap(s.entries),
		seq:         s.seq,
	}
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.users = snap.users
	s.clubs = snap.clubs
	s.members = snap.members
	s.invitations = snap.invitations
	s.challenges = snap.challenges
	s.entries = snap.entries
	s.seq = snap.seq
}

func copyMap[V any](in map[int]V) map[int]V {
	out := make(map[int]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedIDs[V any](in map[int]V) []int {
	ids := make([]int, 0, len(in))
	for id := range in {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

type memoryUserRepository struct{ s *MemoryStore }

func (r *memoryUserRepository) Create(_ context.Context, exec SQLExecutor, user *models.User) error {
	defer r.s.lock(exec)()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrUserEmailConflict
		}
	}
	r.s.seq.users++
	now := r.s.now()
	user.ID = r.s.seq.users
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, exec SQLExecutor, id int) (*models.User, error) {
	defer r.s.lock(exec)()
	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, exec SQLExecutor, email string) (*models.User, error) {
	defer r.s.lock(exec)()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memoryUserRepository) List(_ context.Context, exec SQLExecutor) ([]*models.User, error) {
	defer r.s.lock(exec)()
	users := make([]*models.User, 0, len(r.s.users))
	for _, id := range sortedIDs(r.s.users) {
		u := r.s.users[id]
		users = append(users, &u)
	}
	return users, nil
}

func (r *memoryUserRepository) Update(_ context.Context, exec SQLExecutor, user *models.User) error {
	defer r.s.lock(exec)()
	if _, ok := r.s.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	for id, u := range r.s.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return ErrUserEmailConflict
		}
	}
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) Delete(_ context.Context, exec SQLExecutor, id int) error {
	defer r.s.lock(exec)()
	if _, ok := r.s.users[id]; !ok {
		return ErrUserNotFound
	}
	for _, ch := range r.s.challenges {
		if ch.CreatedByID == id {
			return fmt.Errorf("user %d still referenced (created challenges)", id)
		}
	}
	for eid, e := range r.s.entries {
		if e.UserID == id {
			delete(r.s.entries, eid)
		}
	}
	for iid, inv := range r.s.invitations {
		if inv.UserID == id || inv.InvitedBy == id {
			delete(r.s.invitations, iid)
		}
	}
	for mid, m := range r.s.members {
		if m.UserID == id {
			delete(r.s.members, mid)
		}
	}
	delete(r.s.users, id)
	return nil
}

type memoryClubRepository struct{ s *MemoryStore }

func (r *memoryClubRepository) Create(_ context.Context, exec SQLExecutor, club *models.Club) error {
	defer r.s.lock(exec)()
	r.s.seq.clubs++
	now := r.s.now()
	club.ID = r.s.seq.clubs
	club.CreatedAt, club.UpdatedAt = now, now
	r.s.clubs[club.ID] = *club
	return nil
}

func (r *memoryClubRepository) GetByID(_ context.Context, exec SQLExecutor, id int) (*models.Club, error) {
	defer r.s.lock(exec)()
	c, ok := r.s.clubs[id]
	if !ok {
		return nil, ErrClubNotFound
	}
	return &c, nil
}

func (r *memoryClubRepository) List(_ context.Context, exec SQLExecutor) ([]*models.Club, error) {
	defer r.s.lock(exec)()
	clubs := make([]*models.Club, 0, len(r.s.clubs))
	for _, id := range sortedIDs(r.s.clubs) {
		c := r.s.clubs[id]
		clubs = append(clubs, &c)
	}
	return clubs, nil
}

func (r *memoryClubRepository) ListByMember(_ context.Context, exec SQLExecutor, userID int) ([]*models.Club, error) {
	defer r.s.lock(exec)()
	joined := map[int]bool{}
	for _, m := range r.s.members {
		if m.UserID == userID {
			joined[m.ClubID] = true
		}
	}
	clubs := make([]*models.Club, 0, len(joined))
	for _, id := range sortedIDs(r.s.clubs) {
		if joined[id] {
			c := r.s.clubs[id]
			clubs = append(clubs, &c)
		}
	}
	return clubs, nil
}

func (r *memoryClubRepository) UpdateImage(_ context.Context, exec SQLExecutor, id int, kind models.ClubImageKind, url string) error {
	defer r.s.lock(exec)()
	c, ok := r.s.clubs[id]
	if !ok {
		return ErrClubNotFound
	}
	switch kind {
	case models.ClubImageLogo:
		c.LogoURL = &url
	case models.ClubImageCover:
		c.CoverImageURL = &url
	default:
		return fmt.Errorf("unknown club image kind %q", kind)
	}
	c.UpdatedAt = r.s.now()
	r.s.clubs[id] = c
	return nil
}

type memoryMemberRepository struct{ s *MemoryStore }

func (r *memoryMemberRepository) Create(_ context.Context, exec SQLExecutor, member *models.ClubMember) error {
	defer r.s.lock(exec)()
	if err := r.s.fault(FaultCreateMember); err != nil {
		return err
	}
	if _, ok := r.s.clubs[member.ClubID]; !ok {
		return ErrClubNotFound
	}
	if _, ok := r.s.users[member.UserID]; !ok {
		return ErrUserNotFound
	}
	for _, m := range r.s.members {
		if m.ClubID == member.ClubID && m.UserID == member.UserID {
			return ErrMemberConflict
		}
	}
	r.s.seq.members++
	member.ID = r.s.seq.members
	member.JoinedAt = r.s.now()
	stored := *member
	stored.User = nil
	r.s.members[member.ID] = stored
	return nil
}

func (r *memoryMemberRepository) Get(_ context.Context, exec SQLExecutor, clubID, userID int) (*models.ClubMember, error) {
	defer r.s.lock(exec)()
	for _, m := range r.s.members {
		if m.ClubID == clubID && m.UserID == userID {
			return &m, nil
		}
	}
	return nil, ErrMemberNotFound
}

func (r *memoryMemberRepository) ListByClub(_ context.Context, exec SQLExecutor, clubID int) ([]*models.ClubMember, error) {
	defer r.s.lock(exec)()
	members := make([]*models.ClubMember, 0)
	for _, id := range sortedIDs(r.s.members) {
		m := r.s.members[id]
		if m.ClubID != clubID {
			continue
		}
		u, ok := r.s.users[m.UserID]
		if !ok {
			continue
		}
		m.User = &u
		members = append(members, &m)
	}
	return members, nil
}

func (r *memoryMemberRepository) Delete(_ context.Context, exec SQLExecutor, clubID, userID int) error {
	defer r.s.lock(exec)()
	for id, m := range r.s.members {
		if m.ClubID == clubID && m.UserID == userID {
			delete(r.s.members, id)
			return nil
		}
	}
	return ErrMemberNotFound
}

type memoryInvitationRepository struct{ s *MemoryStore }

func (r *memoryInvitationRepository) Create(_ context.Context, exec SQLExecutor, inv *models.ClubInvitation) error {
	defer r.s.lock(exec)()
	if _, ok := r.s.clubs[inv.ClubID]; !ok {
		return ErrClubNotFound
	}
	if _, ok := r.s.users[inv.UserID]; !ok {
		return ErrUserNotFound
	}
	for _, existing := range r.s.invitations {
		if existing.ClubID == inv.ClubID && existing.UserID == inv.UserID {
			return ErrInvitationConflict
		}
	}
	r.s.seq.invitations++
	inv.ID = r.s.seq.invitations
	inv.InvitedAt = r.s.now()
	inv.Accepted = false
	inv.AcceptedAt = nil
	r.s.invitations[inv.ID] = *inv
	return nil
}

func (r *memoryInvitationRepository) GetByID(_ context.Context, exec SQLExecutor, id int) (*models.ClubInvitation, error) {
	defer r.s.lock(exec)()
	inv, ok := r.s.invitations[id]
	if !ok {
		return nil, ErrInvitationNotFound
	}
	return &inv, nil
}

func (r *memoryInvitationRepository) GetByClubAndUser(_ context.Context, exec SQLExecutor, clubID, userID int) (*models.ClubInvitation, error) {
	defer r.s.lock(exec)()
	for _, inv := range r.s.invitations {
		if inv.ClubID == clubID && inv.UserID == userID {
			return &inv, nil
		}
	}
	return nil, ErrInvitationNotFound
}

func (r *memoryInvitationRepository) ListByClub(_ context.Context, exec SQLExecutor, clubID int) ([]*models.ClubInvitation, error) {
	defer r.s.lock(exec)()
	return r.filter(func(inv models.ClubInvitation) bool { return inv.ClubID == clubID }), nil
}

func (r *memoryInvitationRepository) ListPendingByUser(_ context.Context, exec SQLExecutor, userID int) ([]*models.ClubInvitation, error) {
	defer r.s.lock(exec)()
	return r.filter(func(inv models.ClubInvitation) bool { return inv.UserID == userID && !inv.Accepted }), nil
}

func (r *memoryInvitationRepository) filter(keep func(models.ClubInvitation) bool) []*models.ClubInvitation {
	out := make([]*models.ClubInvitation, 0)
	for _, id := range sortedIDs(r.s.invitations) {
		inv := r.s.invitations[id]
		if keep(inv) {
			out = append(out, &inv)
		}
	}
	return out
}

func (r *memoryInvitationRepository) MarkAccepted(_ context.Context, exec SQLExecutor, id int, at time.Time) error {
	defer r.s.lock(exec)()
	inv, ok := r.s.invitations[id]
	if !ok || inv.Accepted {
		return ErrInvitationNotFound
	}
	inv.Accepted = true
	inv.AcceptedAt = &at
	r.s.invitations[id] = inv
	return nil
}

type memoryChallengeRepository struct{ s *MemoryStore }

func (r *memoryChallengeRepository) Create(_ context.Context, exec SQLExecutor, ch *models.Challenge) error {
	defer r.s.lock(exec)()
	if _, ok := r.s.clubs[ch.ClubID]; !ok {
		return ErrClubNotFound
	}
	if ch.TopScores == nil {
		ch.TopScores = models.TopScores{}
	}
	r.s.seq.challenges++
	now := r.s.now()
	ch.ID = r.s.seq.challenges
	ch.CreatedAt, ch.UpdatedAt = now, now
	stored := *ch
	stored.TopScores = ch.TopScores.Clone()
	r.s.challenges[ch.ID] = stored
	return nil
}

func (r *memoryChallengeRepository) GetByID(_ context.Context, exec SQLExecutor, id int) (*models.Challenge, error) {
	defer r.s.lock(exec)()
	return r.get(id)
}

// GetByIDForUpdate needs no row lock here: transactions already run one at a time.
func (r *memoryChallengeRepository) GetByIDForUpdate(_ context.Context, exec SQLExecutor, id int) (*models.Challenge, error) {
	defer r.s.lock(exec)()
	return r.get(id)
}

func (r *memoryChallengeRepository) get(id int) (*models.Challenge, error) {
	ch, ok := r.s.challenges[id]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	ch.TopScores = ch.TopScores.Clone()
	return &ch, nil
}

func (r *memoryChallengeRepository) ListByClub(_ context.Context, exec SQLExecutor, clubID int) ([]*models.Challenge, error) {
	defer r.s.lock(exec)()
	out := make([]*models.Challenge, 0)
	for _, id := range sortedIDs(r.s.challenges) {
		if r.s.challenges[id].ClubID == clubID {
			ch, _ := r.get(id)
			out = append(out, ch)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *memoryChallengeRepository) ListAll(_ context.Context, exec SQLExecutor) ([]*models.Challenge, error) {
	defer r.s.lock(exec)()
	out := make([]*models.Challenge, 0, len(r.s.challenges))
	for _, id := range sortedIDs(r.s.challenges) {
		ch, _ := r.get(id)
		out = append(out, ch)
	}
	return out, nil
}

func (r *memoryChallengeRepository) UpdateStatus(_ context.Context, exec SQLExecutor, id int, status models.ChallengeStatus) error {
	defer r.s.lock(exec)()
	ch, ok := r.s.challenges[id]
	if !ok {
		return ErrChallengeNotFound
	}
	ch.Status = status
	ch.UpdatedAt = r.s.now()
	r.s.challenges[id] = ch
	return nil
}

func (r *memoryChallengeRepository) UpdateTopScores(_ context.Context, exec SQLExecutor, id int, scores models.TopScores) error {
	defer r.s.lock(exec)()
	if err := r.s.fault(FaultUpdateTopScores); err != nil {
		return err
	}
	ch, ok := r.s.challenges[id]
	if !ok {
		return ErrChallengeNotFound
	}
	if scores == nil {
		scores = models.TopScores{}
	}
	ch.TopScores = scores.Clone()
	ch.UpdatedAt = r.s.now()
	r.s.challenges[id] = ch
	return nil
}

type memoryEntryRepository struct{ s *MemoryStore }

func (r *memoryEntryRepository) Create(_ context.Context, exec SQLExecutor, entry *models.ChallengeEntry) error {
	defer r.s.lock(exec)()
	if err := r.s.fault(FaultCreateEntry); err != nil {
		return err
	}
	if _, ok := r.s.challenges[entry.ChallengeID]; !ok {
		return ErrChallengeNotFound
	}
	if _, ok := r.s.users[entry.UserID]; !ok {
		return ErrUserNotFound
	}
	r.s.seq.entries++
	now := r.s.now()
	entry.ID = r.s.seq.entries
	entry.CreatedAt, entry.UpdatedAt = now, now
	r.s.entries[entry.ID] = *entry
	return nil
}

func (r *memoryEntryRepository) GetByID(_ context.Context, exec SQLExecutor, id int) (*models.ChallengeEntry, error) {
	defer r.s.lock(exec)()
	e, ok := r.s.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return &e, nil
}

func (r *memoryEntryRepository) ListByChallenge(_ context.Context, exec SQLExecutor, challengeID int) ([]*models.ChallengeEntry, error) {
	defer r.s.lock(exec)()
	return r.newestFirst(func(e models.ChallengeEntry) bool { return e.ChallengeID == challengeID }), nil
}

func (r *memoryEntryRepository) ListByChallengeAndUser(_ context.Context, exec SQLExecutor, challengeID, userID int) ([]*models.ChallengeEntry, error) {
	defer r.s.lock(exec)()
	return r.newestFirst(func(e models.ChallengeEntry) bool {
		return e.ChallengeID == challengeID && e.UserID == userID
	}), nil
}

func (r *memoryEntryRepository) newestFirst(keep func(models.ChallengeEntry) bool) []*models.ChallengeEntry {
	ids := sortedIDs(r.s.entries)
	out := make([]*models.ChallengeEntry, 0)
	for i := len(ids) - 1; i >= 0; i-- {
		e := r.s.entries[ids[i]]
		if keep(e) {
			out = append(out, &e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memoryEntryRepository) Update(_ context.Context, exec SQLExecutor, entry *models.ChallengeEntry) error {
	defer r.s.lock(exec)()
	existing, ok := r.s.entries[entry.ID]
	if !ok {
		return ErrEntryNotFound
	}
	existing.Score = entry.Score
	existing.Notes = entry.Notes
	existing.UpdatedAt = r.s.now()
	r.s.entries[entry.ID] = existing
	*entry = existing
	return nil
}

func (r *memoryEntryRepository) ListChallengeIDsByUser(_ context.Context, exec SQLExecutor, userID int) ([]int, error) {
	defer r.s.lock(exec)()
	seen := make(map[int]struct{})
	for _, e := range r.s.entries {
		if e.UserID == userID {
			seen[e.ChallengeID] = struct{}{}
		}
	}
	return sortedIDs(seen), nil
}

func (r *memoryEntryRepository) ListLeaderboardCandidates(_ context.Context, exec SQLExecutor, challengeID int) ([]LeaderboardCandidate, error) {
	defer r.s.lock(exec)()
	out := make([]LeaderboardCandidate, 0)
	for _, id := range sortedIDs(r.s.entries) {
		e := r.s.entries[id]
		if e.ChallengeID != challengeID {
			continue
		}
		u, ok := r.s.users[e.UserID]
		if !ok {
			continue
		}
		out = append(out, LeaderboardCandidate{Entry: &e, User: &u})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Entry.CreatedAt.Before(out[j].Entry.CreatedAt) })
	return out, nil
}
