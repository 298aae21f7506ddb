package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/creator-service/internal/domain"
	"github.com/spec-kit/creator-service/internal/oracle"
	"github.com/spec-kit/creator-service/internal/repository"
)

type memInviteRepo struct {
	mu      sync.Mutex
	invites map[string]*domain.Invite
}

func newMemInviteRepo(invites ...*domain.Invite) *memInviteRepo {
	repo := &memInviteRepo{invites: make(map[string]*domain.Invite)}
	for _, invite := range invites {
		copied := *invite
		repo.invites[invite.ID] = &copied
	}
	return repo
}

func (r *memInviteRepo) GetByID(ctx context.Context, id string) (*domain.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invite, ok := r.invites[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *invite
	return &copied, nil
}

func (r *memInviteRepo) Touch(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if invite, ok := r.invites[id]; ok {
		invite.LastAccessedAt = &at
	}
	return nil
}

func (r *memInviteRepo) Redeem(ctx context.Context, id, identityID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	invite, ok := r.invites[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if invite.Status != domain.InviteStatusPending {
		return repository.ErrRedeemConflict
	}
	invite.Status = domain.InviteStatusRedeemed
	invite.RedeemedAt = &at
	invite.RedeemedBy = &identityID
	return nil
}

type memProfileRepo struct {
	mu         sync.Mutex
	profiles   map[string]*domain.Profile
	mergeCalls int
	mergeErr   error
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: make(map[string]*domain.Profile)}
}

func (r *memProfileRepo) LoadProfile(ctx context.Context, identityID string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[identityID]
	if !ok {
		return nil, nil
	}
	copied := *profile
	return &copied, nil
}

func (r *memProfileRepo) MergeProfile(ctx context.Context, identityID string, fields domain.ProfileFields) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mergeErr != nil {
		return nil, r.mergeErr
	}
	r.mergeCalls++
	profile := &domain.Profile{
		IdentityID:  identityID,
		DisplayName: fields.DisplayName,
		Handle:      fields.Handle,
		Bio:         fields.Bio,
		Statement:   fields.Statement,
		Location:    fields.Location,
		Links:       fields.Links,
		UpdatedAt:   time.Now(),
	}
	r.profiles[identityID] = profile
	copied := *profile
	return &copied, nil
}

func (r *memProfileRepo) setProfile(profile *domain.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *profile
	r.profiles[profile.IdentityID] = &copied
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.OnboardingSession
	seeds    map[string]domain.OnboardingDraft
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{
		sessions: make(map[string]*domain.OnboardingSession),
		seeds:    make(map[string]domain.OnboardingDraft),
	}
}

func (s *memSessionStore) Create(ctx context.Context, session *domain.OnboardingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *memSessionStore) Get(ctx context.Context, id string) (*domain.OnboardingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *memSessionStore) Save(ctx context.Context, session *domain.OnboardingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *memSessionStore) SeedDraft(ctx context.Context, identityID string, draft domain.OnboardingDraft) (domain.OnboardingDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if first, ok := s.seeds[identityID]; ok {
		return first, nil
	}
	s.seeds[identityID] = draft
	return draft, nil
}

type memActivationRepo struct {
	mu          sync.Mutex
	byIdentity  map[string]*domain.ActivationAccount
	byAccount   map[string]*domain.ActivationAccount
	updateCalls int
}

func newMemActivationRepo() *memActivationRepo {
	return &memActivationRepo{
		byIdentity: make(map[string]*domain.ActivationAccount),
		byAccount:  make(map[string]*domain.ActivationAccount),
	}
}

func (r *memActivationRepo) GetByIdentity(ctx context.Context, identityID string) (*domain.ActivationAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.byIdentity[identityID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (r *memActivationRepo) GetByAccountID(ctx context.Context, accountID string) (*domain.ActivationAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.byAccount[accountID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (r *memActivationRepo) Create(ctx context.Context, account *domain.ActivationAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byIdentity[account.IdentityID]; ok {
		return repository.ErrAccountExists
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	copied := *account
	r.byIdentity[account.IdentityID] = &copied
	r.byAccount[account.AccountID] = &copied
	return nil
}

func (r *memActivationRepo) Update(ctx context.Context, account *domain.ActivationAccount, expected domain.ActivationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byAccount[account.AccountID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Status != expected {
		return repository.ErrStaleAccount
	}
	r.updateCalls++
	account.UpdatedAt = time.Now()
	copied := *account
	copied.CreatedAt = stored.CreatedAt
	r.byIdentity[account.IdentityID] = &copied
	r.byAccount[account.AccountID] = &copied
	return nil
}

func (r *memActivationRepo) ListUnresolved(ctx context.Context, limit int) ([]domain.ActivationAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ActivationAccount
	for _, account := range r.byAccount {
		if !account.Status.IsTerminal() {
			result = append(result, *account)
		}
	}
	return result, nil
}

// handoffOracle parks each oracle call on a reply channel so tests can
// script exact interleavings between concurrent callers.
type handoffOracle struct {
	createRequests chan chan oracle.CreatedAccount
	statusRequests chan chan oracle.AccountStatus
}

func newHandoffOracle() *handoffOracle {
	return &handoffOracle{
		createRequests: make(chan chan oracle.CreatedAccount),
		statusRequests: make(chan chan oracle.AccountStatus),
	}
}

func (o *handoffOracle) CreateAccount(ctx context.Context, identityID, email, displayName string) (*oracle.CreatedAccount, error) {
	reply := make(chan oracle.CreatedAccount)
	o.createRequests <- reply
	created := <-reply
	return &created, nil
}

func (o *handoffOracle) OnboardingLink(ctx context.Context, accountID string) (string, error) {
	return "https://connect.example.com/reonboard/" + accountID, nil
}

func (o *handoffOracle) GetStatus(ctx context.Context, accountID string) (*oracle.AccountStatus, error) {
	reply := make(chan oracle.AccountStatus)
	o.statusRequests <- reply
	status := <-reply
	return &status, nil
}

// scriptedOracle replays a fixed status sequence, repeating the last entry.
type scriptedOracle struct {
	mu          sync.Mutex
	statuses    []oracle.AccountStatus
	cursor      int
	createCalls int
	linkCalls   int
	createErr   error
	statusErr   error
}

func (o *scriptedOracle) CreateAccount(ctx context.Context, identityID, email, displayName string) (*oracle.CreatedAccount, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.createErr != nil {
		return nil, o.createErr
	}
	o.createCalls++
	return &oracle.CreatedAccount{
		AccountID:     fmt.Sprintf("acct_%s_%d", identityID, o.createCalls),
		OnboardingURL: "https://connect.example.com/onboard/" + identityID,
	}, nil
}

func (o *scriptedOracle) OnboardingLink(ctx context.Context, accountID string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.linkCalls++
	return "https://connect.example.com/reonboard/" + accountID, nil
}

func (o *scriptedOracle) GetStatus(ctx context.Context, accountID string) (*oracle.AccountStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.statusErr != nil {
		return nil, o.statusErr
	}
	if len(o.statuses) == 0 {
		return nil, errors.New("no scripted status")
	}
	status := o.statuses[o.cursor]
	if o.cursor+1 < len(o.statuses) {
		o.cursor++
	}
	return &status, nil
}
