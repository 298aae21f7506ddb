package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/creator-service/internal/domain"
	"github.com/spec-kit/creator-service/internal/events"
	"github.com/spec-kit/creator-service/internal/observability"
	"github.com/spec-kit/creator-service/internal/oracle"
)

func newActivationFixture(orc oracle.ActivationOracle) (*ActivationService, *memActivationRepo) {
	repo := newMemActivationRepo()
	svc := NewActivationService(ActivationDependencies{
		AccountRepo: repo,
		Oracle:      orc,
		Dispatcher:  events.NewInMemoryDispatcher(),
		Metrics:     observability.NewMetrics(),
		Logger:      zap.NewNop(),
	})
	return svc, repo
}

func TestActivateIsIdempotent(t *testing.T) {
	t.Parallel()

	scripted := &scriptedOracle{}
	svc, _ := newActivationFixture(scripted)
	ident := domain.Identity{ID: "identity-1", Email: "jane@x.com", DisplayName: "Jane"}

	first, err := svc.Activate(context.Background(), ident)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivationStatusCreated, first.Status)
	assert.NotEmpty(t, first.OnboardingURL)

	second, err := svc.Activate(context.Background(), ident)
	require.NoError(t, err)
	assert.Equal(t, first.AccountID, second.AccountID)
	assert.Equal(t, 1, scripted.createCalls, "repeat activation must not create a second account")
}

func TestActivateCreateFailureLeavesNoRecord(t *testing.T) {
	t.Parallel()

	scripted := &scriptedOracle{createErr: errors.New("processor unavailable")}
	svc, repo := newActivationFixture(scripted)
	ident := domain.Identity{ID: "identity-1", Email: "jane@x.com"}

	_, err := svc.Activate(context.Background(), ident)
	require.Error(t, err)

	state, err := svc.GetActivationState(context.Background(), ident.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivationStatusUnconnected, state.Status)
	assert.Equal(t, 0, repo.updateCalls)
}

func TestActivateReopensFailedWithFreshLink(t *testing.T) {
	t.Parallel()

	scripted := &scriptedOracle{statuses: []oracle.AccountStatus{{Failed: true, Raw: "rejected.fraud"}}}
	svc, _ := newActivationFixture(scripted)
	ident := domain.Identity{ID: "identity-1", Email: "jane@x.com"}

	created, err := svc.Activate(context.Background(), ident)
	require.NoError(t, err)

	_, err = svc.Reconcile(context.Background(), created.AccountID)
	require.NoError(t, err)

	reopened, err := svc.Activate(context.Background(), ident)
	require.NoError(t, err)
	assert.Equal(t, created.AccountID, reopened.AccountID, "external account is reused after failure")
	assert.Equal(t, domain.ActivationStatusCreated, reopened.Status)
	assert.NotEqual(t, created.OnboardingURL, reopened.OnboardingURL)
	assert.Equal(t, 1, scripted.createCalls)
	assert.Equal(t, 1, scripted.linkCalls)
}

func TestReconcileActiveRequiresBothFlags(t *testing.T) {
	t.Parallel()

	scripted := &scriptedOracle{statuses: []oracle.AccountStatus{
		{ChargesEnabled: true, PayoutsEnabled: false, Raw: "complete"},
		{ChargesEnabled: false, PayoutsEnabled: true, Raw: "complete"},
		{ChargesEnabled: true, PayoutsEnabled: true, Raw: "complete"},
	}}
	svc, _ := newActivationFixture(scripted)
	created, err := svc.Activate(context.Background(), domain.Identity{ID: "identity-1", Email: "jane@x.com"})
	require.NoError(t, err)

	account, err := svc.Reconcile(context.Background(), created.AccountID)
	require.NoError(t, err)
	assert.NotEqual(t, domain.ActivationStatusActive, account.Status, "charges alone must not activate")

	account, err = svc.Reconcile(context.Background(), created.AccountID)
	require.NoError(t, err)
	assert.NotEqual(t, domain.ActivationStatusActive, account.Status, "payouts alone must not activate")

	account, err = svc.Reconcile(context.Background(), created.AccountID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivationStatusActive, account.Status)
}

func TestReconcileStatusIsMonotonic(t *testing.T) {
	t.Parallel()

	scripted := &scriptedOracle{statuses: []oracle.AccountStatus{
		{Raw: "pending_verification"},
		{Raw: "requirements_due"},
	}}
	svc, _ := newActivationFixture(scripted)
	created, err := svc.Activate(context.Background(), domain.Identity{ID: "identity-1", Email: "jane@x.com"})
	require.NoError(t, err)

	account, err := svc.Reconcile(context.Background(), created.AccountID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivationStatusPending, account.Status)

	// PENDING and INCOMPLETE share a rank; moving between them is allowed
	account, err = svc.Reconcile(context.Background(), created.AccountID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivationStatusIncomplete, account.Status)
}

func TestReconcileActiveIsSticky(t *testing.T) {
	t.Parallel()

	scripted := &scriptedOracle{statuses: []oracle.AccountStatus{
		{ChargesEnabled: true, PayoutsEnabled: true, Raw: "complete"},
		{Raw: "requirements_due"},
	}}
	svc, repo := newActivationFixture(scripted)
	created, err := svc.Activate(context.Background(), domain.Identity{ID: "identity-1", Email: "jane@x.com"})
	require.NoError(t, err)

	account, err := svc.Reconcile(context.Background(), created.AccountID)
	require.NoError(t, err)
	require.Equal(t, domain.ActivationStatusActive, account.Status)

	writes := repo.updateCalls
	account, err = svc.Reconcile(context.Background(), created.AccountID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivationStatusActive, account.Status)
	assert.Equal(t, writes, repo.updateCalls, "an active account is never re-polled into regression")
}

func TestReconcileSkipsRedundantWrites(t *testing.T) {
	t.Parallel()

	scripted := &scriptedOracle{statuses: []oracle.AccountStatus{
		{Raw: "requirements_due"},
	}}
	svc, repo := newActivationFixture(scripted)
	created, err := svc.Activate(context.Background(), domain.Identity{ID: "identity-1", Email: "jane@x.com"})
	require.NoError(t, err)

	_, err = svc.Reconcile(context.Background(), created.AccountID)
	require.NoError(t, err)
	writes := repo.updateCalls

	_, err = svc.Reconcile(context.Background(), created.AccountID)
	require.NoError(t, err)
	assert.Equal(t, writes, repo.updateCalls, "unchanged observation must not write")
}

func TestReconcileUnknownAccount(t *testing.T) {
	t.Parallel()

	svc, _ := newActivationFixture(&scriptedOracle{})

	_, err := svc.Reconcile(context.Background(), "acct_missing")
	require.Error(t, err)
}

func TestWatchTimesOutWithoutResolution(t *testing.T) {
	t.Parallel()

	scripted := &scriptedOracle{statuses: []oracle.AccountStatus{
		{Raw: "requirements_due"},
	}}
	svc, _ := newActivationFixture(scripted)
	created, err := svc.Activate(context.Background(), domain.Identity{ID: "identity-1", Email: "jane@x.com"})
	require.NoError(t, err)

	result, err := svc.WatchUntilTerminal(context.Background(), created.AccountID, 5*time.Millisecond, 30*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, WatchTimedOut, result)

	// a timeout is inconclusive, never a failure
	state, err := svc.GetActivationState(context.Background(), "identity-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ActivationStatusIncomplete, state.Status)
}

func TestWatchReachesActive(t *testing.T) {
	t.Parallel()

	scripted := &scriptedOracle{statuses: []oracle.AccountStatus{
		{Raw: "requirements_due"},
		{Raw: "pending_verification"},
		{ChargesEnabled: true, PayoutsEnabled: true, Raw: "complete"},
	}}
	svc, _ := newActivationFixture(scripted)
	created, err := svc.Activate(context.Background(), domain.Identity{ID: "identity-1", Email: "jane@x.com"})
	require.NoError(t, err)

	result, err := svc.WatchUntilTerminal(context.Background(), created.AccountID, time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, WatchActive, result)
}

func TestWatchRetriesTransientOracleErrors(t *testing.T) {
	t.Parallel()

	scripted := &scriptedOracle{
		statuses:  []oracle.AccountStatus{{ChargesEnabled: true, PayoutsEnabled: true, Raw: "complete"}},
		statusErr: errors.New("processor timeout"),
	}
	svc, _ := newActivationFixture(scripted)
	created, err := svc.Activate(context.Background(), domain.Identity{ID: "identity-1", Email: "jane@x.com"})
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		scripted.mu.Lock()
		scripted.statusErr = nil
		scripted.mu.Unlock()
	}()

	result, err := svc.WatchUntilTerminal(context.Background(), created.AccountID, 5*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, WatchActive, result)
}

func TestWatchHonorsContextCancel(t *testing.T) {
	t.Parallel()

	scripted := &scriptedOracle{statuses: []oracle.AccountStatus{
		{Raw: "requirements_due"},
	}}
	svc, _ := newActivationFixture(scripted)
	created, err := svc.Activate(context.Background(), domain.Identity{ID: "identity-1", Email: "jane@x.com"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = svc.WatchUntilTerminal(ctx, created.AccountID, 5*time.Millisecond, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestOverlappingReconcilesKeepActiveSticky(t *testing.T) {
	t.Parallel()

	gate := newHandoffOracle()
	svc, repo := newActivationFixture(gate)

	seed := &domain.ActivationAccount{
		IdentityID: "identity-1",
		AccountID:  "acct_1",
		Status:     domain.ActivationStatusIncomplete,
		RawStatus:  "requirements_due",
	}
	require.NoError(t, repo.Create(context.Background(), seed))

	// the slow poll reads INCOMPLETE and stalls inside the oracle call
	slowDone := make(chan error, 1)
	go func() {
		_, err := svc.Reconcile(context.Background(), "acct_1")
		slowDone <- err
	}()
	slowReply := <-gate.statusRequests

	// a second poll starts, observes full activation, and stores ACTIVE
	fastDone := make(chan error, 1)
	go func() {
		_, err := svc.Reconcile(context.Background(), "acct_1")
		fastDone <- err
	}()
	fastReply := <-gate.statusRequests
	fastReply <- oracle.AccountStatus{ChargesEnabled: true, PayoutsEnabled: true, Raw: "complete"}
	require.NoError(t, <-fastDone)

	// release the slow poll with its stale observation
	slowReply <- oracle.AccountStatus{Raw: "requirements_due_stale"}
	require.NoError(t, <-slowDone)

	final, err := repo.GetByAccountID(context.Background(), "acct_1")
	require.NoError(t, err)
	assert.Equal(t, domain.ActivationStatusActive, final.Status, "a stale write must never undo ACTIVE")
	assert.True(t, final.ChargesEnabled)
	assert.True(t, final.PayoutsEnabled)
}

func TestConcurrentFirstActivationsShareOneRecord(t *testing.T) {
	t.Parallel()

	gate := newHandoffOracle()
	svc, repo := newActivationFixture(gate)
	ident := domain.Identity{ID: "identity-1", Email: "jane@x.com"}

	type outcome struct {
		account *domain.ActivationAccount
		err     error
	}
	first := make(chan outcome, 1)
	second := make(chan outcome, 1)

	go func() {
		account, err := svc.Activate(context.Background(), ident)
		first <- outcome{account, err}
	}()
	firstReply := <-gate.createRequests

	go func() {
		account, err := svc.Activate(context.Background(), ident)
		second <- outcome{account, err}
	}()
	secondReply := <-gate.createRequests

	// both calls passed the existence check; let each external create finish
	firstReply <- oracle.CreatedAccount{AccountID: "acct_a", OnboardingURL: "https://connect.example.com/onboard/a"}
	secondReply <- oracle.CreatedAccount{AccountID: "acct_b", OnboardingURL: "https://connect.example.com/onboard/b"}

	a := <-first
	b := <-second
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.Equal(t, a.account.AccountID, b.account.AccountID, "both callers must see the same account")

	stored, err := repo.GetByIdentity(context.Background(), ident.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.AccountID, a.account.AccountID)
}

func TestGetActivationStatePlaceholder(t *testing.T) {
	t.Parallel()

	svc, _ := newActivationFixture(&scriptedOracle{})

	state, err := svc.GetActivationState(context.Background(), "identity-unknown")
	require.NoError(t, err)
	assert.Equal(t, domain.ActivationStatusUnconnected, state.Status)
	assert.Empty(t, state.AccountID)
}
