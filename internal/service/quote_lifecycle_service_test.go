package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage-media/quote-api/internal/auth"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeQuoteStore struct {
	quote          *domain.Quote
	confirmedCount int64
	updateErr      error
	updates        int
}

func (s *fakeQuoteStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	if s.quote == nil || s.quote.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.quote, nil
}

func (s *fakeQuoteStore) Update(ctx context.Context, quote *domain.Quote) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates++
	s.quote = quote
	return nil
}

func (s *fakeQuoteStore) CountConfirmedByOpportunity(ctx context.Context, opportunityID uuid.UUID, excludeQuoteID uuid.UUID) (int64, error) {
	return s.confirmedCount, nil
}

type fakeCommitmentCreator struct {
	created []domain.PurchaseCommitment
	calls   int
}

func (c *fakeCommitmentCreator) CreateCommitments(ctx context.Context, quote *domain.Quote) ([]domain.PurchaseCommitment, error) {
	c.calls++
	return c.created, nil
}

type fakeActivityStore struct {
	activities []domain.Activity
}

func (s *fakeActivityStore) Create(ctx context.Context, activity *domain.Activity) error {
	s.activities = append(s.activities, *activity)
	return nil
}

func (s *fakeActivityStore) ListByTarget(ctx context.Context, targetType domain.ActivityTargetType, targetID uuid.UUID, limit int) ([]domain.Activity, error) {
	return s.activities, nil
}

type lifecycleFixture struct {
	svc       *service.QuoteLifecycleService
	store     *fakeQuoteStore
	fanout    *fakeCommitmentCreator
	trail     *fakeActivityStore
	converter *fakeConverter
}

func newLifecycleFixture(t *testing.T, quote *domain.Quote) *lifecycleFixture {
	t.Helper()
	log := zap.NewNop()

	store := &fakeQuoteStore{quote: quote}
	fanout := &fakeCommitmentCreator{}
	trail := &fakeActivityStore{}
	converter := &fakeConverter{}

	minBuy := service.NewMinimumBuyService(converter, log)
	activity := service.NewActivityService(trail, log)

	return &lifecycleFixture{
		svc:       service.NewQuoteLifecycleService(store, minBuy, fanout, activity, log),
		store:     store,
		fanout:    fanout,
		trail:     trail,
		converter: converter,
	}
}

func lifecycleQuote(state domain.QuoteState, tier domain.ApprovalTier) *domain.Quote {
	quote := &domain.Quote{
		Number:       "VM-2026-001",
		CompanyID:    domain.CompanyMedia,
		Currency:     "EUR",
		State:        state,
		ApprovalTier: tier,
	}
	quote.ID = uuid.New()
	return quote
}

func salesActor() *auth.UserContext {
	return &auth.UserContext{UserID: "u-sales", DisplayName: "Sam Sales", Roles: []domain.UserRoleType{domain.RoleSales}}
}

func actorWithRoles(roles ...domain.UserRoleType) *auth.UserContext {
	return &auth.UserContext{UserID: "u-1", DisplayName: "Alex Approver", Roles: roles}
}

func TestRequestApproval_RoutesByTier(t *testing.T) {
	ctx := context.Background()

	t.Run("n1 quote goes straight to final review", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateDraft, domain.ApprovalTierN1))

		resp, err := fx.svc.RequestApproval(ctx, fx.store.quote.ID, salesActor())
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStateToConfirm, resp.Quote.State)
		assert.Empty(t, resp.Violations)
	})

	t.Run("n2 quote requires first review", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateSent, domain.ApprovalTierN2))

		resp, err := fx.svc.RequestApproval(ctx, fx.store.quote.ID, salesActor())
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStateToValidate, resp.Quote.State)
	})

	t.Run("rejected from review states", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateToConfirm, domain.ApprovalTierN1))

		_, err := fx.svc.RequestApproval(ctx, fx.store.quote.ID, salesActor())
		assert.ErrorIs(t, err, service.ErrInvalidTransition)
	})
}

func TestRequestApproval_MinimumBuyGate(t *testing.T) {
	ctx := context.Background()

	blockedQuote := func() *domain.Quote {
		support := minBuySupport("Display", 1000)
		quote := lifecycleQuote(domain.QuoteStateDraft, domain.ApprovalTierN1)
		quote.Lines = []domain.QuoteLine{minBuyLine(support, 5, 100)}
		return quote
	}

	t.Run("violations halt the quote in min_buy and come back as data", func(t *testing.T) {
		fx := newLifecycleFixture(t, blockedQuote())

		resp, err := fx.svc.RequestApproval(ctx, fx.store.quote.ID, salesActor())
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStateMinBuy, resp.Quote.State)
		require.Len(t, resp.Violations, 1)
		assert.Equal(t, "Display", resp.Violations[0].SupportName)
	})

	t.Run("release requires the min-buy approver role", func(t *testing.T) {
		quote := blockedQuote()
		quote.State = domain.QuoteStateMinBuy
		fx := newLifecycleFixture(t, quote)

		_, err := fx.svc.RequestApproval(ctx, fx.store.quote.ID, salesActor())
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("release routes without re-running the gate", func(t *testing.T) {
		quote := blockedQuote()
		quote.State = domain.QuoteStateMinBuy
		fx := newLifecycleFixture(t, quote)

		resp, err := fx.svc.RequestApproval(ctx, fx.store.quote.ID, actorWithRoles(domain.RoleMinBuyApprover))
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStateToConfirm, resp.Quote.State)
		assert.Empty(t, resp.Violations)
	})
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("first review requires an approver role", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateToValidate, domain.ApprovalTierN2))

		_, err := fx.svc.Approve(ctx, fx.store.quote.ID, salesActor())
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("first review sends n2 quotes to final review", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateToValidate, domain.ApprovalTierN2))

		resp, err := fx.svc.Approve(ctx, fx.store.quote.ID, actorWithRoles(domain.RoleApproverN1))
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStateToConfirm, resp.Quote.State)
		assert.Zero(t, fx.fanout.calls)
	})

	t.Run("first review confirms n1 quotes outright", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateToValidate, domain.ApprovalTierN1))

		resp, err := fx.svc.Approve(ctx, fx.store.quote.ID, actorWithRoles(domain.RoleApproverN1))
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStateConfirmed, resp.Quote.State)
		assert.Equal(t, 1, fx.fanout.calls)
		assert.True(t, resp.AttachClientPORequested)
	})

	t.Run("final review of an n2 quote needs the n2 role", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateToConfirm, domain.ApprovalTierN2))

		_, err := fx.svc.Approve(ctx, fx.store.quote.ID, actorWithRoles(domain.RoleApproverN1))
		assert.ErrorIs(t, err, service.ErrPermissionDenied)

		resp, err := fx.svc.Approve(ctx, fx.store.quote.ID, actorWithRoles(domain.RoleApproverN2))
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStateConfirmed, resp.Quote.State)
	})

	t.Run("admin can settle any review", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateToConfirm, domain.ApprovalTierN2))

		resp, err := fx.svc.Approve(ctx, fx.store.quote.ID, actorWithRoles(domain.RoleAdmin))
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStateConfirmed, resp.Quote.State)
	})

	t.Run("rejected outside review states", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateDraft, domain.ApprovalTierN1))

		_, err := fx.svc.Approve(ctx, fx.store.quote.ID, actorWithRoles(domain.RoleApproverN2))
		assert.ErrorIs(t, err, service.ErrInvalidTransition)
	})
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("n2 quotes confirm only from final review", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateDraft, domain.ApprovalTierN2))

		_, err := fx.svc.Confirm(ctx, fx.store.quote.ID, actorWithRoles(domain.RoleApproverN2))
		assert.ErrorIs(t, err, service.ErrInvalidTransition)
	})

	t.Run("lighter tiers confirm from editing states", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateSent, domain.ApprovalTierN1))

		resp, err := fx.svc.Confirm(ctx, fx.store.quote.ID, salesActor())
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStateConfirmed, resp.Quote.State)
	})

	t.Run("confirming twice fails", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateConfirmed, domain.ApprovalTierN1))

		_, err := fx.svc.Confirm(ctx, fx.store.quote.ID, salesActor())
		assert.ErrorIs(t, err, service.ErrQuoteAlreadyConfirmed)
		assert.Zero(t, fx.fanout.calls)
	})

	t.Run("blocked when the opportunity already has a confirmed quote", func(t *testing.T) {
		quote := lifecycleQuote(domain.QuoteStateDraft, domain.ApprovalTierN1)
		oppID := uuid.New()
		quote.OpportunityID = &oppID

		fx := newLifecycleFixture(t, quote)
		fx.store.confirmedCount = 1

		_, err := fx.svc.Confirm(ctx, fx.store.quote.ID, salesActor())
		assert.ErrorIs(t, err, service.ErrOpportunityAlreadyWon)
		assert.Equal(t, domain.QuoteStateDraft, fx.store.quote.State)
	})

	t.Run("minimum buy blocks confirmation", func(t *testing.T) {
		support := minBuySupport("Display", 1000)
		quote := lifecycleQuote(domain.QuoteStateDraft, domain.ApprovalTierN1)
		quote.Lines = []domain.QuoteLine{minBuyLine(support, 5, 100)}

		fx := newLifecycleFixture(t, quote)

		_, err := fx.svc.Confirm(ctx, fx.store.quote.ID, salesActor())
		_, isMinBuy := service.AsMinimumBuyError(err)
		assert.True(t, isMinBuy)
		assert.Zero(t, fx.fanout.calls)
	})

	t.Run("fan-out runs after the state is persisted", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateDraft, domain.ApprovalTierN1))
		commitment := domain.PurchaseCommitment{VendorID: uuid.New(), Currency: "EUR"}
		commitment.ID = uuid.New()
		fx.fanout.created = []domain.PurchaseCommitment{commitment}

		resp, err := fx.svc.Confirm(ctx, fx.store.quote.ID, salesActor())
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStateConfirmed, fx.store.quote.State)
		require.Len(t, resp.Commitments, 1)
		assert.True(t, resp.AttachClientPORequested)
	})
}

func TestMarkSentAndReset(t *testing.T) {
	ctx := context.Background()

	t.Run("mark sent only from draft", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateDraft, domain.ApprovalTierN1))

		resp, err := fx.svc.MarkSent(ctx, fx.store.quote.ID, salesActor())
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStateSent, resp.Quote.State)

		_, err = fx.svc.MarkSent(ctx, fx.store.quote.ID, salesActor())
		assert.ErrorIs(t, err, service.ErrInvalidTransition)
	})

	t.Run("reset to draft from any live state", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateToConfirm, domain.ApprovalTierN2))

		resp, err := fx.svc.SetToDraft(ctx, fx.store.quote.ID, salesActor())
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStateDraft, resp.Quote.State)
	})

	t.Run("terminal states stay terminal", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateConfirmed, domain.ApprovalTierN1))

		_, err := fx.svc.SetToDraft(ctx, fx.store.quote.ID, salesActor())
		assert.ErrorIs(t, err, service.ErrInvalidTransition)

		_, err = fx.svc.Cancel(ctx, fx.store.quote.ID, salesActor())
		assert.ErrorIs(t, err, service.ErrInvalidTransition)
	})

	t.Run("cancel closes a live quote", func(t *testing.T) {
		fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateMinBuy, domain.ApprovalTierN1))

		resp, err := fx.svc.Cancel(ctx, fx.store.quote.ID, salesActor())
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStateCancelled, resp.Quote.State)
	})
}

func TestTransitionsPostActivities(t *testing.T) {
	ctx := context.Background()
	fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateDraft, domain.ApprovalTierN1))

	_, err := fx.svc.MarkSent(ctx, fx.store.quote.ID, salesActor())
	require.NoError(t, err)

	require.Len(t, fx.trail.activities, 1)
	entry := fx.trail.activities[0]
	assert.Equal(t, domain.ActivityTargetQuote, entry.TargetType)
	assert.Equal(t, fx.store.quote.ID, entry.TargetID)
	assert.Equal(t, "Quote sent to customer", entry.Title)
	assert.Contains(t, entry.Body, "draft -> sent")
	assert.Equal(t, "u-sales", entry.CreatorID)
}

func TestLifecycleQuoteNotFound(t *testing.T) {
	ctx := context.Background()
	fx := newLifecycleFixture(t, lifecycleQuote(domain.QuoteStateDraft, domain.ApprovalTierN1))

	_, err := fx.svc.Confirm(ctx, uuid.New(), salesActor())
	assert.ErrorIs(t, err, service.ErrNotFound)
}
