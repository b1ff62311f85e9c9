package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/auth"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/mapper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LifecycleQuoteStore is the quote persistence surface the state machine needs
type LifecycleQuoteStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Quote, error)
	Update(ctx context.Context, quote *domain.Quote) error
	CountConfirmedByOpportunity(ctx context.Context, opportunityID uuid.UUID, excludeQuoteID uuid.UUID) (int64, error)
}

// CommitmentCreator runs the purchase fan-out on confirmation
type CommitmentCreator interface {
	CreateCommitments(ctx context.Context, quote *domain.Quote) ([]domain.PurchaseCommitment, error)
}

// QuoteLifecycleService drives the approval state machine. Every entry point
// loads the quote, checks the actor's role against the requested transition,
// applies it and posts an activity entry.
type QuoteLifecycleService struct {
	quotes      LifecycleQuoteStore
	minBuy      *MinimumBuyService
	commitments CommitmentCreator
	activity    *ActivityService
	logger      *zap.Logger
}

func NewQuoteLifecycleService(
	quotes LifecycleQuoteStore,
	minBuy *MinimumBuyService,
	commitments CommitmentCreator,
	activity *ActivityService,
	logger *zap.Logger,
) *QuoteLifecycleService {
	return &QuoteLifecycleService{
		quotes:      quotes,
		minBuy:      minBuy,
		commitments: commitments,
		activity:    activity,
		logger:      logger,
	}
}

// RequestApproval moves a quote out of editing. From draft or sent the
// minimum-buy gate runs first: violations halt the quote in min_buy and are
// returned as data, not as an error. From min_buy a release by an authorized
// approver routes straight to the tier's review state without re-running the
// gate.
func (s *QuoteLifecycleService) RequestApproval(ctx context.Context, quoteID uuid.UUID, actor *auth.UserContext) (*domain.TransitionResponse, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	switch quote.State {
	case domain.QuoteStateDraft, domain.QuoteStateSent:
		violations, err := s.minBuy.Check(ctx, quote)
		if err != nil {
			return nil, err
		}
		if len(violations) > 0 {
			if err := s.setState(ctx, quote, domain.QuoteStateMinBuy, actor, "Approval halted on minimum buy"); err != nil {
				return nil, err
			}
			return &domain.TransitionResponse{
				Quote:      mapper.ToQuoteDTO(quote),
				Violations: violations,
			}, nil
		}

	case domain.QuoteStateMinBuy:
		if !actor.CanReleaseMinBuy() {
			return nil, fmt.Errorf("%w: releasing a minimum-buy hold requires the min-buy approver role", ErrPermissionDenied)
		}

	default:
		return nil, fmt.Errorf("%w: cannot request approval from state %s", ErrInvalidTransition, quote.State)
	}

	next := domain.QuoteStateToConfirm
	if quote.ApprovalTier == domain.ApprovalTierN2 {
		next = domain.QuoteStateToValidate
	}
	if err := s.setState(ctx, quote, next, actor, "Approval requested"); err != nil {
		return nil, err
	}

	return &domain.TransitionResponse{Quote: mapper.ToQuoteDTO(quote)}, nil
}

// Approve advances a quote through its review states. A first-level review
// from to_validate sends n2 quotes on to second review and confirms n1 quotes
// outright; a second-level review from to_confirm always confirms.
func (s *QuoteLifecycleService) Approve(ctx context.Context, quoteID uuid.UUID, actor *auth.UserContext) (*domain.TransitionResponse, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	switch quote.State {
	case domain.QuoteStateToValidate:
		if !actor.HasAnyRole(domain.RoleApproverN1, domain.RoleApproverN2) {
			return nil, fmt.Errorf("%w: approving from first review requires an approver role", ErrPermissionDenied)
		}
		if quote.ApprovalTier == domain.ApprovalTierN2 {
			if err := s.setState(ctx, quote, domain.QuoteStateToConfirm, actor, "First review approved"); err != nil {
				return nil, err
			}
			return &domain.TransitionResponse{Quote: mapper.ToQuoteDTO(quote)}, nil
		}
		return s.doConfirm(ctx, quote, actor)

	case domain.QuoteStateToConfirm:
		if !actor.CanApprove(quote.ApprovalTier) {
			return nil, fmt.Errorf("%w: approving this quote requires a higher approver role", ErrPermissionDenied)
		}
		return s.doConfirm(ctx, quote, actor)

	default:
		return nil, fmt.Errorf("%w: cannot approve from state %s", ErrInvalidTransition, quote.State)
	}
}

// Confirm is the direct confirmation entry point. The current state must
// match the quote's tier: n2 quotes confirm only from to_confirm, lighter
// tiers from draft, sent or to_validate.
func (s *QuoteLifecycleService) Confirm(ctx context.Context, quoteID uuid.UUID, actor *auth.UserContext) (*domain.TransitionResponse, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	if quote.State == domain.QuoteStateConfirmed {
		return nil, ErrQuoteAlreadyConfirmed
	}

	if quote.ApprovalTier == domain.ApprovalTierN2 {
		if quote.State != domain.QuoteStateToConfirm {
			return nil, fmt.Errorf("%w: this quote requires second review before confirmation", ErrInvalidTransition)
		}
	} else {
		switch quote.State {
		case domain.QuoteStateDraft, domain.QuoteStateSent, domain.QuoteStateToValidate:
		default:
			return nil, fmt.Errorf("%w: cannot confirm from state %s", ErrInvalidTransition, quote.State)
		}
	}

	return s.doConfirm(ctx, quote, actor)
}

// MarkSent records that the quote left the building
func (s *QuoteLifecycleService) MarkSent(ctx context.Context, quoteID uuid.UUID, actor *auth.UserContext) (*domain.TransitionResponse, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.State != domain.QuoteStateDraft {
		return nil, fmt.Errorf("%w: cannot mark as sent from state %s", ErrInvalidTransition, quote.State)
	}
	if err := s.setState(ctx, quote, domain.QuoteStateSent, actor, "Quote sent to customer"); err != nil {
		return nil, err
	}
	return &domain.TransitionResponse{Quote: mapper.ToQuoteDTO(quote)}, nil
}

// SetToDraft resets any non-terminal quote back to editing
func (s *QuoteLifecycleService) SetToDraft(ctx context.Context, quoteID uuid.UUID, actor *auth.UserContext) (*domain.TransitionResponse, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.State.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot reset a %s quote to draft", ErrInvalidTransition, quote.State)
	}
	if err := s.setState(ctx, quote, domain.QuoteStateDraft, actor, "Quote reset to draft"); err != nil {
		return nil, err
	}
	return &domain.TransitionResponse{Quote: mapper.ToQuoteDTO(quote)}, nil
}

// Cancel closes a non-terminal quote
func (s *QuoteLifecycleService) Cancel(ctx context.Context, quoteID uuid.UUID, actor *auth.UserContext) (*domain.TransitionResponse, error) {
	quote, err := s.getQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.State.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot cancel a %s quote", ErrInvalidTransition, quote.State)
	}
	if err := s.setState(ctx, quote, domain.QuoteStateCancelled, actor, "Quote cancelled"); err != nil {
		return nil, err
	}
	return &domain.TransitionResponse{Quote: mapper.ToQuoteDTO(quote)}, nil
}

// doConfirm is the single path into the confirmed state. It enforces the
// one-confirmed-quote-per-opportunity invariant, re-runs the minimum-buy gate
// in blocking mode, persists the state and only then fans out purchase
// commitments.
func (s *QuoteLifecycleService) doConfirm(ctx context.Context, quote *domain.Quote, actor *auth.UserContext) (*domain.TransitionResponse, error) {
	if quote.State == domain.QuoteStateConfirmed {
		return nil, ErrQuoteAlreadyConfirmed
	}

	if quote.OpportunityID != nil {
		count, err := s.quotes.CountConfirmedByOpportunity(ctx, *quote.OpportunityID, quote.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check opportunity uniqueness: %w", err)
		}
		if count > 0 {
			return nil, ErrOpportunityAlreadyWon
		}
	}

	if err := s.minBuy.CheckBlocking(ctx, quote); err != nil {
		return nil, err
	}

	if err := s.setState(ctx, quote, domain.QuoteStateConfirmed, actor, "Quote confirmed"); err != nil {
		return nil, err
	}

	commitments, err := s.commitments.CreateCommitments(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("failed to create purchase commitments: %w", err)
	}

	s.logger.Info("quote confirmed",
		zap.String("quoteID", quote.ID.String()),
		zap.String("number", quote.Number),
		zap.Int("commitments", len(commitments)),
	)

	return &domain.TransitionResponse{
		Quote:                   mapper.ToQuoteDTO(quote),
		Commitments:             mapper.ToPurchaseCommitmentDTOs(commitments),
		AttachClientPORequested: true,
	}, nil
}

func (s *QuoteLifecycleService) setState(ctx context.Context, quote *domain.Quote, next domain.QuoteState, actor *auth.UserContext, title string) error {
	prev := quote.State
	quote.State = next
	if err := s.quotes.Update(ctx, quote); err != nil {
		quote.State = prev
		return fmt.Errorf("failed to store quote state: %w", err)
	}

	s.activity.Post(ctx, domain.ActivityTargetQuote, quote.ID, actor, title,
		fmt.Sprintf("%s: %s -> %s", quote.Number, prev, next))

	return nil
}

func (s *QuoteLifecycleService) getQuote(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: quote not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load quote: %w", err)
	}
	return quote, nil
}
