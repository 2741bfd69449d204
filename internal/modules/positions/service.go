package positions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/clock"
	ctxlogger "github.com/Guizzs26/tradebook/internal/modules/pkg/logger/context"
	"github.com/Guizzs26/tradebook/internal/modules/tickers"
	"github.com/google/uuid"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// MarketData resolves the instrument behind a position. *tickers.Service satisfies it
type MarketData interface {
	GetClosedPrice(ctx context.Context, symbol string) (*tickers.Ticker, error)
	GetOption(ctx context.Context, q tickers.OptionQuery) (*tickers.Option, error)
}

// Service encapsulates the position use cases
type Service struct {
	repo   Repository
	market MarketData
	clock  clock.Clock
}

func NewService(repo Repository, market MarketData, clk clock.Clock) *Service {
	return &Service{repo: repo, market: market, clock: clk}
}

// Create stores a new position after checking that its ticker, and its option
// contract for Call and Put, are known to the market data source
func (s *Service) Create(ctx context.Context, params NewPositionParams) (*Position, error) {
	if params.OpenDate.IsZero() {
		params.OpenDate = s.clock.Now()
	}

	pos, err := NewPosition(params)
	if err != nil {
		return nil, err
	}
	if err := s.checkInstrument(ctx, pos); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, pos); err != nil {
		return nil, fmt.Errorf("failed to save new position: %w", err)
	}

	ctxlogger.GetLogger(ctx).Info("position opened",
		slog.String("position_id", pos.ID.String()),
		slog.String("ticker", pos.Ticker),
		slog.String("category", string(pos.Category)),
	)
	return pos, nil
}

// List returns a page of the owner's positions, newest first
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Position, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	out, err := s.repo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Position, error) {
	return s.repo.FindByID(ctx, ownerID, id)
}

// Update applies patch to the owner's position. The instrument is checked again
// only when the patch changes it
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, patch PositionPatch) (*Position, error) {
	return s.repo.Update(ctx, ownerID, id, func(p *Position) error {
		if err := p.Apply(patch); err != nil {
			return err
		}
		if patch.TouchesContract() {
			return s.checkInstrument(ctx, p)
		}
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	ctxlogger.GetLogger(ctx).Info("position deleted", slog.String("position_id", id.String()))
	return nil
}

func (s *Service) checkInstrument(ctx context.Context, p *Position) error {
	t, err := s.market.GetClosedPrice(ctx, p.Ticker)
	if err != nil {
		return fmt.Errorf("resolving ticker %q: %w", p.Ticker, err)
	}
	p.Ticker = t.Symbol

	if !p.Category.IsOption() {
		return nil
	}

	_, err = s.market.GetOption(ctx, tickers.OptionQuery{
		Ticker:      p.Ticker,
		Type:        tickers.OptionType(p.Category),
		ExpireDate:  *p.CloseDate,
		StrikePrice: p.TradePrice,
	})
	if err != nil {
		return fmt.Errorf("resolving %s option %s %s @ %.2f: %w",
			p.Category, p.Ticker, p.CloseDate.Format(DateLayout), p.TradePrice, err)
	}
	return nil
}
