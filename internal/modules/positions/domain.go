package positions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"

	defaultQty    = 100
	maxRemarkSize = 2500
)

var (
	ErrPositionNotFound = errors.New("position not found")
	ErrInvalidCategory  = errors.New("category must be one of Long, Short, Call, Put")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrCloseBeforeOpen  = errors.New("close date cannot be before the open date")
	ErrMissingExpiry    = errors.New("option positions need a close date")
	ErrInvalidRemark    = errors.New("remark is too long")
)

// Category is the kind of trade a position records
type Category string

const (
	CategoryLong  Category = "Long"
	CategoryShort Category = "Short"
	CategoryCall  Category = "Call"
	CategoryPut   Category = "Put"
)

// ParseCategory accepts any casing; an empty value means Long
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "long":
		return CategoryLong, nil
	case "short":
		return CategoryShort, nil
	case "call":
		return CategoryCall, nil
	case "put":
		return CategoryPut, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidCategory, s)
}

// IsOption reports whether the position is backed by an option contract
func (c Category) IsOption() bool {
	return c == CategoryCall || c == CategoryPut
}

// Position is one trade owned by a user.
// For Call and Put positions TradePrice is the strike and CloseDate the expiry
type Position struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Ticker      string
	Category    Category
	Qty         int
	OptionPrice *float64
	TradePrice  float64
	OpenDate    time.Time
	CloseDate   *time.Time
	ClosedPrice *float64
	Remark      string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPositionParams holds the input of a new position; nil fields take their defaults
type NewPositionParams struct {
	OwnerID     uuid.UUID
	Ticker      string
	Category    string
	Qty         *int
	OptionPrice *float64
	TradePrice  float64
	OpenDate    time.Time
	CloseDate   *time.Time
	ClosedPrice *float64
	Remark      string
	IsActive    *bool
}

// NewPosition builds a validated, active position
func NewPosition(p NewPositionParams) (*Position, error) {
	category, err := ParseCategory(p.Category)
	if err != nil {
		return nil, err
	}

	pos := &Position{
		ID:          uuid.New(),
		OwnerID:     p.OwnerID,
		Ticker:      strings.ToUpper(strings.TrimSpace(p.Ticker)),
		Category:    category,
		Qty:         defaultQty,
		OptionPrice: p.OptionPrice,
		TradePrice:  p.TradePrice,
		OpenDate:    truncateDay(p.OpenDate),
		CloseDate:   truncateDayPtr(p.CloseDate),
		ClosedPrice: p.ClosedPrice,
		Remark:      p.Remark,
		IsActive:    true,
	}
	if p.Qty != nil {
		pos.Qty = *p.Qty
	}
	if p.IsActive != nil {
		pos.IsActive = *p.IsActive
	}

	if err := pos.validate(); err != nil {
		return nil, err
	}
	return pos, nil
}

// PositionPatch lists the fields an update may touch; nil leaves the stored value alone
type PositionPatch struct {
	Ticker      *string
	Category    *string
	Qty         *int
	OptionPrice *float64
	TradePrice  *float64
	OpenDate    *time.Time
	CloseDate   *time.Time
	ClosedPrice *float64
	Remark      *string
	IsActive    *bool
}

// TouchesContract reports whether the patch changes what identifies the traded instrument
func (p PositionPatch) TouchesContract() bool {
	return p.Ticker != nil || p.Category != nil || p.TradePrice != nil || p.CloseDate != nil
}

// Apply merges the patch into the position. The position is left untouched when
// the result would be invalid
func (pos *Position) Apply(p PositionPatch) error {
	next := *pos

	if p.Ticker != nil {
		next.Ticker = strings.ToUpper(strings.TrimSpace(*p.Ticker))
	}
	if p.Category != nil {
		c, err := ParseCategory(*p.Category)
		if err != nil {
			return err
		}
		next.Category = c
	}
	if p.Qty != nil {
		next.Qty = *p.Qty
	}
	if p.OptionPrice != nil {
		next.OptionPrice = p.OptionPrice
	}
	if p.TradePrice != nil {
		next.TradePrice = *p.TradePrice
	}
	if p.OpenDate != nil {
		next.OpenDate = truncateDay(*p.OpenDate)
	}
	if p.CloseDate != nil {
		next.CloseDate = truncateDayPtr(p.CloseDate)
	}
	if p.ClosedPrice != nil {
		next.ClosedPrice = p.ClosedPrice
	}
	if p.Remark != nil {
		next.Remark = *p.Remark
	}
	// closing data alone never deactivates a position
	if p.IsActive != nil {
		next.IsActive = *p.IsActive
	}

	if err := next.validate(); err != nil {
		return err
	}
	*pos = next
	return nil
}

func (pos *Position) validate() error {
	switch pos.Category {
	case CategoryLong, CategoryShort, CategoryCall, CategoryPut:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidCategory, pos.Category)
	}
	if pos.Qty <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, pos.Qty)
	}
	if pos.CloseDate != nil && pos.CloseDate.Before(pos.OpenDate) {
		return ErrCloseBeforeOpen
	}
	if pos.Category.IsOption() && pos.CloseDate == nil {
		return ErrMissingExpiry
	}
	if len(pos.Remark) > maxRemarkSize {
		return fmt.Errorf("%w: at most %d bytes", ErrInvalidRemark, maxRemarkSize)
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateDayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := truncateDay(*t)
	return &d
}
