package positions

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

func ptr[T any](v T) *T { return &v }

func TestParseCategory(t *testing.T) {
	for in, want := range map[string]Category{"": CategoryLong, "long": CategoryLong, "Short": CategoryShort, " CALL ": CategoryCall, "put": CategoryPut} {
		got, err := ParseCategory(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseCategory("Straddle")
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestNewPosition_Defaults(t *testing.T) {
	owner := uuid.New()
	p, err := NewPosition(NewPositionParams{
		OwnerID:    owner,
		Ticker:     " aapl ",
		TradePrice: 190.5,
		OpenDate:   time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, owner, p.OwnerID)
	assert.Equal(t, "AAPL", p.Ticker)
	assert.Equal(t, CategoryLong, p.Category)
	assert.Equal(t, 100, p.Qty)
	assert.True(t, p.IsActive)
	assert.True(t, p.OpenDate.Equal(day("2026-03-02")))
	assert.Nil(t, p.CloseDate)
}

func TestNewPosition_Invalid(t *testing.T) {
	base := func() NewPositionParams {
		return NewPositionParams{OwnerID: uuid.New(), Ticker: "AAPL", TradePrice: 10, OpenDate: day("2026-03-02")}
	}

	tests := []struct {
		name   string
		mutate func(p *NewPositionParams)
		want   error
	}{
		{"bad category", func(p *NewPositionParams) { p.Category = "Future" }, ErrInvalidCategory},
		{"zero qty", func(p *NewPositionParams) { p.Qty = ptr(0) }, ErrInvalidQuantity},
		{"negative qty", func(p *NewPositionParams) { p.Qty = ptr(-5) }, ErrInvalidQuantity},
		{"close before open", func(p *NewPositionParams) { p.CloseDate = dayPtr("2026-03-01") }, ErrCloseBeforeOpen},
		{"option without expiry", func(p *NewPositionParams) { p.Category = "Call" }, ErrMissingExpiry},
		{"remark too long", func(p *NewPositionParams) { p.Remark = string(make([]byte, maxRemarkSize+1)) }, ErrInvalidRemark},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(&p)
			_, err := NewPosition(p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPosition_Apply(t *testing.T) {
	newPos := func(t *testing.T) *Position {
		t.Helper()
		p, err := NewPosition(NewPositionParams{OwnerID: uuid.New(), Ticker: "AAPL", TradePrice: 10, OpenDate: day("2026-03-02")})
		require.NoError(t, err)
		return p
	}

	t.Run("empty patch changes nothing", func(t *testing.T) {
		p := newPos(t)
		before := *p
		require.NoError(t, p.Apply(PositionPatch{}))
		assert.Equal(t, before, *p)
	})

	t.Run("closing data keeps the position active", func(t *testing.T) {
		p := newPos(t)
		require.NoError(t, p.Apply(PositionPatch{ClosedPrice: ptr(12.0), CloseDate: dayPtr("2026-03-10")}))
		assert.True(t, p.IsActive)
		assert.Equal(t, 12.0, *p.ClosedPrice)
		assert.True(t, p.CloseDate.Equal(day("2026-03-10")))
	})

	t.Run("explicit is_active false deactivates", func(t *testing.T) {
		p := newPos(t)
		require.NoError(t, p.Apply(PositionPatch{ClosedPrice: ptr(12.0), IsActive: ptr(false)}))
		assert.False(t, p.IsActive)
	})

	t.Run("fields overwrite", func(t *testing.T) {
		p := newPos(t)
		require.NoError(t, p.Apply(PositionPatch{Ticker: ptr("msft"), Qty: ptr(5), Remark: ptr("rolled"), Category: ptr("Short")}))
		assert.Equal(t, "MSFT", p.Ticker)
		assert.Equal(t, 5, p.Qty)
		assert.Equal(t, "rolled", p.Remark)
		assert.Equal(t, CategoryShort, p.Category)
	})

	t.Run("invalid result leaves the position untouched", func(t *testing.T) {
		p := newPos(t)
		before := *p
		assert.ErrorIs(t, p.Apply(PositionPatch{Qty: ptr(7), CloseDate: dayPtr("2026-02-01")}), ErrCloseBeforeOpen)
		assert.Equal(t, before, *p)

		assert.ErrorIs(t, p.Apply(PositionPatch{Category: ptr("Put")}), ErrMissingExpiry)
		assert.ErrorIs(t, p.Apply(PositionPatch{Category: ptr("Bond")}), ErrInvalidCategory)
		assert.Equal(t, before, *p)
	})
}

func TestPositionPatch_TouchesContract(t *testing.T) {
	assert.False(t, PositionPatch{}.TouchesContract())
	assert.False(t, PositionPatch{Remark: ptr("x"), Qty: ptr(1), IsActive: ptr(false)}.TouchesContract())
	assert.True(t, PositionPatch{TradePrice: ptr(1.0)}.TouchesContract())
	assert.True(t, PositionPatch{CloseDate: dayPtr("2026-03-02")}.TouchesContract())
}
