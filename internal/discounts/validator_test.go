package discounts

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

var checkAt = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func noUsages() (int64, error) { return 0, nil }

func TestCheckReasonsInOrder(t *testing.T) {
	branch := uuid.New()
	user := uuid.New()
	base := func() *models.Discount {
		return &models.Discount{
			Code:               "SAVE",
			Type:               enums.DiscountTypeFixed,
			Value:              d("5"),
			MinOrderTotal:      d("20"),
			EligibleOrderTypes: types.StringList{string(enums.OrderTypeDelivery)},
			EligibleBranchIDs:  types.StringList{branch.String()},
			PerUserLimit:       intPtr(1),
			UsageLimit:         intPtr(10),
			StartsAt:           timePtr(checkAt.Add(-time.Hour)),
			EndsAt:             timePtr(checkAt.Add(time.Hour)),
			IsActive:           true,
		}
	}
	ok := CheckContext{OrderType: enums.OrderTypeDelivery, Subtotal: d("25"), UserID: &user, BranchID: branch, At: checkAt}

	cases := []struct {
		name   string
		mutate func(*models.Discount, *CheckContext)
		usages int64
		want   string
	}{
		{"inactive beats everything", func(m *models.Discount, c *CheckContext) {
			m.IsActive = false
			c.Subtotal = d("1")
		}, 0, ReasonInactive},
		{"not started", func(m *models.Discount, _ *CheckContext) { m.StartsAt = timePtr(checkAt.Add(time.Minute)) }, 0, ReasonNotStarted},
		{"expired at end instant", func(m *models.Discount, _ *CheckContext) { m.EndsAt = timePtr(checkAt) }, 0, ReasonExpired},
		{"branch before order type", func(_ *models.Discount, c *CheckContext) {
			c.BranchID = uuid.New()
			c.OrderType = enums.OrderTypePickup
		}, 0, ReasonBranch},
		{"order type before spend", func(_ *models.Discount, c *CheckContext) {
			c.OrderType = enums.OrderTypePickup
			c.Subtotal = d("1")
		}, 0, ReasonOrderType},
		{"spend before caps", func(_ *models.Discount, c *CheckContext) { c.Subtotal = d("19.99") }, 5, ReasonBelowMinimum},
		{"anonymous with per-user cap", func(_ *models.Discount, c *CheckContext) { c.UserID = nil }, 0, ReasonLoginRequired},
		{"per-user before global", func(m *models.Discount, _ *CheckContext) { m.UsedCount = 10 }, 1, ReasonPerUserLimit},
		{"global cap", func(m *models.Discount, _ *CheckContext) { m.UsedCount = 10 }, 0, ReasonUsageLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := base()
			in := ok
			tc.mutate(m, &in)
			res, err := check(m, in, func() (int64, error) { return tc.usages, nil })
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.Equal(t, tc.want, res.Reason)
			assert.True(t, res.Amount.IsZero())
		})
	}

	res, err := check(base(), ok, noUsages)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "5", res.Amount.String())
}

func TestCheckBelowMinimumSpend(t *testing.T) {
	m := &models.Discount{Code: "TWENTY", Type: enums.DiscountTypeFixed, Value: d("5"), MinOrderTotal: d("20"), IsActive: true}
	res, err := check(m, CheckContext{OrderType: enums.OrderTypePickup, Subtotal: d("15"), BranchID: uuid.New(), At: checkAt}, noUsages)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "below minimum spend", res.Reason)
}

func TestCheckEmptyEligibilityListsAllowAll(t *testing.T) {
	m := &models.Discount{Code: "ALL", Type: enums.DiscountTypePercentage, Value: d("10"), IsActive: true}
	res, err := check(m, CheckContext{OrderType: enums.OrderTypeDineIn, Subtotal: d("30"), BranchID: uuid.New(), At: checkAt}, noUsages)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "3", res.Amount.String())
}

func TestCalculateAmount(t *testing.T) {
	cases := []struct {
		name     string
		kind     enums.DiscountType
		value    string
		subtotal string
		want     string
	}{
		{"percentage rounds to cents", enums.DiscountTypePercentage, "15", "33.33", "5"},
		{"percentage capped at subtotal", enums.DiscountTypePercentage, "100", "12.40", "12.4"},
		{"fixed below subtotal", enums.DiscountTypeFixed, "5", "12", "5"},
		{"fixed capped at subtotal", enums.DiscountTypeFixed, "50", "12", "12"},
		{"zero subtotal", enums.DiscountTypeFixed, "5", "0", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &models.Discount{Type: tc.kind, Value: d(tc.value)}
			assert.Equal(t, tc.want, CalculateAmount(m, d(tc.subtotal)).String())
		})
	}
}

func TestSnapshotFreezesTerms(t *testing.T) {
	m := &models.Discount{ID: uuid.New(), Code: "SPRING", Type: enums.DiscountTypePercentage, Value: d("10")}
	snap := Snapshot(m, d("2.505"), d("25.05"))
	m.Value = d("50")

	assert.Equal(t, m.ID, snap.DiscountID)
	assert.Equal(t, "percentage", snap.Type)
	assert.Equal(t, "10", snap.DiscountValue.String())
	assert.Equal(t, "2.51", snap.Amount.String())
	assert.Equal(t, "25.05", snap.OriginalTotal.String())
}
