package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db/dbtest"
	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	"github.com/angelmondragon/restaurant-backend/pkg/pagination"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

func paginationParams(limit int) pagination.Params {
	return pagination.Params{Limit: limit}
}

func insertOrder(t *testing.T, db *gorm.DB, branchID uuid.UUID, number string, status enums.OrderStatus, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		OrderNumber:   number,
		BranchID:      branchID,
		OrderType:     enums.OrderTypePickup,
		Status:        status,
		PaymentMethod: enums.PaymentMethodCashOnDelivery,
		PaymentStatus: enums.PaymentStatusPending,
		Currency:      "GBP",
		Subtotal:      decimal.RequireFromString("12.00"),
		DeliveryFee:   decimal.Zero,
		FinalTotal:    decimal.RequireFromString("12.00"),
		CreatedAt:     createdAt,
		Lines: []models.OrderLine{{
			ProductID:   uuid.New(),
			ProductName: "Soup",
			Position:    1,
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("6.00"),
			Attributes:  types.AttributeSelections{},
			LineTotal:   decimal.RequireFromString("12.00"),
		}},
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestNextSequenceIsPerBranch(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	a := dbtest.SeedBranch(t, client.DB(), "AAA")
	b := dbtest.SeedBranch(t, client.DB(), "BBB")

	for want := int64(1); want <= 3; want++ {
		got, err := repo.NextSequence(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := repo.NextSequence(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
	assert.Equal(t, "AAA-000042", formatOrderNumber("aaa", 42))
}

func TestListPaginatesNewestFirst(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	branch := dbtest.SeedBranch(t, client.DB(), "LDN")
	other := dbtest.SeedBranch(t, client.DB(), "MAN")
	base := time.Now().UTC().Add(-time.Hour)

	insertOrder(t, client.DB(), branch.ID, "LDN-000001", enums.OrderStatusPending, base)
	insertOrder(t, client.DB(), branch.ID, "LDN-000002", enums.OrderStatusProcessing, base.Add(time.Minute))
	insertOrder(t, client.DB(), branch.ID, "LDN-000003", enums.OrderStatusPending, base.Add(2*time.Minute))
	insertOrder(t, client.DB(), other.ID, "MAN-000001", enums.OrderStatusPending, base.Add(3*time.Minute))

	filters := ListFilters{BranchID: &branch.ID}
	first, err := repo.List(ctx, filters, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "LDN-000003", first.Items[0].OrderNumber)
	assert.Equal(t, "LDN-000002", first.Items[1].OrderNumber)
	require.Len(t, first.Items[0].Lines, 1)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.List(ctx, filters, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "LDN-000001", second.Items[0].OrderNumber)
	assert.Empty(t, second.NextCursor)

	pending := enums.OrderStatusPending
	filtered, err := repo.List(ctx, ListFilters{BranchID: &branch.ID, Status: &pending}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, filtered.Items, 2)

	_, err = repo.List(ctx, ListFilters{BranchID: &other.ID}, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	assert.ErrorIs(t, err, pagination.ErrScopeMismatch)
}

func TestFindByIntentForUpdateLoadsLines(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	branch := dbtest.SeedBranch(t, client.DB(), "LDN")
	order := insertOrder(t, client.DB(), branch.ID, "LDN-000001", enums.OrderStatusPending, time.Now().UTC())
	intent := "pi_lookup"
	require.NoError(t, repo.Update(context.Background(), order.ID, map[string]any{"payment_intent_id": intent}))

	found, err := repo.FindByIntentForUpdate(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Len(t, found.Lines, 1)

	_, err = repo.FindByIntentForUpdate(context.Background(), "pi_other")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Update(context.Background(), uuid.New(), map[string]any{"status": "cancelled"}), gorm.ErrRecordNotFound)
}
