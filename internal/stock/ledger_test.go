package stock

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db"
	"github.com/angelmondragon/restaurant-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
)

func newLedger(t *testing.T) (*db.Client, Ledger) {
	t.Helper()
	client := dbtest.New(t)
	logg := logger.New(logger.Options{ServiceName: "stock-test", Output: io.Discard})
	l, err := NewLedger(NewRepository(client.DB()), client, logg)
	require.NoError(t, err)
	return client, l
}

func seedItem(t *testing.T, client *db.Client, name string, qty int) uuid.UUID {
	t.Helper()
	product := dbtest.SeedProduct(t, client.DB(), dbtest.ProductSeed{Name: name, BasePrice: "5.00"})
	dbtest.SeedStock(t, client.DB(), product.ID, qty, 1)
	return product.ID
}

func TestCheckAvailabilityReportsManagedShortfalls(t *testing.T) {
	client, l := newLedger(t)
	managed := seedItem(t, client, "Soup", 2)
	unmanaged := dbtest.SeedProduct(t, client.DB(), dbtest.ProductSeed{Name: "Water", BasePrice: "1.00"}).ID

	res, err := l.CheckAvailability(context.Background(), []Line{
		{ProductID: managed, Quantity: 2},
		{ProductID: managed, Quantity: 1},
		{ProductID: unmanaged, Quantity: 500},
	})
	require.NoError(t, err)
	assert.False(t, res.OK)
	require.Len(t, res.Shortfalls, 1)
	assert.Equal(t, Shortfall{ProductID: managed, Requested: 3, Available: 2}, res.Shortfalls[0])

	res, err = l.CheckAvailability(context.Background(), []Line{{ProductID: managed, Quantity: 2}})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Empty(t, res.Shortfalls)
}

func TestCheckAvailabilityRejectsBadQuantity(t *testing.T) {
	_, l := newLedger(t)
	_, err := l.CheckAvailability(context.Background(), []Line{{ProductID: uuid.New(), Quantity: 0}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestReserveAndReleaseRoundTrip(t *testing.T) {
	client, l := newLedger(t)
	item := seedItem(t, client, "Pie", 5)
	ctx := context.Background()

	require.NoError(t, l.Reserve(ctx, nil, []Line{{ProductID: item, Quantity: 3}}))
	assert.Equal(t, 2, dbtest.StockQuantity(t, client.DB(), item))

	require.NoError(t, l.Release(ctx, nil, []Line{{ProductID: item, Quantity: 3}}))
	assert.Equal(t, 5, dbtest.StockQuantity(t, client.DB(), item))
}

func TestReserveIsAllOrNothing(t *testing.T) {
	client, l := newLedger(t)
	plenty := seedItem(t, client, "Bread", 10)
	scarce := seedItem(t, client, "Truffle", 1)

	err := l.Reserve(context.Background(), nil, []Line{
		{ProductID: plenty, Quantity: 4},
		{ProductID: scarce, Quantity: 2},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockShortfall))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []Shortfall{{ProductID: scarce, Requested: 2, Available: 1}}, details["shortfalls"])

	assert.Equal(t, 10, dbtest.StockQuantity(t, client.DB(), plenty))
	assert.Equal(t, 1, dbtest.StockQuantity(t, client.DB(), scarce))
}

func TestReserveInCallerTransactionRollsBackWithCaller(t *testing.T) {
	client, l := newLedger(t)
	item := seedItem(t, client, "Cake", 3)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := l.Reserve(context.Background(), tx, []Line{{ProductID: item, Quantity: 2}}); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInternal, "later step failed")
	})
	require.Error(t, err)
	assert.Equal(t, 3, dbtest.StockQuantity(t, client.DB(), item))
}

func TestReleaseSkipsUnmanagedItems(t *testing.T) {
	client, l := newLedger(t)
	unmanaged := dbtest.SeedProduct(t, client.DB(), dbtest.ProductSeed{Name: "Napkin", BasePrice: "0.00"}).ID
	require.NoError(t, l.Release(context.Background(), nil, []Line{{ProductID: unmanaged, Quantity: 2}}))
}

func TestConcurrentCheckoutsForLastUnitsOneWins(t *testing.T) {
	client, l := newLedger(t)
	item := seedItem(t, client, "Special", 2)

	var (
		wg        sync.WaitGroup
		successes int32
		errs      = make(chan error, 2)
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Reserve(context.Background(), nil, []Line{{ProductID: item, Quantity: 2}})
			if err == nil {
				atomic.AddInt32(&successes, 1)
				return
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	assert.EqualValues(t, 1, successes)
	for err := range errs {
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockShortfall), err.Error())
	}
	assert.Equal(t, 0, dbtest.StockQuantity(t, client.DB(), item))
}

func TestConcurrentReserveReleaseNeverGoesNegative(t *testing.T) {
	client, l := newLedger(t)
	const initial = 6
	item := seedItem(t, client, "Stew", initial)

	var (
		wg       sync.WaitGroup
		reserved int64
		released int64
	)
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			held := 0
			for step := 0; step < 25; step++ {
				qty := rng.Intn(3) + 1
				if held > 0 && rng.Intn(2) == 0 {
					if err := l.Release(context.Background(), nil, []Line{{ProductID: item, Quantity: held}}); err == nil {
						atomic.AddInt64(&released, int64(held))
						held = 0
					}
					continue
				}
				if err := l.Reserve(context.Background(), nil, []Line{{ProductID: item, Quantity: qty}}); err == nil {
					atomic.AddInt64(&reserved, int64(qty))
					held += qty
				}
			}
		}(int64(worker))
	}
	wg.Wait()

	final := dbtest.StockQuantity(t, client.DB(), item)
	assert.GreaterOrEqual(t, final, 0)
	assert.EqualValues(t, initial-reserved+released, final)
}
