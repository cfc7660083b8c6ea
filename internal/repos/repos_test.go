package repos_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	"github.com/xxwlkq/ecommerce-system/internal/repos"
)

func memStore(t *testing.T) (*repos.Store, *sqlx.DB) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repos.NewStore(db), db
}

func mkUser(t *testing.T, s *repos.Store, id, name, phone, bal string) {
	t.Helper()
	require.NoError(t, s.Users.Create(context.Background(), domain.User{
		ID: id, Username: name, Phone: phone, Hash: "x", Balance: decimal.RequireFromString(bal),
	}))
}

func TestProductRepo_CreateAssignsNextID(t *testing.T) {
	s, _ := memStore(t)
	ctx := context.Background()

	id, err := s.Products.Create(ctx, domain.Product{Name: "A", Category: "c", Price: decimal.NewFromInt(3), Stock: 1})
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	id, err = s.Products.Create(ctx, domain.Product{Name: "B", Category: "c", Price: decimal.RequireFromString("2.50"), Stock: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), id)

	p, err := s.Products.Get(ctx, 2)
	require.NoError(t, err)
	require.True(t, p.Price.Equal(decimal.RequireFromString("2.5")))

	_, err = s.Products.Get(ctx, 99)
	require.ErrorIs(t, err, repos.ErrNotFound)
	require.ErrorIs(t, s.Products.Delete(ctx, 99), repos.ErrNotFound)

	// A deleted id is never handed out again.
	require.NoError(t, s.Products.Delete(ctx, 2))
	id, err = s.Products.Create(ctx, domain.Product{Name: "C", Category: "c", Price: decimal.NewFromInt(1), Stock: 1})
	require.NoError(t, err)
	require.Equal(t, int64(3), id)
}

func TestProductRepo_AdjustStockClamps(t *testing.T) {
	s, _ := memStore(t)
	ctx := context.Background()
	id, err := s.Products.Create(ctx, domain.Product{Name: "A", Category: "c", Price: decimal.NewFromInt(1), Stock: 3})
	require.NoError(t, err)

	stock, clamped, err := s.Products.AdjustStock(ctx, id, 2)
	require.NoError(t, err)
	require.Equal(t, 5, stock)
	require.False(t, clamped)

	stock, clamped, err = s.Products.AdjustStock(ctx, id, -9)
	require.NoError(t, err)
	require.Equal(t, 0, stock)
	require.True(t, clamped)

	_, _, err = s.Products.AdjustStock(ctx, 42, 1)
	require.ErrorIs(t, err, repos.ErrNotFound)
}

func TestProductRepo_DecrementRefusesOversell(t *testing.T) {
	s, _ := memStore(t)
	ctx := context.Background()
	id, err := s.Products.Create(ctx, domain.Product{Name: "A", Category: "c", Price: decimal.NewFromInt(1), Stock: 2})
	require.NoError(t, err)

	ok, err := s.Products.Decrement(ctx, id, 3)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.Products.Decrement(ctx, id, 2)
	require.NoError(t, err)
	require.True(t, ok)

	p, err := s.Products.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 0, p.Stock)
}

func TestUserRepo_UniqueAndIdentifier(t *testing.T) {
	s, _ := memStore(t)
	ctx := context.Background()
	mkUser(t, s, "u-1", "alice", "13900000001", "10")

	err := s.Users.Create(ctx, domain.User{ID: "u-2", Username: "alice", Phone: "13900000002", Hash: "x"})
	require.ErrorIs(t, err, repos.ErrDuplicate)
	err = s.Users.Create(ctx, domain.User{ID: "u-3", Username: "carol", Phone: "13900000001", Hash: "x"})
	require.ErrorIs(t, err, repos.ErrDuplicate)

	for _, ident := range []string{"u-1", "alice", "13900000001"} {
		u, err := s.Users.ByIdentifier(ctx, ident)
		require.NoError(t, err, ident)
		require.Equal(t, "u-1", u.ID)
	}
	_, err = s.Users.ByIdentifier(ctx, "")
	require.ErrorIs(t, err, repos.ErrNotFound)
	_, err = s.Users.ByIdentifier(ctx, "nobody")
	require.ErrorIs(t, err, repos.ErrNotFound)
}

func TestUserRepo_AdjustBalanceClamps(t *testing.T) {
	s, _ := memStore(t)
	ctx := context.Background()
	mkUser(t, s, "u-1", "alice", "13900000001", "10")

	bal, clamped, err := s.Users.AdjustBalance(ctx, "u-1", decimal.RequireFromString("5.25"))
	require.NoError(t, err)
	require.False(t, clamped)
	require.Equal(t, "15.25", bal.StringFixed(2))

	bal, clamped, err = s.Users.AdjustBalance(ctx, "u-1", decimal.NewFromInt(-100))
	require.NoError(t, err)
	require.True(t, clamped)
	require.True(t, bal.IsZero())

	u, err := s.Users.ByID(ctx, "u-1")
	require.NoError(t, err)
	require.True(t, u.Balance.IsZero())
}

func TestUserRepo_FavoritesIdempotent(t *testing.T) {
	s, _ := memStore(t)
	ctx := context.Background()
	mkUser(t, s, "u-1", "alice", "13900000001", "0")
	pid, err := s.Products.Create(ctx, domain.Product{Name: "A", Category: "c", Price: decimal.NewFromInt(1)})
	require.NoError(t, err)

	added, err := s.Users.AddFavorite(ctx, "u-1", pid)
	require.NoError(t, err)
	require.True(t, added)
	added, err = s.Users.AddFavorite(ctx, "u-1", pid)
	require.NoError(t, err)
	require.False(t, added)

	ids, err := s.Users.FavoriteIDs(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, []int64{pid}, ids)

	removed, err := s.Users.RemoveFavorite(ctx, "u-1", pid)
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = s.Users.RemoveFavorite(ctx, "u-1", pid)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestUserRepo_Sessions(t *testing.T) {
	s, _ := memStore(t)
	ctx := context.Background()
	mkUser(t, s, "u-1", "alice", "13900000001", "0")

	require.NoError(t, s.Users.BindSession(ctx, "sid-1", "u-1"))
	u, err := s.Users.SessionUser(ctx, "sid-1")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)

	require.NoError(t, s.Users.UnbindSession(ctx, "sid-1"))
	_, err = s.Users.SessionUser(ctx, "sid-1")
	require.ErrorIs(t, err, repos.ErrNotFound)
}

func TestCartRepo_AddSetRemove(t *testing.T) {
	s, _ := memStore(t)
	ctx := context.Background()
	mkUser(t, s, "u-1", "alice", "13900000001", "0")
	pid, err := s.Products.Create(ctx, domain.Product{Name: "A", Category: "c", Price: decimal.RequireFromString("1.50"), Stock: 10})
	require.NoError(t, err)

	q, err := s.Carts.Add(ctx, "u-1", pid, 2)
	require.NoError(t, err)
	require.Equal(t, 2, q)
	q, err = s.Carts.Add(ctx, "u-1", pid, 3)
	require.NoError(t, err)
	require.Equal(t, 5, q)

	items, err := s.Carts.Items(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "7.50", items[0].Subtotal.StringFixed(2))

	require.ErrorIs(t, s.Carts.SetQuantity(ctx, "u-1", 77, 1), repos.ErrNotFound)
	require.NoError(t, s.Carts.SetQuantity(ctx, "u-1", pid, 0))
	lines, err := s.Carts.Lines(ctx, "u-1")
	require.NoError(t, err)
	require.Empty(t, lines)
	require.ErrorIs(t, s.Carts.Remove(ctx, "u-1", pid), repos.ErrNotFound)
}

func TestOrderRepo_SnapshotAndStatus(t *testing.T) {
	s, _ := memStore(t)
	ctx := context.Background()

	o := domain.Order{
		UserID:   "u-1",
		Username: "alice",
		Items: domain.OrderItems{
			{ProductID: 1, Name: "A", Quantity: 2, UnitPrice: decimal.NewFromInt(300)},
			{ProductID: 2, Name: "B", Quantity: 1, UnitPrice: decimal.NewFromInt(100)},
		},
		Total:     decimal.NewFromInt(700),
		Status:    domain.OrderPaid,
		CreatedAt: "2025-01-02 10:00:00",
	}
	id1, err := s.Orders.Create(ctx, o)
	require.NoError(t, err)
	o.CreatedAt = "2025-01-03 10:00:00"
	id2, err := s.Orders.Create(ctx, o)
	require.NoError(t, err)
	require.Equal(t, id1+1, id2)

	got, err := s.Orders.Get(ctx, id1)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	require.Equal(t, 3, got.Quantity())
	require.True(t, got.Items[0].UnitPrice.Equal(decimal.NewFromInt(300)))
	require.Nil(t, got.AddressID)

	list, err := s.Orders.ListByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, []int64{id2, id1}, []int64{list[0].ID, list[1].ID})

	ok, err := s.Orders.SetStatus(ctx, id1, domain.OrderPaid, domain.OrderCancelled)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Orders.SetStatus(ctx, id1, domain.OrderPaid, domain.OrderCancelled)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestActionRepo_Aggregates(t *testing.T) {
	s, _ := memStore(t)
	ctx := context.Background()
	add := func(ts, uid string, pid int64, at domain.ActionType, amt string) {
		_, err := s.Actions.Append(ctx, domain.ActionRecord{
			Timestamp: ts, UserID: uid, ProductID: pid, ProductName: "p", ProductCategory: "Phones",
			ActionType: at, Quantity: 1, TotalAmount: decimal.RequireFromString(amt),
		})
		require.NoError(t, err)
	}
	add("2025-01-01 09:00:00", "u-1", 1, domain.ActionView, "0")
	add("2025-01-01 09:01:00", "u-1", 1, domain.ActionView, "0")
	add("2025-01-02 09:00:00", "u-2", 2, domain.ActionView, "0")
	add("2025-01-02 09:05:00", "u-2", 2, domain.ActionPurchase, "99.90")

	n, err := s.Actions.DistinctUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	byType, err := s.Actions.CountByType(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, 2, byType[domain.ActionView])

	top, err := s.Actions.TopProducts(ctx, domain.ActionView, 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), top[0].ProductID)
	require.Equal(t, 2, top[0].Count)

	days, err := s.Actions.ByDay(ctx)
	require.NoError(t, err)
	require.Equal(t, []repos.KeyCount{{Key: "2025-01-01", Count: 2}, {Key: "2025-01-02", Count: 2}}, days)

	amts, err := s.Actions.PurchaseAmounts(ctx)
	require.NoError(t, err)
	require.Len(t, amts, 1)
	require.Equal(t, "99.90", amts[0].StringFixed(2))

	recs, err := s.Actions.Query(ctx, domain.ActionFilter{UserID: "u-2"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, domain.ActionPurchase, recs[0].ActionType)
}

func TestAddressRepo_Ownership(t *testing.T) {
	s, _ := memStore(t)
	ctx := context.Background()
	mkUser(t, s, "u-1", "alice", "13900000001", "0")
	mkUser(t, s, "u-2", "bob", "13900000002", "0")

	id, err := s.Addresses.Create(ctx, domain.Address{UserID: "u-1", Receiver: "A", Phone: "1", Detail: "x", IsDefault: true})
	require.NoError(t, err)

	_, err = s.Addresses.Get(ctx, id, "u-2")
	require.ErrorIs(t, err, repos.ErrNotFound)
	def, err := s.Addresses.Default(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, id, def.ID)

	require.NoError(t, s.Addresses.ClearDefault(ctx, "u-1"))
	_, err = s.Addresses.Default(ctx, "u-1")
	require.ErrorIs(t, err, repos.ErrNotFound)
	require.ErrorIs(t, s.Addresses.Delete(ctx, id, "u-2"), repos.ErrNotFound)
	require.NoError(t, s.Addresses.Delete(ctx, id, "u-1"))
}

func TestStore_WithTxRollsBack(t *testing.T) {
	s, _ := memStore(t)
	ctx := context.Background()
	pid, err := s.Products.Create(ctx, domain.Product{Name: "A", Category: "c", Price: decimal.NewFromInt(1), Stock: 5})
	require.NoError(t, err)

	boom := repos.ErrNotFound
	err = s.WithTx(ctx, func(r *repos.Repos) error {
		ok, err := r.Products.Decrement(ctx, pid, 5)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := s.Products.Get(ctx, pid)
	require.NoError(t, err)
	require.Equal(t, 5, p.Stock)
}

func TestSeedDemo_Idempotent(t *testing.T) {
	s, db := memStore(t)
	ctx := context.Background()
	require.NoError(t, repos.SeedDemo(db))
	require.NoError(t, repos.SeedDemo(db))

	n, err := s.Products.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 8, n)
	admin, err := s.Users.ByUsername(ctx, "admin")
	require.NoError(t, err)
	require.True(t, admin.IsAdmin)
}

func TestSeedDemo_ContinuesAfterSeededIDs(t *testing.T) {
	s, db := memStore(t)
	ctx := context.Background()
	require.NoError(t, repos.SeedDemo(db))

	id, err := s.Products.Create(ctx, domain.Product{Name: "Kindle", Category: "Books", Price: decimal.NewFromInt(99), Stock: 1})
	require.NoError(t, err)
	require.Equal(t, int64(9), id)
}

func TestSeedDemo_HashFailureAborts(t *testing.T) {
	s, db := memStore(t)
	ctx := context.Background()
	defer repos.SetHashPassword(func(string) (string, error) { return "", errors.New("entropy exhausted") })()

	err := repos.SeedDemo(db)
	require.ErrorContains(t, err, "entropy exhausted")

	_, err = s.Users.ByUsername(ctx, "admin")
	require.ErrorIs(t, err, repos.ErrNotFound)
	n, err := s.Products.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}
