package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/pkg/database"
	apperrors "github.com/elanq/ecommerce-search/pkg/errors"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

var now = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

var productCols = []string{
	"id", "name", "description", "price", "stock_quantity", "weight_grams",
	"owner_id", "created_at", "updated_at",
}

func sampleProduct() domain.Product {
	return domain.Product{
		ID:            "prod-1",
		Name:          "Wireless Mouse",
		Description:   "ergonomic",
		Price:         2500,
		StockQuantity: 12,
		WeightGrams:   90,
		OwnerID:       "owner-1",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func productRow(p domain.Product) []any {
	return []any{
		p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.WeightGrams,
		p.OwnerID, p.CreatedAt, p.UpdatedAt,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ProductRepository
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepository_GetByID_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(p.ID).
		WillReturnRows(
			pgxmock.NewRows(productCols).AddRow(productRow(p)...),
		)

	result, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, &p, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_StreamAll(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p1 := sampleProduct()
	p2 := sampleProduct()
	p2.ID = "prod-2"
	p2.Name = "Wireless Keyboard"

	mock.ExpectQuery("SELECT .+ FROM products ORDER BY id").
		WillReturnRows(
			pgxmock.NewRows(productCols).
				AddRow(productRow(p1)...).
				AddRow(productRow(p2)...),
		)

	var seen []string
	err := repo.StreamAll(context.Background(), func(p *domain.Product) error {
		seen = append(seen, p.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-1", "prod-2"}, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_StreamAll_CallbackErrorStopsStream(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectQuery("SELECT .+ FROM products ORDER BY id").
		WillReturnRows(
			pgxmock.NewRows(productCols).
				AddRow(productRow(p)...).
				AddRow(productRow(p)...),
		)

	wantErr := errors.New("sink full")
	calls := 0
	err := repo.StreamAll(context.Background(), func(*domain.Product) error {
		calls++
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

// ─────────────────────────────────────────────────────────────────────────────
// CategoryRepository
// ─────────────────────────────────────────────────────────────────────────────

func TestCategoryRepository_GetProductCategories(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	mock.ExpectQuery("SELECT c.id, c.name FROM categories c JOIN product_categories").
		WithArgs("prod-1").
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "name"}).
				AddRow("cat-1", "Electronics").
				AddRow("cat-2", "Peripherals"),
		)

	categories, err := repo.GetProductCategories(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{
		{ID: "cat-1", Name: "Electronics"},
		{ID: "cat-2", Name: "Peripherals"},
	}, categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_GetProductCategories_Empty(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	mock.ExpectQuery("SELECT c.id, c.name FROM categories c JOIN product_categories").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}))

	categories, err := repo.GetProductCategories(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.NotNil(t, categories)
	assert.Empty(t, categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─────────────────────────────────────────────────────────────────────────────
// ActivityRepository
// ─────────────────────────────────────────────────────────────────────────────

func TestActivityRepository_Insert(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActivityRepository(mock)

	a := domain.UserActivity{
		ProductID: "prod-1",
		UserID:    "user-1",
		Type:      domain.ActivityView,
		CreatedAt: now,
	}

	mock.ExpectQuery("INSERT INTO user_activities").
		WithArgs(a.ProductID, a.UserID, a.Type, a.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, repo.Insert(context.Background(), &a))
	assert.Equal(t, int64(42), a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_CountByProductAndType(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActivityRepository(mock)

	mock.ExpectQuery("SELECT COUNT.+ FROM user_activities WHERE product_id").
		WithArgs("prod-1", domain.ActivityPurchase).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := repo.CountByProductAndType(context.Background(), "prod-1", domain.ActivityPurchase)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_CountByProductAndTypeInRange(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActivityRepository(mock)

	from := now.Add(-24 * time.Hour)
	mock.ExpectQuery("SELECT COUNT.+ FROM user_activities WHERE product_id .+ created_at").
		WithArgs("prod-1", domain.ActivityView, from, now).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := repo.CountByProductAndTypeInRange(context.Background(), "prod-1", domain.ActivityView, from, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_ListByUserAndTypeSince(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActivityRepository(mock)

	since := now.Add(-30 * 24 * time.Hour)
	cols := []string{"id", "product_id", "user_id", "activity_type", "created_at"}

	mock.ExpectQuery("SELECT .+ FROM user_activities WHERE user_id").
		WithArgs("user-1", domain.ActivityView, since).
		WillReturnRows(
			pgxmock.NewRows(cols).
				AddRow(int64(2), "prod-2", "user-1", domain.ActivityView, now).
				AddRow(int64(1), "prod-1", "user-1", domain.ActivityView, now.Add(-time.Hour)),
		)

	activities, err := repo.ListByUserAndTypeSince(context.Background(), "user-1", domain.ActivityView, since)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, "prod-2", activities[0].ProductID)
	assert.Equal(t, "prod-1", activities[1].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_Insert_Error(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActivityRepository(mock)

	mock.ExpectQuery("INSERT INTO user_activities").
		WithArgs("prod-1", "user-1", domain.ActivityView, now).
		WillReturnError(errors.New("connection reset"))

	err := repo.Insert(context.Background(), &domain.UserActivity{
		ProductID: "prod-1", UserID: "user-1", Type: domain.ActivityView, CreatedAt: now,
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
