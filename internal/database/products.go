package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, description, category, price, stock, images,
	specifications, is_active, created_at, updated_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock,
		&p.Images, &p.Specifications, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const getProduct = `SELECT ` + productColumns + `
FROM products WHERE id = $1 AND is_active = TRUE`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const getProductForUpdate = `SELECT ` + productColumns + `
FROM products WHERE id = $1 AND is_active = TRUE
FOR UPDATE`

// GetProductForUpdate locks the product row for the duration of the
// transaction so concurrent orders can't both pass the stock check.
func (q *Queries) GetProductForUpdate(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProductForUpdate, id))
}

type ListProductsParams struct {
	Category pgtype.Text
	Limit    int32
	Offset   int32
}

const listProducts = `SELECT ` + productColumns + `
FROM products
WHERE is_active = TRUE AND ($1::text IS NULL OR category = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.Category, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type CreateProductParams struct {
	Name           string
	Description    pgtype.Text
	Category       pgtype.Text
	Price          pgtype.Numeric
	Stock          int32
	Images         []string
	Specifications pgtype.Text
}

const createProduct = `INSERT INTO products (name, description, category, price,
	stock, images, specifications)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + productColumns

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, createProduct,
		arg.Name, arg.Description, arg.Category, arg.Price,
		arg.Stock, arg.Images, arg.Specifications,
	))
}

type UpdateProductParams struct {
	ID             uuid.UUID
	Name           string
	Description    pgtype.Text
	Category       pgtype.Text
	Price          pgtype.Numeric
	Stock          int32
	Images         []string
	Specifications pgtype.Text
}

const updateProduct = `UPDATE products
SET name = $2, description = $3, category = $4, price = $5, stock = $6,
	images = $7, specifications = $8, updated_at = now()
WHERE id = $1 AND is_active = TRUE
RETURNING ` + productColumns

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, updateProduct,
		arg.ID, arg.Name, arg.Description, arg.Category, arg.Price,
		arg.Stock, arg.Images, arg.Specifications,
	))
}

const softDeleteProduct = `UPDATE products
SET is_active = FALSE, updated_at = now()
WHERE id = $1 AND is_active = TRUE
RETURNING id`

func (q *Queries) SoftDeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteProduct, id).Scan(&deleted)
	return deleted, err
}

type AdjustProductStockParams struct {
	ID    uuid.UUID
	Delta int32
}

const adjustProductStock = `UPDATE products
SET stock = stock + $2, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

// AdjustProductStock applies a signed delta to the product's stock.
// The stock >= 0 CHECK constraint rejects a decrement past zero; callers
// verify availability first under GetProductForUpdate's row lock.
func (q *Queries) AdjustProductStock(ctx context.Context, arg AdjustProductStockParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, adjustProductStock, arg.ID, arg.Delta))
}
