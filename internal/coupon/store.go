package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateCode is returned when a coupon code collides with an existing one.
var ErrDuplicateCode = errors.New("coupon code already exists")

// PostgresStore persists each variant in its own table. All three tables draw
// ids from the shared coupon_id sequence so an identifier resolves to at most
// one variant.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore wraps a pgx pool in a coupon store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

// Save inserts the coupon into the table matching its variant and returns it
// with the storage-assigned identifier.
func (s *PostgresStore) Save(ctx context.Context, c Coupon) (Coupon, error) {
	var err error
	switch c.Type {
	case TypeCartWise:
		err = s.Pool.QueryRow(ctx, `
			INSERT INTO cart_wise_coupons (code, expiration_date, is_active, description, threshold, discount_percentage)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			c.Code, c.ExpirationDate, c.IsActive, c.Description,
			c.CartWise.Threshold, c.CartWise.DiscountPercentage,
		).Scan(&c.ID)
	case TypeProductWise:
		err = s.Pool.QueryRow(ctx, `
			INSERT INTO product_wise_coupons (code, expiration_date, is_active, description, product_id, discount_percentage)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			c.Code, c.ExpirationDate, c.IsActive, c.Description,
			c.ProductWise.ProductID, c.ProductWise.DiscountPercentage,
		).Scan(&c.ID)
	case TypeBxGy:
		var buy, get []byte
		if buy, err = json.Marshal(c.BxGy.BuyProducts); err != nil {
			return Coupon{}, err
		}
		if get, err = json.Marshal(c.BxGy.GetProducts); err != nil {
			return Coupon{}, err
		}
		err = s.Pool.QueryRow(ctx, `
			INSERT INTO bxgy_coupons (code, expiration_date, is_active, description, buy_products, get_products, repetition_limit)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			c.Code, c.ExpirationDate, c.IsActive, c.Description,
			buy, get, c.BxGy.RepetitionLimit,
		).Scan(&c.ID)
	default:
		return Coupon{}, fmt.Errorf("unknown coupon type %q", c.Type)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Coupon{}, ErrDuplicateCode
		}
		return Coupon{}, err
	}
	return c, nil
}

// FindByID fetches one coupon of the given variant.
func (s *PostgresStore) FindByID(ctx context.Context, t Type, id int64) (Coupon, error) {
	rows, err := s.Pool.Query(ctx, selectSQL(t)+` WHERE id = $1`, id)
	if err != nil {
		return Coupon{}, err
	}
	coupons, err := scanCoupons(rows, t)
	if err != nil {
		return Coupon{}, err
	}
	if len(coupons) == 0 {
		return Coupon{}, ErrNotFound
	}
	return coupons[0], nil
}

// FindAll lists every coupon of the given variant in insertion order.
func (s *PostgresStore) FindAll(ctx context.Context, t Type) ([]Coupon, error) {
	rows, err := s.Pool.Query(ctx, selectSQL(t)+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanCoupons(rows, t)
}

// FindActive lists the variant's coupons that are active and expire strictly
// after the asOf day. A coupon expiring on that day is excluded from discovery
// even though applying it directly still succeeds until the day ends.
func (s *PostgresStore) FindActive(ctx context.Context, t Type, asOf time.Time) ([]Coupon, error) {
	rows, err := s.Pool.Query(ctx,
		selectSQL(t)+` WHERE is_active AND expiration_date > $1::date ORDER BY id`, asOf)
	if err != nil {
		return nil, err
	}
	return scanCoupons(rows, t)
}

func selectSQL(t Type) string {
	switch t {
	case TypeCartWise:
		return `SELECT id, code, expiration_date, is_active, description, threshold, discount_percentage FROM cart_wise_coupons`
	case TypeProductWise:
		return `SELECT id, code, expiration_date, is_active, description, product_id, discount_percentage FROM product_wise_coupons`
	default:
		return `SELECT id, code, expiration_date, is_active, description, buy_products, get_products, repetition_limit FROM bxgy_coupons`
	}
}

func scanCoupons(rows pgx.Rows, t Type) ([]Coupon, error) {
	defer rows.Close()
	var out []Coupon
	for rows.Next() {
		c := Coupon{Type: t}
		var description *string
		var err error
		switch t {
		case TypeCartWise:
			rule := &CartWiseRule{}
			err = rows.Scan(&c.ID, &c.Code, &c.ExpirationDate, &c.IsActive, &description,
				&rule.Threshold, &rule.DiscountPercentage)
			c.CartWise = rule
		case TypeProductWise:
			rule := &ProductWiseRule{}
			err = rows.Scan(&c.ID, &c.Code, &c.ExpirationDate, &c.IsActive, &description,
				&rule.ProductID, &rule.DiscountPercentage)
			c.ProductWise = rule
		case TypeBxGy:
			rule := &BxGyRule{}
			var buy, get []byte
			err = rows.Scan(&c.ID, &c.Code, &c.ExpirationDate, &c.IsActive, &description,
				&buy, &get, &rule.RepetitionLimit)
			if err == nil {
				if err = json.Unmarshal(buy, &rule.BuyProducts); err == nil {
					err = json.Unmarshal(get, &rule.GetProducts)
				}
			}
			c.BxGy = rule
		}
		if err != nil {
			return nil, err
		}
		if description != nil {
			c.Description = *description
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
