package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedPostgres loads a fixture bundle into a Postgres database. Existing
// rows with the same ids are overwritten, so repeated seeding is safe.
func SeedPostgres(ctx context.Context, databaseURL string, data SeedData) error {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("store: connect: %w", err)
	}
	defer pool.Close()

	for _, c := range data.Customers {
		_, err := pool.Exec(ctx,
			`INSERT INTO customers (customer_id, name, email, phone, pin_hash, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (customer_id) DO UPDATE SET
			   name = EXCLUDED.name, email = EXCLUDED.email,
			   phone = EXCLUDED.phone, pin_hash = EXCLUDED.pin_hash`,
			c.CustomerID, c.Name, c.Email, c.Phone, c.PINHash, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("store: seed customer %s: %w", c.CustomerID, err)
		}
	}

	for _, a := range data.Accounts {
		_, err := pool.Exec(ctx,
			`INSERT INTO accounts (account_id, customer_id, account_type, balance, currency)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (account_id) DO UPDATE SET
			   account_type = EXCLUDED.account_type, balance = EXCLUDED.balance,
			   currency = EXCLUDED.currency`,
			a.AccountID, a.CustomerID, a.AccountType, a.Balance, a.Currency)
		if err != nil {
			return fmt.Errorf("store: seed account %s: %w", a.AccountID, err)
		}
	}

	for _, c := range data.Cards {
		_, err := pool.Exec(ctx,
			`INSERT INTO cards (card_id, account_id, card_number_last4, status, expiration_date)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (card_id) DO UPDATE SET
			   status = EXCLUDED.status, blocked_at = NULL, blocked_reason = NULL,
			   expiration_date = EXCLUDED.expiration_date`,
			c.CardID, c.AccountID, c.Last4, c.Status, c.Expiration)
		if err != nil {
			return fmt.Errorf("store: seed card %s: %w", c.CardID, err)
		}
	}

	return nil
}
