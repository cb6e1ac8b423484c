package main

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresInventory persists player item holdings in a single table.
// Debits run in one transaction with the rows locked, so a player can
// never be charged below zero even under concurrent settlement.
type PostgresInventory struct {
	pool *pgxpool.Pool
}

const inventorySchema = `
CREATE TABLE IF NOT EXISTS inventories (
	player_id TEXT NOT NULL,
	item      TEXT NOT NULL,
	count     INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
	PRIMARY KEY (player_id, item)
)`

func NewPostgresInventory(ctx context.Context, url string) (*PostgresInventory, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, inventorySchema); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresInventory{pool: pool}, nil
}

func (p *PostgresInventory) Close() {
	p.pool.Close()
}

// Debit removes items from a player's holdings, all or nothing.
func (p *PostgresInventory) Debit(ctx context.Context, playerID string, items WagerMap) error {
	if items.empty() {
		return nil
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for item, count := range items {
		var have int
		err := tx.QueryRow(ctx,
			`SELECT count FROM inventories WHERE player_id = $1 AND item = $2 FOR UPDATE`,
			playerID, item,
		).Scan(&have)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInsufficientItems
		}
		if err != nil {
			return err
		}
		if have < count {
			return ErrInsufficientItems
		}

		if _, err := tx.Exec(ctx,
			`UPDATE inventories SET count = count - $3 WHERE player_id = $1 AND item = $2`,
			playerID, item, count,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Credit adds items to a player's holdings. Used for pot payouts and
// refunds, so it never fails on missing rows.
func (p *PostgresInventory) Credit(ctx context.Context, playerID string, items WagerMap) error {
	if items.empty() {
		return nil
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for item, count := range items {
		if _, err := tx.Exec(ctx,
			`INSERT INTO inventories (player_id, item, count) VALUES ($1, $2, $3)
			 ON CONFLICT (player_id, item) DO UPDATE SET count = inventories.count + EXCLUDED.count`,
			playerID, item, count,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Holdings reads a player's full inventory, mostly for tests and
// operator tooling.
func (p *PostgresInventory) Holdings(ctx context.Context, playerID string) (WagerMap, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT item, count FROM inventories WHERE player_id = $1 AND count > 0`,
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holdings := WagerMap{}
	for rows.Next() {
		var item string
		var count int
		if err := rows.Scan(&item, &count); err != nil {
			return nil, err
		}
		holdings[item] = count
	}

	return holdings, rows.Err()
}
