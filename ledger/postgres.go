package ledger

import (
	"context"

	spdb "github.com/nolossgames/savings-pool-server"
	"github.com/nolossgames/savings-pool-server/pool"
)

// EnsureSchema creates the pool_events table when a database is configured.
// With no DATABASE_URL this is a no-op and the file journal stands alone.
func EnsureSchema(ctx context.Context) error {
	db, err := spdb.GetDB()
	if err != nil {
		return err
	}
	if db == nil {
		return nil
	}
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS pool_events (
			id                  uuid PRIMARY KEY,
			type                text NOT NULL,
			player              text NOT NULL DEFAULT '',
			segment             bigint NOT NULL,
			net_amount          numeric NOT NULL,
			gross_amount        numeric NOT NULL,
			total_principal     numeric NOT NULL,
			net_total_principal numeric NOT NULL,
			total_interest      numeric NOT NULL,
			at                  timestamptz NOT NULL
		)`)
	return err
}

func insertEvent(ctx context.Context, e pool.Event) error {
	db, err := spdb.GetDB()
	if err != nil {
		return err
	}
	if db == nil {
		return nil
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO pool_events
			(id, type, player, segment, net_amount, gross_amount,
			 total_principal, net_total_principal, total_interest, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, string(e.Type), e.Player, int64(e.Segment),
		e.NetAmount.String(), e.GrossAmount.String(),
		e.TotalPrincipal.String(), e.NetTotalPrincipal.String(),
		e.TotalInterest.String(), e.At)
	return err
}
