// Package mainstorage implements the main-storage writer: a serial
// actor in front of the columnar analytics store, exposing one store_X_block
// call per row kind. Two drivers share one interface — a native-TCP
// ClickHouse connection and an HTTP(S) InfluxDB3 line-protocol client —
// selected by the configured URL's scheme.
package mainstorage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"

	"github.com/gohnnyman/solindexer/internal/perrors"
	"github.com/gohnnyman/solindexer/pkg/model"
)

// Writer is the interface the collector flushes buffered rows
// through; each method is one block insert.
type Writer interface {
	StoreInstructionsBlock(ctx context.Context, rows []model.Instruction) error
	StoreBalancesBlock(ctx context.Context, rows []model.Balance) error
	StoreInstructionArgumentsBlock(ctx context.Context, rows []model.InstructionArgument) error
	StoreDelegationsBlock(ctx context.Context, rows []model.Delegation) error
	StoreUndelegationsBlock(ctx context.Context, rows []model.Delegation) error
	StoreErroneousTransactionsBlock(ctx context.Context, rows []model.ErroneousTransaction) error
	StoreRewardsBlock(ctx context.Context, rows []model.Reward) error
	CleanUnfinished(ctx context.Context, epoch uint64) error
	// LookupVoteAccount resolves the historical stake→vote binding:
	// the vote account bound to stakeAcc by the most recent delegation or
	// undelegation event at or before atSlot. A nil result with a nil error
	// means the most recent event was an undelegation, or no event exists.
	LookupVoteAccount(ctx context.Context, stakeAcc string, atSlot uint64) (*string, error)
	Close() error
}

// New opens a Writer, choosing the ClickHouse native-TCP driver for a
// `clickhouse://` URL and the InfluxDB3 HTTP(S) line-protocol driver
// otherwise.
func New(ctx context.Context, log *slog.Logger, rawURL string) (Writer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse main storage url: %w", err)
	}
	switch u.Scheme {
	case "clickhouse", "tcp":
		return newClickHouseWriter(ctx, log, u)
	case "http", "https":
		return newInfluxWriter(u)
	default:
		return nil, fmt.Errorf("unsupported main storage scheme %q", u.Scheme)
	}
}

type clickHouseWriter struct {
	conn clickhouse.Conn
}

func newClickHouseWriter(ctx context.Context, log *slog.Logger, u *url.URL) (*clickHouseWriter, error) {
	database := "default"
	if u.Path != "" && u.Path != "/" {
		database = u.Path[1:]
	}
	username, password := "", ""
	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{u.Host},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings:    clickhouse.Settings{"max_execution_time": 60},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	log.Info("main storage writer connected", "driver", "clickhouse", "addr", u.Host, "database", database)
	return &clickHouseWriter{conn: conn}, nil
}

func (w *clickHouseWriter) batchInsert(ctx context.Context, table string, n int, fill func(b interface{ Append(...any) error }) error) error {
	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return &perrors.MainStorageError{Op: "PrepareBatch:" + table, Cause: err}
	}
	if err := fill(batch); err != nil {
		return &perrors.MainStorageError{Op: "Append:" + table, Cause: err}
	}
	if err := batch.Send(); err != nil {
		return &perrors.MainStorageError{Op: "Send:" + table, Cause: err}
	}
	return nil
}

func (w *clickHouseWriter) StoreInstructionsBlock(ctx context.Context, rows []model.Instruction) error {
	return w.batchInsert(ctx, "instructions", len(rows), func(b interface{ Append(...any) error }) error {
		for _, r := range rows {
			if err := b.Append(r.Program, r.TxSignature, r.TxStatus, r.Slot, r.BlockTime, r.InstructionIdx,
				r.InnerInstructionsSet, r.TransactionInstructionIdx, r.InstructionName, r.Accounts, r.Data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *clickHouseWriter) StoreBalancesBlock(ctx context.Context, rows []model.Balance) error {
	return w.batchInsert(ctx, "balances", len(rows), func(b interface{ Append(...any) error }) error {
		for _, r := range rows {
			if err := b.Append(r.TxSignature, r.AccountIdx, r.Account, r.PreLamports, r.PostLamports, r.PreToken, r.PostToken); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *clickHouseWriter) StoreInstructionArgumentsBlock(ctx context.Context, rows []model.InstructionArgument) error {
	return w.batchInsert(ctx, "instruction_arguments", len(rows), func(b interface{ Append(...any) error }) error {
		for _, r := range rows {
			if err := b.Append(r.TxSignature, r.InstructionIdx, r.InnerInstructionsSet, r.Program, r.ArgIdx, r.ArgPath,
				r.IntValue, r.UnsignedValue, r.FloatValue, r.StringValue); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *clickHouseWriter) StoreDelegationsBlock(ctx context.Context, rows []model.Delegation) error {
	return w.storeDelegationLikeBlock(ctx, "delegations", rows)
}

func (w *clickHouseWriter) StoreUndelegationsBlock(ctx context.Context, rows []model.Delegation) error {
	return w.storeDelegationLikeBlock(ctx, "undelegations", rows)
}

func (w *clickHouseWriter) storeDelegationLikeBlock(ctx context.Context, table string, rows []model.Delegation) error {
	return w.batchInsert(ctx, table, len(rows), func(b interface{ Append(...any) error }) error {
		for _, r := range rows {
			if err := b.Append(r.Slot, r.BlockTime, r.StakeAcc, r.VoteAcc, r.TxSignature, r.Amount, r.RawInstructionIdx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *clickHouseWriter) StoreErroneousTransactionsBlock(ctx context.Context, rows []model.ErroneousTransaction) error {
	return w.batchInsert(ctx, "erroneous_transactions", len(rows), func(b interface{ Append(...any) error }) error {
		for _, r := range rows {
			if err := b.Append(r.Signature, r.Slot, r.EncodedTx, r.Error); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *clickHouseWriter) StoreRewardsBlock(ctx context.Context, rows []model.Reward) error {
	return w.batchInsert(ctx, "rewards", len(rows), func(b interface{ Append(...any) error }) error {
		for _, r := range rows {
			if err := b.Append(r.VoteAccount, r.Epoch, r.Pubkey, r.Lamports, r.PostBalance, r.RewardType,
				r.Commission, r.FirstBlockSlot, r.BlockTime); err != nil {
				return err
			}
		}
		return nil
	})
}

// CleanUnfinished deletes rewards for epoch, the attributor's idempotent
// restart boundary.
func (w *clickHouseWriter) CleanUnfinished(ctx context.Context, epoch uint64) error {
	if err := w.conn.Exec(ctx, "ALTER TABLE rewards DELETE WHERE epoch = ?", epoch); err != nil {
		return &perrors.MainStorageError{Op: "CleanUnfinished", Cause: err}
	}
	return nil
}

// historicalBindingQuery finds the most recent delegation or undelegation
// event for stake_acc at or before at_slot, ordered by
// (slot, raw_instruction_idx) descending. ClickHouse and
// InfluxDB3's SQL interfaces both accept this dialect.
const historicalBindingQuery = `
SELECT vote_acc, is_delegation
FROM (
  SELECT slot, raw_instruction_idx, vote_acc, 1 AS is_delegation
  FROM delegations
  WHERE stake_acc = $1 AND slot <= $2
  ORDER BY slot DESC, raw_instruction_idx DESC LIMIT 1
  UNION ALL
  SELECT slot, raw_instruction_idx, vote_acc, 0 AS is_delegation
  FROM undelegations
  WHERE stake_acc = $1 AND slot <= $2
  ORDER BY slot DESC, raw_instruction_idx DESC LIMIT 1
)
ORDER BY slot DESC, raw_instruction_idx DESC LIMIT 1
`

func (w *clickHouseWriter) LookupVoteAccount(ctx context.Context, stakeAcc string, atSlot uint64) (*string, error) {
	row := w.conn.QueryRow(ctx, historicalBindingQuery, stakeAcc, atSlot)
	var voteAcc *string
	var isDelegation uint8
	if err := row.Scan(&voteAcc, &isDelegation); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, &perrors.MainStorageError{Op: "LookupVoteAccount", Cause: err}
	}
	if isDelegation == 0 {
		return nil, nil
	}
	return voteAcc, nil
}

func (w *clickHouseWriter) Close() error { return w.conn.Close() }

// influxWriter implements Writer over the HTTP(S) line-protocol driver,
// mapping each block-insert call to a batch of influxdb3.Points.
type influxWriter struct {
	client *influxdb3.Client
}

func newInfluxWriter(u *url.URL) (*influxWriter, error) {
	token := ""
	if u.User != nil {
		token, _ = u.User.Password()
	}
	database := "analyzer"
	if u.Path != "" && u.Path != "/" {
		database = u.Path[1:]
	}
	host := *u
	host.User = nil
	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:     host.String(),
		Token:    token,
		Database: database,
	})
	if err != nil {
		return nil, fmt.Errorf("open influxdb3: %w", err)
	}
	return &influxWriter{client: client}, nil
}

func (w *influxWriter) write(ctx context.Context, measurement string, points []*influxdb3.Point) error {
	if err := w.client.WritePoints(ctx, points); err != nil {
		return &perrors.MainStorageError{Op: "WritePoints:" + measurement, Cause: err}
	}
	return nil
}

func (w *influxWriter) StoreInstructionsBlock(ctx context.Context, rows []model.Instruction) error {
	points := make([]*influxdb3.Point, len(rows))
	for i, r := range rows {
		points[i] = influxdb3.NewPoint("instructions",
			map[string]string{"program": r.Program, "tx_signature": r.TxSignature},
			map[string]any{"tx_status": int(r.TxStatus), "instruction_idx": r.InstructionIdx, "instruction_name": r.InstructionName, "data": r.Data},
			time.Now())
	}
	return w.write(ctx, "instructions", points)
}

func (w *influxWriter) StoreBalancesBlock(ctx context.Context, rows []model.Balance) error {
	points := make([]*influxdb3.Point, len(rows))
	for i, r := range rows {
		points[i] = influxdb3.NewPoint("balances",
			map[string]string{"tx_signature": r.TxSignature, "account": r.Account},
			map[string]any{"pre_lamports": r.PreLamports, "post_lamports": r.PostLamports},
			time.Now())
	}
	return w.write(ctx, "balances", points)
}

func (w *influxWriter) StoreInstructionArgumentsBlock(ctx context.Context, rows []model.InstructionArgument) error {
	points := make([]*influxdb3.Point, len(rows))
	for i, r := range rows {
		fields := map[string]any{"arg_idx": r.ArgIdx}
		switch {
		case r.IntValue != nil:
			fields["int_value"] = *r.IntValue
		case r.UnsignedValue != nil:
			fields["unsigned_value"] = *r.UnsignedValue
		case r.FloatValue != nil:
			fields["float_value"] = *r.FloatValue
		case r.StringValue != nil:
			fields["string_value"] = *r.StringValue
		}
		points[i] = influxdb3.NewPoint("instruction_arguments",
			map[string]string{"tx_signature": r.TxSignature, "arg_path": r.ArgPath},
			fields,
			time.Now())
	}
	return w.write(ctx, "instruction_arguments", points)
}

func (w *influxWriter) storeDelegationLikePoints(ctx context.Context, measurement string, rows []model.Delegation) error {
	points := make([]*influxdb3.Point, len(rows))
	for i, r := range rows {
		voteAcc := ""
		if r.VoteAcc != nil {
			voteAcc = *r.VoteAcc
		}
		points[i] = influxdb3.NewPoint(measurement,
			map[string]string{"stake_acc": r.StakeAcc, "vote_acc": voteAcc},
			map[string]any{"amount": r.Amount, "slot": r.Slot, "raw_instruction_idx": r.RawInstructionIdx},
			time.Now())
	}
	return w.write(ctx, measurement, points)
}

func (w *influxWriter) StoreDelegationsBlock(ctx context.Context, rows []model.Delegation) error {
	return w.storeDelegationLikePoints(ctx, "delegations", rows)
}

func (w *influxWriter) StoreUndelegationsBlock(ctx context.Context, rows []model.Delegation) error {
	return w.storeDelegationLikePoints(ctx, "undelegations", rows)
}

func (w *influxWriter) StoreErroneousTransactionsBlock(ctx context.Context, rows []model.ErroneousTransaction) error {
	points := make([]*influxdb3.Point, len(rows))
	for i, r := range rows {
		points[i] = influxdb3.NewPoint("erroneous_transactions",
			map[string]string{"signature": r.Signature},
			map[string]any{"slot": r.Slot, "error": r.Error},
			time.Now())
	}
	return w.write(ctx, "erroneous_transactions", points)
}

func (w *influxWriter) StoreRewardsBlock(ctx context.Context, rows []model.Reward) error {
	points := make([]*influxdb3.Point, len(rows))
	for i, r := range rows {
		voteAcc := ""
		if r.VoteAccount != nil {
			voteAcc = *r.VoteAccount
		}
		points[i] = influxdb3.NewPoint("rewards",
			map[string]string{"pubkey": r.Pubkey, "vote_account": voteAcc, "reward_type": string(r.RewardType)},
			map[string]any{"epoch": r.Epoch, "lamports": r.Lamports, "post_balance": r.PostBalance},
			time.Now())
	}
	return w.write(ctx, "rewards", points)
}

// CleanUnfinished deletes rewards for epoch via an InfluxQL DELETE; the
// line-protocol driver has no batch-delete primitive, so this issues one
// predicate-scoped delete per call.
func (w *influxWriter) CleanUnfinished(ctx context.Context, epoch uint64) error {
	_, err := w.client.Query(ctx, fmt.Sprintf(`DELETE FROM rewards WHERE epoch = %d`, epoch))
	if err != nil {
		return &perrors.MainStorageError{Op: "CleanUnfinished", Cause: err}
	}
	return nil
}

// LookupVoteAccount interpolates stakeAcc directly: it is always a
// validated base58 Solana pubkey (fixed alphabet, no quote characters), so
// this carries none of the risk of interpolating arbitrary user input.
func (w *influxWriter) LookupVoteAccount(ctx context.Context, stakeAcc string, atSlot uint64) (*string, error) {
	query := fmt.Sprintf(`
		SELECT vote_acc, is_delegation FROM (
		  SELECT slot, raw_instruction_idx, vote_acc, 1 AS is_delegation FROM delegations
		  WHERE stake_acc = '%s' AND slot <= %d ORDER BY slot DESC, raw_instruction_idx DESC LIMIT 1
		  UNION ALL
		  SELECT slot, raw_instruction_idx, vote_acc, 0 AS is_delegation FROM undelegations
		  WHERE stake_acc = '%s' AND slot <= %d ORDER BY slot DESC, raw_instruction_idx DESC LIMIT 1
		) ORDER BY slot DESC, raw_instruction_idx DESC LIMIT 1
	`, stakeAcc, atSlot, stakeAcc, atSlot)

	iter, err := w.client.Query(ctx, query)
	if err != nil {
		return nil, &perrors.MainStorageError{Op: "LookupVoteAccount", Cause: err}
	}
	if !iter.Next() {
		return nil, nil
	}
	row := iter.Value()
	isDelegation, _ := row["is_delegation"].(int64)
	if isDelegation == 0 {
		return nil, nil
	}
	voteAcc, ok := row["vote_acc"].(string)
	if !ok || voteAcc == "" {
		return nil, nil
	}
	return &voteAcc, nil
}

func (w *influxWriter) Close() error {
	w.client.Close()
	return nil
}
