// Package rewards implements the reward attributor: it resolves each
// epoch-boundary reward to the stake-vote binding in effect at that epoch's
// first slot and writes the result through a dedicated buffering collector,
// grounded on original_source/rewards_analyzer/src/rewards_analyzer.rs.
package rewards

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gohnnyman/solindexer/internal/metrics"
	"github.com/gohnnyman/solindexer/pkg/mainstorage"
	"github.com/gohnnyman/solindexer/pkg/model"
)

const noReadyEpochWait = 60 * time.Second

// EpochStore is the subset of pkg/queue.Queue the attributor needs.
type EpochStore interface {
	OldestReadyEpoch(ctx context.Context) (*model.Epoch, error)
	MarkRewardsProcessed(ctx context.Context, epoch uint64) error
}

// blockReward mirrors the JSON shape of one entry in a stored block's
// "rewards" array.
type blockReward struct {
	Pubkey      string  `json:"pubkey"`
	Lamports    int64   `json:"lamports"`
	PostBalance uint64  `json:"postBalance"`
	RewardType  string  `json:"rewardType"`
	Commission  *uint8  `json:"commission"`
}

type blockJSON struct {
	BlockTime *int64        `json:"blockTime"`
	Rewards   []blockReward `json:"rewards"`
}

// Attributor runs the single reward-attribution loop.
type Attributor struct {
	log     *slog.Logger
	epochs  EpochStore
	storage mainstorage.Writer
	rewards *Handle
}

func New(ctx context.Context, log *slog.Logger, epochs EpochStore, storage mainstorage.Writer) *Attributor {
	return &Attributor{
		log:     log,
		epochs:  epochs,
		storage: storage,
		rewards: newHandle(ctx, storage, log),
	}
}

// Run blocks until ctx is cancelled.
func (a *Attributor) Run(ctx context.Context) {
	metrics.ActiveWorkersCount.WithLabelValues("rewards_attributor").Inc()
	defer metrics.ActiveWorkersCount.WithLabelValues("rewards_attributor").Dec()

	for {
		start := time.Now()
		processed, err := a.processOnce(ctx)
		if err != nil {
			a.log.Error("reward attribution pass failed", "error", err)
		}
		metrics.LoopTime.WithLabelValues("rewards_attributor").Observe(time.Since(start).Seconds())

		if !processed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(noReadyEpochWait):
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// processOnce attributes rewards for at most one ready epoch, returning
// whether an epoch was processed.
func (a *Attributor) processOnce(ctx context.Context) (bool, error) {
	epoch, err := a.epochs.OldestReadyEpoch(ctx)
	if err != nil {
		return false, err
	}
	if epoch == nil {
		return false, nil
	}

	a.log.Info("analyzing rewards for epoch", "epoch", epoch.Epoch)

	if epoch.FirstBlockJSON == nil {
		return false, nil
	}
	var block blockJSON
	if err := json.Unmarshal([]byte(*epoch.FirstBlockJSON), &block); err != nil {
		return false, err
	}

	// Solana emits epoch N+1's first block containing epoch N's rewards, so
	// the stored rows belong to epoch.Epoch - 1.
	targetEpoch := epoch.Epoch - 1

	if err := a.storage.CleanUnfinished(ctx, targetEpoch); err != nil {
		return false, err
	}

	for _, r := range block.Rewards {
		row := model.Reward{
			Epoch:          targetEpoch,
			Pubkey:         r.Pubkey,
			Lamports:       r.Lamports,
			PostBalance:    r.PostBalance,
			RewardType:     model.RewardType(r.RewardType),
			Commission:     r.Commission,
			FirstBlockSlot: &epoch.FirstSlot,
			BlockTime:      block.BlockTime,
		}

		switch row.RewardType {
		case model.RewardTypeStaking:
			voteAcc, err := a.storage.LookupVoteAccount(ctx, r.Pubkey, epoch.FirstSlot)
			if err != nil {
				return false, err
			}
			row.VoteAccount = voteAcc
		case model.RewardTypeVoting:
			// The reward's pubkey is itself the vote account.
		default:
			continue
		}

		a.rewards.SaveReward(row)
	}

	if err := a.epochs.MarkRewardsProcessed(ctx, epoch.Epoch); err != nil {
		return false, err
	}
	a.log.Info("completed reward attribution for epoch", "epoch", epoch.Epoch)
	return true, nil
}
