package rewards

import (
	"context"
	"log/slog"
	"time"

	"github.com/gohnnyman/solindexer/internal/metrics"
	"github.com/gohnnyman/solindexer/pkg/mainstorage"
	"github.com/gohnnyman/solindexer/pkg/model"
)

// The rewards collector is a dedicated buffering actor with its own
// capacity and flush timeout, grounded on
// original_source/rewards_analyzer/src/rewards_collector.rs — distinct
// constants from pkg/collector's general buffers.
const (
	bufferSize          = 10_000
	flushBufferTimeout  = 5000 * time.Millisecond
	flushOnIdleTicks    = 2
	inboxCapacity       = 100
	tickInboxCapacity   = 1
)

type saveMsg struct {
	row     model.Reward
	respond chan struct{}
}

// collector runs the reward-save/flush loop on a single goroutine so the
// buffer needs no lock.
type collector struct {
	buf    []model.Reward
	inbox  chan saveMsg
	ticks  chan struct{}
	seen   int
	writer mainstorage.Writer
	log    *slog.Logger
}

func newCollector(writer mainstorage.Writer, log *slog.Logger) *collector {
	return &collector{
		buf:    make([]model.Reward, 0, bufferSize),
		inbox:  make(chan saveMsg, inboxCapacity),
		ticks:  make(chan struct{}, tickInboxCapacity),
		writer: writer,
		log:    log,
	}
}

func (c *collector) run(ctx context.Context) {
	metrics.ActiveActorInstancesCount.WithLabelValues("rewards_collector").Inc()
	defer metrics.ActiveActorInstancesCount.WithLabelValues("rewards_collector").Dec()

	ticker := time.NewTicker(flushBufferTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.inbox:
			c.buf = append(c.buf, msg.row)
			c.seen = 0
			if len(c.buf) >= bufferSize {
				c.flush(ctx, "threshold reached")
			}
			close(msg.respond)
		case <-ticker.C:
			select {
			case c.ticks <- struct{}{}:
			default:
			}
		case <-c.ticks:
			c.seen++
			if c.seen >= flushOnIdleTicks {
				c.flush(ctx, "timeout expired")
				c.seen = 0
			}
		}
	}
}

func (c *collector) flush(ctx context.Context, reason string) {
	if len(c.buf) == 0 {
		return
	}
	if err := c.writer.StoreRewardsBlock(ctx, c.buf); err != nil {
		c.log.Error("rewards were not stored, retaining buffer for retry", "error", err)
		return
	}
	c.log.Info("flushed rewards buffer", "rows", len(c.buf), "reason", reason)
	c.buf = c.buf[:0]
}

func (c *collector) save(row model.Reward) {
	respond := make(chan struct{})
	c.inbox <- saveMsg{row: row, respond: respond}
	<-respond
}

// Handle is the collector's public API, analogous to RewardsCollectorHandle.
type Handle struct {
	c *collector
}

func newHandle(ctx context.Context, writer mainstorage.Writer, log *slog.Logger) *Handle {
	c := newCollector(writer, log)
	go c.run(ctx)
	metrics.ActiveHandleInstancesCount.WithLabelValues("rewards_collector_handle").Inc()
	return &Handle{c: c}
}

func (h *Handle) SaveReward(row model.Reward) {
	h.c.save(row)
}
