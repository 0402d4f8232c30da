// Package collector implements a buffering actor: one goroutine per
// kind-group, each holding an in-memory slice flushed on a size threshold or
// an idle heartbeat, grounded on
// original_source/data_analyzer/src/actors/collector.rs (and the dedicated
// smaller-buffer variant in erroneous_transactions_collector.rs).
package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/gohnnyman/solindexer/internal/metrics"
	"github.com/gohnnyman/solindexer/pkg/mainstorage"
	"github.com/gohnnyman/solindexer/pkg/model"
)

const (
	bufferSize                 = 100_000
	erroneousBufferSize        = 100
	flushBufferTimeout         = 3000 * time.Millisecond
	flushOnIdleTicks           = 2
	dataInboxCapacity          = 100
	tickInboxCapacity          = 1
)

// saveMsg carries one row plus a reply channel, mirroring the oneshot
// request/response shape of the Rust actor's CollectorMessage variants.
type saveMsg[T any] struct {
	row      T
	respond  chan struct{}
}

// bufferedActor runs one kind's save/flush loop: it owns its buffer
// exclusively, so no lock is needed — all mutation happens on this single
// goroutine.
type bufferedActor[T any] struct {
	name     string
	capacity int
	buf      []T
	inbox    chan saveMsg[T]
	ticks    chan struct{}
	ticksSeen int
	flush    func(ctx context.Context, rows []T) error
	log      *slog.Logger
}

func newBufferedActor[T any](name string, capacity int, flush func(ctx context.Context, rows []T) error, log *slog.Logger) *bufferedActor[T] {
	return &bufferedActor[T]{
		name:     name,
		capacity: capacity,
		buf:      make([]T, 0, capacity),
		inbox:    make(chan saveMsg[T], dataInboxCapacity),
		ticks:    make(chan struct{}, tickInboxCapacity),
		flush:    flush,
		log:      log,
	}
}

func (a *bufferedActor[T]) run(ctx context.Context) {
	metrics.ActiveActorInstancesCount.WithLabelValues(a.name).Inc()
	defer metrics.ActiveActorInstancesCount.WithLabelValues(a.name).Dec()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.inbox:
			a.buf = append(a.buf, msg.row)
			a.ticksSeen = 0
			if len(a.buf) >= a.capacity {
				a.flushBuffer(ctx, "threshold reached")
			}
			close(msg.respond)
		case <-a.ticks:
			a.ticksSeen++
			if a.ticksSeen >= flushOnIdleTicks {
				a.flushBuffer(ctx, "timeout expired")
				a.ticksSeen = 0
			}
		}
	}
}

func (a *bufferedActor[T]) flushBuffer(ctx context.Context, reason string) {
	if len(a.buf) == 0 {
		return
	}
	if err := a.flush(ctx, a.buf); err != nil {
		a.log.Error("rows were not stored, retaining buffer for retry", "kind", a.name, "error", err)
		return
	}
	a.log.Info("flushed buffer", "kind", a.name, "rows", len(a.buf), "reason", reason)
	a.buf = a.buf[:0]
}

func (a *bufferedActor[T]) save(row T) {
	respond := make(chan struct{})
	a.inbox <- saveMsg[T]{row: row, respond: respond}
	<-respond
}

func runTicker(ctx context.Context, ticks chan<- struct{}) {
	t := time.NewTicker(flushBufferTimeout)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			select {
			case ticks <- struct{}{}:
			default:
			}
		}
	}
}

// Collector fans out save calls to one bufferedActor per row kind, matching
// the Rust Collector's five parallel buffers.
type Collector struct {
	instructions         *bufferedActor[model.Instruction]
	balances             *bufferedActor[model.Balance]
	instructionArguments *bufferedActor[model.InstructionArgument]
	delegations          *bufferedActor[model.Delegation]
	undelegations        *bufferedActor[model.Delegation]
}

func New(ctx context.Context, log *slog.Logger, writer mainstorage.Writer) *Collector {
	c := &Collector{
		instructions: newBufferedActor("instructions_collector", bufferSize, func(ctx context.Context, rows []model.Instruction) error {
			return writer.StoreInstructionsBlock(ctx, rows)
		}, log),
		balances: newBufferedActor("balances_collector", bufferSize, func(ctx context.Context, rows []model.Balance) error {
			return writer.StoreBalancesBlock(ctx, rows)
		}, log),
		instructionArguments: newBufferedActor("instruction_arguments_collector", bufferSize, func(ctx context.Context, rows []model.InstructionArgument) error {
			return writer.StoreInstructionArgumentsBlock(ctx, rows)
		}, log),
		delegations: newBufferedActor("delegations_collector", bufferSize, func(ctx context.Context, rows []model.Delegation) error {
			return writer.StoreDelegationsBlock(ctx, rows)
		}, log),
		undelegations: newBufferedActor("undelegations_collector", bufferSize, func(ctx context.Context, rows []model.Delegation) error {
			return writer.StoreUndelegationsBlock(ctx, rows)
		}, log),
	}

	for _, a := range []interface{ run(context.Context) }{c.instructions, c.balances, c.instructionArguments, c.delegations, c.undelegations} {
		go a.run(ctx)
	}
	go runTicker(ctx, c.instructions.ticks)
	go runTicker(ctx, c.balances.ticks)
	go runTicker(ctx, c.instructionArguments.ticks)
	go runTicker(ctx, c.delegations.ticks)
	go runTicker(ctx, c.undelegations.ticks)

	metrics.ActiveHandleInstancesCount.WithLabelValues("collector_handle").Inc()
	return c
}

func (c *Collector) SaveInstruction(i model.Instruction)                   { c.instructions.save(i) }
func (c *Collector) SaveBalance(b model.Balance)                           { c.balances.save(b) }
func (c *Collector) SaveInstructionArgument(a model.InstructionArgument)   { c.instructionArguments.save(a) }
func (c *Collector) SaveDelegation(d model.Delegation)                     { c.delegations.save(d) }
func (c *Collector) SaveUndelegation(d model.Delegation)                   { c.undelegations.save(d) }
