// Package agent implements the AgentConsumer contract described in
// spec.md §4.7: a background consumption loop over a CorpusCallosum
// tract subscription, with per-message timeout enforcement and result
// write-back to the orchestrator that issued the task.
//
// Grounded directly on AgentConsumer/AgentConfig in
// original_source/lib/core/agent_consumer.py, translated from asyncio
// tasks/cancellation to a goroutine guarded by context.CancelFunc and
// sync.Once, in the style of runtime/agent/hooks/bus.go's Bus/Subscription
// lifecycle.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/synapse-systems/corpuscallosum/ccerrors"
	"github.com/synapse-systems/corpuscallosum/corpuscallosum"
	"github.com/synapse-systems/corpuscallosum/message"
	"github.com/synapse-systems/corpuscallosum/telemetry"
)

// DefaultProcessingTimeout matches the Python default of 30 seconds.
const DefaultProcessingTimeout = 30 * time.Second

// DefaultBufferSize matches the Python AgentConfig default.
const DefaultBufferSize = 100

// ExecutionResult is what a Processor returns for a single message,
// forwarded to the owning orchestrator via ResultSink. It mirrors the
// shape AgentConsumer._store_result_to_orchestrator/_store_error_to_orchestrator
// assembles in the Python implementation.
type ExecutionResult struct {
	TaskID         string
	Agent          string
	Status         string // "completed" or "failed"
	Output         any
	ExecutionTimeS float64
	Artifacts      []string
	Error          string
}

// ResultSink receives a completed or failed ExecutionResult for a task.
// orchestrator.Orchestrator implements this so AgentConsumers can report
// back without importing the orchestrator package directly.
type ResultSink interface {
	StoreTaskResult(ctx context.Context, taskID string, result ExecutionResult) error
}

// Processor processes one delivered Message and returns an
// implementation-defined result, or an error if processing failed.
// Implementations must respect ctx's deadline, set by Config.ProcessingTimeout.
type Processor interface {
	ProcessMessage(ctx context.Context, msg message.Message) (any, error)
}

// Config configures a Consumer.
type Config struct {
	AgentID           string
	Tract             message.Tract
	BufferSize        int
	ProcessingTimeout time.Duration
	Logger            telemetry.Logger
}

func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.ProcessingTimeout <= 0 {
		c.ProcessingTimeout = DefaultProcessingTimeout
	}
	if c.Logger == nil {
		c.Logger = telemetry.NewNoopLogger()
	}
	return c
}

// Stats is an AgentConsumer's running counters, mirroring
// AgentConsumer.get_stats in the Python implementation.
type Stats struct {
	AgentID           string
	Tract             message.Tract
	MessagesProcessed int64
	MessagesFailed    int64
}

// SuccessRate returns MessagesProcessed / (MessagesProcessed +
// MessagesFailed), or 0 if no messages have been handled yet.
func (s Stats) SuccessRate() float64 {
	total := s.MessagesProcessed + s.MessagesFailed
	if total == 0 {
		return 0
	}
	return float64(s.MessagesProcessed) / float64(total)
}

// Consumer is a background consumer of one tract's CorpusCallosum
// subscription. It processes each delivered message with a bounded
// Processor call and writes the outcome back to a ResultSink when the
// message's payload is a message.TaskEnvelope.
type Consumer struct {
	cfg       Config
	processor Processor
	sink      ResultSink

	processed atomic.Int64
	failed    atomic.Int64

	running   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// New constructs a Consumer. Start must be called to begin consumption.
func New(cfg Config, processor Processor, sink ResultSink) *Consumer {
	return &Consumer{
		cfg:       cfg.withDefaults(),
		processor: processor,
		sink:      sink,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start subscribes to cc's tract stream and begins the consume loop in
// the background. Calling Start on an already-running Consumer is a
// no-op, matching the Python implementation's "already running" guard.
func (c *Consumer) Start(ctx context.Context, cc *corpuscallosum.CorpusCallosum) {
	if !c.running.CompareAndSwap(false, true) {
		c.cfg.Logger.Warn(ctx, "agent already running", "agent_id", c.cfg.AgentID)
		return
	}
	c.startOnce.Do(func() {
		msgs, cancel := cc.Subscribe(ctx, c.cfg.AgentID, c.cfg.Tract, c.cfg.BufferSize)
		go c.consumeLoop(ctx, msgs, cancel)
		c.cfg.Logger.Info(ctx, "agent started consuming", "agent_id", c.cfg.AgentID, "tract", c.cfg.Tract.String())
	})
}

// Stop halts the consume loop and waits for it to exit. Safe to call
// once; subsequent calls are no-ops. A Consumer that was never started
// has no loop to wait for, so Stop returns at once.
func (c *Consumer) Stop(ctx context.Context) {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if c.running.Load() {
			<-c.doneCh
		}
		c.running.Store(false)
		c.cfg.Logger.Info(ctx, "agent stopped", "agent_id", c.cfg.AgentID,
			"processed", c.processed.Load(), "failed", c.failed.Load())
	})
}

func (c *Consumer) consumeLoop(ctx context.Context, msgs <-chan message.Message, cancel context.CancelFunc) {
	defer close(c.doneCh)
	defer cancel()
	for {
		select {
		case <-c.stopCh:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg message.Message) {
	start := time.Now()
	procCtx, cancel := context.WithTimeout(ctx, c.cfg.ProcessingTimeout)
	defer cancel()

	resultCh := make(chan any, 1)
	errCh := make(chan error, 1)
	go func() {
		out, err := c.processor.ProcessMessage(procCtx, msg)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- out
	}()

	var (
		output any
		procErr error
	)
	select {
	case out := <-resultCh:
		output = out
	case procErr = <-errCh:
	case <-procCtx.Done():
		procErr = procCtx.Err()
	}

	elapsed := time.Since(start).Seconds()

	if procErr == nil {
		c.processed.Add(1)
		c.storeResult(ctx, msg, ExecutionResult{Status: "completed", Output: output, ExecutionTimeS: elapsed}, "")
		return
	}

	c.failed.Add(1)
	errMsg := procErr.Error()
	if errors.Is(procErr, context.DeadlineExceeded) {
		errMsg = fmt.Errorf("%w: processing timed out after %s", ccerrors.ErrTimeout, c.cfg.ProcessingTimeout).Error()
		c.cfg.Logger.Error(ctx, "agent timed out processing message", "agent_id", c.cfg.AgentID, "message_id", msg.ID())
	} else {
		c.cfg.Logger.Error(ctx, "agent error processing message", "agent_id", c.cfg.AgentID, "message_id", msg.ID(), "error", errMsg)
	}
	c.storeResult(ctx, msg, ExecutionResult{Status: "failed", ExecutionTimeS: elapsed, Error: errMsg}, errMsg)
}

// storeResult extracts the Task/OrchestratorRef from msg's payload (when
// it is a message.TaskEnvelope) and forwards the result to the sink.
// Non-TaskEnvelope payloads are processed but produce no write-back,
// matching the Python implementation's "payload.get('task')" no-op when
// the payload shape doesn't carry a task; the omission is logged at Warn.
func (c *Consumer) storeResult(ctx context.Context, msg message.Message, result ExecutionResult, errMsg string) {
	env, ok := msg.Payload().(message.TaskEnvelope)
	if !ok {
		c.cfg.Logger.Warn(ctx, "message payload carries no task; result not stored", "agent_id", c.cfg.AgentID, "message_id", msg.ID())
		return
	}
	result.TaskID = env.Task.ID
	result.Agent = c.cfg.AgentID
	if c.sink == nil {
		return
	}
	if err := c.sink.StoreTaskResult(ctx, env.Task.ID, result); err != nil {
		c.cfg.Logger.Error(ctx, "failed to store task result", "agent_id", c.cfg.AgentID, "task_id", env.Task.ID, "error", err)
	}
}

// GetStats returns a snapshot of the consumer's processed/failed
// counters.
func (c *Consumer) GetStats() Stats {
	return Stats{
		AgentID:           c.cfg.AgentID,
		Tract:             c.cfg.Tract,
		MessagesProcessed: c.processed.Load(),
		MessagesFailed:    c.failed.Load(),
	}
}
