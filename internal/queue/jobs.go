// Package queue runs batch comparisons as asynq tasks.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

const (
	// CompareBatchTask is enqueued for every POST /compare/batch.
	CompareBatchTask = "compare:batch"
)

// BatchPayload identifies the report a worker should fill in.
type BatchPayload struct {
	ReportID string                     `json:"report_id"`
	Request  models.BatchCompareRequest `json:"request"`
}

// Runner executes one batch comparison end to end.
type Runner interface {
	RunBatch(ctx context.Context, reportID string, req models.BatchCompareRequest) error
}

// Client enqueues batch tasks on Redis.
type Client struct {
	client  *asynq.Client
	timeout time.Duration
}

func NewClient(client *asynq.Client, timeout time.Duration) *Client {
	return &Client{client: client, timeout: timeout}
}

func (c *Client) Enqueue(ctx context.Context, reportID string, req models.BatchCompareRequest) error {
	data, err := json.Marshal(BatchPayload{ReportID: reportID, Request: req})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(CompareBatchTask, data)
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(c.timeout),
		asynq.TaskID(reportID),
	)
	if err != nil {
		return fmt.Errorf("enqueue batch task: %w", err)
	}
	log.Debug().Str("report_id", reportID).Str("queue", info.Queue).Msg("Batch comparison enqueued")
	return nil
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	runner Runner
}

func NewProcessor(runner Runner) *Processor {
	return &Processor{runner: runner}
}

// Handler registers the batch handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(CompareBatchTask, p.handleBatch)
	return mux
}

func (p *Processor) handleBatch(ctx context.Context, task *asynq.Task) error {
	var payload BatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// Retrying cannot fix a payload that does not decode.
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	return p.runner.RunBatch(ctx, payload.ReportID, payload.Request)
}

// Inline runs batches in a goroutine of the calling process. It stands in for
// Client when no Redis is configured.
type Inline struct {
	runner  Runner
	timeout time.Duration
}

func NewInline(runner Runner, timeout time.Duration) *Inline {
	return &Inline{runner: runner, timeout: timeout}
}

func (q *Inline) Enqueue(ctx context.Context, reportID string, req models.BatchCompareRequest) error {
	go func() {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.timeout)
		defer cancel()
		if err := q.runner.RunBatch(runCtx, reportID, req); err != nil {
			log.Error().Err(err).Str("report_id", reportID).Msg("Inline batch comparison failed")
		}
	}()
	return nil
}
