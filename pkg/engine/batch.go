package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ArionMiles/spendwise/pkg/api"
)

const successMessage = "Transaction created successfully"

// BatchProcessor classifies SMS batches. Each message is handled on its own:
// a failed message becomes a failed result and never affects the others.
type BatchProcessor struct {
	classifier *Classifier
	logger     *slog.Logger
}

// NewBatchProcessor creates a batch processor around a classifier.
func NewBatchProcessor(classifier *Classifier, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{classifier: classifier, logger: logger}
}

// ProcessBatch classifies every message as an SMS for the owner.
func (b *BatchProcessor) ProcessBatch(ctx context.Context, ownerID int64, msgs []api.SMSMessage) (*api.BatchResult, error) {
	return b.ProcessBatchWithProgress(ctx, ownerID, msgs, nil)
}

// ProcessBatchWithProgress is ProcessBatch with a callback invoked after each
// message, in input order. onItem may be nil.
func (b *BatchProcessor) ProcessBatchWithProgress(ctx context.Context, ownerID int64, msgs []api.SMSMessage, onItem func(api.ItemResult)) (*api.BatchResult, error) {
	if len(msgs) == 0 {
		return nil, api.ErrEmptyBatch
	}
	if len(msgs) > api.MaxBatchSize {
		return nil, fmt.Errorf("%w: got %d messages, limit is %d", api.ErrBatchTooLarge, len(msgs), api.MaxBatchSize)
	}
	if err := b.classifier.checkOwner(ctx, ownerID); err != nil {
		return nil, err
	}

	logger := b.logger.With("batch_id", uuid.NewString(), "owner_id", ownerID)
	start := time.Now()

	result := &api.BatchResult{Results: make([]api.ItemResult, 0, len(msgs))}
	for i, msg := range msgs {
		item := b.processOne(ctx, ownerID, i, msg)
		if item.Success {
			result.SuccessCount++
		} else {
			result.FailureCount++
			logger.Debug("batch item failed", "index", i, "ref", msg.Ref, "error", item.Error)
		}
		result.Results = append(result.Results, item)

		if onItem != nil {
			onItem(item)
		}
	}
	result.TotalProcessed = len(result.Results)

	logger.Info("processed sms batch",
		"total", result.TotalProcessed,
		"succeeded", result.SuccessCount,
		"failed", result.FailureCount,
		"duration", time.Since(start),
	)
	return result, nil
}

func (b *BatchProcessor) processOne(ctx context.Context, ownerID int64, index int, msg api.SMSMessage) api.ItemResult {
	if err := msg.Validate(); err != nil {
		return api.ItemResult{Index: index, Error: err.Error()}
	}

	txn, err := b.classifier.classify(ctx, ownerID, api.TransactionRequest{
		Origin:  api.OriginSMS,
		RawText: msg.Text,
	})
	if err != nil {
		return api.ItemResult{Index: index, Error: err.Error()}
	}

	return api.ItemResult{
		Index:       index,
		Success:     true,
		Message:     successMessage,
		Transaction: txn,
	}
}
