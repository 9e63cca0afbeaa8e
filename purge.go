package messages

import (
	"context"
	"time"
)

// PurgeResult reports the outcome of a purge run.
type PurgeResult struct {
	// Deleted is the number of messages permanently removed.
	Deleted int64
	// Interrupted reports whether the run stopped before draining all
	// eligible messages, usually on context cancellation.
	Interrupted bool
}

// PurgeDeleted permanently removes messages that both participants
// deleted at least the configured retention ago. Work proceeds in
// batches and honors context cancellation between batches, returning
// the partial count with Interrupted set.
func (s *Service) PurgeDeleted(ctx context.Context) (*PurgeResult, error) {
	return s.PurgeDeletedBefore(ctx, time.Now().UTC().Add(-s.opts.trashRetention))
}

// PurgeDeletedBefore purges with an explicit cutoff instead of the
// configured retention.
func (s *Service) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (result *PurgeResult, retErr error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	ctx, end := s.otel.startOp(ctx, "purge")
	defer func() { end(retErr) }()

	result = &PurgeResult{}
	batchSize := s.opts.purgeBatchSize
	for {
		if err := ctx.Err(); err != nil {
			result.Interrupted = true
			break
		}
		deleted, err := s.store.DeleteExpired(ctx, cutoff, batchSize)
		result.Deleted += deleted
		if err != nil {
			if result.Deleted > 0 {
				result.Interrupted = true
				break
			}
			retErr = err
			return nil, err
		}
		if deleted < int64(batchSize) {
			break
		}
	}

	s.logger.Info("purge completed",
		"deleted", result.Deleted,
		"cutoff", cutoff,
		"interrupted", result.Interrupted)
	if err := publish(ctx, s, s.events.MessagesPurged, EventMessagesPurged, "", PurgeEvent{
		Deleted:     result.Deleted,
		Cutoff:      cutoff,
		Interrupted: result.Interrupted,
		At:          time.Now().UTC(),
	}); err != nil {
		return result, err
	}
	return result, nil
}
