package messages

import "context"

// Iterator walks a folder batch by batch. Not safe for concurrent use.
//
// Messages created or deleted while iterating may or may not be seen;
// the cursor guarantees no message is returned twice.
type Iterator struct {
	fetch    func(ctx context.Context, after string) (*MessageList, error)
	batch    []Message
	batchIdx int
	cursor   string
	done     bool
}

// Stream iterates the named folder. Pagination options set the batch
// size; WithOffset and WithAfter position the start.
func (u *userMailbox) Stream(ctx context.Context, folder Folder, opts ...QueryOption) *Iterator {
	base := append([]QueryOption(nil), opts...)
	return &Iterator{
		fetch: func(ctx context.Context, after string) (*MessageList, error) {
			fetchOpts := base
			if after != "" {
				fetchOpts = append(append([]QueryOption(nil), base...), WithAfter(after))
			}
			return u.Folder(ctx, folder, fetchOpts...)
		},
	}
}

// Next returns the next message, or ErrIteratorDone after the last one.
func (it *Iterator) Next(ctx context.Context) (Message, error) {
	if it.done && it.batchIdx >= len(it.batch) {
		return nil, ErrIteratorDone
	}
	if it.batchIdx >= len(it.batch) {
		if err := it.refill(ctx); err != nil {
			return nil, err
		}
		if len(it.batch) == 0 {
			it.done = true
			return nil, ErrIteratorDone
		}
	}
	msg := it.batch[it.batchIdx]
	it.batchIdx++
	it.cursor = msg.GetID()
	return msg, nil
}

func (it *Iterator) refill(ctx context.Context) error {
	list, err := it.fetch(ctx, it.cursor)
	if err != nil {
		return err
	}
	it.batch = list.Messages
	it.batchIdx = 0
	if !list.HasMore {
		it.done = true
	}
	return nil
}
