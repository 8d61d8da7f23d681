package agent

import (
	"context"
	"encoding/json"
	"io"
)

// chunkStream adapts a producer function to the runner's ChunkStream
// interface. The producer runs in its own goroutine and writes wire chunks
// to the channel; its return value becomes the terminal error surfaced by
// Next after the last chunk has been consumed. The channel is unbuffered so
// the loop advances only as fast as the consumer pulls.
type chunkStream struct {
	chunks chan json.RawMessage
	cancel context.CancelFunc
	err    error
}

func newChunkStream(ctx context.Context, produce func(ctx context.Context, chunks chan<- json.RawMessage) error) *chunkStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &chunkStream{
		chunks: make(chan json.RawMessage),
		cancel: cancel,
	}
	go func() {
		defer close(s.chunks)
		s.err = produce(ctx, s.chunks)
	}()
	return s
}

func (s *chunkStream) Next() (json.RawMessage, error) {
	raw, ok := <-s.chunks
	if !ok {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	return raw, nil
}

// Close cancels the producer and drains any chunk it has in flight so a
// producer blocked on a send can observe cancellation and exit.
func (s *chunkStream) Close() error {
	s.cancel()
	go func() {
		for range s.chunks {
		}
	}()
	return nil
}
