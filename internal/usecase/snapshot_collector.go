package usecase

import (
	"context"

	"CoinSentry/internal/domain/models"
	drepo "CoinSentry/internal/domain/repository"
	mid "CoinSentry/internal/middleware"
)

// Seeder supplies an initial batch of snapshots before the stream connects.
type Seeder interface {
	FetchSnapshots(ctx context.Context) ([]*models.CoinSnapshot, error)
}

// SnapshotCollector consumes the live snapshot stream and feeds it
// through the pipeline into the pool.
type SnapshotCollector struct {
	stream  drepo.SnapshotStream
	proc    *SnapshotProcessor
	metrics drepo.Metrics
	pipe    *mid.SnapshotPipeline
	seed    Seeder
}

// SetSeeder installs an optional pool bootstrap.
func (c *SnapshotCollector) SetSeeder(s Seeder) { c.seed = s }

// NewSnapshotCollector creates a new SnapshotCollector instance.
func NewSnapshotCollector(stream drepo.SnapshotStream, proc *SnapshotProcessor, metrics drepo.Metrics, pipe *mid.SnapshotPipeline) *SnapshotCollector {
	return &SnapshotCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the snapshot stream is connected.
func (c *SnapshotCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *SnapshotCollector) Start(ctx context.Context) error {
	if c.seed != nil {
		// best effort; the stream repopulates the pool either way
		if snaps, err := c.seed.FetchSnapshots(ctx); err != nil {
			c.metrics.RecordError("bootstrap")
		} else {
			for _, s := range snaps {
				_ = c.proc.Process(ctx, s)
			}
		}
	}
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	snapCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, snapCh, errCh)
	return nil
}

func (c *SnapshotCollector) consume(ctx context.Context, snapCh <-chan *models.CoinSnapshot, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case s := <-snapCh:
			if s == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, s)
			} else {
				_ = c.proc.Process(ctx, s)
			}
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *SnapshotCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
