package docqueue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/docqueue/docqueue"
	"github.com/rise-and-shine/docqueue/docqueue/memstore"
	"github.com/rise-and-shine/docqueue/observability/logger"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newQueue(t *testing.T, clock *fakeClock, opts ...docqueue.Option) *docqueue.Queue {
	t.Helper()
	opts = append([]docqueue.Option{
		docqueue.WithClock(clock.Now),
		docqueue.WithLogger(logger.NewNop()),
	}, opts...)
	q, err := docqueue.New(memstore.New(), opts...)
	require.NoError(t, err)
	return q
}

type job struct {
	N int `json:"n"`
}

func TestNewValidation(t *testing.T) {
	dlq, err := docqueue.New(memstore.New(), docqueue.WithName("jobs"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		store docqueue.Store
		opts  []docqueue.Option
	}{
		{name: "nil store", store: nil},
		{name: "empty name", store: memstore.New(), opts: []docqueue.Option{docqueue.WithName("")}},
		{name: "zero visibility", store: memstore.New(), opts: []docqueue.Option{docqueue.WithDefaultVisibility(0)}},
		{name: "negative delay", store: memstore.New(), opts: []docqueue.Option{docqueue.WithDefaultDelay(-time.Second)}},
		{name: "negative retries", store: memstore.New(), opts: []docqueue.Option{docqueue.WithMaxRetries(-1)}},
		{name: "nil clock", store: memstore.New(), opts: []docqueue.Option{docqueue.WithClock(nil)}},
		{
			name:  "dead-letter with same name",
			store: memstore.New(),
			opts:  []docqueue.Option{docqueue.WithName("jobs"), docqueue.WithDeadLetter(dlq)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := docqueue.New(tt.store, tt.opts...)
			require.Error(t, err)
			assert.True(t, errx.IsCodeIn(err, docqueue.CodeInvalidArgument))
		})
	}
}

func TestAddAndGet(t *testing.T) {
	clock := newFakeClock()
	q := newQueue(t, clock)
	ctx := t.Context()

	id, err := q.Add(ctx, job{N: 7})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msg, err := q.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, id, msg.ID)
	assert.Equal(t, 1, msg.Tries)
	assert.Len(t, msg.Ack, 32)

	var got job
	require.NoError(t, msg.Decode(&got))
	assert.Equal(t, 7, got.N)

	next, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, next, "a leased message must not be handed out twice")
}

func TestAddBatch(t *testing.T) {
	clock := newFakeClock()
	q := newQueue(t, clock)
	ctx := t.Context()

	t.Run("empty batch is rejected", func(t *testing.T) {
		_, err := q.AddBatch(ctx, nil)
		require.Error(t, err)
		assert.True(t, errx.IsCodeIn(err, docqueue.CodeInvalidArgument))
	})

	t.Run("unencodable payload is rejected", func(t *testing.T) {
		_, err := q.Add(ctx, make(chan int))
		require.Error(t, err)
		assert.True(t, errx.IsCodeIn(err, docqueue.CodeInvalidArgument))
	})

	t.Run("claims follow insertion order", func(t *testing.T) {
		ids, err := q.AddBatch(ctx, []any{job{N: 1}, job{N: 2}, job{N: 3}})
		require.NoError(t, err)
		require.Len(t, ids, 3)

		for i, id := range ids {
			msg, err := q.Get(ctx)
			require.NoError(t, err)
			require.NotNil(t, msg)
			assert.Equal(t, id, msg.ID)

			var got job
			require.NoError(t, msg.Decode(&got))
			assert.Equal(t, i+1, got.N)
		}
	})
}

func TestDelay(t *testing.T) {
	clock := newFakeClock()
	q := newQueue(t, clock, docqueue.WithDefaultDelay(time.Minute))
	ctx := t.Context()

	delayed, err := q.Add(ctx, "later")
	require.NoError(t, err)
	immediate, err := q.Add(ctx, "now", docqueue.WithDelay(0))
	require.NoError(t, err)

	msg, err := q.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, immediate, msg.ID, "a later non-delayed message overtakes a delayed one")

	msg, err = q.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, msg)

	clock.Advance(time.Minute)

	msg, err = q.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, delayed, msg.ID)

	_, err = q.Add(ctx, "x", docqueue.WithDelay(-time.Second))
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, docqueue.CodeInvalidArgument))
}

func TestLeaseExpiry(t *testing.T) {
	clock := newFakeClock()
	q := newQueue(t, clock, docqueue.WithDefaultVisibility(10*time.Second))
	ctx := t.Context()

	_, err := q.Add(ctx, "work")
	require.NoError(t, err)

	first, err := q.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)

	clock.Advance(10 * time.Second)

	second, err := q.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Tries+1, second.Tries)
	assert.NotEqual(t, first.Ack, second.Ack)

	_, err = q.Ack(ctx, first.Ack)
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, docqueue.CodeUnknownAck), "stale holder must not ack")

	_, err = q.Ack(ctx, second.Ack)
	require.NoError(t, err)
}

func TestAck(t *testing.T) {
	clock := newFakeClock()
	q := newQueue(t, clock)
	ctx := t.Context()

	id, err := q.Add(ctx, "work")
	require.NoError(t, err)
	msg, err := q.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)

	acked, err := q.Ack(ctx, msg.Ack)
	require.NoError(t, err)
	assert.Equal(t, id, acked)

	_, err = q.Ack(ctx, msg.Ack)
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, docqueue.CodeUnknownAck), "ack is single-use")

	_, err = q.Ack(ctx, "")
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, docqueue.CodeUnknownAck))

	clock.Advance(time.Hour)
	next, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, next, "acked message is never claimed again")
}

func TestPing(t *testing.T) {
	clock := newFakeClock()
	q := newQueue(t, clock, docqueue.WithDefaultVisibility(10*time.Second))
	ctx := t.Context()

	id, err := q.Add(ctx, "work")
	require.NoError(t, err)
	msg, err := q.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)

	clock.Advance(8 * time.Second)
	pinged, err := q.Ping(ctx, msg.Ack)
	require.NoError(t, err)
	assert.Equal(t, id, pinged)

	clock.Advance(8 * time.Second)
	other, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, other, "ping extends the lease")

	clock.Advance(2 * time.Second)
	_, err = q.Ping(ctx, msg.Ack)
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, docqueue.CodeUnknownAck), "expired lease cannot be pinged")

	_, err = q.Ping(ctx, "nope")
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, docqueue.CodeUnknownAck))
}

func TestFail(t *testing.T) {
	clock := newFakeClock()
	q := newQueue(t, clock)
	ctx := t.Context()

	id, err := q.Add(ctx, "work")
	require.NoError(t, err)
	msg, err := q.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)

	failed, err := q.Fail(ctx, msg.Ack)
	require.NoError(t, err)
	assert.Equal(t, id, failed)

	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size, "failed message is immediately claimable")

	again, err := q.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, 2, again.Tries)

	_, err = q.Fail(ctx, "unknown")
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, docqueue.CodeUnknownAck))
}

func TestFailMatchesTokenOnly(t *testing.T) {
	clock := newFakeClock()
	q := newQueue(t, clock, docqueue.WithDefaultVisibility(time.Second))
	ctx := t.Context()

	_, err := q.Add(ctx, "work")
	require.NoError(t, err)
	msg, err := q.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)

	clock.Advance(time.Minute)

	_, err = q.Ping(ctx, msg.Ack)
	require.Error(t, err, "ping rejects an expired lease")

	_, err = q.Fail(ctx, msg.Ack)
	require.NoError(t, err, "fail accepts an expired but unclaimed lease")

	again, err := q.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, again)

	_, err = q.Fail(ctx, msg.Ack)
	require.Error(t, err, "fail rejects a token overwritten by a newer claim")
	assert.True(t, errx.IsCodeIn(err, docqueue.CodeUnknownAck))
}

func TestStatsAndClean(t *testing.T) {
	clock := newFakeClock()
	q := newQueue(t, clock, docqueue.WithDefaultVisibility(time.Minute))
	ctx := t.Context()

	_, err := q.AddBatch(ctx, []any{1, 2, 3, 4})
	require.NoError(t, err)

	a, err := q.Get(ctx)
	require.NoError(t, err)
	b, err := q.Get(ctx)
	require.NoError(t, err)
	_, err = q.Ack(ctx, a.Ack)
	require.NoError(t, err)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, docqueue.Stats{Total: 4, Size: 2, InFlight: 1, Done: 1}, stats)

	clock.Advance(time.Minute)
	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, docqueue.Stats{Total: 4, Size: 3, InFlight: 0, Done: 1}, stats, "expired lease counts as pending")

	removed, err := q.Clean(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, docqueue.Stats{Total: 3, Size: 3, InFlight: 0, Done: 0}, stats)

	_, err = q.Fail(ctx, b.Ack)
	require.NoError(t, err)
	require.NoError(t, q.CreateIndexes(ctx))
}

func TestConcurrentGetNeverDoubleClaims(t *testing.T) {
	clock := newFakeClock()
	q := newQueue(t, clock)
	ctx := t.Context()

	const total = 200
	_, err := q.AddBatch(ctx, lo.Times(total, func(i int) any { return i }))
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				msg, err := q.Get(ctx)
				if !assert.NoError(t, err) || msg == nil {
					return
				}
				mu.Lock()
				seen[msg.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, total)
	for id, n := range seen {
		assert.Equal(t, 1, n, "message %s claimed more than once", id)
	}
}
