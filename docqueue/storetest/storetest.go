// Package storetest holds the behavioral contract every docqueue.Store must satisfy.
package storetest

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/docqueue/docqueue"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run executes the contract against stores built by newStore.
// newStore is called once per subtest and must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) docqueue.Store) {
	t.Helper()

	t.Run("insert preserves order", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		now := time.Now().UTC()

		ids, err := s.InsertMany(ctx, docs(now, "a", "b", "c"))
		require.NoError(t, err)
		require.Len(t, ids, 3)
		assert.Len(t, lo.Uniq(ids), 3)

		for _, want := range []string{"a", "b", "c"} {
			d := claim(t, s, now)
			require.NotNil(t, d)
			assert.JSONEq(t, quote(want), string(d.Payload))
		}
	})

	t.Run("claim on empty store returns nil", func(t *testing.T) {
		s := newStore(t)
		d, err := s.ClaimAndUpdate(t.Context(), docqueue.Filter{Deleted: docqueue.Absent}, docqueue.Update{}, docqueue.SortInsertion)
		require.NoError(t, err)
		assert.Nil(t, d)
	})

	t.Run("claim applies update", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		now := time.Now().UTC().Truncate(time.Millisecond)

		ids, err := s.InsertMany(ctx, docs(now, "x"))
		require.NoError(t, err)

		ack := uniqueAck("token")
		visible := now.Add(time.Minute)
		d, err := s.ClaimAndUpdate(ctx,
			docqueue.Filter{Deleted: docqueue.Absent, VisibleAtOrBefore: &now},
			docqueue.Update{IncTries: true, Ack: &ack, Visible: &visible},
			docqueue.SortInsertion,
		)
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, ids[0], d.ID)
		assert.Equal(t, 1, d.Tries)
		assert.Equal(t, ack, d.Ack)
		assert.WithinDuration(t, visible, d.Visible, time.Millisecond)
		assert.Nil(t, d.Deleted)

		again := claim(t, s, now)
		assert.Nil(t, again, "leased document must not be claimable")
	})

	t.Run("visibility filters", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		now := time.Now().UTC().Truncate(time.Millisecond)

		_, err := s.InsertMany(ctx, []docqueue.Document{
			{Payload: json.RawMessage(`1`), Visible: now.Add(-time.Second)},
			{Payload: json.RawMessage(`2`), Visible: now.Add(time.Hour)},
		})
		require.NoError(t, err)

		n, err := s.Count(ctx, docqueue.Filter{VisibleAtOrBefore: &now})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = s.Count(ctx, docqueue.Filter{VisibleAfter: &now})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = s.Count(ctx, docqueue.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("ack filters and delete", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		now := time.Now().UTC().Truncate(time.Millisecond)

		_, err := s.InsertMany(ctx, docs(now, "a", "b"))
		require.NoError(t, err)

		ackA := uniqueAck("ack-a")
		first := claimWithAck(t, s, now, ackA)
		require.NotNil(t, first)

		n, err := s.Count(ctx, docqueue.Filter{Leased: true})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		d, err := s.ClaimAndUpdate(ctx, docqueue.Filter{Ack: ackA, Deleted: docqueue.Absent}, docqueue.Update{Deleted: &now}, docqueue.SortInsertion)
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, first.ID, d.ID)
		require.NotNil(t, d.Deleted)

		n, err = s.Count(ctx, docqueue.Filter{Deleted: docqueue.Present})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		removed, err := s.Delete(ctx, docqueue.Filter{Deleted: docqueue.Present})
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		n, err = s.Count(ctx, docqueue.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("duplicate ack is rejected", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		now := time.Now().UTC()

		_, err := s.InsertMany(ctx, docs(now, "a", "b"))
		require.NoError(t, err)

		ack := uniqueAck("same")
		require.NotNil(t, claimWithAck(t, s, now, ack))

		visible := now.Add(time.Minute)
		_, err = s.ClaimAndUpdate(ctx,
			docqueue.Filter{Deleted: docqueue.Absent, VisibleAtOrBefore: &now},
			docqueue.Update{IncTries: true, Ack: &ack, Visible: &visible},
			docqueue.SortInsertion,
		)
		require.Error(t, err)
		assert.True(t, errx.IsCodeIn(err, docqueue.CodeAckConflict))
	})

	t.Run("concurrent claims never share a document", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		now := time.Now().UTC()

		const total = 50
		payloads := lo.Times(total, func(i int) string { return lo.RandomString(8, lo.LettersCharset) })
		_, err := s.InsertMany(ctx, docs(now, payloads...))
		require.NoError(t, err)

		var (
			mu      sync.Mutex
			claimed []string
			wg      sync.WaitGroup
		)
		for w := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					ack := lo.RandomString(16, lo.AlphanumericCharset) + string(rune('a'+w))
					visible := now.Add(time.Hour)
					d, err := s.ClaimAndUpdate(ctx,
						docqueue.Filter{Deleted: docqueue.Absent, VisibleAtOrBefore: &now},
						docqueue.Update{IncTries: true, Ack: &ack, Visible: &visible},
						docqueue.SortInsertion,
					)
					if !assert.NoError(t, err) || d == nil {
						return
					}
					mu.Lock()
					claimed = append(claimed, d.ID)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, claimed, total)
		assert.Len(t, lo.Uniq(claimed), total)
	})
}

// uniqueAck keeps tokens distinct across runs, since acks are unique store-wide
// and a persistent store keeps rows from earlier runs.
func uniqueAck(prefix string) string {
	return prefix + "-" + lo.RandomString(12, lo.AlphanumericCharset)
}

func docs(visible time.Time, payloads ...string) []docqueue.Document {
	return lo.Map(payloads, func(p string, _ int) docqueue.Document {
		return docqueue.Document{Payload: json.RawMessage(quote(p)), Visible: visible}
	})
}

func claim(t *testing.T, s docqueue.Store, now time.Time) *docqueue.Document {
	t.Helper()
	return claimWithAck(t, s, now, lo.RandomString(32, lo.AlphanumericCharset))
}

func claimWithAck(t *testing.T, s docqueue.Store, now time.Time, ack string) *docqueue.Document {
	t.Helper()
	visible := now.Add(time.Minute)
	d, err := s.ClaimAndUpdate(t.Context(),
		docqueue.Filter{Deleted: docqueue.Absent, VisibleAtOrBefore: &now},
		docqueue.Update{IncTries: true, Ack: &ack, Visible: &visible},
		docqueue.SortInsertion,
	)
	require.NoError(t, err)
	return d
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
