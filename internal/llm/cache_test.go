package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCompleter struct {
	calls int
	text  string
	err   error
}

func (c *countingCompleter) Complete(ctx context.Context, r Request) (string, error) {
	c.calls++
	return c.text, c.err
}

func newTestCache(t *testing.T, next Completer) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCache(next, rdb, "gpt-test", time.Hour, nil), mr
}

func TestCache_HitAfterMiss(t *testing.T) {
	next := &countingCompleter{text: "summary"}
	c, mr := newTestCache(t, next)
	ctx := context.Background()

	text, err := c.Complete(ctx, sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "summary", text)

	text, err = c.Complete(ctx, sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "summary", text)
	assert.Equal(t, 1, next.calls)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], cachePrefix)
	assert.Equal(t, time.Hour, mr.TTL(keys[0]))
}

func TestCache_DistinctRequests(t *testing.T) {
	next := &countingCompleter{text: "x"}
	c, _ := newTestCache(t, next)
	ctx := context.Background()

	a := sampleRequest()
	b := sampleRequest()
	b.Temperature = 0.9

	_, err := c.Complete(ctx, a)
	require.NoError(t, err)
	_, err = c.Complete(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCache_ErrorsNotCached(t *testing.T) {
	next := &countingCompleter{err: errors.New("boom")}
	c, mr := newTestCache(t, next)

	_, err := c.Complete(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Empty(t, mr.Keys())
}

func TestCache_RedisDown(t *testing.T) {
	next := &countingCompleter{text: "fallback"}
	c, mr := newTestCache(t, next)
	mr.Close()

	text, err := c.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "fallback", text)
	assert.Equal(t, 1, next.calls)
}

type sequenceCompleter struct {
	replies []string
	calls   int
}

func (s *sequenceCompleter) Complete(ctx context.Context, r Request) (string, error) {
	reply := s.replies[s.calls]
	s.calls++
	return reply, nil
}

func rejectBad(out string) error {
	if out == "bad" {
		return errors.New("unusable")
	}
	return nil
}

func TestCache_RejectedOutputNotStored(t *testing.T) {
	next := &sequenceCompleter{replies: []string{"bad", "good", "unused"}}
	c, mr := newTestCache(t, next)
	ctx := context.Background()
	r := sampleRequest()
	r.Accept = rejectBad

	text, err := c.Complete(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "bad", text)
	assert.Empty(t, mr.Keys())

	text, err = c.Complete(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "good", text)

	text, err = c.Complete(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "good", text)
	assert.Equal(t, 2, next.calls)
}

func TestCache_RejectedEntryEvicted(t *testing.T) {
	next := &sequenceCompleter{replies: []string{"bad", "good"}}
	c, mr := newTestCache(t, next)
	ctx := context.Background()

	// stored before any Accept was attached to the request
	_, err := c.Complete(ctx, sampleRequest())
	require.NoError(t, err)
	require.Len(t, mr.Keys(), 1)

	r := sampleRequest()
	r.Accept = rejectBad
	text, err := c.Complete(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "good", text)
	assert.Equal(t, 2, next.calls)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	stored, err := mr.Get(keys[0])
	require.NoError(t, err)
	assert.Equal(t, "good", stored)
}
