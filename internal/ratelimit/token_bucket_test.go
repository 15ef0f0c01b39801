package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilBucket(t *testing.T) {
	var b *Bucket
	_, err := b.Take(context.Background(), "k", Rule{Rate: 1, Burst: 1})
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, NewBucket(nil))
}

func TestRuleTTL(t *testing.T) {
	assert.Equal(t, time.Second, Rule{Rate: 0, Burst: 10}.ttl())
	assert.Equal(t, 40*time.Second, Rule{Rate: 2, Burst: 40}.ttl())
	assert.Equal(t, time.Second, Rule{Rate: 100, Burst: 1}.ttl())
}

func TestDecode(t *testing.T) {
	d, err := decode([]int64{0, 0, 1500})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1500*time.Millisecond, d.RetryAfter)

	d, err = decode([]int64{1, 4, 0})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 4, d.Remaining)

	_, err = decode([]int64{1})
	assert.Error(t, err)
}
