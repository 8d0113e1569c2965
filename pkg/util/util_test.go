package util

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	ts := time.Date(2023, 11, 10, 7, 5, 9, 0, time.UTC)
	assert.Equal(t, "2023.11.10", FormatDate(ts, "YYYY.MM.DD"))
	assert.Equal(t, "10/11/23 07:05:09", FormatDate(ts, "DD/MM/YY hh:mm:ss"))
	assert.Empty(t, FormatDate(time.Time{}, "YYYY"))
}

func TestParallelRunsAll(t *testing.T) {
	var sum atomic.Int64
	err := Parallel(context.Background(), []int{1, 2, 3, 4, 5}, 2, func(_ context.Context, n int) error {
		sum.Add(int64(n))
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(15), sum.Load())
}

func TestParallelFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := Parallel(context.Background(), []int{1, 2, 3}, 1, func(_ context.Context, n int) error {
		if n == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestParallelEmpty(t *testing.T) {
	called := false
	err := Parallel(context.Background(), []string{}, 3, func(context.Context, string) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.False(t, called)
}
