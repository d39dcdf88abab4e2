package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogService_List(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	start := at("2024-06-01 09:00")
	for i := 0; i < 25; i++ {
		now := start.Add(time.Duration(i) * time.Minute)
		env.logs.SetClock(func() time.Time { return now })
		_, err := env.logs.Record(ctx, RecordInput{
			UserID:    ptr("bob"),
			EventInfo: map[string]interface{}{"mode": "open"},
			Snapshot:  "data:image/jpg;base64,AA==",
		})
		require.NoError(t, err)
	}

	t.Run("first page uses the default size", func(t *testing.T) {
		page, err := env.logs.List(ctx, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 20, page.Offset)
		assert.EqualValues(t, 25, page.Total)
		require.Len(t, page.Logs, 20)
		assert.Equal(t, "2024-06-01 09:24:00", page.Logs[0].RegDate)
	})

	t.Run("second page", func(t *testing.T) {
		page, err := env.logs.List(ctx, 2, 10)
		require.NoError(t, err)
		require.Len(t, page.Logs, 10)
		assert.Equal(t, "2024-06-01 09:14:00", page.Logs[0].RegDate)
		assert.Equal(t, "2024-06-01 09:05:00", page.Logs[9].RegDate)
	})

	t.Run("page below one is treated as one", func(t *testing.T) {
		page, err := env.logs.List(ctx, -3, 5)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, "2024-06-01 09:24:00", page.Logs[0].RegDate)
	})

	t.Run("size is capped", func(t *testing.T) {
		page, err := env.logs.List(ctx, 1, 5000)
		require.NoError(t, err)
		assert.Equal(t, 100, page.Offset)
		assert.Len(t, page.Logs, 25)
	})

	t.Run("page too large for an offset", func(t *testing.T) {
		_, err := env.logs.List(ctx, math.MaxInt, 10)
		assert.True(t, errors.Is(err, ErrValidationFailed))

		_, err = env.logs.List(ctx, math.MaxInt/10+1, 10)
		assert.NoError(t, err)
	})

	t.Run("past the end", func(t *testing.T) {
		page, err := env.logs.List(ctx, 9, 10)
		require.NoError(t, err)
		assert.NotNil(t, page.Logs)
		assert.Empty(t, page.Logs)
	})
}

func TestLogService_Get(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.logs.SetClock(func() time.Time { return at("2024-06-01 09:00") })

	entry, err := env.logs.Record(ctx, RecordInput{EventInfo: map[string]interface{}{"mode": "open"}, Camera: "sub1"})
	require.NoError(t, err)
	assert.Nil(t, entry.UserID)
	assert.Equal(t, 1, entry.CamNo)
	assert.Equal(t, EncodeSnapshot(fakeJPEG), entry.Snapshot)

	got, err := env.logs.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.RegDate, got.RegDate)

	_, err = env.logs.Get(ctx, entry.ID+100)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 512))

	cut := truncate(strings.Repeat("a", 511)+"한국", 512)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, strings.Repeat("a", 511), cut)

	cut = truncate("한국어", 4)
	assert.Equal(t, "한", cut)
}
