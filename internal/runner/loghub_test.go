package runner

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogHub_SplitsLinesAndKeepsHistory(t *testing.T) {
	h := NewLogHub(3)

	h.Write([]byte("one\ntwo\n"))
	h.Write([]byte("thr"))
	assert.Equal(t, []string{"one", "two"}, h.Recent(0), "partial line is held back")

	h.Write([]byte("ee\nfour\n"))
	assert.Equal(t, []string{"two", "three", "four"}, h.Recent(0))
	assert.Equal(t, []string{"four"}, h.Recent(1))
	assert.Equal(t, []string{"two", "three", "four"}, h.Recent(10))
}

func TestLogHub_Subscribe(t *testing.T) {
	h := NewLogHub(10)
	ch, unsubscribe := h.Subscribe()
	assert.Equal(t, 1, h.Subscribers())

	h.Write([]byte("Player synced\n"))
	assert.Equal(t, "Player synced", <-ch)

	unsubscribe()
	unsubscribe()
	assert.Zero(t, h.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}

func TestLogHub_CloseEndsSubscriptions(t *testing.T) {
	h := NewLogHub(10)
	ch, unsubscribe := h.Subscribe()

	h.Close()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, h.Subscribers())
	unsubscribe()

	late, _ := h.Subscribe()
	_, open = <-late
	assert.False(t, open, "subscriptions after Close start closed")

	h.Write([]byte("still recorded\n"))
	assert.Equal(t, []string{"still recorded"}, h.Recent(0))
}

func TestLogHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewLogHub(10)
	_, unsubscribe := h.Subscribe()
	defer unsubscribe()

	for i := 0; i < 200; i++ {
		h.Write([]byte("line\n"))
	}
	assert.Len(t, h.Recent(0), 10)
}

func TestLogHub_AsZerologOutput(t *testing.T) {
	h := NewLogHub(10)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: h, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}})

	logger.Info().Int("player_id", 101).Msg("Player synced")

	lines := h.Recent(0)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Player synced")
	assert.Contains(t, lines[0], "player_id=101")
}
