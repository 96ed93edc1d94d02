package broker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterval(t *testing.T) {
	for minutes, want := range map[int]string{1: "minute", 3: "3minute", 5: "5minute", 15: "15minute", 60: "60minute"} {
		got, err := Interval(minutes)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := Interval(7)
	assert.Error(t, err)
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("SubmitOrder", cause)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "SubmitOrder")
}
