package browser

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAfterFiresOnce(t *testing.T) {
	opened := make(chan string, 2)
	OpenAfter(10*time.Millisecond, "http://127.0.0.1:5000", func(url string) error {
		opened <- url
		return nil
	})

	select {
	case url := <-opened:
		assert.Equal(t, "http://127.0.0.1:5000", url)
	case <-time.After(2 * time.Second):
		t.Fatal("browser was not opened")
	}

	select {
	case <-opened:
		t.Fatal("opened more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOpenAfterStop(t *testing.T) {
	called := make(chan struct{}, 1)
	timer := OpenAfter(time.Hour, "http://example.invalid", func(string) error {
		called <- struct{}{}
		return nil
	})
	require.True(t, timer.Stop())
	assert.Empty(t, called)
}

func TestOpenAfterFailureIsLogged(t *testing.T) {
	done := make(chan struct{})
	OpenAfter(0, "http://example.invalid", func(string) error {
		defer close(done)
		return errors.New("no display")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("opener was not invoked")
	}
}
