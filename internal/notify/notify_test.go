package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannel_DropsWhenFull(t *testing.T) {
	ch := NewChannel(1)

	ch.Notify(Success("first"))
	ch.Notify(Success("second"))

	n := <-ch.C()
	assert.Equal(t, "first", n.Message)
	select {
	case extra := <-ch.C():
		t.Fatalf("unexpected notification %q", extra.Message)
	default:
	}
}

func TestMulti(t *testing.T) {
	var a, b Recorder

	Multi(&a, &b).Notify(Error("Failed to like post", errors.New("boom")))

	assert.Len(t, a.All(), 1)
	assert.Len(t, b.All(), 1)
	assert.Equal(t, LevelError, b.All()[0].Level)
}
