package profiling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrack(t *testing.T) {
	p := New()
	for i := 0; i < 3; i++ {
		stop := p.Track("walk")
		time.Sleep(time.Millisecond)
		stop()
	}
	p.Track("setup")()

	assert.Equal(t, 3, p.Count("walk"))
	assert.Equal(t, 1, p.Count("setup"))
	snap := p.Snapshot()
	assert.GreaterOrEqual(t, snap["walk"], 3*time.Millisecond)
	assert.Contains(t, p.TopN(1), "walk:")
}

func TestNilProfile(t *testing.T) {
	var p *Profile
	p.Track("anything")()
	assert.Nil(t, p.Snapshot())
	assert.Equal(t, 0, p.Count("anything"))
	assert.Equal(t, "", p.TopN(5))
}

func TestFormatMs(t *testing.T) {
	assert.Equal(t, "4.2ms", formatMs(4200*time.Microsecond))
	assert.Equal(t, "3ms", formatMs(3*time.Millisecond))
	assert.Equal(t, "0ms", formatMs(0))
}
