package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func frame(v float32) []float32 {
	f := make([]float32, 320)
	for i := range f {
		f[i] = v
	}
	return f
}

func TestSegmenter(t *testing.T) {
	vad := VAD{FrameSize: 320, Threshold: 0.1, Trailing: 60 * time.Millisecond, MaxLength: time.Second}

	testCases := map[string]struct {
		frames         []float32
		expectedDone   bool
		expectedFrames int
	}{
		"should skip leading silence": {
			frames:         []float32{0, 0, 0},
			expectedDone:   false,
			expectedFrames: 0,
		},
		"should keep speech and trailing silence": {
			frames:         []float32{0, 0.5, 0.5, 0, 0, 0},
			expectedDone:   true,
			expectedFrames: 5,
		},
		"should reset trailing silence on speech": {
			frames:         []float32{0.5, 0, 0, 0.5, 0},
			expectedDone:   false,
			expectedFrames: 5,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			seg := newSegmenter(vad)
			for _, v := range tc.frames {
				seg.push(frame(v))
			}
			assert.Equal(t, tc.expectedDone, seg.done())
			assert.Len(t, seg.out, tc.expectedFrames*320)
		})
	}
}

func TestSegmenter_MaxLength(t *testing.T) {
	seg := newSegmenter(VAD{FrameSize: 320, Threshold: 0.1, Trailing: time.Second, MaxLength: 100 * time.Millisecond})
	for i := 0; i < 5; i++ {
		assert.False(t, seg.done())
		seg.push(frame(0.5))
	}
	assert.True(t, seg.done())
}

func TestFrameRMS(t *testing.T) {
	assert.InDelta(t, 0.5, frameRMS(frame(0.5)), 1e-6)
	assert.Zero(t, frameRMS(nil))
}
