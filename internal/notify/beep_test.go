package notify

import (
	"testing"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderagent/pkg/audioconv"
)

func TestDecode(t *testing.T) {
	pcm := make([]float32, 1600)
	for i := range pcm {
		pcm[i] = 0.25
	}
	clip, err := audioconv.EncodeWAV(pcm, audioconv.TargetRate)
	require.NoError(t, err)

	testCases := map[string]struct {
		contentType string
		data        []byte
		expectedErr error
	}{
		"should decode wav": {
			contentType: "audio/wav",
			data:        clip,
		},
		"should accept content type parameters": {
			contentType: "audio/x-wav; codecs=1",
			data:        clip,
		},
		"should reject unknown types": {
			contentType: "audio/flac",
			data:        clip,
			expectedErr: ErrUnsupported,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			s, format, err := decode(tc.data, tc.contentType)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			defer s.Close()

			assert.Equal(t, beep.SampleRate(audioconv.TargetRate), format.SampleRate)
			assert.Equal(t, len(pcm), s.Len())
		})
	}
}
