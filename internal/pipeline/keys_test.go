package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr error
	}{
		{key: "videos/alpha/clip.mp4", want: "mp4"},
		{key: "videos/alpha/clip.tar.webm", want: "webm"},
		{key: "videos/alpha/my clip.MOV", want: "MOV"},
		{key: "videos/alpha/clip_2.mp4_v2", want: "mp4_v2"},
		{key: "videos/alpha/clip", wantErr: ErrInvalidKey},
		{key: "videos/alpha/clip.", wantErr: ErrInvalidKey},
		{key: "videos/alpha/clip.mp-4", wantErr: ErrInvalidKey},
		{key: "", wantErr: ErrInvalidKey},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			got, err := Extension(tc.key)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDestinationPrefix(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr error
	}{
		{key: "videos/alpha/clip.mp4", want: "alpha/clip"},
		{key: "videos/alpha/clip", want: "alpha/clip"},
		{key: "a/b/c/d.mp4", want: "b/c"},
		{key: "uploads/user 1/holiday video.mov", want: "user 1/holiday video"},
		{key: "clip.mp4", wantErr: ErrKeyShape},
		{key: "alpha/clip.mp4", wantErr: ErrKeyShape},
		{key: "videos//clip.mp4", wantErr: ErrKeyShape},
		{key: "videos/alpha/.mp4", wantErr: ErrKeyShape},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			got, err := DestinationPrefix(tc.key)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDestinationKey(t *testing.T) {
	assert.Equal(t, "alpha/clip/1.png", DestinationKey("alpha/clip", "1.png"))
}

func TestAllowedTypeSet(t *testing.T) {
	set := NewAllowedTypeSet(DefaultAllowedTypes...)

	for _, ext := range []string{"mov", "mpg", "mpeg", "mp4", "wmv", "avi", "webm"} {
		assert.True(t, set.Contains(ext), ext)
	}
	assert.False(t, set.Contains("MP4"), "membership is case-sensitive")
	assert.False(t, set.Contains("mkv"))
	assert.False(t, set.Contains(""))
	assert.Equal(t, DefaultAllowedTypes, set.List())
}

func TestNewAllowedTypeSet_Normalizes(t *testing.T) {
	set := NewAllowedTypeSet(" mp4", ".webm", "", "mp4", "mkv ")

	assert.Equal(t, []string{"mp4", "webm", "mkv"}, set.List())
	assert.Equal(t, 3, set.Len())

	list := set.List()
	list[0] = "changed"
	assert.True(t, set.Contains("mp4"), "List must return a copy")
}

func TestSourceReference_String(t *testing.T) {
	ref := SourceReference{Bucket: "uploads", Key: "videos/alpha/clip.mp4"}
	assert.Equal(t, "uploads/videos/alpha/clip.mp4", ref.String())
}
