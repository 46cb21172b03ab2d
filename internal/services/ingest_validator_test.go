package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mediavault-backend/internal/platform/apierr"
	"github.com/yungbote/mediavault-backend/internal/types"
)

func TestIngestValidatorAdmission(t *testing.T) {
	v := NewIngestValidator(1000)

	cases := []struct {
		name     string
		file     string
		mime     string
		size     int64
		wantKind types.AssetKind
		wantErr  bool
	}{
		{name: "video mime", file: "clip.bin", mime: "video/mp4", size: 10, wantKind: types.AssetKindVideo},
		{name: "image mime with params", file: "photo", mime: "image/png; charset=binary", size: 10, wantKind: types.AssetKindImage},
		{name: "extension fallback", file: "clip.MOV", mime: "application/octet-stream", size: 10, wantKind: types.AssetKindVideo},
		{name: "extension fallback no mime", file: "roof.JPeG", mime: "", size: 10, wantKind: types.AssetKindImage},
		{name: "unlisted audio mime admitted by extension", file: "clip.mp4", mime: "audio/mp4", size: 10, wantKind: types.AssetKindVideo},
		{name: "unlisted image mime admitted by extension", file: "clip.mp4", mime: "image/x-unknown", size: 10, wantKind: types.AssetKindVideo},
		{name: "listed mime wins over extension", file: "still.mp4", mime: "image/png", size: 10, wantKind: types.AssetKindImage},
		{name: "neither signal", file: "invoice.pdf", mime: "application/pdf", size: 10, wantErr: true},
		{name: "oversize", file: "clip.mp4", mime: "video/mp4", size: 1001, wantErr: true},
		{name: "at limit", file: "clip.mp4", mime: "video/mp4", size: 1000, wantKind: types.AssetKindVideo},
		{name: "empty", file: "clip.mp4", mime: "video/mp4", size: 0, wantErr: true},
		{name: "missing name", file: " ", mime: "video/mp4", size: 10, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, err := v.Validate(tc.file, tc.mime, tc.size)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, apierr.HasCode(err, CodeValidation))
				assert.Equal(t, 400, apierr.From(err, "").Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantKind, kind)
		})
	}
}

func TestIngestValidatorDefaultCeiling(t *testing.T) {
	v := NewIngestValidator(0)
	assert.Equal(t, int64(500*1024*1024), v.MaxBytes())
}
