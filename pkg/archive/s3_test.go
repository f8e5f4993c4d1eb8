package archive

import (
	"testing"

	"github.com/querylabs/querybench/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestResolveKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		runID  string
		want   string
	}{
		{
			name:   "default prefix",
			prefix: "",
			runID:  "ab12",
			want:   "runs/ab12/summary.json",
		},
		{
			name:   "custom prefix",
			prefix: "team/querybench",
			runID:  "cd34",
			want:   "team/querybench/cd34/summary.json",
		},
		{
			name:   "trailing slash stripped",
			prefix: "my-prefix/",
			runID:  "ef56",
			want:   "my-prefix/ef56/summary.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &s3Archiver{
				cfg: &config.S3ArchiveConfig{Prefix: tt.prefix},
			}
			assert.Equal(t, tt.want, a.resolveKey(tt.runID))
		})
	}
}
