package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/mediavault-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
)

// StagedFile is an ephemeral local copy of an upload. It is owned by exactly
// one pipeline run and must be released on every exit path.
type StagedFile struct {
	Path         string
	OriginalName string
	Size         int64

	log  *logger.Logger
	once sync.Once
}

// Release removes the staged bytes. Safe to call more than once and after the
// gateway has already removed the file.
func (s *StagedFile) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.Path == "" {
			return
		}
		if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Warn("Failed to release staged file", "path", s.Path, "error", err)
			}
		}
	})
}

type StagingArena struct {
	log *logger.Logger
	dir string
}

func NewStagingArena(baseLog *logger.Logger, dir string) *StagingArena {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "mediavault-staging")
	}
	return &StagingArena{log: baseLog.With("service", "StagingArena"), dir: dir}
}

func (a *StagingArena) Dir() string { return a.dir }

// Stage copies r into a uniquely named file under the scratch directory.
func (a *StagingArena) Stage(ctx context.Context, r io.Reader, originalName string) (*StagedFile, error) {
	ctx = ctxutil.Default(ctx)
	if r == nil {
		return nil, StorageError("stage file", fmt.Errorf("nil reader"))
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return nil, StorageError("create staging dir", err)
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), strings.ToLower(filepath.Ext(originalName)))
	path := filepath.Join(a.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, StorageError("create staged file", err)
	}
	staged := &StagedFile{Path: path, OriginalName: originalName, log: a.log}

	n, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		staged.Release()
		return nil, StorageError("write staged file", copyErr)
	}
	staged.Size = n
	return staged, nil
}

// ctxReader stops a copy once the request is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
