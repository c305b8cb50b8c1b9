// Package solutions persists the inputs kept by the objective.
package solutions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/lmittmann/tint"
	"github.com/programme-lv/fuzzexec/api"
	"github.com/puzpuzpuz/xsync/v3"
)

const fileExt = ".zst"

// Uploader mirrors solution files to remote storage.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte) error
}

// Store keeps one zstd-compressed file per distinct input, named
// <sha256>.<verdict>.zst.
type Store struct {
	dir      string
	seen     *xsync.MapOf[string, api.ExitKind]
	count    atomic.Int64
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
	uploader Uploader
	logger   *slog.Logger
}

type Option func(*Store)

func WithUploader(u Uploader) Option {
	return func(s *Store) { s.uploader = u }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New opens dir, creating it when needed, and indexes the solutions already
// stored there.
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create solutions directory: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	s := &Store{
		dir:     dir,
		seen:    xsync.NewMapOf[string, api.ExitKind](),
		encoder: enc,
		decoder: dec,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions directory: %w", err)
	}
	for _, e := range entries {
		sum, kind, ok := ParseFileName(e.Name())
		if !ok {
			continue
		}
		if _, loaded := s.seen.LoadOrStore(sum, kind); !loaded {
			s.count.Add(1)
		}
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

// Len is the number of distinct solutions.
func (s *Store) Len() int {
	return int(s.count.Load())
}

// Add stores input unless an identical one is already kept. It returns the
// number of solutions and whether input was new.
func (s *Store) Add(input []byte, kind api.ExitKind) (int, bool, error) {
	sum := Sha256Hex(input)
	if _, loaded := s.seen.LoadOrStore(sum, kind); loaded {
		return s.Len(), false, nil
	}

	name := FileName(sum, kind)
	body := s.encoder.EncodeAll(input, nil)
	if err := os.WriteFile(filepath.Join(s.dir, name), body, 0644); err != nil {
		s.seen.Delete(sum)
		return s.Len(), false, fmt.Errorf("failed to write solution %s: %w", name, err)
	}
	total := int(s.count.Add(1))

	if s.uploader != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.uploader.Upload(ctx, name, body); err != nil {
			s.logger.Error("failed to upload solution", "name", name, tint.Err(err))
		}
	}
	return total, true, nil
}

// Load returns the decompressed input stored under name.
func (s *Store) Load(name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read solution %s: %w", name, err)
	}
	in, err := s.decoder.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress solution %s: %w", name, err)
	}
	return in, nil
}

func Sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func FileName(sum string, kind api.ExitKind) string {
	return sum + "." + string(kind) + fileExt
}

// ParseFileName splits a solution file name into its hash and verdict.
func ParseFileName(name string) (string, api.ExitKind, bool) {
	base, ok := strings.CutSuffix(name, fileExt)
	if !ok {
		return "", "", false
	}
	sum, verdict, ok := strings.Cut(base, ".")
	if !ok || len(sum) != sha256.Size*2 {
		return "", "", false
	}
	kind, ok := api.ParseExitKind(verdict)
	if !ok {
		return "", "", false
	}
	return sum, kind, true
}
