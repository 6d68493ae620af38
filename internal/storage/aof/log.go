package aof

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yndnr/meshkv/internal/telemetry/logger"
	"github.com/yndnr/meshkv/pkg/crypto/adaptive"
)

// SyncPolicy defines when appended records are fsynced.
type SyncPolicy string

const (
	// SyncAlways fsyncs after every append.
	SyncAlways SyncPolicy = "always"
	// SyncEverySec fsyncs dirty data once per SyncInterval in the background.
	SyncEverySec SyncPolicy = "everysec"
	// SyncNo leaves flushing to the operating system.
	SyncNo SyncPolicy = "no"
)

// Defaults.
const (
	DefaultSyncInterval = time.Second
	DefaultFilePerm     = 0600
	DefaultDirPerm      = 0750

	// keyInfo is the HKDF context for AOF encryption keys.
	keyInfo = "meshkv aof v1"
)

// Config configures a file-backed log.
type Config struct {
	Path string

	Sync         SyncPolicy
	SyncInterval time.Duration

	// EncryptionKey enables record encryption when non-empty. The actual
	// cipher key is derived from it with HKDF-SHA256.
	EncryptionKey string

	// Cipher selects the algorithm for new records. Existing records are
	// opened according to their frame type.
	Cipher adaptive.CipherType

	Logger logger.Logger
}

// ReplayStats summarizes one replay pass.
type ReplayStats struct {
	Records        int
	Skipped        int
	TruncatedBytes int64
}

// Log is the persistence log contract.
type Log interface {
	// Append durably records one mutation (subject to the sync policy).
	Append(r *Record) error

	// Replay calls fn for every readable record in append order.
	Replay(fn func(*Record) error) (ReplayStats, error)

	// Rewrite atomically replaces the log with the given records.
	Rewrite(records []*Record) error

	// Close flushes and releases the log.
	Close() error
}

// Discard is the no-op log used when persistence is disabled.
var Discard Log = discard{}

type discard struct{}

func (discard) Append(*Record) error                            { return nil }
func (discard) Replay(func(*Record) error) (ReplayStats, error) { return ReplayStats{}, nil }
func (discard) Rewrite([]*Record) error                         { return nil }
func (discard) Close() error                                    { return nil }

// File is an append-only log stored in a single file.
type File struct {
	cfg    Config
	log    logger.Logger
	cipher adaptive.Cipher
	open   map[FrameType]adaptive.Cipher

	mu     sync.Mutex
	file   *os.File
	size   int64
	dirty  bool
	closed bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Open opens or creates the log file at cfg.Path.
func Open(cfg Config) (*File, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("aof: path is required")
	}
	applyDefaults(&cfg)

	l := &File{
		cfg:    cfg,
		log:    cfg.Logger,
		open:   make(map[FrameType]adaptive.Cipher),
		stopCh: make(chan struct{}),
	}

	if cfg.EncryptionKey != "" {
		key, err := adaptive.DeriveKey([]byte(cfg.EncryptionKey), keyInfo)
		if err != nil {
			return nil, err
		}
		for _, ct := range []adaptive.CipherType{adaptive.CipherXChaCha20, adaptive.CipherAESGCM} {
			c, err := adaptive.NewWithType(key, ct)
			if err != nil {
				return nil, fmt.Errorf("aof: init cipher: %w", err)
			}
			l.open[frameTypeFor(c)] = c
			if ct == cfg.Cipher {
				l.cipher = c
			}
		}
		if l.cipher == nil {
			return nil, fmt.Errorf("%w: %q", adaptive.ErrUnknownCipher, cfg.Cipher)
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("aof: create dir: %w", err)
	}
	if err := l.openFile(); err != nil {
		return nil, err
	}

	if cfg.Sync == SyncEverySec {
		l.startSyncLoop()
	}
	return l, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Sync == "" {
		cfg.Sync = SyncEverySec
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}
	if cfg.Cipher == "" {
		cfg.Cipher = adaptive.CipherXChaCha20
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
}

// ParseSyncPolicy validates a configured sync policy.
func ParseSyncPolicy(s string) (SyncPolicy, error) {
	switch p := SyncPolicy(s); p {
	case SyncAlways, SyncEverySec, SyncNo:
		return p, nil
	case "":
		return SyncEverySec, nil
	default:
		return "", fmt.Errorf("aof: unknown sync policy %q", s)
	}
}

func (l *File) openFile() error {
	f, err := os.OpenFile(l.cfg.Path, os.O_RDWR|os.O_CREATE|os.O_APPEND, DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("aof: open: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("aof: stat: %w", err)
	}
	size := stat.Size()

	if size < MagicBytesSize {
		head := make([]byte, size)
		if _, err := io.ReadFull(io.NewSectionReader(f, 0, size), head); err != nil {
			f.Close()
			return fmt.Errorf("aof: read magic: %w", err)
		}
		if !bytes.HasPrefix([]byte(MagicBytes), head) {
			f.Close()
			return ErrInvalidMagic
		}
		// Empty, or the header itself was cut short: start over.
		if err := f.Truncate(0); err != nil {
			f.Close()
			return fmt.Errorf("aof: truncate: %w", err)
		}
		if _, err := f.Write([]byte(MagicBytes)); err != nil {
			f.Close()
			return fmt.Errorf("aof: write magic: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("aof: sync: %w", err)
		}
		size = MagicBytesSize
	} else {
		magic := make([]byte, MagicBytesSize)
		if _, err := io.ReadFull(io.NewSectionReader(f, 0, MagicBytesSize), magic); err != nil {
			f.Close()
			return fmt.Errorf("aof: read magic: %w", err)
		}
		if string(magic) != MagicBytes {
			f.Close()
			return ErrInvalidMagic
		}
	}

	l.file = f
	l.size = size
	return nil
}

// Path returns the log file path.
func (l *File) Path() string {
	return l.cfg.Path
}

// Size returns the current file size in bytes.
func (l *File) Size() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Append writes one record frame and syncs according to the policy.
func (l *File) Append(r *Record) error {
	frame, err := encodeFrame(r, l.cipher)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	n, err := l.file.Write(frame)
	if err != nil {
		if n > 0 {
			// Drop the torn frame so later appends stay readable.
			if terr := l.file.Truncate(l.size); terr != nil {
				l.log.Error("aof: truncate torn frame", "error", terr)
			}
		}
		return fmt.Errorf("aof: write: %w", err)
	}
	l.size += int64(n)

	switch l.cfg.Sync {
	case SyncAlways:
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("aof: sync: %w", err)
		}
	case SyncEverySec:
		l.dirty = true
	}
	return nil
}

// Replay reads records in append order and passes each to fn.
//
// A frame cut short at the end of the file is dropped and the file is
// truncated to the last complete frame. A complete frame whose checksum or
// payload does not verify is skipped. An error from fn, or a record that
// cannot be decrypted, aborts the replay.
func (l *File) Replay(fn func(*Record) error) (ReplayStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var stats ReplayStats
	if l.closed {
		return stats, ErrClosed
	}

	br := bufio.NewReader(io.NewSectionReader(l.file, MagicBytesSize, l.size-MagicBytesSize))
	offset := int64(MagicBytesSize)

	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return stats, nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return stats, l.truncateTailLocked(offset, &stats, "truncated frame header")
			}
			return stats, fmt.Errorf("aof: read: %w", err)
		}

		length := binary.BigEndian.Uint32(lenBuf[:])
		if length < 5 || length > MaxFrameSize {
			// The length itself is unreliable, so nothing after it can be framed.
			return stats, l.truncateTailLocked(offset, &stats, "invalid frame length")
		}
		if int64(length) > l.size-offset-4 {
			return stats, l.truncateTailLocked(offset, &stats, "truncated frame")
		}

		frame := make([]byte, length)
		if _, err := io.ReadFull(br, frame); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return stats, l.truncateTailLocked(offset, &stats, "truncated frame")
			}
			return stats, fmt.Errorf("aof: read: %w", err)
		}
		frameOffset := offset
		offset += 4 + int64(length)

		rec, err := decodeFrame(frame, l.open)
		if err != nil {
			if errors.Is(err, ErrDecrypt) {
				return stats, err
			}
			stats.Skipped++
			l.log.Warn("aof: skipping unreadable record",
				"path", l.cfg.Path,
				"offset", frameOffset,
				"error", err)
			continue
		}

		if err := fn(rec); err != nil {
			return stats, err
		}
		stats.Records++
	}
}

func (l *File) truncateTailLocked(validEnd int64, stats *ReplayStats, reason string) error {
	dropped := l.size - validEnd
	l.log.Warn("aof: discarding malformed tail",
		"path", l.cfg.Path,
		"offset", validEnd,
		"bytes", dropped,
		"reason", reason)

	if err := l.file.Truncate(validEnd); err != nil {
		return fmt.Errorf("aof: truncate tail: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("aof: sync: %w", err)
	}
	l.size = validEnd
	stats.TruncatedBytes = dropped
	return nil
}

// Rewrite replaces the log with records. The new content is written to a
// temporary file, synced and renamed over the log, so a crash leaves
// either the old or the new log intact.
func (l *File) Rewrite(records []*Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	tmpPath := l.cfg.Path + ".rewrite"
	if err := l.writeSnapshotFile(tmpPath, records); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, l.cfg.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("aof: rename: %w", err)
	}
	syncDir(filepath.Dir(l.cfg.Path))

	old := l.file
	if err := l.openFile(); err != nil {
		// The renamed file is complete, but appends have nowhere to go.
		l.file = old
		return err
	}
	_ = old.Close()
	l.dirty = false
	return nil
}

func (l *File) writeSnapshotFile(path string, records []*Record) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("aof: create rewrite file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, 64<<10)
	if _, err := bw.WriteString(MagicBytes); err != nil {
		return fmt.Errorf("aof: write rewrite file: %w", err)
	}
	for _, r := range records {
		frame, err := encodeFrame(r, l.cipher)
		if err != nil {
			return err
		}
		if _, err := bw.Write(frame); err != nil {
			return fmt.Errorf("aof: write rewrite file: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("aof: write rewrite file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("aof: sync rewrite file: %w", err)
	}
	return nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// Sync flushes written records to stable storage.
func (l *File) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.syncLocked()
}

func (l *File) syncLocked() error {
	if l.closed || !l.dirty {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("aof: sync: %w", err)
	}
	l.dirty = false
	return nil
}

func (l *File) startSyncLoop() {
	ticker := time.NewTicker(l.cfg.SyncInterval)
	l.wg.Add(1)

	go func() {
		defer l.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := l.Sync(); err != nil {
					l.log.Error("aof: background sync failed", "error", err)
				}
			case <-l.stopCh:
				return
			}
		}
	}()
}

// Close stops the background sync, flushes and closes the file.
func (l *File) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	close(l.stopCh)
	l.mu.Unlock()

	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Final sync regardless of policy.
	err := l.file.Sync()
	l.closed = true
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	return err
}
