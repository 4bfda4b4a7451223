package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jaevor/go-nanoid"
	"go.uber.org/zap"

	"sensiboost/logging"
)

var ErrDisallowedExtension = errors.New("file type not allowed")

var allowedReceiptExt = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
}

// NormalizeExt lowercases an extension and makes sure it has a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// AllowedReceiptExt reports whether a client filename has an image extension
// we accept for receipts.
func AllowedReceiptExt(name string) bool {
	_, ok := allowedReceiptExt[NormalizeExt(filepath.Ext(name))]
	return ok
}

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// ReceiptStore keeps uploaded receipts in a flat directory. Stored names
// embed the account, a UTC timestamp and a random suffix, so concurrent
// uploads never collide.
type ReceiptStore struct {
	dir   string
	newID func() string
	now   func() time.Time
	log   *zap.Logger
}

func NewReceiptStore(dir string, log *zap.Logger) (*ReceiptStore, error) {
	if dir == "" {
		return nil, errors.New("upload dir is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	gen, err := nanoid.Standard(10)
	if err != nil {
		return nil, err
	}
	return &ReceiptStore{
		dir:   dir,
		newID: gen,
		now:   func() time.Time { return time.Now().UTC() },
		log:   logging.OrNop(log),
	}, nil
}

func (s *ReceiptStore) Dir() string { return s.dir }

func (s *ReceiptStore) storedName(email, original string) string {
	account := unsafeNameChars.ReplaceAllString(strings.ToLower(email), "_")
	account = strings.Trim(account, "._")
	if len(account) > 64 {
		account = account[:64]
	}
	return fmt.Sprintf("%s_%s_%s%s",
		account,
		s.now().Format("20060102T150405Z"),
		s.newID(),
		NormalizeExt(filepath.Ext(original)),
	)
}

// Save writes r under a fresh name and returns that name. The original
// filename only contributes its extension.
func (s *ReceiptStore) Save(email, original string, r io.Reader) (string, error) {
	if !AllowedReceiptExt(original) {
		return "", ErrDisallowedExtension
	}
	name := s.storedName(email, original)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	s.log.Info("uploads.saved", zap.String("file", name), zap.Int64("bytes", n))
	return name, nil
}

// Path resolves a stored name to a file inside the upload directory. Names
// carrying any path component are rejected as not found.
func (s *ReceiptStore) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrNotFound
	}
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return path, nil
}

// Remove deletes a stored file. Used to roll back an upload whose ledger
// insert failed.
func (s *ReceiptStore) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
