package mailer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	auth "github.com/goliatone/go-auth-sessions"
)

// Dir writes every message as an .eml file under a directory. Useful for
// development, the activation link can be copied from the file.
type Dir struct {
	path string
	now  func() time.Time
}

var _ auth.Mailer = (*Dir)(nil)

// NewDir creates path if needed
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create mail dir: %w", err)
	}
	return &Dir{path: path, now: time.Now}, nil
}

func (d *Dir) SendEmail(ctx context.Context, from, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := d.now()
	msg, err := Compose(from, to, subject, html, now)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s-%s.eml", now.UTC().Format("20060102T150405"), uuid.NewString())
	return os.WriteFile(filepath.Join(d.path, name), msg, 0o644)
}
