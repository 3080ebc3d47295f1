// Package remote copies the database file to and from a remote location:
// an S3-compatible bucket or a server over sftp.
package remote

import (
	"context"
	"fmt"

	"github.com/kjk/dumpbuf/config"
)

// Backend stores a single copy of the database file
type Backend interface {
	// Push uploads local file, over-writing remote copy
	Push(ctx context.Context, localPath string) error
	// Pull downloads remote copy, atomically replacing local file
	Pull(ctx context.Context, localPath string) error
	// String describes remote location for messages
	String() string
}

// New creates a backend for the configured remote.kind
func New(cfg *config.RemoteConfig) (Backend, error) {
	switch cfg.Kind {
	case config.RemoteS3:
		return NewS3(&cfg.S3, cfg.Path)
	case config.RemoteSFTP:
		return NewSFTP(&cfg.SFTP, cfg.Path)
	case "":
		return nil, fmt.Errorf("remote is not configured, set remote.kind to '%s' or '%s'", config.RemoteS3, config.RemoteSFTP)
	}
	return nil, fmt.Errorf("unknown remote kind '%s'", cfg.Kind)
}
