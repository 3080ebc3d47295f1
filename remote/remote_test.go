package remote

import (
	"testing"

	"github.com/kjk/dumpbuf/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotConfigured(t *testing.T) {
	_, err := New(&config.RemoteConfig{})
	assert.Error(t, err)

	_, err = New(&config.RemoteConfig{Kind: "ftp"})
	assert.Error(t, err)
}

func TestNewS3(t *testing.T) {
	cfg := &config.RemoteConfig{
		Kind: config.RemoteS3,
		Path: "/backups/db.txt",
		S3: config.S3Config{
			Endpoint: "s3.example.com",
			Bucket:   "snippets",
			Access:   "access",
			Secret:   "secret",
		},
	}
	b, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "s3://snippets/backups/db.txt", b.String())

	cfg.S3.Secret = ""
	_, err = New(cfg)
	assert.Error(t, err)

	cfg.S3.Secret = "secret"
	cfg.Path = ""
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestNewSFTP(t *testing.T) {
	cfg := &config.RemoteConfig{
		Kind: config.RemoteSFTP,
		Path: "dumpbuf/db.txt",
		SFTP: config.SFTPConfig{
			User:    "me",
			Addr:    "10.0.0.1",
			KeyPath: "/home/me/.ssh/id_ed25519",
		},
	}
	b, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "sftp://me@10.0.0.1:22/dumpbuf/db.txt", b.String())

	cfg.SFTP.Addr = "example.com:2222"
	b, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "sftp://me@example.com:2222/dumpbuf/db.txt", b.String())

	cfg.SFTP.Addr = "example.com:port"
	_, err = New(cfg)
	assert.Error(t, err)

	cfg.SFTP.Addr = "example.com"
	cfg.SFTP.KeyPath = ""
	_, err = New(cfg)
	assert.Error(t, err)
}
