package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/kjk/dumpbuf/atomicfile"
	"github.com/kjk/dumpbuf/config"
	"github.com/kjk/dumpbuf/log"

	"github.com/melbahja/goph"
	"github.com/pkg/sftp"
)

// SFTP stores database as a file on a server reachable over ssh
type SFTP struct {
	config     config.SFTPConfig
	host       string
	port       uint
	remotePath string
}

func splitHostPort(addr string) (string, uint, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// no port
		return addr, 22, nil
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in '%s'", addr)
	}
	return host, uint(port), nil
}

func NewSFTP(c *config.SFTPConfig, remotePath string) (*SFTP, error) {
	if c == nil {
		return nil, errors.New("must provide config")
	}
	if c.User == "" || c.Addr == "" || c.KeyPath == "" {
		return nil, errors.New("must provide remote.sftp.user, addr and key_path")
	}
	if remotePath == "" {
		return nil, errors.New("must provide remote.path")
	}
	host, port, err := splitHostPort(c.Addr)
	if err != nil {
		return nil, err
	}
	return &SFTP{
		config:     *c,
		host:       host,
		port:       port,
		remotePath: remotePath,
	}, nil
}

func (s *SFTP) String() string {
	return fmt.Sprintf("sftp://%s@%s:%d/%s", s.config.User, s.host, s.port, s.remotePath)
}

// connect returns ssh and sftp clients, caller must close both
func (s *SFTP) connect() (*goph.Client, *sftp.Client, error) {
	auth, err := goph.Key(s.config.KeyPath, s.config.Passphrase)
	if err != nil {
		return nil, nil, err
	}
	callback, err := goph.DefaultKnownHosts()
	if err != nil {
		return nil, nil, err
	}
	client, err := goph.NewConn(&goph.Config{
		User:     s.config.User,
		Addr:     s.host,
		Port:     s.port,
		Auth:     auth,
		Callback: callback,
	})
	if err != nil {
		return nil, nil, err
	}
	sc, err := client.NewSftp()
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return client, sc, nil
}

// run fn with connected sftp client, closing connection when ctx is done
func (s *SFTP) run(ctx context.Context, fn func(sc *sftp.Client) error) error {
	client, sc, err := s.connect()
	if err != nil {
		return err
	}
	defer client.Close()
	defer sc.Close()

	stop := context.AfterFunc(ctx, func() {
		client.Close()
	})
	defer stop()
	err = fn(sc)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *SFTP) Push(ctx context.Context, localPath string) error {
	return s.run(ctx, func(sc *sftp.Client) error {
		src, err := os.Open(localPath)
		if err != nil {
			return err
		}
		defer src.Close()

		if dir := path.Dir(s.remotePath); dir != "." && dir != "/" {
			if err = sc.MkdirAll(dir); err != nil {
				return fmt.Errorf("sftp.MkdirAll('%s') failed with '%w'", dir, err)
			}
		}
		// write to temp file and rename so that the remote copy is never partial
		tmpPath := s.remotePath + ".tmp"
		dst, err := sc.Create(tmpPath)
		if err != nil {
			return err
		}
		n, err := io.Copy(dst, src)
		if err2 := dst.Close(); err == nil {
			err = err2
		}
		if err != nil {
			_ = sc.Remove(tmpPath)
			return err
		}
		if err = sc.PosixRename(tmpPath, s.remotePath); err != nil {
			_ = sc.Remove(tmpPath)
			return err
		}
		log.Verbosef("uploaded %d bytes to %s\n", n, s)
		return nil
	})
}

func (s *SFTP) Pull(ctx context.Context, localPath string) error {
	return s.run(ctx, func(sc *sftp.Client) error {
		src, err := sc.Open(s.remotePath)
		if err != nil {
			return err
		}
		defer src.Close()

		if err = os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
			return err
		}
		f, err := atomicfile.New(localPath)
		if err != nil {
			return err
		}
		defer f.RemoveIfNotClosed()
		n, err := io.Copy(f, src)
		if err != nil {
			return err
		}
		log.Verbosef("downloaded %d bytes from %s\n", n, s)
		return f.Close()
	})
}
