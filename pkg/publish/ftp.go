// Package publish transfers final images to a remote file server so they
// become reachable under the public URL base.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
)

// ErrNotConfigured is returned when any of the four FTP settings is absent.
// No network call is attempted in that case.
var ErrNotConfigured = errors.New("publish: FTP configuration is missing (host, user, password, target dir)")

// Publisher pushes a local file to remote storage under a given name.
type Publisher interface {
	Publish(ctx context.Context, localPath, remoteName string) error
}

// FTPPublisher publishes over plain FTP with a binary STOR into a fixed
// target directory.
type FTPPublisher struct {
	host      string
	user      string
	password  string
	targetDir string
}

// NewFTP creates an FTP publisher. Missing settings are reported by
// Publish, not here, so a server without publish configuration still starts.
func NewFTP(host, user, password, targetDir string) *FTPPublisher {
	return &FTPPublisher{host: host, user: user, password: password, targetDir: targetDir}
}

// Publish uploads the file at localPath as remoteName. An interrupted
// transfer may leave a truncated remote file; no cleanup is attempted.
func (p *FTPPublisher) Publish(ctx context.Context, localPath, remoteName string) error {
	if p.host == "" || p.user == "" || p.password == "" || p.targetDir == "" {
		return ErrNotConfigured
	}

	slog.Info("Publishing final image", "host", p.host, "name", remoteName)

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	conn, err := ftp.Dial(p.host, ftp.DialWithContext(ctx), ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("failed to connect to FTP server: %w", err)
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			slog.Warn("FTP session did not close cleanly", "error", err)
		}
	}()

	if err := conn.Login(p.user, p.password); err != nil {
		return fmt.Errorf("FTP login failed: %w", err)
	}
	if err := conn.ChangeDir(p.targetDir); err != nil {
		return fmt.Errorf("failed to change to target directory %s: %w", p.targetDir, err)
	}
	if err := conn.Stor(remoteName, file); err != nil {
		return fmt.Errorf("FTP transfer failed: %w", err)
	}

	slog.Info("Final image published", "name", remoteName)
	return nil
}
