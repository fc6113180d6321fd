package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishFailsFastWithoutConfiguration(t *testing.T) {
	cases := []struct {
		name string
		pub  *FTPPublisher
	}{
		{"all missing", NewFTP("", "", "", "")},
		{"no host", NewFTP("", "user", "pass", "/dir")},
		{"no user", NewFTP("ftp.example.com:21", "", "pass", "/dir")},
		{"no password", NewFTP("ftp.example.com:21", "user", "", "/dir")},
		{"no target dir", NewFTP("ftp.example.com:21", "user", "pass", "")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Must not touch the network: the host is unreachable and the
			// local path does not exist, yet the only error we accept is
			// the configuration one.
			err := tc.pub.Publish(context.Background(), "/nonexistent/file.png", "file.png")
			assert.ErrorIs(t, err, ErrNotConfigured)
		})
	}
}

func TestPublishMissingLocalFile(t *testing.T) {
	pub := NewFTP("ftp.example.com:21", "user", "pass", "/dir")
	err := pub.Publish(context.Background(), "/nonexistent/file.png", "file.png")
	assert.ErrorContains(t, err, "failed to open")
}
