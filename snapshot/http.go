package snapshot

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"
)

// NewTimeoutClient returns http client with connect and read / write timeouts.
// If proxy is empty, proxy is taken from HTTP_PROXY / HTTPS_PROXY env variables.
func NewTimeoutClient(connectTimeout time.Duration, readWriteTimeout time.Duration, proxy string) (*http.Client, error) {
	proxyFn := http.ProxyFromEnvironment
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, err
		}
		proxyFn = http.ProxyURL(u)
	}
	dialer := &net.Dialer{Timeout: connectTimeout}
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		conn.SetDeadline(time.Now().Add(readWriteTimeout))
		return conn, nil
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext: dial,
			Proxy:       proxyFn,
		},
	}, nil
}

func NewDefaultTimeoutClient(proxy string) (*http.Client, error) {
	return NewTimeoutClient(time.Second*30, time.Second*120, proxy)
}
