package http

import (
	"crypto/tls"
	"net"
	nethttp "net/http"
	"net/url"
	"os"

	"golang.org/x/net/http/httpproxy"
	"golang.org/x/net/http2"

	"github.com/s5bridge/s5bridge/internal/constants"
)

// CreateOptimizedClient creates the HTTP client used by the storage client.
//
// Key features:
//   - Proxy support from HTTP_PROXY, HTTPS_PROXY and NO_PROXY
//   - Connection pool sized for concurrent listing pages
//   - HTTP/2 with runtime toggle (DISABLE_HTTP2 env var)
//   - No overall timeout; each request is bounded by its context
func CreateOptimizedClient() *nethttp.Client {
	proxyCfg := httpproxy.FromEnvironment()
	proxyFunc := proxyCfg.ProxyFunc()

	tr := &nethttp.Transport{
		Proxy: func(req *nethttp.Request) (*url.URL, error) {
			return proxyFunc(req.URL)
		},
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPDialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          constants.HTTPMaxIdleConnsPerHost * 2,
		MaxIdleConnsPerHost:   constants.HTTPMaxIdleConnsPerHost,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
		ForceAttemptHTTP2:     true,
	}

	_ = http2.ConfigureTransport(tr)

	// Proxies often break HTTP/2 multiplexing; FORCE_HTTP2=true overrides.
	proxyActive := proxyCfg.HTTPProxy != "" || proxyCfg.HTTPSProxy != ""
	if os.Getenv("DISABLE_HTTP2") == "true" || (proxyActive && os.Getenv("FORCE_HTTP2") != "true") {
		disableHTTP2(tr)
	}

	return &nethttp.Client{
		Transport: tr,
		Timeout:   0,
	}
}

func disableHTTP2(tr *nethttp.Transport) {
	tr.ForceAttemptHTTP2 = false
	tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
}
