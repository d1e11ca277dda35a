package common

import (
	"net/http"
	"time"

	"github.com/futig/nelson-backend/internal/config"
	pkgHTTP "github.com/futig/nelson-backend/pkg/http"
	"go.uber.org/zap"
)

func NewBaseConnector(cfg config.HTTPClientConfig, logger *zap.Logger) *pkgHTTP.Connector {
	connCfg := &pkgHTTP.ConnectorConfig{
		Logger:  logger,
		BaseURL: cfg.Url,
	}

	return pkgHTTP.NewConnector(connCfg, clientOptions(cfg)...)
}

// NewSDKClient returns an *http.Client for third-party SDKs that handle
// authentication themselves.
func NewSDKClient(requestTimeout time.Duration) *http.Client {
	return pkgHTTP.NewClient(
		pkgHTTP.WithRequestTimeout(requestTimeout),
		pkgHTTP.WithResponseHeaderTimeout(requestTimeout),
		pkgHTTP.WithRequestLogging(),
	)
}

func clientOptions(cfg config.HTTPClientConfig) []pkgHTTP.HttpOpts {
	return []pkgHTTP.HttpOpts{
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithRequestLogging(),
		pkgHTTP.WithAuthToken(cfg.Token),
	}
}
