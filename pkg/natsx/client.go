package natsx

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NewClient connects to the NATS server at url. Without options the
// connection is named "strix", compressed and keeps reconnecting.
func NewClient(url string, opts ...nats.Option) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if len(opts) == 0 {
		opts = append(opts,
			nats.Name("strix"),
			nats.Compression(true),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(time.Second),
		)
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return nc, nil
}
