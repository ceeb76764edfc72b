package ports

import (
	"context"
	"net"
)

// Dialer opens network connections. *net.Dialer satisfies this interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}
