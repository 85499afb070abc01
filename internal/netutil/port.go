// Package netutil holds small network probes.
package netutil

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// DialTimeout bounds a single connection attempt.
const DialTimeout = 2 * time.Second

// CheckPort opens and closes a TCP connection to host:port.
func CheckPort(ctx context.Context, host string, port int) error {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	d := net.Dialer{Timeout: DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("cannot reach %s: %w", address, err)
	}
	_ = conn.Close()
	return nil
}
