// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactorcore

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// newLoopbackListener opens a nonblocking TCP listening socket on an
// ephemeral loopback port, returning the raw fd and the port actually
// bound. The Acceptor owns everything from Listen() onward; socket(2) and
// bind(2) are the caller's job.
func newLoopbackListener(t *testing.T) (fd int, port int) {
	t.Helper()
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1))
	require.NoError(t, unix.Bind(fd, &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}))
	sa, err := unix.Getsockname(fd)
	require.NoError(t, err)
	inet4, ok := sa.(*unix.SockaddrInet4)
	require.True(t, ok)
	require.NoError(t, unix.SetNonblock(fd, true))
	t.Cleanup(func() { unix.Close(fd) })
	return fd, inet4.Port
}

func TestAcceptorHandsOffAcceptedConnections(t *testing.T) {
	l, stop := startTestLoop(t)
	defer stop()

	listenFd, port := newLoopbackListener(t)

	accepted := make(chan struct {
		fd   int
		addr net.Addr
	}, 4)

	l.RunInLoop(func() {
		a := NewAcceptor(l, listenFd)
		a.SetNewConnectionCallback(func(fd int, peer net.Addr) {
			accepted <- struct {
				fd   int
				addr net.Addr
			}{fd, peer}
		})
		a.Listen()
		assert.True(t, a.Listening())
	})

	const n = 4
	var conns []net.Conn
	for i := 0; i < n; i++ {
		c, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), time.Second)
		require.NoError(t, err)
		conns = append(conns, c)
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	for i := 0; i < n; i++ {
		select {
		case got := <-accepted:
			assert.Greater(t, got.fd, 0)
			assert.NotNil(t, got.addr)
			unix.Close(got.fd)
		case <-time.After(2 * time.Second):
			t.Fatalf("did not observe accepted connection %d of %d", i+1, n)
		}
	}
}
