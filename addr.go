// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactorcore

import (
	"net"

	"golang.org/x/sys/unix"
)

// sockaddrToAddr converts a raw unix.Sockaddr, as returned by accept(2),
// into a net.Addr. Only the TCP and Unix-domain cases are handled: the
// Acceptor never deals with UDP, which has no accept-loop to speak of.
func sockaddrToAddr(sa unix.Sockaddr) net.Addr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: append([]byte(nil), sa.Addr[:]...), Port: sa.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: append([]byte(nil), sa.Addr[:]...), Port: sa.Port, Zone: zoneToString(sa.ZoneId)}
	case *unix.SockaddrUnix:
		return &net.UnixAddr{Name: sa.Name, Net: "unix"}
	}
	return nil
}

func zoneToString(zone uint32) string {
	if zone == 0 {
		return ""
	}
	if iface, err := net.InterfaceByIndex(int(zone)); err == nil {
		return iface.Name
	}
	return ""
}
