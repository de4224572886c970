package core

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// listenTCP opens a non-blocking IPv4 listening socket on port and returns
// it with the port actually bound.
func listenTCP(port, backlog int) (fd, bound int, err error) {
	fd, err = unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, 0, fmt.Errorf("create socket: %w", err)
	}
	defer func() {
		if err != nil {
			unix.Close(fd)
			fd = -1
		}
	}()
	unix.CloseOnExec(fd)

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fd, 0, fmt.Errorf("set SO_REUSEADDR: %w", err)
	}
	if err = unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		return fd, 0, fmt.Errorf("bind port %d: %w", port, err)
	}
	if err = unix.Listen(fd, backlog); err != nil {
		return fd, 0, fmt.Errorf("listen: %w", err)
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		return fd, 0, fmt.Errorf("set listener non-blocking: %w", err)
	}

	sa, err := unix.Getsockname(fd)
	if err != nil {
		return fd, 0, fmt.Errorf("getsockname: %w", err)
	}
	bound = port
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		bound = in4.Port
	}
	return fd, bound, nil
}

// prepareClient configures an accepted descriptor for the reactor.
func prepareClient(fd int) error {
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("set non-blocking: %w", err)
	}
	// TCP_NODELAY: responses are written in one piece, Nagle only delays them.
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		return fmt.Errorf("set TCP_NODELAY: %w", err)
	}
	return nil
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(a.Addr), uint16(a.Port)).String()
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(a.Addr), uint16(a.Port)).String()
	default:
		return "unknown"
	}
}
