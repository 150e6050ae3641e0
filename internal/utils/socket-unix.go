//go:build linux || darwin

package utils

import (
	"syscall"

	"github.com/rs/zerolog/log"
)

// setSocketOptions enlarges the kernel buffers of a download connection.
func setSocketOptions(fd uintptr) {
	for _, opt := range []int{syscall.SO_RCVBUF, syscall.SO_SNDBUF} {
		if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, opt, socketBufferSize); err != nil {
			log.Debug().Str("op", "utils/socket").Err(err).Msgf("Failed to set socket option %d", opt)
		}
	}
}
