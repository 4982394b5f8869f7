package config

import (
	"os"
	"sync"
)

const dockerHostGateway = "host.docker.internal"

var inDocker = sync.OnceValue(func() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
})

// IsRunningInDocker reports whether the process runs in a Docker container (/.dockerenv exists).
func IsRunningInDocker() bool {
	return inDocker()
}

// ResolveHostForDocker points a loopback database server at the Docker host gateway when the
// service itself runs in a container, so the local development defaults keep working there.
func ResolveHostForDocker(host string) string {
	return resolveLoopback(host, IsRunningInDocker())
}

func resolveLoopback(host string, containerized bool) string {
	if !containerized {
		return host
	}
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return dockerHostGateway
	}
	return host
}
