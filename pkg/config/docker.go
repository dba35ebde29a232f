package config

import (
	"os"
	"sync"
)

// inContainer reports whether sqleval runs inside a Docker container.
// It is a variable so tests can replace it.
var inContainer = sync.OnceValue(func() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
})

// dockerHostGateway is the name Docker gives the host machine.
const dockerHostGateway = "host.docker.internal"

// ResolvedHost returns the datasource host as reachable from this process.
// Inside a container, loopback addresses name the container itself, so a
// database running on the host is reached through the Docker host gateway.
func (d *DatasourceConfig) ResolvedHost() string {
	if !inContainer() {
		return d.Host
	}
	switch d.Host {
	case "localhost", "127.0.0.1", "::1":
		return dockerHostGateway
	}
	return d.Host
}
