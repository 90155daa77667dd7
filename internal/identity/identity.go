// Package identity reports what is running and where: build version and host
// name, as shown by /api/info and the mDNS TXT record.
package identity

import (
	"os"
	"runtime/debug"
)

// DefaultVersion is reported when no version was stamped into the binary.
const DefaultVersion = "dev"

// version is set at link time:
//
//	go build -ldflags "-X github.com/micro-nova/taskd/internal/identity.version=1.2.0"
var version string

// GetHostname returns the system hostname, or "taskd" if it is unavailable.
func GetHostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "taskd"
	}
	return h
}

// GetVersion returns the link-time version, then the module version from the
// build info, then DefaultVersion.
func GetVersion() string {
	return resolveVersion(version, debug.ReadBuildInfo)
}

func resolveVersion(stamped string, buildInfo func() (*debug.BuildInfo, bool)) string {
	if stamped != "" {
		return stamped
	}
	if bi, ok := buildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return DefaultVersion
}
