// FILE: src/internal/core/const.go
package core

const (
	// DefaultCapacity is the bounded buffer size used when config does not override it.
	DefaultCapacity = 1000

	// DefaultTarget tags records produced by the local interceptor.
	DefaultTarget = "frontend"

	// DefaultRemoteTarget tags remote events that arrive without a target.
	DefaultRemoteTarget = "remote"

	// RemoteLogChannel names the push channel the host process emits on.
	RemoteLogChannel = "remote-log"
)
