package enums

// ConnectionState describes the replica's view of server connectivity.
type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionSyncing      ConnectionState = "syncing"
	ConnectionConnected    ConnectionState = "connected"
)

// String implements fmt.Stringer.
func (c ConnectionState) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConnectionState.
func (c ConnectionState) IsValid() bool {
	switch c {
	case ConnectionDisconnected, ConnectionSyncing, ConnectionConnected:
		return true
	}
	return false
}
