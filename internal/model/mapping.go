package model

type ListenerType string

const (
	ListenerHTTP  ListenerType = "http"
	ListenerSocks ListenerType = "socks"
	ListenerMixed ListenerType = "mixed"
)

func (t ListenerType) Valid() bool {
	return t == ListenerHTTP || t == ListenerSocks || t == ListenerMixed
}

// PortMapping binds one dedicated listener port to one node. Ports are unique
// within a mapping table and disjoint from the base HTTP/socks ports.
type PortMapping struct {
	NodeKey  string // CanonicalNode.IdentityKey()
	NodeName string // final display name after merge
	Port     int
	Listener ListenerType
}
