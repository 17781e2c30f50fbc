package model

import (
	"sort"
	"strconv"
	"strings"
)

// Protocol is the closed set of supported proxy protocols. Adding a protocol
// means extending this enumeration and the per-protocol decode/serialize
// switches; the compiler then flags every place that needs handling.
type Protocol string

const (
	ProtocolVLESS     Protocol = "vless"
	ProtocolVMess     Protocol = "vmess"
	ProtocolSS        Protocol = "ss"
	ProtocolSSR       Protocol = "ssr"
	ProtocolTrojan    Protocol = "trojan"
	ProtocolHysteria  Protocol = "hysteria"
	ProtocolHysteria2 Protocol = "hysteria2"
)

func (p Protocol) Valid() bool {
	switch p {
	case ProtocolVLESS, ProtocolVMess, ProtocolSS, ProtocolSSR,
		ProtocolTrojan, ProtocolHysteria, ProtocolHysteria2:
		return true
	}
	return false
}

// RequiredAuthKeys lists the credential fields that must be present in
// CanonicalNode.Auth for each protocol.
var RequiredAuthKeys = map[Protocol][]string{
	ProtocolVLESS:     {"uuid"},
	ProtocolVMess:     {"uuid"},
	ProtocolSS:        {"cipher", "password"},
	ProtocolSSR:       {"cipher", "password"},
	ProtocolTrojan:    {"password"},
	ProtocolHysteria:  {"auth-str"},
	ProtocolHysteria2: {"password"},
}

// CanonicalNode is the normalized representation of one proxy endpoint,
// independent of the link encoding it came from.
//
// Name is display-only and not part of the node identity. Auth holds the
// protocol-specific credential bundle; Extra holds optional protocol
// parameters (transport, TLS, SNI, obfuscation, Reality) as flat key/value
// pairs. Unknown extra keys are ignored downstream.
type CanonicalNode struct {
	Protocol  Protocol
	Name      string
	Server    string
	Port      int
	Auth      map[string]string
	Extra     map[string]string
	SourceTag string
}

// IdentityKey builds the deduplication fingerprint over
// (protocol, server, port, auth). Auth keys are sorted so the key is stable
// regardless of map iteration order.
func (n CanonicalNode) IdentityKey() string {
	var b strings.Builder
	b.Grow(96)
	b.WriteString(string(n.Protocol))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(n.Server))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(n.Port))
	keys := make([]string, 0, len(n.Auth))
	for k := range n.Auth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(n.Auth[k])
	}
	return b.String()
}
