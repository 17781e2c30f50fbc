package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clashgen/clashgen/internal/model"
)

// scalarExtraKeys are the optional Clash entry fields carried into
// CanonicalNode.Extra as-is. Unknown keys in an entry are ignored.
var scalarExtraKeys = []string{
	"network", "tls", "servername", "sni", "flow", "client-fingerprint",
	"skip-cert-verify", "plugin", "protocol", "protocol-param",
	"obfs", "obfs-param", "obfs-password", "up", "down", "ports",
}

type entryError struct {
	code string
	msg  string
}

func (e *entryError) Error() string { return fmt.Sprintf("%s: %s", e.code, e.msg) }

// nodeFromStructured builds a CanonicalNode straight from a Clash-shaped
// proxy entry, bypassing the link decoder.
func nodeFromStructured(entry map[string]any, sourceTag string) (model.CanonicalNode, error) {
	proto := model.Protocol(fieldString(entry, "type"))
	if !proto.Valid() {
		return model.CanonicalNode{}, &entryError{model.CodeUnsupportedProtocol, fmt.Sprintf("unsupported proxy type %q", proto)}
	}

	server := fieldString(entry, "server")
	port := fieldInt(entry, "port")
	if server == "" || port < 1 || port > 65535 {
		return model.CanonicalNode{}, &entryError{model.CodeMalformedLink, "missing or invalid server/port"}
	}

	auth := map[string]string{}
	for _, k := range model.RequiredAuthKeys[proto] {
		v := fieldString(entry, k)
		if v == "" && k == "auth-str" {
			v = fieldString(entry, "auth_str")
		}
		if v == "" {
			return model.CanonicalNode{}, &entryError{model.CodeMalformedLink, fmt.Sprintf("missing credential field %q", k)}
		}
		auth[k] = v
	}

	extra := map[string]string{}
	for _, k := range scalarExtraKeys {
		if v := fieldString(entry, k); v != "" && v != "false" {
			extra[k] = v
		}
	}
	if proto == model.ProtocolVMess {
		if v := fieldString(entry, "alterId"); v != "" {
			extra["alterId"] = v
		}
		if v := fieldString(entry, "cipher"); v != "" {
			extra["cipher"] = v
		}
	}
	foldTransportOpts(entry, extra)

	name := fieldString(entry, "name")
	if name == "" {
		name = fmt.Sprintf("%s-%s:%d", proto, server, port)
	}

	return model.CanonicalNode{
		Protocol:  proto,
		Name:      name,
		Server:    server,
		Port:      port,
		Auth:      auth,
		Extra:     extra,
		SourceTag: sourceTag,
	}, nil
}

// foldTransportOpts flattens nested ws-opts/h2-opts/grpc-opts/reality-opts
// and plugin-opts into the flat extra key set the assembler reads back.
func foldTransportOpts(entry map[string]any, extra map[string]string) {
	if opts, ok := entry["ws-opts"].(map[string]any); ok {
		if v := fieldString(opts, "path"); v != "" {
			extra["ws-path"] = v
		}
		if headers, ok := opts["headers"].(map[string]any); ok {
			if v := fieldString(headers, "Host"); v != "" {
				extra["ws-host"] = v
			}
		}
	}
	if opts, ok := entry["h2-opts"].(map[string]any); ok {
		if v := fieldString(opts, "path"); v != "" {
			extra["h2-path"] = v
		}
		if hosts, ok := opts["host"].([]any); ok && len(hosts) > 0 {
			extra["h2-host"] = fmt.Sprintf("%v", hosts[0])
		}
	}
	if opts, ok := entry["grpc-opts"].(map[string]any); ok {
		if v := fieldString(opts, "grpc-service-name"); v != "" {
			extra["grpc-service-name"] = v
		}
	}
	if opts, ok := entry["reality-opts"].(map[string]any); ok {
		if v := fieldString(opts, "public-key"); v != "" {
			extra["reality-public-key"] = v
		}
		if v := fieldString(opts, "short-id"); v != "" {
			extra["reality-short-id"] = v
		}
	}
	if opts, ok := entry["plugin-opts"].(map[string]any); ok {
		if v := fieldString(opts, "mode"); v != "" {
			extra["obfs-mode"] = v
		}
		if v := fieldString(opts, "host"); v != "" {
			extra["obfs-host"] = v
		}
	}
}

func fieldString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatInt(int64(t), 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func fieldInt(m map[string]any, key string) int {
	s := fieldString(m, key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
