package sub

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/clashgen/clashgen/internal/model"
)

// parseVMess decodes the base64(JSON) payload of a vmess:// link.
//
// Field values in the wild are typed loosely ("port": "443" vs 443), so the
// payload is decoded into a generic map and coerced per field.
func parseVMess(sourceTag, link, payload string) (model.CanonicalNode, error) {
	raw, err := decodeB64(payload)
	if err != nil {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "vmess base64 解码失败", "", err)
	}
	if !utf8.Valid(raw) {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "vmess 载荷不是合法 UTF-8", "", nil)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "vmess JSON 解析失败", "", err)
	}

	server := jsonString(fields, "add")
	portStr := jsonString(fields, "port")
	id := jsonString(fields, "id")
	if server == "" || portStr == "" || id == "" {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "vmess 配置缺少必要字段", "required: add, port, id", nil)
	}
	port, err := parsePort(portStr)
	if err != nil {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "vmess 端口不合法", "", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "vmess uuid 不合法", "", err)
	}

	name := jsonString(fields, "ps")
	if strings.Contains(name, "%") {
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
	}

	extra := map[string]string{}
	if aid := jsonString(fields, "aid"); aid != "" {
		if _, err := strconv.Atoi(aid); err != nil {
			return model.CanonicalNode{}, newDecodeError(sourceTag, link,
				model.CodeMalformedLink, "vmess alterId 不合法", "", err)
		}
		extra["alterId"] = aid
	}
	if scy := jsonString(fields, "scy"); scy != "" {
		extra["cipher"] = scy
	}

	network := jsonString(fields, "net")
	if network == "" {
		network = "tcp"
	}
	if network != "tcp" {
		extra["network"] = network
	}
	if jsonString(fields, "tls") == "tls" {
		extra["tls"] = "true"
		if sni := jsonString(fields, "sni"); sni != "" {
			extra["servername"] = sni
		}
	}

	host := jsonString(fields, "host")
	path := jsonString(fields, "path")
	switch network {
	case "ws":
		if path == "" {
			path = "/"
		}
		extra["ws-path"] = path
		if host != "" {
			extra["ws-host"] = host
		}
	case "h2":
		if path == "" {
			path = "/"
		}
		extra["h2-path"] = path
		if host != "" {
			extra["h2-host"] = host
		}
	case "grpc":
		extra["grpc-service-name"] = path
	}

	return model.CanonicalNode{
		Protocol: model.ProtocolVMess,
		Name:     name,
		Server:   server,
		Port:     port,
		Auth:     map[string]string{"uuid": id},
		Extra:    extra,
	}, nil
}

// jsonString coerces a loosely-typed JSON field to its string form.
func jsonString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return fmt.Sprintf("%v", t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
