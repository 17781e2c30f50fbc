package sub

import (
	"net"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/clashgen/clashgen/internal/model"
)

// parseSS handles both SIP002 form ss://base64(method:password)@host:port
// and the legacy fully encoded form ss://base64(method:password@host:port).
// Both are attempted; the first successful decode wins.
func parseSS(sourceTag, link, payload string) (model.CanonicalNode, error) {
	withoutFrag, frag, hasFrag := strings.Cut(payload, "#")
	name := ""
	if hasFrag {
		if decoded, err := url.PathUnescape(frag); err == nil {
			name = decoded
		} else {
			name = frag
		}
	}

	withoutQuery, query, _ := strings.Cut(withoutFrag, "?")
	withoutQuery = strings.TrimSuffix(withoutQuery, "/")

	var method, password, server string
	var port int

	if userPart, hostPart, ok := strings.Cut(withoutQuery, "@"); ok {
		// SIP002: only the userinfo is base64. Some producers skip the
		// encoding entirely and ship method:password verbatim.
		decoded, err := decodeB64(userPart)
		auth := userPart
		if err == nil && utf8.Valid(decoded) && strings.Contains(string(decoded), ":") {
			auth = string(decoded)
		}
		m, pw, ok := strings.Cut(auth, ":")
		if !ok {
			return model.CanonicalNode{}, newDecodeError(sourceTag, link,
				model.CodeMalformedLink, "ss 认证信息缺少 method:password", "", nil)
		}
		method, password = m, pw

		server, port, err = splitHostPort(hostPart)
		if err != nil {
			return model.CanonicalNode{}, newDecodeError(sourceTag, link,
				model.CodeMalformedLink, "ss 服务器地址或端口不合法", "", err)
		}
	} else {
		// Legacy: the whole payload is one base64 blob.
		decoded, err := decodeB64(withoutQuery)
		if err != nil || !utf8.Valid(decoded) {
			return model.CanonicalNode{}, newDecodeError(sourceTag, link,
				model.CodeMalformedLink, "ss base64 解码失败", "", err)
		}
		text := string(decoded)
		at := strings.LastIndex(text, "@")
		if at < 0 {
			return model.CanonicalNode{}, newDecodeError(sourceTag, link,
				model.CodeMalformedLink, "ss 解码结果缺少 @ 分隔符", "", nil)
		}
		m, pw, ok := strings.Cut(text[:at], ":")
		if !ok {
			return model.CanonicalNode{}, newDecodeError(sourceTag, link,
				model.CodeMalformedLink, "ss 解码结果缺少 method:password", "", nil)
		}
		method, password = m, pw
		server, port, err = splitHostPort(text[at+1:])
		if err != nil {
			return model.CanonicalNode{}, newDecodeError(sourceTag, link,
				model.CodeMalformedLink, "ss 服务器地址或端口不合法", "", err)
		}
	}

	extra := map[string]string{}
	if query != "" {
		if err := parseSSPluginQuery(query, extra); err != nil {
			return model.CanonicalNode{}, newDecodeError(sourceTag, link,
				model.CodeMalformedLink, "ss plugin 参数解析失败", "", err)
		}
	}

	return model.CanonicalNode{
		Protocol: model.ProtocolSS,
		Name:     name,
		Server:   server,
		Port:     port,
		Auth: map[string]string{
			"cipher":   strings.TrimSpace(method),
			"password": password,
		},
		Extra: extra,
	}, nil
}

// parseSSPluginQuery extracts the SIP003 plugin value. The plugin value uses
// semicolons internally, which net/url.ParseQuery rejects, so the query is
// split manually on '&'.
func parseSSPluginQuery(query string, extra map[string]string) error {
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		kRaw, vRaw, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(kRaw)
		if err != nil {
			return err
		}
		if k != "plugin" {
			continue
		}
		v, err := url.QueryUnescape(vRaw)
		if err != nil {
			return err
		}
		segs := strings.Split(v, ";")
		extra["plugin"] = strings.TrimSpace(segs[0])
		for _, seg := range segs[1:] {
			ok, ov, _ := strings.Cut(seg, "=")
			switch strings.TrimSpace(ok) {
			case "obfs":
				extra["obfs-mode"] = strings.TrimSpace(ov)
			case "obfs-host":
				extra["obfs-host"] = strings.TrimSpace(ov)
			}
		}
	}
	return nil
}

// parseSSR decodes the fully base64-encoded ssr:// form:
// host:port:protocol:method:obfs:base64(password)/?params
// where obfsparam/protoparam/remarks/group in params are base64 as well.
func parseSSR(sourceTag, link, payload string) (model.CanonicalNode, error) {
	raw, err := decodeB64(payload)
	if err != nil || !utf8.Valid(raw) {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "ssr base64 解码失败", "", err)
	}
	text := string(raw)

	mainPart, paramPart, _ := strings.Cut(text, "/?")
	fields := strings.Split(mainPart, ":")
	if len(fields) != 6 {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "ssr 字段数量不合法",
			"expected: host:port:protocol:method:obfs:password_base64", nil)
	}
	server := fields[0]
	port, err := parsePort(fields[1])
	if err != nil {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "ssr 端口不合法", "", err)
	}
	passwordRaw, err := decodeB64(fields[5])
	if err != nil || !utf8.Valid(passwordRaw) {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "ssr 密码 base64 解码失败", "", err)
	}

	extra := map[string]string{
		"protocol": fields[2],
		"obfs":     fields[4],
	}
	name := ""
	if paramPart != "" {
		params, err := url.ParseQuery(paramPart)
		if err == nil {
			if v := decodeB64Param(params.Get("obfsparam")); v != "" {
				extra["obfs-param"] = v
			}
			if v := decodeB64Param(params.Get("protoparam")); v != "" {
				extra["protocol-param"] = v
			}
			name = decodeB64Param(params.Get("remarks"))
		}
	}

	return model.CanonicalNode{
		Protocol: model.ProtocolSSR,
		Name:     name,
		Server:   server,
		Port:     port,
		Auth: map[string]string{
			"cipher":   fields[3],
			"password": string(passwordRaw),
		},
		Extra: extra,
	}, nil
}

func decodeB64Param(s string) string {
	if s == "" {
		return ""
	}
	b, err := decodeB64(s)
	if err != nil || !utf8.Valid(b) {
		return ""
	}
	return string(b)
}

func splitHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return "", 0, err
	}
	port, err := parsePort(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}
