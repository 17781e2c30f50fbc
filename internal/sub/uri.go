package sub

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/clashgen/clashgen/internal/model"
)

// uriParts is the decoded form of a user@host:port?query#fragment link,
// shared by vless/trojan/hysteria/hysteria2.
type uriParts struct {
	user   string
	server string
	port   int
	query  url.Values
	name   string // URL-decoded fragment
}

func parseURIParts(sourceTag, link string) (uriParts, error) {
	u, err := url.Parse(link)
	if err != nil {
		return uriParts{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "链接不是合法 URI", "", err)
	}

	portStr := u.Port()
	if portStr == "" {
		portStr = "443"
	}
	port, err := parsePort(portStr)
	if err != nil {
		return uriParts{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "端口不合法", "", err)
	}

	name := ""
	if u.Fragment != "" {
		name = u.Fragment // net/url already percent-decodes the fragment
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return uriParts{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "query 参数解析失败", "", err)
	}

	return uriParts{
		user:   u.User.Username(),
		server: u.Hostname(),
		port:   port,
		query:  query,
		name:   name,
	}, nil
}

func parseVLESS(sourceTag, link string) (model.CanonicalNode, error) {
	p, err := parseURIParts(sourceTag, link)
	if err != nil {
		return model.CanonicalNode{}, err
	}
	if p.user == "" || p.server == "" {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "vless 链接缺少 uuid 或服务器地址", "expected: vless://uuid@host:port", nil)
	}
	if _, err := uuid.Parse(p.user); err != nil {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "vless uuid 不合法", "", err)
	}

	extra := map[string]string{}

	network := p.query.Get("type")
	if network == "" {
		network = "tcp"
	}
	if network != "tcp" {
		extra["network"] = network
	}

	security := p.query.Get("security")
	switch security {
	case "tls", "reality":
		extra["tls"] = "true"
		if sni := p.query.Get("sni"); sni != "" {
			extra["servername"] = sni
		} else {
			extra["servername"] = p.server
		}
		fp := p.query.Get("fp")
		if fp == "" {
			fp = "chrome"
		}
		extra["client-fingerprint"] = fp
		if flow := p.query.Get("flow"); flow != "" {
			extra["flow"] = flow
		}
	}
	if security == "reality" {
		pbk := p.query.Get("pbk")
		if pbk == "" {
			return model.CanonicalNode{}, newDecodeError(sourceTag, link,
				model.CodeMalformedLink, "vless REALITY 节点缺少 public key（pbk）", "", nil)
		}
		extra["reality-public-key"] = pbk
		if sid := p.query.Get("sid"); sid != "" {
			extra["reality-short-id"] = sid
		}
	}

	switch network {
	case "ws":
		path := p.query.Get("path")
		if path == "" {
			path = "/"
		}
		extra["ws-path"] = path
		host := p.query.Get("host")
		if host == "" {
			host = p.server
		}
		extra["ws-host"] = host
	case "grpc":
		extra["grpc-service-name"] = p.query.Get("serviceName")
	}

	return model.CanonicalNode{
		Protocol: model.ProtocolVLESS,
		Name:     p.name,
		Server:   p.server,
		Port:     p.port,
		Auth:     map[string]string{"uuid": p.user},
		Extra:    extra,
	}, nil
}

func parseTrojan(sourceTag, link string) (model.CanonicalNode, error) {
	p, err := parseURIParts(sourceTag, link)
	if err != nil {
		return model.CanonicalNode{}, err
	}
	if p.user == "" || p.server == "" {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "trojan 链接缺少密码或服务器地址", "expected: trojan://password@host:port", nil)
	}

	extra := map[string]string{}
	// sni with "peer" as the legacy alias.
	if sni := p.query.Get("sni"); sni != "" {
		extra["sni"] = sni
	} else if peer := p.query.Get("peer"); peer != "" {
		extra["sni"] = peer
	}
	if p.query.Get("allowInsecure") == "1" {
		extra["skip-cert-verify"] = "true"
	}

	return model.CanonicalNode{
		Protocol: model.ProtocolTrojan,
		Name:     p.name,
		Server:   p.server,
		Port:     p.port,
		Auth:     map[string]string{"password": p.user},
		Extra:    extra,
	}, nil
}

func parseHysteria(sourceTag, link string) (model.CanonicalNode, error) {
	p, err := parseURIParts(sourceTag, link)
	if err != nil {
		return model.CanonicalNode{}, err
	}
	if p.server == "" {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "hysteria 链接缺少服务器地址", "", nil)
	}

	auth := p.user
	if auth == "" {
		auth = p.query.Get("auth")
	}

	extra := map[string]string{}
	if proto := p.query.Get("protocol"); proto != "" && proto != "udp" {
		extra["protocol"] = proto
	}
	if up := p.query.Get("upmbps"); up != "" {
		extra["up"] = up
	}
	if down := p.query.Get("downmbps"); down != "" {
		extra["down"] = down
	}
	if sni := p.query.Get("peer"); sni != "" {
		extra["sni"] = sni
	} else if sni := p.query.Get("sni"); sni != "" {
		extra["sni"] = sni
	}
	if p.query.Has("insecure") {
		extra["skip-cert-verify"] = "true"
	}

	return model.CanonicalNode{
		Protocol: model.ProtocolHysteria,
		Name:     p.name,
		Server:   p.server,
		Port:     p.port,
		Auth:     map[string]string{"auth-str": auth},
		Extra:    extra,
	}, nil
}

func parseHysteria2(sourceTag, link string) (model.CanonicalNode, error) {
	p, err := parseURIParts(sourceTag, link)
	if err != nil {
		return model.CanonicalNode{}, err
	}
	if p.server == "" {
		return model.CanonicalNode{}, newDecodeError(sourceTag, link,
			model.CodeMalformedLink, "hysteria2 链接缺少服务器地址", "", nil)
	}

	password := p.user
	if password == "" {
		password = p.query.Get("password")
	}
	if password == "" {
		password = p.query.Get("auth")
	}

	extra := map[string]string{}
	sni := p.query.Get("sni")
	if sni == "" {
		sni = p.query.Get("peer")
	}
	if sni == "" {
		sni = p.server
	}
	extra["sni"] = sni
	if p.query.Has("insecure") || p.query.Has("allowInsecure") {
		extra["skip-cert-verify"] = "true"
	}

	obfs := p.query.Get("obfs")
	obfsPassword := p.query.Get("obfs-password")
	if obfs != "" && obfsPassword != "" {
		extra["obfs"] = obfs
		extra["obfs-password"] = obfsPassword
	}
	if mport := p.query.Get("mport"); mport != "" {
		extra["mport"] = mport
	}
	fp := p.query.Get("fingerprint")
	if fp == "" {
		fp = "chrome"
	}
	extra["client-fingerprint"] = fp

	name := p.name
	if strings.Contains(name, "%") {
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
	}

	return model.CanonicalNode{
		Protocol: model.ProtocolHysteria2,
		Name:     name,
		Server:   p.server,
		Port:     p.port,
		Auth:     map[string]string{"password": password},
		Extra:    extra,
	}, nil
}
