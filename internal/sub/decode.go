// Package sub decodes proxy-node share links into canonical node records.
package sub

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/clashgen/clashgen/internal/model"
)

type DecodeError struct {
	AppError model.AppError
	Cause    error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Decode parses a single node link into a CanonicalNode. It is a pure
// function over the input string: no I/O, no shared state.
//
// Dispatch is on the URI scheme prefix; each protocol has its own payload
// encoding. Unknown schemes fail with UNSUPPORTED_PROTOCOL, anything that
// cannot yield the protocol's required fields fails with MALFORMED_LINK.
func Decode(link string, sourceTag string) (model.CanonicalNode, error) {
	s := strings.TrimSpace(link)
	scheme, payload, ok := strings.Cut(s, "://")
	if !ok || payload == "" {
		return model.CanonicalNode{}, newDecodeError(sourceTag, s,
			model.CodeMalformedLink, "链接缺少协议前缀", "expected: <scheme>://...", nil)
	}

	var (
		node model.CanonicalNode
		err  error
	)
	switch proto := model.Protocol(strings.ToLower(scheme)); proto {
	case model.ProtocolVMess:
		node, err = parseVMess(sourceTag, s, payload)
	case model.ProtocolVLESS:
		node, err = parseVLESS(sourceTag, s)
	case model.ProtocolTrojan:
		node, err = parseTrojan(sourceTag, s)
	case model.ProtocolHysteria:
		node, err = parseHysteria(sourceTag, s)
	case model.ProtocolHysteria2:
		node, err = parseHysteria2(sourceTag, s)
	case model.ProtocolSS:
		node, err = parseSS(sourceTag, s, payload)
	case model.ProtocolSSR:
		node, err = parseSSR(sourceTag, s, payload)
	default:
		return model.CanonicalNode{}, newDecodeError(sourceTag, s,
			model.CodeUnsupportedProtocol, fmt.Sprintf("不支持的协议：%s", scheme), "", nil)
	}
	if err != nil {
		return model.CanonicalNode{}, err
	}

	node.SourceTag = sourceTag
	node.Name = sanitizeName(node.Name, node.Protocol, node.Server, node.Port)
	if err := validateNode(sourceTag, s, node); err != nil {
		return model.CanonicalNode{}, err
	}
	return node, nil
}

func validateNode(sourceTag, link string, n model.CanonicalNode) error {
	if strings.TrimSpace(n.Server) == "" {
		return newDecodeError(sourceTag, link, model.CodeMalformedLink, "服务器地址为空", "", nil)
	}
	if n.Port < 1 || n.Port > 65535 {
		return newDecodeError(sourceTag, link, model.CodeMalformedLink,
			fmt.Sprintf("端口超出范围：%d", n.Port), "", nil)
	}
	for _, k := range model.RequiredAuthKeys[n.Protocol] {
		if strings.TrimSpace(n.Auth[k]) == "" {
			return newDecodeError(sourceTag, link, model.CodeMalformedLink,
				fmt.Sprintf("缺少必需的凭证字段：%s", k), "", nil)
		}
	}
	return nil
}

// sanitizeName strips control characters, keeps Unicode letters and symbols
// verbatim, and falls back to a generated placeholder when the result is
// empty.
func sanitizeName(name string, proto model.Protocol, server string, port int) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return fmt.Sprintf("%s-%s:%d", proto, server, port)
	}
	return out
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("port out of range: %d", p)
	}
	return p, nil
}

// DecodeBase64 decodes s trying all four base64 alphabets. Exported for the
// format detector, which applies it to whole-content blobs.
func DecodeBase64(s string) ([]byte, error) { return decodeB64(s) }

// decodeB64 tries the standard alphabet first, then URL-safe, then the raw
// (unpadded) variants. Share links in the wild use all four.
func decodeB64(s string) ([]byte, error) {
	s = removeSpaceTabCRLF(s)
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func removeSpaceTabCRLF(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func truncateSnippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func newDecodeError(sourceTag string, link string, code string, message string, hint string, cause error) error {
	return &DecodeError{
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   "decode_link",
			Source:  sourceTag,
			Snippet: truncateSnippet(link, 200),
			Hint:    hint,
		},
		Cause: cause,
	}
}
