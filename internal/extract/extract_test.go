package extract

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/clashgen/clashgen/internal/model"
)

const testUUID = "b831381d-6324-4d53-ad4f-8cda48b30811"

func TestExtract_PlainLinkList(t *testing.T) {
	raw := strings.Join([]string{
		"# comment",
		"",
		"trojan://p1@9.9.9.9:443#t1",
		"trojan://p2@8.8.8.8:443#t2",
	}, "\n")

	res := Extract(raw, "src")
	if res.Unrecognized {
		t.Fatalf("unexpected UNRECOGNIZED_FORMAT")
	}
	if res.Candidates != 2 || len(res.Nodes) != 2 {
		t.Fatalf("candidates=%d nodes=%d, want 2/2", res.Candidates, len(res.Nodes))
	}
	if res.Nodes[0].Name != "t1" || res.Nodes[1].Name != "t2" {
		t.Fatalf("order not preserved: %q, %q", res.Nodes[0].Name, res.Nodes[1].Name)
	}
}

func TestExtract_Base64Blob(t *testing.T) {
	raw := "trojan://p1@9.9.9.9:443#t1\ntrojan://p2@8.8.8.8:443#t2\n"
	blob := base64.StdEncoding.EncodeToString([]byte(raw))

	res := Extract(blob, "src")
	if len(res.Nodes) != 2 {
		t.Fatalf("nodes=%d, want 2", len(res.Nodes))
	}
}

func TestExtract_ClashYAML(t *testing.T) {
	raw := strings.Join([]string{
		"port: 7890",
		"proxies:",
		"  - name: 节点一",
		"    type: trojan",
		"    server: 9.9.9.9",
		"    port: 443",
		"    password: p1",
		"    sni: a.example.com",
		"  - name: ws-node",
		"    type: vmess",
		"    server: 1.2.3.4",
		"    port: 443",
		"    uuid: " + testUUID,
		"    alterId: 0",
		"    network: ws",
		"    ws-opts:",
		"      path: /ws",
		"      headers:",
		"        Host: h.example.com",
	}, "\n")

	res := Extract(raw, "src")
	if res.Candidates != 2 || len(res.Nodes) != 2 {
		t.Fatalf("candidates=%d nodes=%d, want 2/2", res.Candidates, len(res.Nodes))
	}
	if res.Nodes[0].Name != "节点一" || res.Nodes[0].Auth["password"] != "p1" {
		t.Fatalf("first node wrong: %+v", res.Nodes[0])
	}
	if res.Nodes[1].Extra["ws-path"] != "/ws" || res.Nodes[1].Extra["ws-host"] != "h.example.com" {
		t.Fatalf("ws opts not folded: %v", res.Nodes[1].Extra)
	}
}

func TestExtract_JSONProxies(t *testing.T) {
	raw := `{"proxies":[{"name":"j1","type":"ss","server":"ex.com","port":8388,"cipher":"aes-128-gcm","password":"pw"}]}`

	res := Extract(raw, "src")
	if len(res.Nodes) != 1 {
		t.Fatalf("nodes=%d, want 1", len(res.Nodes))
	}
	if res.Nodes[0].Protocol != model.ProtocolSS {
		t.Fatalf("protocol=%q, want ss", res.Nodes[0].Protocol)
	}
}

func TestExtract_BadLineDoesNotAbort(t *testing.T) {
	raw := strings.Join([]string{
		"trojan://p1@9.9.9.9:443#ok",
		"vmess://not-base64!!!",
		"wireguard://x@y:1",
		"trojan://p2@8.8.8.8:443#ok2",
	}, "\n")

	res := Extract(raw, "src")
	if res.Candidates != 4 {
		t.Fatalf("candidates=%d, want 4", res.Candidates)
	}
	if len(res.Nodes) != 2 {
		t.Fatalf("nodes=%d, want 2", len(res.Nodes))
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("skipped=%d, want 2", len(res.Skipped))
	}
	reasons := map[string]bool{}
	for _, s := range res.Skipped {
		reasons[s.Reason] = true
		if s.Source != "src" {
			t.Fatalf("skipped source=%q, want src", s.Source)
		}
	}
	if !reasons[model.CodeMalformedLink] || !reasons[model.CodeUnsupportedProtocol] {
		t.Fatalf("reasons=%v, want MALFORMED_LINK and UNSUPPORTED_PROTOCOL", reasons)
	}
}

func TestExtract_StructuredSkipsBadEntry(t *testing.T) {
	raw := strings.Join([]string{
		"proxies:",
		"  - name: good",
		"    type: trojan",
		"    server: 9.9.9.9",
		"    port: 443",
		"    password: p1",
		"  - name: no-password",
		"    type: trojan",
		"    server: 9.9.9.8",
		"    port: 443",
	}, "\n")

	res := Extract(raw, "src")
	if len(res.Nodes) != 1 || len(res.Skipped) != 1 {
		t.Fatalf("nodes=%d skipped=%d, want 1/1", len(res.Nodes), len(res.Skipped))
	}
	if res.Skipped[0].Link != "no-password" {
		t.Fatalf("skipped link=%q, want entry name", res.Skipped[0].Link)
	}
}

func TestExtract_Unrecognized(t *testing.T) {
	res := Extract("just some prose\nwith no links at all", "src")
	if !res.Unrecognized {
		t.Fatalf("expected UNRECOGNIZED_FORMAT diagnostic")
	}
	if len(res.Nodes) != 0 {
		t.Fatalf("nodes=%d, want 0", len(res.Nodes))
	}
}

func TestExtract_Empty(t *testing.T) {
	if res := Extract("   \n  ", "src"); !res.Unrecognized {
		t.Fatalf("expected UNRECOGNIZED_FORMAT for empty content")
	}
}
