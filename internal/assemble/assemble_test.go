package assemble

import (
	"errors"
	"strings"
	"testing"

	"github.com/clashgen/clashgen/internal/model"
	"github.com/clashgen/clashgen/internal/sub"
	"github.com/clashgen/clashgen/internal/template"
)

func asmErrCode(t *testing.T, err error) string {
	t.Helper()
	var ae *AssembleError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *AssembleError, got %T: %v", err, err)
	}
	return ae.AppError.Code
}

func trojanNode(name, server string) model.CanonicalNode {
	return model.CanonicalNode{
		Protocol: model.ProtocolTrojan,
		Name:     name,
		Server:   server,
		Port:     443,
		Auth:     map[string]string{"password": "p1"},
		Extra:    map[string]string{"sni": "a.example.com"},
	}
}

func TestAssemble_EmptyNodeSet(t *testing.T) {
	cfg, err := Assemble(nil, template.Default(), nil, Options{})
	if cfg != nil {
		t.Fatalf("expected no document on failure")
	}
	if code := asmErrCode(t, err); code != model.CodeEmptyNodeSet {
		t.Fatalf("code=%q, want EMPTY_NODE_SET", code)
	}
}

func TestAssemble_NilTemplate(t *testing.T) {
	_, err := Assemble([]model.CanonicalNode{trojanNode("a", "1.1.1.1")}, nil, nil, Options{})
	if code := asmErrCode(t, err); code != model.CodeTemplateError {
		t.Fatalf("code=%q, want TEMPLATE_ERROR", code)
	}
}

func TestAssemble_AllNodesExpansion(t *testing.T) {
	nodes := []model.CanonicalNode{trojanNode("a", "1.1.1.1"), trojanNode("b", "2.2.2.2")}

	cfg, err := Assemble(nodes, template.Default(), nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 节点选择 keeps its static members ahead of the expanded node list.
	sel := cfg.ProxyGroups[0]
	want := []string{"♻️ 自动选择", "DIRECT", "a", "b"}
	if len(sel.Proxies) != len(want) {
		t.Fatalf("members=%v, want %v", sel.Proxies, want)
	}
	for i := range want {
		if sel.Proxies[i] != want[i] {
			t.Fatalf("members=%v, want %v", sel.Proxies, want)
		}
	}
	// 自动选择 gets only the node list.
	auto := cfg.ProxyGroups[1]
	if len(auto.Proxies) != 2 || auto.Proxies[0] != "a" {
		t.Fatalf("url-test members=%v, want node names only", auto.Proxies)
	}
}

func TestAssemble_AbsentMemberFiltered(t *testing.T) {
	tpl := &model.RuleTemplate{
		ProxyGroups: []model.ProxyGroup{
			{Name: "g", Type: "select", Proxies: []string{"DIRECT", "ghost", "a"}},
		},
		Rules: []string{"MATCH,g"},
	}

	cfg, err := Assemble([]model.CanonicalNode{trojanNode("a", "1.1.1.1")}, tpl, nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := cfg.ProxyGroups[0].Proxies
	if len(got) != 2 || got[0] != "DIRECT" || got[1] != "a" {
		t.Fatalf("members=%v, want [DIRECT a]", got)
	}
}

func TestAssemble_PortRulesFirst(t *testing.T) {
	nodes := []model.CanonicalNode{trojanNode("a", "1.1.1.1")}
	tpl := &model.RuleTemplate{
		ProxyGroups: []model.ProxyGroup{{Name: "g", Type: "select", Proxies: []string{"@all"}}},
		Rules: []string{
			"DST-PORT,40000,stale", // stale duplicate from a previous run
			"GEOIP,CN,DIRECT",
			"MATCH,g",
		},
	}
	mappings := []model.PortMapping{
		{NodeName: "a", Port: 42000, Listener: model.ListenerMixed},
	}

	cfg, err := Assemble(nodes, tpl, mappings, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"DST-PORT,42000,a", "GEOIP,CN,DIRECT", "MATCH,g"}
	if len(cfg.Rules) != len(want) {
		t.Fatalf("rules=%v, want %v", cfg.Rules, want)
	}
	for i := range want {
		if cfg.Rules[i] != want[i] {
			t.Fatalf("rules=%v, want %v", cfg.Rules, want)
		}
	}
}

func TestAssemble_Listeners(t *testing.T) {
	nodes := []model.CanonicalNode{trojanNode("a", "1.1.1.1"), trojanNode("b", "2.2.2.2")}
	tpl := &model.RuleTemplate{
		ProxyGroups: []model.ProxyGroup{{Name: "g", Type: "select", Proxies: []string{"@all"}}},
		Rules:       []string{"MATCH,g"},
	}
	mappings := []model.PortMapping{
		{NodeName: "a", Port: 42000, Listener: model.ListenerMixed},
		{NodeName: "b", Port: 42001, Listener: model.ListenerMixed},
	}

	cfg, err := Assemble(nodes, tpl, mappings, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Listeners) != 2 {
		t.Fatalf("listeners=%d, want 2", len(cfg.Listeners))
	}
	if cfg.Listeners[0].Name != "mixed0" || cfg.Listeners[1].Name != "mixed1" {
		t.Fatalf("names=%q,%q, want mixed0,mixed1", cfg.Listeners[0].Name, cfg.Listeners[1].Name)
	}
	if cfg.Listeners[0].Proxy != "a" || cfg.Listeners[0].Port != 42000 {
		t.Fatalf("listener[0]=%+v", cfg.Listeners[0])
	}
}

func TestAssemble_MappingToUnknownNode(t *testing.T) {
	nodes := []model.CanonicalNode{trojanNode("a", "1.1.1.1")}
	mappings := []model.PortMapping{{NodeName: "gone", Port: 42000, Listener: model.ListenerMixed}}

	_, err := Assemble(nodes, template.Default(), mappings, Options{})
	if code := asmErrCode(t, err); code != model.CodePortConflict {
		t.Fatalf("code=%q, want PORT_CONFLICT", code)
	}
}

func TestAssemble_BaseConfigDefaults(t *testing.T) {
	cfg, err := Assemble([]model.CanonicalNode{trojanNode("a", "1.1.1.1")}, template.Default(), nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 7890 || cfg.SocksPort != 7891 || cfg.Mode != "Rule" || cfg.LogLevel != "info" {
		t.Fatalf("base config=%+v", cfg)
	}
	if cfg.DNS == nil || !cfg.DNS.Enable || cfg.DNS.EnhancedMode != "fake-ip" {
		t.Fatalf("dns=%+v", cfg.DNS)
	}
}

// Decoding a link and serializing it back must reproduce the link's fields.
func TestRoundTrip_VLESSReality(t *testing.T) {
	link := "vless://b831381d-6324-4d53-ad4f-8cda48b30811@1.2.3.4:8443" +
		"?security=reality&sni=cdn.example.com&fp=firefox&pbk=PUBKEY&sid=0123&type=grpc&serviceName=svc#hk"
	n, err := sub.Decode(link, "src")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	p := clashProxy(n)
	if p.Type != "vless" || p.Server != "1.2.3.4" || p.Port != 8443 {
		t.Fatalf("endpoint=%s %s:%d", p.Type, p.Server, p.Port)
	}
	if p.UUID != "b831381d-6324-4d53-ad4f-8cda48b30811" {
		t.Fatalf("uuid=%q", p.UUID)
	}
	if !p.TLS || p.ServerName != "cdn.example.com" || p.ClientFingerprint != "firefox" {
		t.Fatalf("tls fields: %+v", p)
	}
	if p.RealityOpts == nil || p.RealityOpts.PublicKey != "PUBKEY" || p.RealityOpts.ShortID != "0123" {
		t.Fatalf("reality=%+v", p.RealityOpts)
	}
	if p.Network != "grpc" || p.GRPCOpts == nil || p.GRPCOpts.ServiceName != "svc" {
		t.Fatalf("grpc=%+v", p.GRPCOpts)
	}
}

func TestRoundTrip_Hysteria2(t *testing.T) {
	link := "hysteria2://pass@h2.example.com:443?sni=h2.example.com&obfs=salamander&obfs-password=op&mport=40000-50000#h2"
	n, err := sub.Decode(link, "src")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	p := clashProxy(n)
	if p.Type != "hysteria2" || p.Password != "pass" {
		t.Fatalf("proxy=%+v", p)
	}
	if p.Obfs != "salamander" || p.ObfsPassword != "op" || p.Ports != "40000-50000" {
		t.Fatalf("obfs fields: %+v", p)
	}
	if p.SNI != "h2.example.com" {
		t.Fatalf("sni=%q", p.SNI)
	}
}

func TestMarshalYAML_KeyOrderAndUnicode(t *testing.T) {
	node := trojanNode("香港 01", "1.1.1.1")
	cfg, err := Assemble([]model.CanonicalNode{node}, template.Default(), nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := MarshalYAML(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(out)
	if !strings.HasPrefix(text, "port: 7890\n") {
		t.Fatalf("document must start with port, got %q", text[:40])
	}
	for _, key := range []string{"socks-port:", "allow-lan:", "proxies:", "proxy-groups:", "rules:"} {
		if !strings.Contains(text, key) {
			t.Fatalf("missing %q section", key)
		}
	}
	if !strings.Contains(text, "香港 01") {
		t.Fatalf("unicode name must pass through unescaped")
	}
	if strings.Contains(text, "listeners:") {
		t.Fatalf("no mappings given, listeners section must be absent")
	}
}
