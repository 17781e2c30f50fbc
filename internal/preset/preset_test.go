package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/clashgen/clashgen/internal/model"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "work.yaml")
	in := &Preset{
		Name: "work",
		Sources: []SourceSpec{
			{Origin: "https://example.com/sub", Kind: "remote", Tag: "main"},
			{Origin: "/tmp/nodes.txt", Kind: "file"},
		},
		Template:  "tpl.yaml",
		HTTPPort:  7890,
		SocksPort: 7891,
		Mapping:   MappingSpec{Enabled: true, StartPort: 42000, Listener: "mixed", Nodes: []string{"a"}},
	}

	if err := Save(path, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.Name != "work" || len(out.Sources) != 2 || out.Template != "tpl.yaml" {
		t.Fatalf("loaded=%+v", out)
	}
	if !out.Mapping.Enabled || out.Mapping.StartPort != 42000 || out.Mapping.Listener != "mixed" {
		t.Fatalf("mapping=%+v", out.Mapping)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoad_NoSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("name: empty\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for preset without sources")
	}
}

func TestSubscriptionSources(t *testing.T) {
	p := &Preset{Sources: []SourceSpec{
		{Origin: "https://example.com/a"}, // kind defaults to remote
		{Origin: "trojan://p@h:443#x", Kind: "inline", Tag: "pasted"},
	}}

	srcs, err := p.SubscriptionSources()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if srcs[0].Kind != model.SourceRemote || srcs[1].Kind != model.SourceInline {
		t.Fatalf("kinds=%v,%v", srcs[0].Kind, srcs[1].Kind)
	}
	if srcs[1].Tag != "pasted" {
		t.Fatalf("tag=%q", srcs[1].Tag)
	}
}

func TestSubscriptionSources_BadKind(t *testing.T) {
	p := &Preset{Sources: []SourceSpec{{Origin: "x", Kind: "carrier-pigeon"}}}
	if _, err := p.SubscriptionSources(); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
