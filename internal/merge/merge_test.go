package merge

import (
	"reflect"
	"testing"

	"github.com/clashgen/clashgen/internal/model"
)

func trojanNode(name, server string, port int, password, tag string) model.CanonicalNode {
	return model.CanonicalNode{
		Protocol:  model.ProtocolTrojan,
		Name:      name,
		Server:    server,
		Port:      port,
		Auth:      map[string]string{"password": password},
		SourceTag: tag,
	}
}

func TestMerge_DuplicateAcrossSources(t *testing.T) {
	nodes := []model.CanonicalNode{
		trojanNode("a", "9.9.9.9", 443, "p1", "src-1"),
		trojanNode("b", "9.9.9.9", 443, "p1", "src-2"), // same identity, different name
	}

	out := Merge(nodes)
	if len(out) != 1 {
		t.Fatalf("len=%d, want 1", len(out))
	}
	// First seen wins, including its source tag.
	if out[0].Name != "a" || out[0].SourceTag != "src-1" {
		t.Fatalf("kept node=%+v, want first occurrence", out[0])
	}
}

func TestMerge_NameIsNotIdentity(t *testing.T) {
	nodes := []model.CanonicalNode{
		trojanNode("same", "1.1.1.1", 443, "p1", "s"),
		trojanNode("same", "2.2.2.2", 443, "p2", "s"),
		trojanNode("same", "3.3.3.3", 443, "p3", "s"),
	}

	out := Merge(nodes)
	if len(out) != 3 {
		t.Fatalf("len=%d, want 3", len(out))
	}
	got := Names(out)
	want := []string{"same", "same-2", "same-3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("names=%v, want %v", got, want)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	nodes := []model.CanonicalNode{
		trojanNode("a", "1.1.1.1", 443, "p1", "s"),
		trojanNode("a", "2.2.2.2", 443, "p2", "s"),
	}

	once := Merge(nodes)
	twice := Merge(append(append([]model.CanonicalNode{}, once...), once...))
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMerge_OrderPreserved(t *testing.T) {
	nodes := []model.CanonicalNode{
		trojanNode("z", "1.1.1.1", 443, "p1", "s"),
		trojanNode("a", "2.2.2.2", 443, "p2", "s"),
		trojanNode("m", "3.3.3.3", 443, "p3", "s"),
	}

	got := Names(Merge(nodes))
	want := []string{"z", "a", "m"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("names=%v, want insertion order %v", got, want)
	}
}

func TestMerge_ReservedNameRewritten(t *testing.T) {
	out := Merge([]model.CanonicalNode{trojanNode("DIRECT", "1.1.1.1", 443, "p1", "s")})
	if out[0].Name != "trojan-1.1.1.1:443" {
		t.Fatalf("name=%q, want placeholder for reserved name", out[0].Name)
	}
}
