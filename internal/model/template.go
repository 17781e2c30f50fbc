package model

// ProxyGroup is one proxy-group definition, both in templates and in the
// generated output. The member placeholder "@all" expands to every merged
// node name during assembly.
type ProxyGroup struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"` // "select" | "url-test"
	Proxies   []string `yaml:"proxies"`
	URL       string   `yaml:"url,omitempty"`
	Interval  int      `yaml:"interval,omitempty"`
	Tolerance int      `yaml:"tolerance,omitempty"`
}

// RuleTemplate is the skeleton of proxy groups and routing rules into which
// generated nodes and synthesized port-mapping rules are spliced. Rules stay
// opaque "TYPE,VALUE,ACTION" strings; the assembler only prepends to them.
type RuleTemplate struct {
	ProxyGroups []ProxyGroup `yaml:"proxy-groups"`
	Rules       []string     `yaml:"rules"`
}
