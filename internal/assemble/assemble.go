// Package assemble combines merged nodes, a rule template and a port-mapping
// table into the final client configuration document.
package assemble

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/clashgen/clashgen/internal/model"
	"github.com/clashgen/clashgen/internal/template"
)

type AssembleError struct {
	AppError model.AppError
}

func (e *AssembleError) Error() string {
	return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
}

// Options carry the base client settings placed ahead of proxies/groups/rules.
type Options struct {
	HTTPPort           int    // default 7890
	SocksPort          int    // default 7891
	AllowLan           bool
	Mode               string // default "Rule"
	LogLevel           string // default "info"
	ExternalController string // default ":9090"
	DNS                *model.DNSConfig
}

func (o Options) withDefaults() Options {
	if o.HTTPPort == 0 {
		o.HTTPPort = 7890
	}
	if o.SocksPort == 0 {
		o.SocksPort = 7891
	}
	if o.Mode == "" {
		o.Mode = "Rule"
	}
	if o.LogLevel == "" {
		o.LogLevel = "info"
	}
	if o.ExternalController == "" {
		o.ExternalController = ":9090"
	}
	if o.DNS == nil {
		o.DNS = &model.DNSConfig{
			Enable:       true,
			Listen:       "0.0.0.0:53",
			IPv6:         true,
			EnhancedMode: "fake-ip",
			Nameserver:   []string{"114.114.114.114", "8.8.8.8", "223.5.5.5"},
		}
	}
	return o
}

// Assemble builds the output document. Synthesized DST-PORT rules go ahead of
// all template rules so mapped-port traffic never reaches normal rule
// evaluation; template rules that are themselves DST-PORT rules are dropped
// to avoid stale duplicates.
func Assemble(nodes []model.CanonicalNode, tpl *model.RuleTemplate, mappings []model.PortMapping, opt Options) (*model.GeneratedConfig, error) {
	opt = opt.withDefaults()

	if tpl == nil || len(tpl.ProxyGroups) == 0 || len(tpl.Rules) == 0 {
		return nil, &AssembleError{AppError: model.AppError{
			Code:    model.CodeTemplateError,
			Message: "模板缺少 proxy-groups 或 rules 段",
			Stage:   "assemble_config",
		}}
	}
	if len(nodes) == 0 && templateNeedsNodes(tpl) {
		return nil, &AssembleError{AppError: model.AppError{
			Code:    model.CodeEmptyNodeSet,
			Message: "没有可用节点，无法生成配置",
			Stage:   "assemble_config",
			Hint:    "检查订阅源是否有效，或查看跳过原因报告",
		}}
	}

	names := lo.Map(nodes, func(n model.CanonicalNode, _ int) string { return n.Name })
	nameSet := make(map[string]struct{}, len(names))
	for _, name := range names {
		nameSet[name] = struct{}{}
	}
	for _, m := range mappings {
		if _, ok := nameSet[m.NodeName]; !ok {
			return nil, &AssembleError{AppError: model.AppError{
				Code:    model.CodePortConflict,
				Message: fmt.Sprintf("端口映射引用了不存在的节点：%s", m.NodeName),
				Stage:   "assemble_config",
			}}
		}
	}

	cfg := &model.GeneratedConfig{
		Port:               opt.HTTPPort,
		SocksPort:          opt.SocksPort,
		AllowLan:           opt.AllowLan,
		Mode:               opt.Mode,
		LogLevel:           opt.LogLevel,
		ExternalController: opt.ExternalController,
		DNS:                opt.DNS,
		Proxies:            lo.Map(nodes, func(n model.CanonicalNode, _ int) model.ClashProxy { return clashProxy(n) }),
		ProxyGroups:        buildGroups(tpl, names, nameSet),
		Rules:              buildRules(tpl, mappings),
		Listeners:          buildListeners(mappings),
	}
	return cfg, nil
}

func templateNeedsNodes(tpl *model.RuleTemplate) bool {
	for _, g := range tpl.ProxyGroups {
		if lo.Contains(g.Proxies, template.AllNodes) {
			return true
		}
	}
	return false
}

// buildGroups expands the "@all" placeholder to the merged node names at its
// declared position and filters explicit members down to names that exist
// (nodes, other groups, DIRECT/REJECT).
func buildGroups(tpl *model.RuleTemplate, names []string, nameSet map[string]struct{}) []model.ProxyGroup {
	groupSet := make(map[string]struct{}, len(tpl.ProxyGroups))
	for _, g := range tpl.ProxyGroups {
		groupSet[g.Name] = struct{}{}
	}

	out := make([]model.ProxyGroup, 0, len(tpl.ProxyGroups))
	for _, g := range tpl.ProxyGroups {
		members := make([]string, 0, len(g.Proxies)+len(names))
		for _, m := range g.Proxies {
			if m == template.AllNodes {
				members = append(members, names...)
				continue
			}
			if m == "DIRECT" || m == "REJECT" {
				members = append(members, m)
				continue
			}
			_, isGroup := groupSet[m]
			_, isNode := nameSet[m]
			if isGroup || isNode {
				members = append(members, m)
			}
		}
		g.Proxies = members
		out = append(out, g)
	}
	return out
}

func buildRules(tpl *model.RuleTemplate, mappings []model.PortMapping) []string {
	synthesized := lo.Map(mappings, func(m model.PortMapping, _ int) string {
		return fmt.Sprintf("DST-PORT,%d,%s", m.Port, m.NodeName)
	})
	kept := lo.Filter(tpl.Rules, func(r string, _ int) bool {
		return !strings.HasPrefix(r, "DST-PORT,")
	})
	return append(synthesized, kept...)
}

func buildListeners(mappings []model.PortMapping) []model.Listener {
	out := make([]model.Listener, 0, len(mappings))
	for i, m := range mappings {
		out = append(out, model.Listener{
			Name:  string(m.Listener) + strconv.Itoa(i),
			Type:  string(m.Listener),
			Port:  m.Port,
			Proxy: m.NodeName,
		})
	}
	return out
}
