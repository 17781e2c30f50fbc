package template

import "github.com/clashgen/clashgen/internal/model"

// Default returns the built-in template. Callers get a fresh copy each time;
// the assembler mutates group membership in place.
func Default() *model.RuleTemplate {
	return &model.RuleTemplate{
		ProxyGroups: []model.ProxyGroup{
			{Name: "🚀 节点选择", Type: "select", Proxies: []string{"♻️ 自动选择", "DIRECT", AllNodes}},
			{
				Name:      "♻️ 自动选择",
				Type:      "url-test",
				URL:       "http://www.gstatic.com/generate_204",
				Interval:  300,
				Tolerance: 50,
				Proxies:   []string{AllNodes},
			},
			{Name: "🌍 国外媒体", Type: "select", Proxies: []string{"🚀 节点选择", "♻️ 自动选择", "🎯 全球直连"}},
			{Name: "📲 电报信息", Type: "select", Proxies: []string{"🚀 节点选择", "🎯 全球直连"}},
			{Name: "Ⓜ️ 微软服务", Type: "select", Proxies: []string{"🚀 节点选择", "🎯 全球直连"}},
			{Name: "🍎 苹果服务", Type: "select", Proxies: []string{"🚀 节点选择", "🎯 全球直连"}},
			{Name: "📢 谷歌FCM", Type: "select", Proxies: []string{"🚀 节点选择", "🎯 全球直连", "♻️ 自动选择"}},
			{Name: "🎯 全球直连", Type: "select", Proxies: []string{"DIRECT", "🚀 节点选择", "♻️ 自动选择"}},
			{Name: "🛑 全球拦截", Type: "select", Proxies: []string{"REJECT", "DIRECT"}},
			{Name: "🍃 应用净化", Type: "select", Proxies: []string{"REJECT", "DIRECT"}},
			{Name: "😈 端口分流匹配", Type: "select", Proxies: []string{"🎯 全球直连", "🚀 节点选择"}},
		},
		Rules: []string{
			"DOMAIN-SUFFIX,local,🎯 全球直连",
			"DOMAIN-SUFFIX,cn,🎯 全球直连",
			"IP-CIDR,127.0.0.0/8,🎯 全球直连,no-resolve",
			"IP-CIDR,192.168.0.0/16,🎯 全球直连,no-resolve",
			"GEOIP,CN,🎯 全球直连",
			"MATCH,🚀 节点选择",
		},
	}
}
