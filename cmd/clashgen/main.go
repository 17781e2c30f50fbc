package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clashgen/clashgen/internal/assemble"
	"github.com/clashgen/clashgen/internal/fetch"
	"github.com/clashgen/clashgen/internal/model"
	"github.com/clashgen/clashgen/internal/pipeline"
	"github.com/clashgen/clashgen/internal/ports"
	"github.com/clashgen/clashgen/internal/preset"
	"github.com/clashgen/clashgen/internal/template"
)

// stringList collects a repeatable flag value.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var subs, files, links stringList
	flag.Var(&subs, "sub", "订阅 URL（可重复）")
	flag.Var(&files, "file", "本地节点文件（可重复）")
	flag.Var(&links, "link", "单条节点链接（可重复）")
	templatePath := flag.String("template", "", "模板文件路径（留空使用内置模板）")
	out := flag.String("out", "config.yaml", "输出文件路径，- 表示标准输出")
	httpPort := flag.Int("port", 7890, "HTTP 代理端口")
	socksPort := flag.Int("socks-port", 7891, "SOCKS 代理端口")
	mapStart := flag.Int("map-start-port", 0, "端口映射起始端口，0 表示关闭端口映射")
	mapListener := flag.String("map-listener", "mixed", "端口映射监听类型：mixed/http/socks")
	mapNodes := flag.String("map-nodes", "", "参与端口映射的节点名（逗号分隔，留空为全部）")
	concurrency := flag.Int("concurrency", 4, "并发拉取的订阅源数量")
	fetchTimeout := flag.Duration("fetch-timeout", 15*time.Second, "单次远程拉取的超时")
	retries := flag.Int("retries", 3, "远程拉取的最大尝试次数")
	retryDelay := flag.Duration("retry-delay", 2*time.Second, "两次拉取尝试之间的等待时间")
	presetPath := flag.String("preset", "", "从预设文件加载运行配置")
	savePreset := flag.String("save-preset", "", "将本次运行配置保存为预设文件")
	logLevel := flag.String("log-level", "info", "日志级别：debug/info/warn/error")
	flag.Parse()

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(lvl)
	}

	sources, cfg := collectInputs(log, *presetPath, subs, files, links)
	if *templatePath != "" {
		cfg.template = *templatePath
	}
	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "至少需要一个订阅源（-sub / -file / -link / -preset）")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tpl, err := template.Load(cfg.template)
	if err != nil {
		log.Fatalf("加载模板失败: %v", err)
	}

	outcome, err := pipeline.Run(ctx, sources, pipeline.Options{
		Concurrency: *concurrency,
		Fetch: fetch.Options{
			Timeout:    *fetchTimeout,
			MaxRetries: *retries,
			RetryDelay: *retryDelay,
		},
		Logger: log,
	})
	if err != nil {
		log.Fatalf("生成中止: %v", err)
	}
	reportSkips(log, outcome.Report)

	var mappings []model.PortMapping
	startPort := *mapStart
	listener := model.ListenerType(*mapListener)
	selectedNames := splitNames(*mapNodes)
	if startPort == 0 && cfg.mapping.Enabled {
		startPort = cfg.mapping.StartPort
		if cfg.mapping.Listener != "" {
			listener = model.ListenerType(cfg.mapping.Listener)
		}
		if len(selectedNames) == 0 {
			selectedNames = cfg.mapping.Nodes
		}
	}
	if startPort > 0 {
		selected := selectNodes(outcome.Nodes, selectedNames)
		mappings, err = ports.Assign(selected, startPort, listener, []int{*httpPort, *socksPort}, nil)
		if err != nil {
			log.Fatalf("端口映射失败: %v", err)
		}
		log.WithField("mappings", len(mappings)).Info("port mappings assigned")
	}

	document, err := assemble.Assemble(outcome.Nodes, tpl, mappings, assemble.Options{
		HTTPPort:  *httpPort,
		SocksPort: *socksPort,
		AllowLan:  true,
	})
	if err != nil {
		log.Fatalf("生成配置失败: %v", err)
	}
	data, err := assemble.MarshalYAML(document)
	if err != nil {
		log.Fatalf("序列化配置失败: %v", err)
	}

	if *out == "-" {
		_, _ = os.Stdout.Write(data)
	} else {
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			log.Fatalf("写入输出文件失败: %v", err)
		}
		log.WithFields(logrus.Fields{
			"out":     *out,
			"proxies": len(document.Proxies),
			"rules":   len(document.Rules),
		}).Info("config written")
	}

	if *savePreset != "" {
		p := buildPreset(sources, cfg.template, *httpPort, *socksPort, startPort, string(listener), selectedNames)
		if err := preset.Save(*savePreset, p); err != nil {
			log.Fatalf("保存预设失败: %v", err)
		}
		log.WithField("preset", *savePreset).Info("preset saved")
	}
}

type presetInputs struct {
	template string
	mapping  preset.MappingSpec
}

// collectInputs merges preset sources (if any) with flag-supplied ones.
// Preset sources come first so their declaration order is stable.
func collectInputs(log *logrus.Logger, presetPath string, subs, files, links stringList) ([]model.SubscriptionSource, presetInputs) {
	var sources []model.SubscriptionSource
	var cfg presetInputs

	if presetPath != "" {
		p, err := preset.Load(presetPath)
		if err != nil {
			log.Fatalf("加载预设失败: %v", err)
		}
		fromPreset, err := p.SubscriptionSources()
		if err != nil {
			log.Fatalf("预设内容不合法: %v", err)
		}
		sources = append(sources, fromPreset...)
		cfg.template = p.Template
		cfg.mapping = p.Mapping
	}

	for _, u := range subs {
		sources = append(sources, model.SubscriptionSource{Origin: u, Kind: model.SourceRemote})
	}
	for _, f := range files {
		sources = append(sources, model.SubscriptionSource{Origin: f, Kind: model.SourceFile})
	}
	for _, l := range links {
		sources = append(sources, model.SubscriptionSource{Origin: l, Kind: model.SourceInline})
	}
	return sources, cfg
}

func reportSkips(log *logrus.Logger, r model.Report) {
	for _, sr := range r.Sources {
		for _, s := range sr.Skipped {
			log.WithFields(logrus.Fields{
				"source": s.Source,
				"link":   s.Link,
				"reason": s.Reason,
			}).Warn("link skipped")
		}
	}
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// selectNodes filters merged nodes down to the requested names, keeping merge
// order. Empty selection means every node.
func selectNodes(nodes []model.CanonicalNode, names []string) []model.CanonicalNode {
	if len(names) == 0 {
		return nodes
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	var out []model.CanonicalNode
	for _, n := range nodes {
		if _, ok := want[n.Name]; ok {
			out = append(out, n)
		}
	}
	return out
}

func buildPreset(sources []model.SubscriptionSource, tplPath string, httpPort, socksPort, mapStart int, listener string, mapNodes []string) *preset.Preset {
	specs := make([]preset.SourceSpec, 0, len(sources))
	for _, s := range sources {
		specs = append(specs, preset.SourceSpec{
			Origin: s.Origin,
			Kind:   s.Kind.String(),
			Tag:    s.Tag,
		})
	}
	return &preset.Preset{
		Sources:   specs,
		Template:  tplPath,
		HTTPPort:  httpPort,
		SocksPort: socksPort,
		Mapping: preset.MappingSpec{
			Enabled:   mapStart > 0,
			StartPort: mapStart,
			Listener:  listener,
			Nodes:     mapNodes,
		},
	}
}
