package model

// ClashProxy is the output-side field shape of one node. One flat struct
// covers every protocol; omitempty keeps irrelevant keys out of the YAML.
// Field order here is the key order the consuming client expects.
type ClashProxy struct {
	Name              string       `yaml:"name"`
	Type              string       `yaml:"type"`
	Server            string       `yaml:"server"`
	Port              int          `yaml:"port"`
	UUID              string       `yaml:"uuid,omitempty"`
	AlterID           int          `yaml:"alterId,omitempty"`
	Cipher            string       `yaml:"cipher,omitempty"`
	Password          string       `yaml:"password,omitempty"`
	UDP               bool         `yaml:"udp,omitempty"`
	Network           string       `yaml:"network,omitempty"`
	TLS               bool         `yaml:"tls,omitempty"`
	ServerName        string       `yaml:"servername,omitempty"`
	SNI               string       `yaml:"sni,omitempty"`
	Flow              string       `yaml:"flow,omitempty"`
	ClientFingerprint string       `yaml:"client-fingerprint,omitempty"`
	SkipCertVerify    bool         `yaml:"skip-cert-verify,omitempty"`
	Plugin            string       `yaml:"plugin,omitempty"`
	PluginOpts        *PluginOpts  `yaml:"plugin-opts,omitempty"`
	Protocol          string       `yaml:"protocol,omitempty"`
	ProtocolParam     string       `yaml:"protocol-param,omitempty"`
	Obfs              string       `yaml:"obfs,omitempty"`
	ObfsParam         string       `yaml:"obfs-param,omitempty"`
	ObfsPassword      string       `yaml:"obfs-password,omitempty"`
	AuthStr           string       `yaml:"auth-str,omitempty"`
	Up                string       `yaml:"up,omitempty"`
	Down              string       `yaml:"down,omitempty"`
	Ports             string       `yaml:"ports,omitempty"`
	WSOpts            *WSOpts      `yaml:"ws-opts,omitempty"`
	H2Opts            *H2Opts      `yaml:"h2-opts,omitempty"`
	GRPCOpts          *GRPCOpts    `yaml:"grpc-opts,omitempty"`
	RealityOpts       *RealityOpts `yaml:"reality-opts,omitempty"`
}

type PluginOpts struct {
	Mode string `yaml:"mode,omitempty"`
	Host string `yaml:"host,omitempty"`
	Path string `yaml:"path,omitempty"`
}

type WSOpts struct {
	Path    string            `yaml:"path,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

type H2Opts struct {
	Path string   `yaml:"path,omitempty"`
	Host []string `yaml:"host,omitempty"`
}

type GRPCOpts struct {
	ServiceName string `yaml:"grpc-service-name"`
}

type RealityOpts struct {
	PublicKey string `yaml:"public-key"`
	ShortID   string `yaml:"short-id,omitempty"`
}

// Listener is one locally bound endpoint routing traffic to a single node.
type Listener struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Port  int    `yaml:"port"`
	Proxy string `yaml:"proxy"`
}

type DNSConfig struct {
	Enable       bool     `yaml:"enable"`
	Listen       string   `yaml:"listen"`
	IPv6         bool     `yaml:"ipv6"`
	EnhancedMode string   `yaml:"enhanced-mode"`
	Nameserver   []string `yaml:"nameserver"`
}

// GeneratedConfig is the final output document. Key order follows the
// declaration order below; node names pass through unescaped.
type GeneratedConfig struct {
	Port               int          `yaml:"port"`
	SocksPort          int          `yaml:"socks-port"`
	AllowLan           bool         `yaml:"allow-lan"`
	Mode               string       `yaml:"mode"`
	LogLevel           string       `yaml:"log-level"`
	ExternalController string       `yaml:"external-controller"`
	DNS                *DNSConfig   `yaml:"dns,omitempty"`
	Proxies            []ClashProxy `yaml:"proxies"`
	ProxyGroups        []ProxyGroup `yaml:"proxy-groups"`
	Rules              []string     `yaml:"rules"`
	Listeners          []Listener   `yaml:"listeners,omitempty"`
}
