package assemble

import (
	"strconv"

	"github.com/clashgen/clashgen/internal/model"
)

// clashProxy serializes one node into its output field shape. The protocol
// switch handles credentials; transport and TLS extras share one generic
// mapping since the decoders already normalized their key names.
func clashProxy(n model.CanonicalNode) model.ClashProxy {
	p := model.ClashProxy{
		Name:   n.Name,
		Type:   string(n.Protocol),
		Server: n.Server,
		Port:   n.Port,
		UDP:    true,
	}
	ex := n.Extra

	switch n.Protocol {
	case model.ProtocolVLESS:
		p.UUID = n.Auth["uuid"]
	case model.ProtocolVMess:
		p.UUID = n.Auth["uuid"]
		if aid, err := strconv.Atoi(ex["alterId"]); err == nil {
			p.AlterID = aid
		}
		p.Cipher = ex["cipher"]
		if p.Cipher == "" {
			p.Cipher = "auto"
		}
	case model.ProtocolSS:
		p.Cipher = n.Auth["cipher"]
		p.Password = n.Auth["password"]
		if plugin := ex["plugin"]; plugin != "" {
			p.Plugin = plugin
			if ex["obfs-mode"] != "" || ex["obfs-host"] != "" {
				p.PluginOpts = &model.PluginOpts{Mode: ex["obfs-mode"], Host: ex["obfs-host"]}
			}
		}
	case model.ProtocolSSR:
		p.Cipher = n.Auth["cipher"]
		p.Password = n.Auth["password"]
	case model.ProtocolTrojan, model.ProtocolHysteria2:
		p.Password = n.Auth["password"]
	case model.ProtocolHysteria:
		p.AuthStr = n.Auth["auth-str"]
	}

	p.Network = ex["network"]
	if ex["tls"] == "true" {
		p.TLS = true
		p.ServerName = ex["servername"]
	}
	p.SNI = ex["sni"]
	p.Flow = ex["flow"]
	p.ClientFingerprint = ex["client-fingerprint"]
	p.SkipCertVerify = ex["skip-cert-verify"] == "true"
	p.Protocol = ex["protocol"]
	p.ProtocolParam = ex["protocol-param"]
	if n.Protocol != model.ProtocolSS {
		p.Obfs = ex["obfs"]
	}
	p.ObfsParam = ex["obfs-param"]
	p.ObfsPassword = ex["obfs-password"]
	p.Up = ex["up"]
	p.Down = ex["down"]
	p.Ports = ex["mport"]
	if p.Ports == "" {
		p.Ports = ex["ports"]
	}

	if path := ex["ws-path"]; path != "" {
		opts := &model.WSOpts{Path: path}
		if host := ex["ws-host"]; host != "" {
			opts.Headers = map[string]string{"Host": host}
		}
		p.WSOpts = opts
	}
	if path := ex["h2-path"]; path != "" {
		opts := &model.H2Opts{Path: path}
		if host := ex["h2-host"]; host != "" {
			opts.Host = []string{host}
		}
		p.H2Opts = opts
	}
	if svc, ok := ex["grpc-service-name"]; ok {
		p.GRPCOpts = &model.GRPCOpts{ServiceName: svc}
	}
	if pbk := ex["reality-public-key"]; pbk != "" {
		p.RealityOpts = &model.RealityOpts{PublicKey: pbk, ShortID: ex["reality-short-id"]}
	}
	return p
}
