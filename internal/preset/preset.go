// Package preset saves and loads the input side of a generation run
// (sources, template choice, port settings) as a named YAML file. It never
// touches decoded nodes or generated configs.
package preset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clashgen/clashgen/internal/model"
)

type PresetError struct {
	AppError model.AppError
	Cause    error
}

func (e *PresetError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *PresetError) Unwrap() error { return e.Cause }

func newPresetError(msg string, cause error) *PresetError {
	return &PresetError{
		AppError: model.AppError{
			Code:    model.CodeReadError,
			Message: msg,
			Stage:   "load_preset",
		},
		Cause: cause,
	}
}

type SourceSpec struct {
	Origin string `yaml:"origin"`
	Kind   string `yaml:"kind"` // "remote" | "inline" | "file"
	Tag    string `yaml:"tag,omitempty"`
}

type MappingSpec struct {
	Enabled   bool     `yaml:"enabled"`
	StartPort int      `yaml:"start-port,omitempty"`
	Listener  string   `yaml:"listener,omitempty"` // "http" | "socks" | "mixed"
	Nodes     []string `yaml:"nodes,omitempty"`    // selected node names; empty means all
}

// Preset is the persisted input configuration of one generation run.
type Preset struct {
	Name      string       `yaml:"name,omitempty"`
	Sources   []SourceSpec `yaml:"sources"`
	Template  string       `yaml:"template,omitempty"`
	HTTPPort  int          `yaml:"port,omitempty"`
	SocksPort int          `yaml:"socks-port,omitempty"`
	Mapping   MappingSpec  `yaml:"port-mapping,omitempty"`
}

// SubscriptionSources converts the persisted specs to run inputs, in
// declaration order.
func (p *Preset) SubscriptionSources() ([]model.SubscriptionSource, error) {
	out := make([]model.SubscriptionSource, 0, len(p.Sources))
	for i, s := range p.Sources {
		var kind model.SourceKind
		switch s.Kind {
		case "remote", "":
			kind = model.SourceRemote
		case "inline":
			kind = model.SourceInline
		case "file":
			kind = model.SourceFile
		default:
			return nil, newPresetError(fmt.Sprintf("第 %d 个订阅源的 kind %q 不受支持", i+1, s.Kind), nil)
		}
		if s.Origin == "" {
			return nil, newPresetError(fmt.Sprintf("第 %d 个订阅源缺少 origin", i+1), nil)
		}
		out = append(out, model.SubscriptionSource{Origin: s.Origin, Kind: kind, Tag: s.Tag})
	}
	return out, nil
}

func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newPresetError("读取预设文件失败", err)
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, newPresetError("预设文件不是合法的 YAML", err)
	}
	if len(p.Sources) == 0 {
		return nil, newPresetError("预设文件没有任何订阅源", nil)
	}
	return &p, nil
}

func Save(path string, p *Preset) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return newPresetError("预设序列化失败", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newPresetError("写入预设文件失败", err)
	}
	return nil
}
