package assemble

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/clashgen/clashgen/internal/model"
)

// MarshalYAML renders the document with the key order the consuming client
// expects. yaml.v3 emits struct fields in declaration order and passes
// Unicode names through unescaped.
func MarshalYAML(cfg *model.GeneratedConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, &AssembleError{AppError: model.AppError{
			Code:    model.CodeTemplateError,
			Message: "配置序列化失败",
			Stage:   "assemble_config",
		}}
	}
	if err := enc.Close(); err != nil {
		return nil, &AssembleError{AppError: model.AppError{
			Code:    model.CodeTemplateError,
			Message: "配置序列化失败",
			Stage:   "assemble_config",
		}}
	}
	return buf.Bytes(), nil
}
