// Package template loads the proxy-group/rule skeleton that generated nodes
// and synthesized port rules are spliced into. A missing user template falls
// back to the built-in default.
package template

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clashgen/clashgen/internal/model"
)

// AllNodes is the member placeholder that the assembler expands to every
// merged node name, in merge order.
const AllNodes = "@all"

// Parse decodes a template document and validates its structure. Unknown
// top-level keys are tolerated (full client configs double as templates);
// unknown keys inside a group are not.
func Parse(data []byte) (*model.RuleTemplate, error) {
	var tpl model.RuleTemplate
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&tpl); err != nil {
		return nil, newTemplateError("模板不是合法的 YAML 文档", "检查缩进与引号", err)
	}
	if err := validate(&tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Load reads a template file. An empty path returns the built-in default.
func Load(path string) (*model.RuleTemplate, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newTemplateError("读取模板文件失败", "确认模板路径存在且可读", err)
	}
	return Parse(data)
}

func validate(tpl *model.RuleTemplate) error {
	if len(tpl.ProxyGroups) == 0 {
		return newTemplateError("模板缺少 proxy-groups 段", "模板必须至少定义一个代理组", nil)
	}
	if len(tpl.Rules) == 0 {
		return newTemplateError("模板缺少 rules 段", "模板必须至少包含一条规则", nil)
	}
	seen := make(map[string]struct{}, len(tpl.ProxyGroups))
	for i, g := range tpl.ProxyGroups {
		if g.Name == "" {
			return newTemplateError(fmt.Sprintf("第 %d 个代理组缺少 name", i+1), "", nil)
		}
		if g.Type != "select" && g.Type != "url-test" {
			return newTemplateError(fmt.Sprintf("代理组 %s 的类型 %q 不受支持", g.Name, g.Type), "支持 select 与 url-test", nil)
		}
		if _, dup := seen[g.Name]; dup {
			return newTemplateError(fmt.Sprintf("代理组名称重复：%s", g.Name), "", nil)
		}
		seen[g.Name] = struct{}{}
	}
	return nil
}
