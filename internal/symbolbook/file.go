package symbolbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tradewind/internal/logger"
)

// overrideSchema 约束外部别名文件:键小写、代码 1-5 位大写、
// 停用词 2-5 位大写,未知字段一律拒绝。
const overrideSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "aliases": {
      "type": "object",
      "propertyNames": {"pattern": "^[a-z0-9][a-z0-9 .&-]{1,39}$"},
      "additionalProperties": {"type": "string", "pattern": "^[A-Z]{1,5}$"}
    },
    "stopwords": {
      "type": "array",
      "items": {"type": "string", "pattern": "^[A-Z]{2,5}$"}
    }
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("symbolbook.json", strings.NewReader(overrideSchema)); err != nil {
		panic(fmt.Sprintf("symbolbook: add schema resource: %v", err))
	}
	sch, err := c.Compile("symbolbook.json")
	if err != nil {
		panic(fmt.Sprintf("symbolbook: compile schema: %v", err))
	}
	return sch
}

// LoadFile 读取并校验别名文件,通过后整体替换当前表。
// 任一步失败都不会动现有表。
func (b *Book) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("symbolbook: read %s: %w", path, err)
	}
	o, err := parseOverride(raw)
	if err != nil {
		return fmt.Errorf("symbolbook: %s: %w", path, err)
	}
	b.apply(o)
	logger.Infof("[别名表] 已加载 %s aliases=%d", path, b.Size())
	return nil
}

func parseOverride(raw []byte) (Override, error) {
	// 先跑 schema,报错信息比严格解码可读。
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return Override{}, fmt.Errorf("parse yaml: %w", err)
	}
	if generic != nil {
		if err := compiledSchema.Validate(generic); err != nil {
			return Override{}, fmt.Errorf("schema: %w", err)
		}
	}

	var o Override
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		return Override{}, fmt.Errorf("decode: %w", err)
	}
	return o, nil
}

// Watch 用 viper 监听别名文件变化并热替换。
// 新文件不合法时保留旧表只告警,循环由 viper 内部 goroutine 承担。
func (b *Book) Watch(path string) {
	v := viper.New()
	v.SetConfigFile(path)
	v.OnConfigChange(func(e fsnotify.Event) {
		if err := b.LoadFile(path); err != nil {
			logger.Warnf("[别名表] 热更新失败,继续使用旧表: %v", err)
			return
		}
		logger.Infof("[别名表] 热更新完成 event=%s", e.Op)
	})
	v.WatchConfig()
}
