package i18n

import (
	"sort"
	"strings"
)

// Translator retrieves localized messages for failure codes.
// data provides optional parameters embedded into the message through
// `{name}` placeholders (for example "min", "max" or "format").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		"type-mismatch":          "value does not match the declared type",
		"range":                  "minimum {min} is greater than maximum {max}",
		"exclusive-bounds":       "no value lies strictly between {min} and {max}",
		"multipleOf":             "multipleOf must be a finite number greater than zero",
		"multipleOf-range":       "no multiple of {step} fits in [{min}, {max}]",
		"precision-limit":        "range is too narrow to represent distinct values",
		"draft04-exclusive":      "boolean exclusiveMinimum/exclusiveMaximum is not supported",
		"const-constraints":      "const value violates sibling constraints",
		"enum-constraints":       "no enum member satisfies the sibling constraints",
		"unique-items":           "cannot produce {min} distinct items",
		"min-items":              "minItems is greater than maxItems",
		"contains":               "no item satisfying contains could be generated",
		"min-length":             "minLength is greater than maxLength",
		"pattern":                "could not produce a string matching {pattern}",
		"unsupported-format":     "unsupported format {format}",
		"format-length":          "could not produce a {format} value within the length bounds",
		"one-of":                 "no branch produced a value matching exactly one of oneOf",
		"any-of":                 "no branch of anyOf produced a value",
		"required":               "required property {name} is not declared in properties",
		"min-properties":         "minProperties is greater than maxProperties",
		"max-properties":         "more properties are required than maxProperties allows",
		"false-schema":           "the false schema accepts no value",
		"depth-limit":            "maximum depth {depth} reached before constraints could be satisfied",
		"oracle":                 "generated value was rejected by the validator",
		"self-check":             "generated value failed its own constraint check",
		"schema-structure-error": "schema is structurally invalid",
	},
	"ja": {
		"type-mismatch":          "値が宣言された型と一致しません",
		"range":                  "minimum {min} が maximum {max} より大きいです",
		"exclusive-bounds":       "{min} と {max} の間に値が存在しません",
		"multipleOf":             "multipleOf は 0 より大きい有限の数である必要があります",
		"multipleOf-range":       "[{min}, {max}] に {step} の倍数が存在しません",
		"precision-limit":        "範囲が狭すぎて値を表現できません",
		"draft04-exclusive":      "真偽値の exclusiveMinimum/exclusiveMaximum には対応していません",
		"const-constraints":      "const の値が他の制約に違反しています",
		"enum-constraints":       "制約を満たす enum の候補がありません",
		"unique-items":           "{min} 個の異なる要素を生成できません",
		"min-items":              "minItems が maxItems より大きいです",
		"contains":               "contains を満たす要素を生成できません",
		"min-length":             "minLength が maxLength より大きいです",
		"pattern":                "{pattern} に一致する文字列を生成できません",
		"unsupported-format":     "未対応のフォーマットです: {format}",
		"format-length":          "長さの制約内で {format} の値を生成できません",
		"one-of":                 "oneOf のちょうど一つに一致する値を生成できません",
		"any-of":                 "anyOf のいずれの分岐も値を生成できません",
		"required":               "必須プロパティ {name} が properties に宣言されていません",
		"min-properties":         "minProperties が maxProperties より大きいです",
		"max-properties":         "maxProperties を超える数のプロパティが必須です",
		"false-schema":           "false スキーマはどの値も受け付けません",
		"depth-limit":            "制約を満たす前に最大深さ {depth} に到達しました",
		"oracle":                 "生成した値がバリデータに拒否されました",
		"self-check":             "生成した値が自身の制約チェックに失敗しました",
		"schema-structure-error": "スキーマの構造が不正です",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		if msg, ok = dictionaries["en"][code]; !ok {
			return code
		}
	}
	if len(data) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, 2*len(data))
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// For returns the built-in Translator for lang. Unknown languages fall back
// to English. The result carries no shared state and is safe to use from
// concurrent runs.
func For(lang string) Translator {
	lang = normalize(lang)
	if _, ok := dictionaries[lang]; !ok {
		lang = "en"
	}
	return dictTranslator{lang: lang}
}

// Languages lists the built-in languages.
func Languages() []string {
	out := make([]string, 0, len(dictionaries))
	for k := range dictionaries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// normalize reduces a locale such as "ja-JP" or "en_US.UTF-8" to its language.
func normalize(locale string) string {
	locale = strings.ToLower(locale)
	if i := strings.IndexAny(locale, "-_."); i >= 0 {
		locale = locale[:i]
	}
	return locale
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the process default Translator language.
func SetLanguage(lang string) { currentTranslator = For(lang) }

// SetTranslator replaces the process default Translator (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// Default returns the process default Translator.
func Default() Translator { return currentTranslator }

// T fetches a message for the given code using the process default
// Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
