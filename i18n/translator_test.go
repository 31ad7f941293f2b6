package i18n

import "testing"

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	// default is en
	if msg := T("range", map[string]string{"min": "5", "max": "1"}); msg != "minimum 5 is greater than maximum 1" {
		t.Fatalf("unexpected english message %q", msg)
	}

	SetLanguage("ja")
	if msg := T("false-schema", nil); msg == dictionaries["en"]["false-schema"] {
		t.Fatalf("expected japanese message, got %q", msg)
	}

	// reset to en
	SetLanguage("en")
}

func TestFor_LocaleNormalization(t *testing.T) {
	if got := For("ja-JP").Message("oracle", nil); got != dictionaries["ja"]["oracle"] {
		t.Fatalf("ja-JP should select japanese, got %q", got)
	}
	if got := For("fr").Message("oracle", nil); got != dictionaries["en"]["oracle"] {
		t.Fatalf("unknown locale should fall back to english, got %q", got)
	}
	if got := For("en").Message("no-such-code", nil); got != "no-such-code" {
		t.Fatalf("unknown code should echo, got %q", got)
	}
}

func TestDictionaries_SameKeys(t *testing.T) {
	for code := range dictionaries["en"] {
		if _, ok := dictionaries["ja"][code]; !ok {
			t.Errorf("ja dictionary misses %q", code)
		}
	}
	if len(Languages()) != 2 {
		t.Fatalf("languages: %v", Languages())
	}
}
