package prompt

import (
	"errors"
	"fmt"
	"testing"
)

func TestTraining(t *testing.T) {
	got := Training("Hello {{.}}", "你好")
	want := "<|im_start|>Translate to Chinese:\nHello {{.}}<|im_end|><|im_start|>你好<|im_end|>"
	if got != want {
		t.Errorf("Training() = %q, erwartet %q", got, want)
	}
}

func TestTranslate(t *testing.T) {
	got := Translate("你好\n")
	want := "<|im_start|>Translate to English:\n你好\n<|im_end|><|im_start|>"
	if got != want {
		t.Errorf("Translate() = %q, erwartet %q", got, want)
	}
}

type fakeEncoder struct {
	ids []int32
	err error
}

func (f fakeEncoder) Sentinels(tokens ...string) ([]int32, error) {
	if len(tokens) != 3 || tokens[0] != ImStart || tokens[1] != ImEnd || tokens[2] != EndOfText {
		return nil, fmt.Errorf("unerwartete Marker %q", tokens)
	}
	return f.ids, f.err
}

func TestResolveMarkers(t *testing.T) {
	m, err := ResolveMarkers(fakeEncoder{ids: []int32{7, 8, 9}})
	if err != nil {
		t.Fatal(err)
	}
	if m != (Markers{ImStart: 7, ImEnd: 8, EndOfText: 9}) {
		t.Errorf("ResolveMarkers() = %+v", m)
	}

	errBad := errors.New("bad")
	if _, err := ResolveMarkers(fakeEncoder{err: errBad}); !errors.Is(err, errBad) {
		t.Errorf("erwartet %v, erhalten %v", errBad, err)
	}
}
