// prompt.go - Chat-Marker und Prompt-Vorlagen fuer Uebersetzungen
//
// Enthält:
// - ImStart, ImEnd, EndOfText: Marker-Token
// - Training: Trainingstext aus einem Satzpaar
// - Translate: Prompt fuer die Uebersetzung ins Englische
// - Markers: IDs der drei Marker, geprueft gegen den Tokenizer

package prompt

import (
	"strings"
	"text/template"
)

const (
	ImStart   = "<|im_start|>"
	ImEnd     = "<|im_end|>"
	EndOfText = "<|endoftext|>"
)

var (
	trainingTmpl  = template.Must(template.New("training").Parse(ImStart + "Translate to Chinese:\n{{ .Source }}" + ImEnd + ImStart + "{{ .Target }}" + ImEnd))
	translateTmpl = template.Must(template.New("translate").Parse(ImStart + "Translate to English:\n{{ .Input }}" + ImEnd + ImStart))
)

func execute(t *template.Template, data any) string {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		// templates are fixed and take only strings
		panic(err)
	}
	return sb.String()
}

// Training joins an English source and its Chinese target into one example.
func Training(source, target string) string {
	return execute(trainingTmpl, struct{ Source, Target string }{source, target})
}

// Translate wraps input for generation; the model continues after the last marker.
func Translate(input string) string {
	return execute(translateTmpl, struct{ Input string }{input})
}

// Encoder is the part of a tokenizer needed to resolve the markers.
type Encoder interface {
	Sentinels(tokens ...string) ([]int32, error)
}

// Marker ids of a tokenizer.
type Markers struct {
	ImStart, ImEnd, EndOfText int32
}

// ResolveMarkers encodes the three markers and fails unless each is a single token.
func ResolveMarkers(enc Encoder) (Markers, error) {
	ids, err := enc.Sentinels(ImStart, ImEnd, EndOfText)
	if err != nil {
		return Markers{}, err
	}
	return Markers{ImStart: ids[0], ImEnd: ids[1], EndOfText: ids[2]}, nil
}
