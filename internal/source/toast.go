package source

import (
	"encoding/xml"
	"errors"
	"fmt"

	"marquee/internal/model"
)

// ErrNoToastText means the payload carried no usable title/body pair.
var ErrNoToastText = errors.New("toast payload has no ToastGeneric text binding")

type toastPayload struct {
	XMLName xml.Name    `xml:"toast"`
	Visual  toastVisual `xml:"visual"`
}

type toastVisual struct {
	Bindings []toastBinding `xml:"binding"`
}

type toastBinding struct {
	Template string   `xml:"template,attr"`
	Texts    []string `xml:"text"`
}

// ParseToastPayload extracts title and body from a toast XML document.
// Only the ToastGeneric binding is understood: its first text node is the
// title, the second the body. Multi-line bodies collapse to one line.
func ParseToastPayload(payload []byte) (title, body string, err error) {
	var doc toastPayload
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return "", "", fmt.Errorf("failed to parse toast XML: %w", err)
	}

	for _, binding := range doc.Visual.Bindings {
		if binding.Template != "ToastGeneric" {
			continue
		}
		if len(binding.Texts) < 2 {
			continue
		}
		return binding.Texts[0], model.CollapseLines(binding.Texts[1]), nil
	}
	return "", "", ErrNoToastText
}
