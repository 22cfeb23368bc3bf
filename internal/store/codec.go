package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"juggle/internal/model"
)

// Codec converts the event list to and from its on-disk form.
type Codec interface {
	Marshal(events []model.Event) ([]byte, error)
	Unmarshal(data []byte) ([]model.Event, error)
}

// CodecFor picks YAML for .yaml/.yml files and JSON for everything else.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLCodec{}
	default:
		return JSONCodec{}
	}
}

type JSONCodec struct{}

func (JSONCodec) Marshal(events []model.Event) ([]byte, error) {
	if events == nil {
		events = []model.Event{}
	}
	return json.MarshalIndent(events, "", "  ")
}

func (JSONCodec) Unmarshal(data []byte) ([]model.Event, error) {
	var events []model.Event
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&events); err != nil {
		return nil, err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, trailingData(err)
	}
	return normalize(events), nil
}

type YAMLCodec struct{}

func (YAMLCodec) Marshal(events []model.Event) ([]byte, error) {
	if events == nil {
		events = []model.Event{}
	}
	return yaml.Marshal(events)
}

func (YAMLCodec) Unmarshal(data []byte) ([]model.Event, error) {
	var events []model.Event
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&events); err != nil {
		return nil, err
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, trailingData(err)
	}
	return normalize(events), nil
}

// trailingData reports content after the event list. err is the result of
// trying to decode it; nil means a second complete document.
func trailingData(err error) error {
	if err == nil {
		return errors.New("unexpected data after event list")
	}
	return fmt.Errorf("unexpected data after event list: %w", err)
}

// normalize makes decoded values compare equal to freshly built ones:
// checklists are never nil.
func normalize(events []model.Event) []model.Event {
	if events == nil {
		return []model.Event{}
	}
	for i := range events {
		if events[i].Checklist == nil {
			events[i].Checklist = []model.ChecklistItem{}
		}
	}
	return events
}
