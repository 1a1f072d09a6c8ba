// internal/model/load.go

package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// Load reads a model file from disk. See Parse for accepted layouts.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a model document. The application half is looked up under
// "application" (or "application_data"); a document that has neither but a
// top-level "tasks" array is taken to be a bare application. The platform
// half is optional and looked up under "platform" (or "platform_data").
func Parse(data []byte) (*Model, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidModel)
	}

	appRaw := firstOf(data, "application", "application_data")
	if !appRaw.Exists() {
		if !gjson.GetBytes(data, "tasks").IsArray() {
			return nil, fmt.Errorf("%w: no application section", ErrInvalidModel)
		}
		appRaw = gjson.ParseBytes(data)
	}

	m := &Model{}
	if err := json.Unmarshal([]byte(appRaw.Raw), &m.Application); err != nil {
		return nil, fmt.Errorf("%w: application: %v", ErrInvalidModel, err)
	}
	if platRaw := firstOf(data, "platform", "platform_data"); platRaw.Exists() {
		if err := json.Unmarshal([]byte(platRaw.Raw), &m.Platform); err != nil {
			return nil, fmt.Errorf("%w: platform: %v", ErrInvalidModel, err)
		}
	}

	if err := m.Application.Validate(); err != nil {
		return nil, err
	}
	if err := m.Platform.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func firstOf(data []byte, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := gjson.GetBytes(data, p); r.Exists() && r.IsObject() {
			return r
		}
	}
	return gjson.Result{}
}
