// Copyright (C) 2025 the deskhand authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package intent

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/567-labs/instructor-go/pkg/instructor"
)

// extractedIntent is the wire shape the model fills in. Its JSON schema
// is derived by reflection, so field tags are the source of truth.
type extractedIntent struct {
	Action      string `json:"action" jsonschema:"title=action,description=One of: read list search move rename copy create organize delete remove unknown"`
	Target      string `json:"target,omitempty" jsonschema:"title=target,description=File or folder the command acts on"`
	Destination string `json:"destination,omitempty" jsonschema:"title=destination,description=Destination folder for move or copy"`
	Strategy    string `json:"strategy,omitempty" jsonschema:"title=strategy,description=Organizing strategy such as by_file_type or by_date"`
	Recursive   bool   `json:"recursive,omitempty" jsonschema:"title=recursive,description=Whether the command covers nested folders"`
}

func schemaParametersFor[T any]() (map[string]interface{}, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("schema type is nil")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	schema, err := instructor.NewSchema(t)
	if err != nil {
		return nil, err
	}
	for _, fn := range schema.Functions {
		if fn.Name != t.Name() {
			continue
		}
		return jsonSchemaToMap(fn.Parameters)
	}
	return nil, fmt.Errorf("schema definition %q not found", t.Name())
}

func jsonSchemaToMap(schema interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var params map[string]interface{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return params, nil
}
