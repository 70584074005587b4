package execengine

import (
	"github.com/xeipuuv/gojsonschema"

	"github.com/giantswarm/brokerd/internal/brokerapi"
)

// canonicalizeArguments fills in schema defaults for omitted optionals,
// then validates the result against the descriptor's input schema (spec
// §4.4 step 2). It never mutates the caller's map.
func canonicalizeArguments(desc brokerapi.Descriptor, args map[string]interface{}) (map[string]interface{}, error) {
	filled := make(map[string]interface{}, len(args))
	for k, v := range args {
		filled[k] = v
	}

	required := map[string]bool{}
	for _, r := range desc.InputSchema.Required {
		required[r] = true
	}

	for name, rawProp := range desc.InputSchema.Properties {
		if _, present := filled[name]; present {
			continue
		}
		if required[name] {
			continue
		}
		if prop, ok := rawProp.(map[string]interface{}); ok {
			if def, ok := prop["default"]; ok {
				filled[name] = def
			}
		}
	}

	for name := range required {
		if _, ok := filled[name]; !ok {
			return nil, brokerapi.NewError(brokerapi.ErrInvalidArguments, "missing required argument: "+name).WithField(name)
		}
	}

	schemaDoc := schemaDocument(desc.InputSchema)
	if schemaDoc == nil {
		return filled, nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schemaDoc), gojsonschema.NewGoLoader(filled))
	if err != nil {
		return nil, brokerapi.Wrap(brokerapi.ErrInvalidArguments, err, "schema validation failed")
	}
	if !result.Valid() {
		errs := result.Errors()
		field := ""
		msg := "arguments do not satisfy the input schema"
		if len(errs) > 0 {
			field = errs[0].Field()
			msg = errs[0].Description()
		}
		return nil, brokerapi.NewError(brokerapi.ErrInvalidArguments, msg).WithField(field)
	}

	return filled, nil
}

// schemaDocument renders a brokerapi.Schema into the map shape
// gojsonschema.NewGoLoader expects. additionalProperties is left
// unset (permissive) when Properties is empty, matching a
// deliberately open schema such as a skill's default.
func schemaDocument(s brokerapi.Schema) map[string]interface{} {
	if s.Type == "" && len(s.Properties) == 0 {
		return nil
	}
	doc := map[string]interface{}{}
	if s.Type != "" {
		doc["type"] = s.Type
	}
	if len(s.Properties) > 0 {
		doc["properties"] = s.Properties
		doc["additionalProperties"] = false
	}
	if len(s.Required) > 0 {
		doc["required"] = s.Required
	}
	if len(s.Enum) > 0 {
		doc["enum"] = s.Enum
	}
	return doc
}
