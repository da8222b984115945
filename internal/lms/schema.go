package lms

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// The gateway has no contract of its own, so the client enforces one: each
// collection payload is validated against a schema before it is mapped to
// records. A payload that fails validation is treated the same way as a
// transport failure.

const recordListSchemaTemplate = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": %s
}`

const activityItemSchema = `{
  "type": "object",
  "required": ["title"],
  "properties": {
    "record_number": {"type": "string"},
    "submission_code": {"type": "string"},
    "title": {"type": "string"},
    "description": {"type": "string"},
    "total_score": {"type": "number", "minimum": 0},
    "deadline": {"type": "string"},
    "posted_at": {"type": "string"},
    "graded": {"type": "boolean"},
    "score": {"type": "number"}
  }
}`

const submissionItemSchema = `{
  "type": "object",
  "properties": {
    "record_number": {"type": "string"},
    "submission_code": {"type": "string"},
    "submitted_at": {"type": "string"}
  }
}`

const classItemSchema = `{
  "type": "object",
  "required": ["class_code"],
  "properties": {
    "class_code": {"type": "string"},
    "subject_code": {"type": "string"},
    "subject_description": {"type": "string"},
    "faculty_name": {"type": "string"},
    "meeting_days": {"type": "string"},
    "start_time": {"type": "string"},
    "end_time": {"type": "string"}
  }
}`

const notificationItemSchema = `{
  "type": "object",
  "required": ["id", "type"],
  "properties": {
    "id": {"type": "integer"},
    "type": {"type": "string", "enum": ["post", "activity", "resource"]},
    "class_code": {"type": "string"},
    "post_id": {"type": "integer"},
    "record_number": {"type": "string"},
    "submission_code": {"type": "string"},
    "resource_id": {"type": "integer"},
    "message": {"type": "string"},
    "is_read": {"type": "boolean"},
    "created_at": {"type": "string"}
  }
}`

const settingsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["academic_year", "semester"],
  "properties": {
    "academic_year": {"type": "string"},
    "semester": {"type": ["string", "integer"]}
  }
}`

type gatewaySchemas struct {
	activities    *jsonschema.Schema
	submissions   *jsonschema.Schema
	classes       *jsonschema.Schema
	notifications *jsonschema.Schema
	settings      *jsonschema.Schema
}

func compileSchemas() (*gatewaySchemas, error) {
	compiler := jsonschema.NewCompiler()

	add := func(name, item string) error {
		document := strings.Replace(recordListSchemaTemplate, "%s", item, 1)
		return compiler.AddResource(name, strings.NewReader(document))
	}

	if err := add("activities.json", activityItemSchema); err != nil {
		return nil, err
	}
	if err := add("submissions.json", submissionItemSchema); err != nil {
		return nil, err
	}
	if err := add("classes.json", classItemSchema); err != nil {
		return nil, err
	}
	if err := add("notifications.json", notificationItemSchema); err != nil {
		return nil, err
	}
	if err := compiler.AddResource("settings.json", strings.NewReader(settingsSchema)); err != nil {
		return nil, err
	}

	schemas := &gatewaySchemas{}
	var err error

	if schemas.activities, err = compiler.Compile("activities.json"); err != nil {
		return nil, err
	}
	if schemas.submissions, err = compiler.Compile("submissions.json"); err != nil {
		return nil, err
	}
	if schemas.classes, err = compiler.Compile("classes.json"); err != nil {
		return nil, err
	}
	if schemas.notifications, err = compiler.Compile("notifications.json"); err != nil {
		return nil, err
	}
	if schemas.settings, err = compiler.Compile("settings.json"); err != nil {
		return nil, err
	}

	return schemas, nil
}
