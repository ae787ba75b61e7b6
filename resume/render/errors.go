package render

import (
	"fmt"

	"resume-tailor/resume/model"
)

// TemplateError reports a template that could not be resolved or executed.
type TemplateError struct {
	Kind     Kind
	Region   model.Region
	Template string
	Err      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("render %s (region=%s template=%s): %v", e.Kind, e.Region, e.Template, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}
