package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"resume-tailor/internal/shared/util"
)

// MaxStemLength bounds the sanitized job id used in file names.
const MaxStemLength = 40

// ErrInvalidInput indicates validation or bad input.
var ErrInvalidInput = errors.New("invalid input")

// FieldError is one validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every problem found in a request.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func (e *ValidationError) add(field, msg string) {
	e.Problems = append(e.Problems, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		validate = v
	})
	return validate
}

// ValidateProfile checks that the profile can drive generation.
func ValidateProfile(p Profile) error {
	verr := &ValidationError{}
	collect(verr, "profile", p)
	if len(p.Experience) == 0 && len(p.Projects) == 0 {
		verr.add("profile", "at least one experience or project entry is required")
	}
	return verr.orNil()
}

// ValidateJob checks a single posting.
func ValidateJob(j JobPosting) error {
	verr := &ValidationError{}
	collect(verr, "job", j)
	if strings.TrimSpace(j.ID) != "" && JobStem(j.ID) == "" {
		verr.add("job.id", "must contain at least one letter or digit")
	}
	return verr.orNil()
}

// ValidateRequest checks the whole request, including id uniqueness after sanitizing.
func ValidateRequest(req GenerationRequest) error {
	verr := &ValidationError{}
	collect(verr, "profile", req.Profile)
	if len(req.Profile.Experience) == 0 && len(req.Profile.Projects) == 0 {
		verr.add("profile", "at least one experience or project entry is required")
	}
	if len(req.Jobs) == 0 {
		verr.add("jobs", "at least one job posting is required")
	}
	seen := make(map[string]int, len(req.Jobs))
	for i, job := range req.Jobs {
		prefix := fmt.Sprintf("jobs[%d]", i)
		collect(verr, prefix, job)
		if strings.TrimSpace(job.ID) == "" {
			continue
		}
		stem := JobStem(job.ID)
		if stem == "" {
			verr.add(prefix+".id", "must contain at least one letter or digit")
			continue
		}
		if first, dup := seen[strings.ToLower(stem)]; dup {
			verr.add(prefix+".id", fmt.Sprintf("duplicate job id %q (also jobs[%d])", job.ID, first))
			continue
		}
		seen[strings.ToLower(stem)] = i
	}
	return verr.orNil()
}

// JobStem sanitizes a job id into a filename stem.
func JobStem(id string) string {
	return util.FileStem(id, MaxStemLength)
}

func collect(verr *ValidationError, prefix string, v any) {
	err := validatorInstance().Struct(v)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.add(prefix, err.Error())
		return
	}
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if idx := strings.Index(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		verr.add(prefix+"."+field, messageFor(fe))
	}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "nonblank", "required":
		return "is required"
	default:
		return "failed " + fe.Tag()
	}
}
