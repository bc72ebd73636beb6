package handlers

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sivaangayarkanni/crm/internal/models"
	"github.com/sivaangayarkanni/crm/internal/scoring"
)

var registerOnce sync.Once

// enumValidators maps a binding tag to the membership check of its enum.
var enumValidators = map[string]func(string) bool{
	"lead_source":      func(v string) bool { return scoring.LeadSource(v).IsValid() },
	"lead_status":      func(v string) bool { return scoring.LeadStatus(v).IsValid() },
	"lead_priority":    func(v string) bool { return scoring.Priority(v).IsValid() },
	"deal_stage":       func(v string) bool { return scoring.DealStage(v).IsValid() },
	"deal_status":      func(v string) bool { return models.DealStatus(v).IsValid() },
	"activity_type":    func(v string) bool { return models.ActivityType(v).IsValid() },
	"engagement_event": func(v string) bool { return models.EngagementEvent(v).IsValid() },
	"note_type":        func(v string) bool { return models.NoteType(v).IsValid() },
}

// RegisterValidators installs the enum tags on gin's validator engine. Empty
// values pass so the tags combine with omitempty and required.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		for tag, valid := range enumValidators {
			if err = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				value := fl.Field().String()
				return value == "" || valid(value)
			}); err != nil {
				return
			}
		}
	})
	return err
}

func describeValidationError(fe validator.FieldError) string {
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	}
	if _, ok := enumValidators[fe.Tag()]; ok {
		return fmt.Sprintf("%s has unknown value %q", field, fmt.Sprint(fe.Value()))
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// toSnake turns a Go field name into its JSON name. ID is treated as one word.
func toSnake(name string) string {
	name = strings.NewReplacer("IDs", "Ids", "ID", "Id").Replace(name)
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
