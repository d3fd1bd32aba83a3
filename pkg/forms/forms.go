// Package forms validates the login and create-action inputs shared by the
// admin pages and kindctl. Every rejection here happens before the upstream
// API is called.
package forms

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/go-playground/validator/v10"
)

var (
	emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)
	colorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
)

// FormField is the key used for errors that do not belong to a single input.
const FormField = "form"

// Errors maps form field names to the message shown next to the input.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return strings.Join(parts, "; ")
}

// Get returns the message for field, or "".
func (e Errors) Get(field string) string {
	return e[field]
}

// With records msg for field, allocating e when it is nil.
func (e Errors) With(field, msg string) Errors {
	if e == nil {
		e = Errors{}
	}
	e[field] = msg
	return e
}

// LoginForm is the login page input.
type LoginForm struct {
	Email    string `form:"email" validate:"required,adminemail"`
	Password string `form:"password" validate:"required,min=6"`
}

// ActionForm is the create-action page input, without the image.
type ActionForm struct {
	Name        string `form:"name" validate:"required,min=3"`
	Description string `form:"description" validate:"required,min=10,max=300"`
	Status      string `form:"status" validate:"required,oneof=active inactive"`
	Color       string `form:"color" validate:"omitempty,actioncolor"`
	CategoryID  string `form:"categoryId"`
}

// CreateInput converts the form to an upload request. The caller attaches the image.
func (f ActionForm) CreateInput() sdk.CreateActionInput {
	return sdk.CreateActionInput{
		Name:        f.Name,
		Description: f.Description,
		Status:      sdk.ParseStatus(f.Status),
		Color:       f.Color,
		CategoryID:  f.CategoryID,
	}
}

// messages overrides the generic message for a field and rule.
var messages = map[string]map[string]string{
	"email": {
		"required":   "El correo electrónico es requerido",
		"adminemail": "Correo electrónico inválido",
	},
	"password": {
		"required": "La contraseña es requerida",
		"min":      "La contraseña debe tener al menos 6 caracteres",
	},
	"name": {
		"required": "El nombre es requerido",
		"min":      "El nombre debe tener al menos 3 caracteres",
	},
	"description": {
		"required": "La descripción es requerida",
		"min":      "La descripción debe tener al menos 10 caracteres",
		"max":      "La descripción no puede exceder 300 caracteres",
	},
	"status": {
		"oneof": "Estado inválido",
	},
	"color": {
		"actioncolor": "Formato HEX inválido (ej: #FF5733)",
	},
}

// Validator wraps a configured validator.Validate. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the admin rules and reports fields by their form names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("adminemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("actioncolor", func(fl validator.FieldLevel) bool {
		return colorPattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Struct validates form and returns Errors, or nil when valid.
func (v *Validator) Struct(form any) Errors {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Errors{FormField: err.Error()}
	}

	out := Errors{}
	for _, fe := range fieldErrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()][fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return "Este campo es requerido"
	case "min":
		return fmt.Sprintf("Debe tener al menos %s caracteres", fe.Param())
	case "max":
		return fmt.Sprintf("No puede exceder %s caracteres", fe.Param())
	default:
		return "Valor inválido"
	}
}

// ParseLogin reads and validates the login form.
func (v *Validator) ParseLogin(r *http.Request) (LoginForm, Errors) {
	form := LoginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	return form, v.Struct(form)
}

// ParseAction reads the multipart create form, validates the fields and
// checks the uploaded image. Both field and image errors are reported together.
func (v *Validator) ParseAction(w http.ResponseWriter, r *http.Request) (ActionForm, *Image, Errors) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes+maxFieldBytes)
	if err := r.ParseMultipartForm(MaxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ActionForm{}, nil, Errors{ImageField: MsgImageTooLarge}
		}
		return ActionForm{}, nil, Errors{FormField: "Solicitud inválida"}
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := ActionForm{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Status:      strings.TrimSpace(r.PostFormValue("status")),
		Color:       strings.TrimSpace(r.PostFormValue("color")),
		CategoryID:  strings.TrimSpace(r.PostFormValue("categoryId")),
	}
	if form.Status == "" {
		form.Status = "active"
	}

	errs := v.Struct(form)
	img, imgErr := ReadImage(r, ImageField)
	if imgErr != nil {
		errs = errs.With(ImageField, imgErr.Error())
	}
	if len(errs) > 0 {
		return form, nil, errs
	}
	return form, img, nil
}
