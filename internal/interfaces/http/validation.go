package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-movements/internal/application/dto"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Los errores usan el nombre JSON del campo.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bodyError cuerpo ilegible o que no cumple las reglas declarativas del DTO.
type bodyError struct {
	message string
	details []dto.FieldError
}

func (e *bodyError) Error() string { return e.message }

// bindJSON parsea el body en out y lo valida con las etiquetas `validate`.
func bindJSON(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return &bodyError{message: "cuerpo inválido"}
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &bodyError{message: err.Error()}
		}
		details := make([]dto.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, dto.FieldError{Field: fieldPath(fe), Message: validationMessage(fe)})
		}
		return &bodyError{message: "validación fallida", details: details}
	}
	return nil
}

// fieldPath ruta JSON del campo sin el nombre del struct raíz, p. ej. lines[0].product_id.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "campo requerido"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "debe tener al menos " + fe.Param() + " elemento(s)"
		}
		return "debe ser al menos " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "máximo " + fe.Param() + " caracteres"
		}
		return "debe ser como máximo " + fe.Param()
	case "gte":
		return "debe ser mayor o igual a " + fe.Param()
	default:
		return "valor inválido"
	}
}
