package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/POS-Sucursales-api/internal/application/dto"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// errBadRequest ya escribió la respuesta 400; el handler solo debe retornar nil.
var errBadRequest = errors.New("petición inválida")

// bindBody parsea el JSON y valida los tags. Si falla, responde 400 y devuelve errBadRequest.
func bindBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		return errBadRequest
	}
	return check(c, dest)
}

// bindQuery igual que bindBody para parámetros de query.
func bindQuery(c *fiber.Ctx, dest any) error {
	if err := c.QueryParser(dest); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
		return errBadRequest
	}
	return check(c, dest)
}

func check(c *fiber.Ctx, dest any) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	details := []dto.FieldError{}
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details = append(details, dto.FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
	}
	_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos", Details: details})
	return errBadRequest
}

// done convierte el resultado de bind en retorno del handler.
func done(err error) error {
	if errors.Is(err, errBadRequest) {
		return nil
	}
	return err
}
