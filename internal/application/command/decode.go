package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/almacen-wms/internal/domain"
)

// newValidator usa los nombres JSON en los errores de campo.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode deserializa la carga en T (sin campos desconocidos) y la valida.
// Una carga vacía equivale a {}.
func decode[T any](v *validator.Validate, payload json.RawMessage) (T, error) {
	var in T
	raw := bytes.TrimSpace(payload)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return in, domain.Invalid("carga inválida: %v", err)
		}
	}
	if err := v.Struct(in); err != nil {
		return in, validationError(err)
	}
	return in, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Invalid("carga inválida: %v", err)
	}
	out := domain.Invalid("la carga no supera la validación")
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fe.Namespace()[strings.Index(fe.Namespace(), ".")+1:]] = rule
	}
	return out.With("fields", fields)
}
