package checkout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/checkout-session/internal/common"
)

const msgInvalidPrice = "Invalid product_price"

// Request is the decoded checkout body. Values stay raw until Normalize applies
// the truthiness and numeric conversion rules.
type Request struct {
	ProductID    json.RawMessage `json:"product_id"`
	ProductTitle json.RawMessage `json:"product_title"`
	ProductPrice json.RawMessage `json:"product_price"`
	ProductImage json.RawMessage `json:"product_image"`
}

// Product is a validated checkout line ready for the provider.
type Product struct {
	ID     string
	Title  string
	Amount int64
	Images []string
}

// required mirrors the presence rules: falsy ID and title are missing, while the
// price only has to be present.
type required struct {
	ProductID    string          `json:"product_id" validate:"required"`
	ProductTitle string          `json:"product_title" validate:"required"`
	ProductPrice json.RawMessage `json:"product_price" validate:"required"`
}

// DecodeRequest parses body leniently. Empty or malformed input and non-object
// JSON all decode to an empty Request.
func DecodeRequest(body []byte) Request {
	var req Request
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Request{}
	}
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return Request{}
	}
	return req
}

// Normalize validates required fields, converts the price to minor units and
// builds the image list.
func (r Request) Normalize(v *validator.Validate, sanitize bool) (Product, error) {
	fields := required{
		ProductID:    truthyText(r.ProductID),
		ProductTitle: truthyText(r.ProductTitle),
		ProductPrice: r.ProductPrice,
	}
	if err := v.Struct(fields); err != nil {
		return Product{}, missingFieldsError(err)
	}

	price := toNumber(r.ProductPrice)
	amount, ok := MinorUnits(price)
	if !ok {
		return Product{}, common.BadRequest(msgInvalidPrice)
	}

	var images []string
	if raw, ok := stringValue(r.ProductImage); ok {
		if sanitize {
			if img, ok := SanitizeImage(v, raw); ok {
				images = []string{img}
			}
		} else if trimmed := strings.TrimSpace(raw); trimmed != "" {
			images = []string{trimmed}
		}
	}

	return Product{
		ID:     fields.ProductID,
		Title:  fields.ProductTitle,
		Amount: amount,
		Images: images,
	}, nil
}

func missingFieldsError(err error) error {
	var names []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			names = append(names, fe.Field())
		}
	}
	if len(names) == 0 {
		names = []string{"product_id", "product_title", "product_price"}
	}
	return common.NewAppError("Missing "+strings.Join(names, "/"), http.StatusBadRequest, err)
}

// MinorUnits multiplies a major-unit price by 100 and rounds half up. It reports
// false when the result is not a finite positive integer.
func MinorUnits(price float64) (int64, bool) {
	amount := math.Floor(price*100 + 0.5)
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 || amount >= math.MaxInt64 {
		return 0, false
	}
	return int64(amount), true
}

// truthyText renders a JSON scalar as text, returning "" for falsy values.
func truthyText(raw json.RawMessage) string {
	var value any
	if len(raw) == 0 || json.Unmarshal(raw, &value) != nil {
		return ""
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return ""
	case float64:
		if v == 0 {
			return ""
		}
		return numberText(v)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return string(raw)
		}
		return buf.String()
	}
}

// numberText formats v like ECMAScript Number::toString: fixed-point between
// 1e-6 and 1e21, exponent form with an unpadded exponent outside that range.
func numberText(v float64) string {
	abs := math.Abs(v)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(v, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// toNumber converts a JSON value the way a loosely typed numeric cast would.
func toNumber(raw json.RawMessage) float64 {
	var value any
	if len(raw) == 0 || json.Unmarshal(raw, &value) != nil {
		return math.NaN()
	}
	switch v := value.(type) {
	case nil:
		return 0
	case bool:
		if v {
			return 1
		}
		return 0
	case float64:
		return v
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		switch s {
		case "Infinity", "+Infinity":
			return math.Inf(1)
		case "-Infinity":
			return math.Inf(-1)
		}
		switch strings.ToLower(strings.TrimLeft(s, "+-")) {
		case "inf", "infinity", "nan":
			return math.NaN()
		}
		if strings.ContainsAny(s, "_xXpP") {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func stringValue(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// NewValidator returns a validator that reports JSON field names and knows the
// secure_url rule.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("secure_url", validateSecureURL); err != nil {
		panic(fmt.Sprintf("checkout: register secure_url: %v", err))
	}
	return v
}
