package checkout

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/checkout-session/internal/common"
	"github.com/noah-isme/checkout-session/internal/config"
	"github.com/noah-isme/checkout-session/internal/obs"
	"github.com/noah-isme/checkout-session/internal/payment"
	"github.com/noah-isme/checkout-session/internal/security"
)

const (
	msgMethodNotAllowed = "Method Not Allowed"
	msgServerError      = "Server error"
)

// Options shapes the outbound session request.
type Options struct {
	PaymentMethods []string
	Currency       string
	Locale         string
	// RedirectBase prefixes the success and cancel paths. Empty means the
	// request Origin header is used.
	RedirectBase        string
	SuccessPath         string
	CancelPath          string
	SanitizeImages      bool
	ProviderErrorStatus int
	AllowedOrigin       string
}

// NewOptions maps checkout configuration to handler options.
func NewOptions(c config.Checkout) Options {
	opts := Options{
		PaymentMethods:      append([]string(nil), c.PaymentMethods...),
		Currency:            c.Currency,
		Locale:              c.Locale,
		SuccessPath:         c.SuccessPath,
		CancelPath:          c.CancelPath,
		SanitizeImages:      c.SanitizeImages,
		ProviderErrorStatus: c.ProviderErrorStatus,
		AllowedOrigin:       c.AllowedOrigin(),
	}
	if !c.RedirectFromOrigin {
		opts.RedirectBase = c.FrontendURL
	}
	return opts
}

// Handler serves the create-checkout endpoint.
type Handler struct {
	Provider payment.Provider
	Options  Options
	Logger   zerolog.Logger

	once     sync.Once
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(provider payment.Provider, opts Options, logger zerolog.Logger) *Handler {
	return &Handler{Provider: provider, Options: opts, Logger: logger}
}

type sessionResponse struct {
	URL string `json:"url"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	security.CORS{AllowedOrigin: h.Options.AllowedOrigin}.Apply(w.Header())

	logger := obs.LoggerFrom(r, h.Logger)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Msg("checkout_panic")
			obs.RecordCheckout(obs.ResultProviderError)
			common.JSONError(w, http.StatusInternalServerError, msgServerError)
		}
	}()

	switch r.Method {
	case http.MethodOptions:
		obs.RecordCheckout(obs.ResultPreflight)
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		obs.RecordCheckout(obs.ResultMethodNotAllowed)
		common.JSONError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	var body []byte
	if r.Body != nil {
		var err error
		if body, err = io.ReadAll(r.Body); err != nil {
			logger.Debug().Err(err).Msg("checkout_body_read_failed")
			body = nil
		}
	}
	req := DecodeRequest(body)

	logger.Info().
		RawJSON("product_id", rawOrNull(req.ProductID)).
		RawJSON("product_title", rawOrNull(req.ProductTitle)).
		RawJSON("product_price", rawOrNull(req.ProductPrice)).
		Msg("checkout_request")

	product, err := req.Normalize(h.validator(), h.Options.SanitizeImages)
	if err != nil {
		obs.RecordCheckout(obs.ResultInvalid)
		logger.Info().Err(err).Msg("checkout_request_invalid")
		common.WriteError(w, err, http.StatusBadRequest, msgInvalidPrice)
		return
	}
	obs.RecordAmount(h.Options.Currency, product.Amount)

	sess, err := h.Provider.CreateCheckoutSession(r.Context(), h.sessionRequest(r, product))
	if err != nil {
		obs.RecordCheckout(obs.ResultProviderError)
		message := payment.Message(err)
		if message == "" {
			message = msgServerError
		}
		logger.Error().Err(err).
			Str("product_id", product.ID).
			Int64("amount", product.Amount).
			Msg("checkout_session_failed")
		common.JSONError(w, h.providerErrorStatus(), message)
		return
	}

	obs.RecordCheckout(obs.ResultCreated)
	logger.Info().
		Str("product_id", product.ID).
		Str("session_id", sess.ID).
		Int64("amount", product.Amount).
		Str("amount_major", decimal.New(product.Amount, -2).StringFixed(2)).
		Str("currency", h.Options.Currency).
		Msg("checkout_session_created")
	common.JSON(w, http.StatusOK, sessionResponse{URL: sess.URL})
}

func (h *Handler) sessionRequest(r *http.Request, p Product) payment.SessionRequest {
	base := h.Options.RedirectBase
	if base == "" {
		base = strings.TrimRight(r.Header.Get("Origin"), "/")
	}
	return payment.SessionRequest{
		Mode:               payment.ModePayment,
		PaymentMethodTypes: h.Options.PaymentMethods,
		Currency:           h.Options.Currency,
		UnitAmount:         p.Amount,
		Quantity:           1,
		ProductName:        p.Title,
		ProductImages:      p.Images,
		ProductMetadata:    map[string]string{"shopify_product_id": p.ID},
		SuccessURL:         base + h.Options.SuccessPath,
		CancelURL:          base + h.Options.CancelPath,
		Locale:             h.Options.Locale,
	}
}

func (h *Handler) providerErrorStatus() int {
	if h.Options.ProviderErrorStatus == 0 {
		return http.StatusInternalServerError
	}
	return h.Options.ProviderErrorStatus
}

func (h *Handler) validator() *validator.Validate {
	h.once.Do(func() {
		if h.validate == nil {
			h.validate = NewValidator()
		}
	})
	return h.validate
}

func rawOrNull(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
