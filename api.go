package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/eurotz/tzgate/pkg/b58check"
	"github.com/eurotz/tzgate/pkg/hexbuf"
	"github.com/eurotz/tzgate/pkg/log"
	"github.com/eurotz/tzgate/pkg/michelson"
	"github.com/eurotz/tzgate/pkg/sign"
	"github.com/eurotz/tzgate/pkg/tzrpc"
)

const (
	maxRequestBody         = 1 << 20
	defaultAPIErrorMessage = "an error occurred while processing the request"
)

var errSigningDisabled = errors.New("signing key is not configured")

func getValidator() *validator.Validate {
	validate := validator.New()

	validations := map[string]func(fl validator.FieldLevel) bool{
		"hexbytes": func(fl validator.FieldLevel) bool {
			_, err := hexbuf.Decode(fl.Field().String())
			return err == nil
		},
		"tzaddress": func(fl validator.FieldLevel) bool {
			_, err := sign.ParseAccount(fl.Field().String())
			return err == nil
		},
		"decimal": func(fl validator.FieldLevel) bool {
			_, err := parseAmount(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range validations {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %s validation: %v", tag, err))
		}
	}
	return validate
}

// apiError carries the HTTP status an error should be reported with.
type apiError struct {
	code int
	msg  string
	err  error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *apiError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &apiError{code: http.StatusBadRequest, msg: "invalid request", err: err}
}

func upstream(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &apiError{code: http.StatusGatewayTimeout, msg: "node request timed out", err: err}
	}
	return &apiError{code: http.StatusBadGateway, msg: "node request failed", err: err}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ExprRequest struct {
	Packed string `json:"packed" validate:"required,hexbytes"`
}

type ExprResponse struct {
	Key string `json:"key"`
}

type SignRequest struct {
	Bytes string `json:"bytes" validate:"required,hexbytes"`
}

type SignResponse struct {
	ID        string `json:"id"`
	Signature string `json:"signature"`
	Digest    string `json:"digest"`
	Signer    string `json:"signer"`
}

type SignerResponse struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
	Type      string `json:"type"`
}

type AccountResponse struct {
	Address string `json:"address"`
	Key     string `json:"key"`
	Balance string `json:"balance"`
	Amount  string `json:"amount"`
	Nonce   uint64 `json:"nonce"`
	Exists  bool   `json:"exists"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Amount  string `json:"amount"`
}

type NonceResponse struct {
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
}

type TransferRequest struct {
	// Amount is in token units; it is scaled by the token decimals.
	Amount string `json:"amount" validate:"required,decimal"`
	To     string `json:"to" validate:"required,tzaddress"`
	Sign   bool   `json:"sign"`
}

type TransferResponse struct {
	From      string        `json:"from"`
	To        string        `json:"to"`
	Contract  string        `json:"contract"`
	Amount    string        `json:"amount"`
	Nonce     uint64        `json:"nonce"`
	Packed    string        `json:"packed"`
	Signature *SignResponse `json:"signature,omitempty"`
}

type SignaturesResponse struct {
	Records []SignatureRecord `json:"records"`
	Total   int64             `json:"total"`
}

type handlerFunc func(r *http.Request) (any, error)

// API is the HTTP front of the service.
type API struct {
	signer   sign.Signer
	ledger   *tzrpc.Ledger
	store    SignatureStore
	feed     *SignatureFeed
	auth     *AuthManager
	metrics  *Metrics
	logger   log.Logger
	validate *validator.Validate
	decimals int32
}

// NewAPI wires the handlers. signer, feed and auth may be nil: without a signer
// the signing endpoints answer 503, without auth they are open.
func NewAPI(
	signer sign.Signer,
	ledger *tzrpc.Ledger,
	store SignatureStore,
	feed *SignatureFeed,
	auth *AuthManager,
	metrics *Metrics,
	decimals int32,
	logger log.Logger,
) *API {
	return &API{
		signer:   signer,
		ledger:   ledger,
		store:    store,
		feed:     feed,
		auth:     auth,
		metrics:  metrics,
		logger:   logger.WithName("api"),
		validate: getValidator(),
		decimals: decimals,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.handle(mux, "POST /v1/expr", a.handleExpr)
	a.handle(mux, "GET /v1/signer", a.handleSigner)
	a.handle(mux, "POST /v1/sign", a.handleSign)
	a.handle(mux, "GET /v1/accounts/{address}", a.handleAccount)
	a.handle(mux, "GET /v1/accounts/{address}/balance", a.handleBalance)
	a.handle(mux, "GET /v1/accounts/{address}/nonce", a.handleNonce)
	a.handle(mux, "POST /v1/transfers", a.handleTransfer)
	a.handle(mux, "GET /v1/signatures", a.handleListSignatures)
	if a.feed != nil {
		mux.HandleFunc("GET /v1/signatures/ws", a.feed.HandleConnection)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (a *API) handle(mux *http.ServeMux, pattern string, h handlerFunc) {
	tracer := otel.Tracer("github.com/eurotz/tzgate")
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := tracer.Start(r.Context(), pattern)
		defer span.End()

		ctx = log.SetContextLogger(ctx, a.logger.WithKV("route", pattern).WithKV("requestID", uuid.NewString()))
		logger := log.FromContext(ctx)

		res, err := h(r.WithContext(ctx))
		code := http.StatusOK
		if err != nil {
			var msg string
			code, msg = a.errorStatus(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, msg)
			if code >= http.StatusInternalServerError {
				logger.Error("request failed", "status", code, "error", err)
			} else {
				logger.Debug("request rejected", "status", code, "error", err)
			}
			res = ErrorResponse{Error: msg}
		}
		span.SetAttributes(attribute.Int("http.status_code", code))
		writeJSON(w, code, res)

		a.metrics.HTTPRequests.WithLabelValues(pattern, strconv.Itoa(code)).Inc()
		a.metrics.HTTPRequestDuration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
	})
}

func (a *API) errorStatus(err error) (int, string) {
	var (
		apiErr        *apiError
		validationErr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, errSigningDisabled):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &apiErr):
		if apiErr.code >= http.StatusInternalServerError {
			return apiErr.code, apiErr.msg
		}
		return apiErr.code, apiErr.Error()
	case errors.Is(err, hexbuf.ErrMalformedHex), sign.IsInvalidKey(err), isEncodingError(err):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, defaultAPIErrorMessage
	}
}

func isEncodingError(err error) bool {
	for _, target := range []error{
		b58check.ErrInvalidCharacter,
		b58check.ErrChecksumMismatch,
		b58check.ErrTooShort,
		b58check.ErrPrefixMismatch,
		b58check.ErrInvalidLength,
		b58check.ErrUnknownKind,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (a *API) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(err)
	}
	return a.validate.Struct(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) handleExpr(r *http.Request) (any, error) {
	var req ExprRequest
	if err := a.decode(r, &req); err != nil {
		return nil, err
	}
	key, err := michelson.ExprKey(req.Packed)
	if err != nil {
		return nil, err
	}
	a.metrics.ExprKeysDerived.Inc()
	return ExprResponse{Key: key.String()}, nil
}

func (a *API) handleSigner(r *http.Request) (any, error) {
	if a.signer == nil {
		return nil, errSigningDisabled
	}
	pub := a.signer.PublicKey()
	return SignerResponse{
		Address:   pub.Address().String(),
		PublicKey: pub.Encoded().String(),
		Type:      pub.Type().String(),
	}, nil
}

func (a *API) handleSign(r *http.Request) (any, error) {
	if _, err := a.auth.Authorize(r, ScopeSign); err != nil {
		return nil, err
	}
	if a.signer == nil {
		return nil, errSigningDisabled
	}

	var req SignRequest
	if err := a.decode(r, &req); err != nil {
		a.metrics.SigningFailures.WithLabelValues(string(PurposeRaw)).Inc()
		return nil, err
	}

	message, err := hexbuf.Decode(req.Bytes)
	if err != nil {
		return nil, err
	}
	record, err := a.issue(r.Context(), PurposeRaw, message, nil)
	if err != nil {
		return nil, err
	}
	return newSignResponse(record), nil
}

func (a *API) handleAccount(r *http.Request) (any, error) {
	acc, err := a.account(r)
	if err != nil {
		return nil, err
	}
	return AccountResponse{
		Address: acc.Address,
		Key:     acc.Key.String(),
		Balance: acc.Balance.String(),
		Amount:  a.toAmount(acc.Balance),
		Nonce:   acc.Nonce,
		Exists:  acc.Exists,
	}, nil
}

func (a *API) handleBalance(r *http.Request) (any, error) {
	acc, err := a.account(r)
	if err != nil {
		return nil, err
	}
	return BalanceResponse{
		Address: acc.Address,
		Balance: acc.Balance.String(),
		Amount:  a.toAmount(acc.Balance),
	}, nil
}

func (a *API) handleNonce(r *http.Request) (any, error) {
	acc, err := a.account(r)
	if err != nil {
		return nil, err
	}
	return NonceResponse{Address: acc.Address, Nonce: acc.Nonce}, nil
}

func (a *API) account(r *http.Request) (tzrpc.Account, error) {
	addr, err := sign.ParseAccount(r.PathValue("address"))
	if err != nil {
		return tzrpc.Account{}, badRequest(err)
	}

	acc, err := a.ledger.Account(r.Context(), addr.String())
	a.metrics.RecordLookup(acc, err)
	if err != nil {
		return tzrpc.Account{}, upstream(err)
	}
	return acc, nil
}

func (a *API) handleTransfer(r *http.Request) (any, error) {
	var req TransferRequest
	if err := a.decode(r, &req); err != nil {
		return nil, err
	}
	if req.Sign {
		if _, err := a.auth.Authorize(r, ScopeSign); err != nil {
			return nil, err
		}
	}
	if a.signer == nil {
		return nil, errSigningDisabled
	}

	amount, err := a.toBaseUnits(req.Amount)
	if err != nil {
		return nil, badRequest(err)
	}

	ctx := r.Context()
	from := a.signer.PublicKey().Address().String()
	nonce, err := a.ledger.Nonce(ctx, from)
	if err != nil {
		return nil, upstream(err)
	}

	transfer := michelson.Transfer{
		Amount:   amount,
		Nonce:    nonce,
		From:     from,
		To:       req.To,
		Contract: a.ledger.Contract(),
	}
	packed, err := a.ledger.PackTransfer(ctx, transfer)
	if err != nil {
		return nil, upstream(err)
	}

	res := TransferResponse{
		From:     from,
		To:       req.To,
		Contract: transfer.Contract,
		Amount:   amount.String(),
		Nonce:    nonce,
		Packed:   packed,
	}
	if !req.Sign {
		return res, nil
	}

	payload, err := hexbuf.Decode(packed)
	if err != nil {
		return nil, upstream(err)
	}
	record, err := a.issue(ctx, PurposeTransfer, payload, TransferDetails{
		Amount:   res.Amount,
		Nonce:    nonce,
		From:     from,
		To:       req.To,
		Contract: transfer.Contract,
	})
	if err != nil {
		return nil, err
	}
	sig := newSignResponse(record)
	res.Signature = &sig
	return res, nil
}

func (a *API) handleListSignatures(r *http.Request) (any, error) {
	query := r.URL.Query()

	var signer *string
	if s := query.Get("signer"); s != "" {
		if _, err := sign.ParseAddress(s); err != nil {
			return nil, badRequest(err)
		}
		signer = &s
	}

	var purpose *SignaturePurpose
	if p := query.Get("purpose"); p != "" {
		v := SignaturePurpose(p)
		if v != PurposeRaw && v != PurposeTransfer && v != PurposeCLI {
			return nil, badRequest(fmt.Errorf("unknown purpose %q", p))
		}
		purpose = &v
	}

	options := &ListOptions{}
	for name, dst := range map[string]*uint32{"offset": &options.Offset, "limit": &options.Limit} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, badRequest(fmt.Errorf("invalid %s %q", name, raw))
		}
		*dst = uint32(v)
	}
	if s := query.Get("sort"); s != "" {
		sort := SortType(s)
		options.Sort = &sort
	}
	if err := a.validate.Struct(options); err != nil {
		return nil, err
	}

	ctx := r.Context()
	records, err := a.store.List(ctx, signer, purpose, options)
	if err != nil {
		return nil, fmt.Errorf("failed to list signatures: %w", err)
	}
	total, err := a.store.Count(ctx, signer, purpose)
	if err != nil {
		return nil, fmt.Errorf("failed to count signatures: %w", err)
	}
	if records == nil {
		records = []SignatureRecord{}
	}
	return SignaturesResponse{Records: records, Total: total}, nil
}

func (a *API) issue(ctx context.Context, purpose SignaturePurpose, payload []byte, details any) (SignatureRecord, error) {
	record, err := SignAndRecord(ctx, a.store, a.signer, purpose, payload, details)
	if err != nil {
		a.metrics.SigningFailures.WithLabelValues(string(purpose)).Inc()
		return SignatureRecord{}, err
	}

	a.metrics.SignaturesIssued.WithLabelValues(record.Kind, string(purpose)).Inc()
	if a.feed != nil {
		a.feed.Publish(record)
	}
	log.FromContext(ctx).Info("signature issued", "id", record.ID, "purpose", purpose, "digest", record.Digest)
	return record, nil
}

func newSignResponse(record SignatureRecord) SignResponse {
	return SignResponse{
		ID:        record.ID,
		Signature: record.Signature,
		Digest:    record.Digest,
		Signer:    record.Signer,
	}
}

// toAmount converts ledger base units to token units.
func (a *API) toAmount(base decimal.Decimal) string {
	return base.Shift(-a.decimals).String()
}

// maxAmountDigits bounds token amounts to what fits a 256-bit nat.
const maxAmountDigits = 78

var maxBaseUnits = decimal.New(1, maxAmountDigits)

// parseAmount parses a plain decimal amount. Exponent notation is rejected.
func parseAmount(amount string) (decimal.Decimal, error) {
	if len(amount) > 2*maxAmountDigits {
		return decimal.Zero, fmt.Errorf("amount has more than %d characters", 2*maxAmountDigits)
	}
	if strings.ContainsAny(amount, "eE") {
		return decimal.Zero, fmt.Errorf("amount %q uses exponent notation", amount)
	}
	return decimal.NewFromString(amount)
}

// toBaseUnits converts a positive token amount to ledger base units.
func (a *API) toBaseUnits(amount string) (decimal.Decimal, error) {
	d, err := parseAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}
	base := d.Shift(a.decimals)
	if !base.IsInteger() {
		return decimal.Zero, fmt.Errorf("amount %s has more than %d decimals", amount, a.decimals)
	}
	if !base.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", amount)
	}
	if base.Cmp(maxBaseUnits) >= 0 {
		return decimal.Zero, fmt.Errorf("amount %s exceeds %d base unit digits", amount, maxAmountDigits)
	}
	return base, nil
}
