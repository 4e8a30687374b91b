// Package tzrpc is a minimal client for the Tezos node RPC: packing Michelson
// data and reading big-map entries.
package tzrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/eurotz/tzgate/pkg/b58check"
	"github.com/eurotz/tzgate/pkg/log"
	"github.com/eurotz/tzgate/pkg/michelson"
)

const (
	packDataPath = "/chains/main/blocks/head/helpers/scripts/pack_data"
	bigMapPath   = "/chains/main/blocks/head/context/big_maps"

	maxErrorBody = 512
)

// ErrNotFound is returned when the node answers 404.
var ErrNotFound = errors.New("not found")

// Config is the node connection configuration.
type Config struct {
	URL      string        `env:"TEZOS_RPC_URL" env-default:"http://localhost:8732" validate:"required,url"`
	GasLimit string        `env:"TEZOS_GAS_LIMIT" env-default:"800000"`
	Timeout  time.Duration `env:"TEZOS_RPC_TIMEOUT" env-default:"10s"`
}

// StatusError is a non-2xx answer from the node.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Unwrap lets errors.Is(err, ErrNotFound) match 404 answers.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client talks to a single Tezos node.
type Client struct {
	baseURL    string
	gasLimit   string
	httpClient *http.Client
	logger     log.Logger
	tracer     trace.Tracer
}

// NewClient creates a client for conf.URL. A nil logger disables logging.
func NewClient(conf Config, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if conf.GasLimit == "" {
		conf.GasLimit = "800000"
	}
	return &Client{
		baseURL:    strings.TrimRight(conf.URL, "/"),
		gasLimit:   conf.GasLimit,
		httpClient: &http.Client{Timeout: conf.Timeout},
		logger:     logger.WithName("tzrpc"),
		tracer:     otel.Tracer("github.com/eurotz/tzgate/pkg/tzrpc"),
	}
}

type packDataRequest struct {
	Data michelson.Node `json:"data"`
	Type michelson.Node `json:"type"`
	Gas  string         `json:"gas"`
}

type packDataResponse struct {
	Packed string `json:"packed"`
	Gas    string `json:"gas,omitempty"`
}

// PackData serializes data as typ with the node's pack_data helper and returns
// the packed bytes as hex.
func (c *Client) PackData(ctx context.Context, value michelson.Typed) (string, error) {
	var res packDataResponse
	req := packDataRequest{Data: value.Data, Type: value.Type, Gas: c.gasLimit}
	if err := c.do(ctx, "PackData", http.MethodPost, packDataPath, req, &res); err != nil {
		return "", err
	}
	if res.Packed == "" {
		return "", fmt.Errorf("pack_data returned no packed bytes")
	}
	return res.Packed, nil
}

// BigMapValue reads the value stored under key in big map bigMapID. A missing
// entry returns an error matching ErrNotFound.
func (c *Client) BigMapValue(ctx context.Context, bigMapID int64, key b58check.Encoded) (michelson.Node, error) {
	if key.Kind != b58check.KindScriptExpr {
		return michelson.Node{}, fmt.Errorf("big map key must be %s, got %s", b58check.KindScriptExpr, key.Kind)
	}

	var value michelson.Node
	path := bigMapPath + "/" + strconv.FormatInt(bigMapID, 10) + "/" + key.String()
	if err := c.do(ctx, "BigMapValue", http.MethodGet, path, nil, &value); err != nil {
		return michelson.Node{}, err
	}
	return value, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "tzrpc."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger := c.logger.WithKV("method", method).WithKV("path", path)
	start := time.Now()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("node request failed", "error", err)
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	logger.Debug("node request", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
