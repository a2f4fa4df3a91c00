package omv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/jamesprial/omv-mcp/internal/config"
)

// endpointPath is the JSON-RPC endpoint exposed by every OMV release.
const endpointPath = "/rpc.php"

const defaultTimeout = 10 * time.Second

// RPC error codes the session layer returns when the cookie is missing or
// no longer valid.
const (
	errCodeNotAuthenticated = 5000
	errCodeSessionExpired   = 5001
)

// Compile-time interface check.
var _ Client = (*RPCClient)(nil)

// RPCClient is a concrete implementation of the Client interface that sends
// OMV JSON-RPC requests over HTTP using the standard library net/http
// package. The session cookie obtained by Login is kept on the client's
// cookie jar and sent with every subsequent request.
type RPCClient struct {
	httpClient *http.Client
	endpoint   string
	username   string
	password   string
}

// NewRPCClient constructs an RPCClient from the provided OMVConfig. It
// returns an error if cfg.Host is empty. When cfg.Timeout is zero or
// negative, a default timeout of 10 seconds is used.
func NewRPCClient(cfg config.OMVConfig) (*RPCClient, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("omv: host is required")
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout <= 0 {
		timeout = defaultTimeout
	}

	// cookiejar.New only fails on a bad PublicSuffixList option.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("omv: create cookie jar: %w", err)
	}

	return &RPCClient{
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
		endpoint:   normalizeEndpoint(cfg.Host),
		username:   cfg.Username,
		password:   cfg.Password,
	}, nil
}

// normalizeEndpoint trims any trailing slash from host and appends /rpc.php
// if the path does not already end with that suffix.
func normalizeEndpoint(host string) string {
	u := strings.TrimRight(host, "/")
	if !strings.HasSuffix(u, endpointPath) {
		u += endpointPath
	}
	return u
}

// rpcRequest is the JSON body shape for an OMV JSON-RPC request.
type rpcRequest struct {
	Service string         `json:"service"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	Options map[string]any `json:"options,omitempty"`
}

// rpcError is an error object inside an OMV JSON-RPC response.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcEnvelope is the JSON body shape for an OMV JSON-RPC response.
type rpcEnvelope struct {
	Response json.RawMessage `json:"response"`
	Error    *rpcError       `json:"error"`
}

// call posts req to the RPC endpoint and decodes the response envelope.
// Transport failures are returned as *NetworkError, undecodable bodies as
// *ParseError. RPC-level errors inside the envelope are left for the caller
// to classify.
func (c *RPCClient) call(ctx context.Context, rpcReq rpcRequest) (*rpcEnvelope, error) {
	op := fmt.Sprintf("%s.%s", rpcReq.Service, rpcReq.Method)

	bodyBytes, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, fmt.Errorf("omv: marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("omv: create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{Message: fmt.Sprintf("%s: HTTP %d", op, resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)}
	}

	var envelope rpcEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &ParseError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	return &envelope, nil
}

// Login authenticates against the OMV session service. The session cookie
// set by the server lands on the client's cookie jar and is sent with every
// later call. Login may be called again at any time to replace an expired
// session.
func (c *RPCClient) Login(ctx context.Context) error {
	envelope, err := c.call(ctx, rpcRequest{
		Service: "session",
		Method:  "login",
		Params: map[string]any{
			"username": c.username,
			"password": c.password,
		},
	})
	if err != nil {
		return err
	}

	if envelope.Error != nil {
		return &AuthError{Code: envelope.Error.Code, Message: envelope.Error.Message}
	}

	// Some OMV releases report a failed login with authenticated=false and
	// a null error instead of an error object.
	var loginResp struct {
		Authenticated *bool `json:"authenticated"`
	}
	if len(envelope.Response) > 0 {
		if err := json.Unmarshal(envelope.Response, &loginResp); err == nil &&
			loginResp.Authenticated != nil && !*loginResp.Authenticated {
			return &AuthError{Message: "invalid credentials"}
		}
	}

	return nil
}

// SystemInformation fetches the System.getInformation RPC and returns the
// parsed snapshot. RPC error codes 5000 and 5001 are returned as
// *AuthError so the caller can re-authenticate and retry.
func (c *RPCClient) SystemInformation(ctx context.Context) (*Snapshot, error) {
	envelope, err := c.call(ctx, rpcRequest{
		Service: "System",
		Method:  "getInformation",
		Params:  map[string]any{},
		Options: map[string]any{"updatelastaccess": false},
	})
	if err != nil {
		return nil, err
	}

	if envelope.Error != nil {
		if envelope.Error.Code == errCodeNotAuthenticated || envelope.Error.Code == errCodeSessionExpired {
			return nil, &AuthError{Code: envelope.Error.Code, Message: envelope.Error.Message}
		}
		return nil, fmt.Errorf("omv: system information: rpc error %d: %s",
			envelope.Error.Code, envelope.Error.Message)
	}

	return decodeSnapshot(envelope.Response)
}

// statusField is one entry of the array-shaped System.getInformation
// response:
//
//	{"name": "CPU usage", "value": {"text": "3%", "value": 3}, "type": "progress", "index": 7}
type statusField struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
	Type  string          `json:"type"`
	Index int             `json:"index"`
}

// decodeSnapshot parses the "response" member of a System.getInformation
// envelope. Older OMV releases return an array of named fields; newer ones
// return a flat object. Both are normalized into the same field map. The
// map is built completely before the Snapshot is returned so a decode
// failure never yields a partial snapshot.
func decodeSnapshot(raw json.RawMessage) (*Snapshot, error) {
	const op = "System.getInformation"

	if len(raw) == 0 || string(raw) == "null" {
		return nil, &ParseError{Op: op, Err: fmt.Errorf("response member is missing")}
	}

	fields := make(map[string]any)

	var list []statusField
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, f := range list {
			if f.Name == "" {
				return nil, &ParseError{Op: op, Err: fmt.Errorf("status field without a name")}
			}
			if err := storeField(fields, f.Name, f.Value); err != nil {
				return nil, &ParseError{Op: op, Err: err}
			}
		}
		return &Snapshot{Fields: fields, FetchedAt: time.Now()}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, &ParseError{Op: op, Err: fmt.Errorf("response is neither field array nor object: %w", err)}
	}
	for name, value := range obj {
		if err := storeField(fields, name, value); err != nil {
			return nil, &ParseError{Op: op, Err: err}
		}
	}
	return &Snapshot{Fields: fields, FetchedAt: time.Now()}, nil
}

// fieldAliases folds the display names used by array-shaped responses onto
// the canonical keys the object shape uses, so a condition key like
// "cpuusage" resolves regardless of the OMV version answering.
var fieldAliases = map[string]string{
	"processor":    "cpumodelname",
	"system_time":  "time",
	"load_average": "loadaverage",
	"cpu_usage":    "cpuusage",
	"memory_usage": "memused",
}

// storeField decodes one raw field value into fields under the normalized
// key. Progress-typed values ({"text": ..., "value": ...}) keep their
// numeric part under the field key and the display text under "<key>_text".
func storeField(fields map[string]any, name string, raw json.RawMessage) error {
	key := normalizeKey(name)
	if alias, ok := fieldAliases[key]; ok {
		key = alias
	}

	var progress struct {
		Text  *string          `json:"text"`
		Value *json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &progress); err == nil && progress.Value != nil {
		var inner any
		if err := json.Unmarshal(*progress.Value, &inner); err != nil {
			return fmt.Errorf("field %q: decode progress value: %w", name, err)
		}
		fields[key] = inner
		if progress.Text != nil {
			fields[key+"_text"] = *progress.Text
		}
		return nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("field %q: decode value: %w", name, err)
	}
	fields[key] = value
	return nil
}

// normalizeKey lowercases name and replaces spaces with underscores, so
// "CPU usage" and "cpuusage" style keys stay stable across OMV versions.
func normalizeKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
