// Package fhirclient talks to a FHIR terminology server over HTTP.
//
// The Client implements terminology.Client using the CodeSystem/$lookup
// operation, optionally authenticated with an OAuth2 client-credentials
// bearer token. CommonUnitsFetcher downloads the FHIR specification's
// common UCUM value set.
package fhirclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/labcodeset/terminology"
)

const (
	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "labcodeset-fhir"

	fhirJSON = "application/fhir+json"
)

// Client is a FHIR terminology client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     *TokenSource
	probe      *terminology.ResponseProbe
	userAgent  string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithTokenSource authenticates requests with bearer tokens from ts.
func WithTokenSource(ts *TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client for the FHIR endpoint at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		probe:     terminology.NewResponseProbe(),
		userAgent: DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// LookupDisplay implements terminology.Client.
func (c *Client) LookupDisplay(ctx context.Context, code, system, version string) (string, error) {
	body, err := c.lookup(ctx, code, system, version, "display")
	if err != nil {
		return "", err
	}

	params, err := decodeParameters(body)
	if err != nil {
		return "", err
	}
	for _, p := range params.Parameter {
		if deref(p.Name) == "display" {
			v, _ := parameterValue(p)
			return v, nil
		}
	}
	return "", nil
}

// LookupProperties implements terminology.Client.
func (c *Client) LookupProperties(ctx context.Context, code, system, version string) ([]terminology.Property, error) {
	body, err := c.lookup(ctx, code, system, version, "*")
	if err != nil {
		return nil, err
	}

	params, err := decodeParameters(body)
	if err != nil {
		return nil, err
	}

	var props []terminology.Property
	for _, p := range params.Parameter {
		if deref(p.Name) != "property" {
			continue
		}
		prop, ok := property(p)
		if ok {
			props = append(props, prop)
		}
	}
	return props, nil
}

func (c *Client) lookup(ctx context.Context, code, system, version, property string) ([]byte, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("system", system)
	if version != "" {
		q.Set("version", version)
	}
	q.Set("property", property)
	u := c.baseURL + "/CodeSystem/$lookup?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", fhirJSON)
	req.Header.Set("User-Agent", c.userAgent)
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s|%s: %w", system, code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serr := newStatusError(resp, u)
		switch resp.StatusCode {
		case http.StatusNotFound:
			serr.notFound = true
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			serr.notFound = c.probe.NotFound([]byte(serr.Body))
		}
		return nil, serr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup response: %w", err)
	}
	return body, nil
}

func decodeParameters(body []byte) (*r4.Parameters, error) {
	var p r4.Parameters
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if p.ResourceType != "Parameters" {
		return nil, fmt.Errorf("unexpected %q resource in lookup response", p.ResourceType)
	}
	return &p, nil
}

// parameterValue returns the primitive value of a parameter and, for
// codings, its display.
func parameterValue(p r4.ParametersParameter) (value, display string) {
	switch {
	case p.ValueCoding != nil:
		return deref(p.ValueCoding.Code), deref(p.ValueCoding.Display)
	case p.ValueCode != nil:
		return *p.ValueCode, ""
	case p.ValueString != nil:
		return *p.ValueString, ""
	case p.ValueBoolean != nil:
		return strconv.FormatBool(*p.ValueBoolean), ""
	case p.ValueInteger != nil:
		return strconv.Itoa(*p.ValueInteger), ""
	case p.ValueDecimal != nil:
		return strconv.FormatFloat(*p.ValueDecimal, 'f', -1, 64), ""
	}
	return "", ""
}

// property converts a "property" parameter into a name/value pair.
// A property with no value part keeps an empty Value.
func property(p r4.ParametersParameter) (terminology.Property, bool) {
	var prop terminology.Property
	for _, part := range p.Part {
		switch deref(part.Name) {
		case "code":
			prop.Name, _ = parameterValue(part)
		case "value":
			prop.Value, prop.Display = parameterValue(part)
		}
	}
	return prop, prop.Name != ""
}

var _ terminology.Client = (*Client)(nil)
