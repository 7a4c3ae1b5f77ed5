package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	logpkg "github.com/haukened/lbdns/internal/dns/common/log"
	"github.com/haukened/lbdns/internal/dns/domain"
)

// DefaultIPStackURL is the public ipstack endpoint.
const DefaultIPStackURL = "http://api.ipstack.com"

// HTTPDoer is the part of *http.Client used by IPStack.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// IPStackOptions configures an IPStack locator.
type IPStackOptions struct {
	// required parameters
	APIKey string
	// optional parameters
	BaseURL string
	Timeout time.Duration
	Logger  logpkg.Logger
	// options to inject for testing purposes
	Client HTTPDoer
}

// IPStack locates addresses with GET {base}/{ip}?access_key={key}.
type IPStack struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
	logger  logpkg.Logger
}

// ipstackResponse covers both the success and the error body. Coordinates are
// pointers so that absent fields can be told apart from 0,0.
type ipstackResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Success   *bool    `json:"success"`
	Error     *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
}

// NewIPStack validates opts and returns a ready locator.
func NewIPStack(opts IPStackOptions) (*IPStack, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf(errAPIKeyRequired)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultIPStackURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewNoopLogger()
	}
	return &IPStack{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		client:  opts.Client,
		logger:  opts.Logger,
	}, nil
}

// Locate queries the API for addr.
func (s *IPStack) Locate(ctx context.Context, addr string) (domain.Coordinates, error) {
	ip, err := parseIP(addr)
	if err != nil {
		return domain.Coordinates{}, err
	}

	u := s.baseURL + "/" + url.PathEscape(ip.String()) + "?" + url.Values{"access_key": {s.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf(errRequestFailed, addr, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf(errRequestFailed, addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Coordinates{}, fmt.Errorf(errUnexpectedStatus, addr, resp.StatusCode)
	}

	var body ipstackResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Coordinates{}, fmt.Errorf(errDecodeFailed, addr, err)
	}
	if body.Error != nil || (body.Success != nil && !*body.Success) {
		info, code := "unknown error", 0
		if body.Error != nil {
			info, code = body.Error.Info, body.Error.Code
			if info == "" {
				info = body.Error.Type
			}
		}
		return domain.Coordinates{}, fmt.Errorf(errAPIError, addr, info, code)
	}
	if body.Latitude == nil || body.Longitude == nil {
		return domain.Coordinates{}, fmt.Errorf(errMissingLocation, addr)
	}

	c := domain.Coordinates{Latitude: *body.Latitude, Longitude: *body.Longitude}
	if err := c.Validate(); err != nil {
		return domain.Coordinates{}, fmt.Errorf(errDecodeFailed, addr, err)
	}
	s.logger.Debug(map[string]any{"addr": addr, "lat": c.Latitude, "lon": c.Longitude}, "geo_located")
	return c, nil
}

var _ Locator = (*IPStack)(nil)
