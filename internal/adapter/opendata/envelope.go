// Package opendata decodes responses from the Korean public data portal
// (data.go.kr). The portal converts XML to JSON, so a list with one entry
// arrives as an object and an empty list as "" or null.
package opendata

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
)

// ResultOK is the header result code of a successful call.
const ResultOK = "00"

// ErrNoData is the portal's "no data" result. Callers treat it as an empty list.
var ErrNoData = errors.New("open data: no data")

// Envelope is the response wrapper shared by every portal endpoint.
type Envelope[T any] struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			Items      Items[T] `json:"items"`
			TotalCount Scalar   `json:"totalCount"`
		} `json:"body"`
	} `json:"response"`
}

// Items is response.body.items. The item field may be a single object, an
// array, an empty string, or absent; all decode to a slice.
type Items[T any] struct {
	Item []T
}

// UnmarshalJSON coerces every item shape to a slice.
func (it *Items[T]) UnmarshalJSON(data []byte) error {
	it.Item = nil
	data = bytes.TrimSpace(data)
	if isEmptyJSON(data) {
		return nil
	}

	var wrapper struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("decode items: %w", err)
	}

	raw := bytes.TrimSpace(wrapper.Item)
	switch {
	case isEmptyJSON(raw):
		return nil
	case raw[0] == '[':
		return json.Unmarshal(raw, &it.Item)
	default:
		var one T
		if err := json.Unmarshal(raw, &one); err != nil {
			return fmt.Errorf("decode item: %w", err)
		}
		it.Item = []T{one}
		return nil
	}
}

func isEmptyJSON(data []byte) bool {
	s := string(data)
	return s == "" || s == "null" || s == `""`
}

// Scalar is a value the portal sends as either a number or a string.
type Scalar string

// UnmarshalJSON accepts strings, numbers, and null.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Scalar(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode scalar: %w", err)
	}
	*s = Scalar(n.String())
	return nil
}

// String returns the raw text.
func (s Scalar) String() string { return string(s) }

// Float parses the value as a number.
func (s Scalar) Float() (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Fetch performs a GET and returns the decoded items. A non-"00" result code
// is an error, except the portal's "03" (no data) which yields ErrNoData.
func Fetch[T any](ctx context.Context, client *http.Client, fullURL string) ([]T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open data request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open data API error: status %d: %s", resp.StatusCode, body)
	}

	var env Envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch code := env.Response.Header.ResultCode; code {
	case ResultOK:
		return env.Response.Body.Items.Item, nil
	case "03":
		return nil, ErrNoData
	default:
		return nil, fmt.Errorf("open data result %s: %s", code, env.Response.Header.ResultMsg)
	}
}
