// Package describe resolves event IDs to human-readable descriptions from an
// optional remote or local source.
package describe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tinytelemetry/eventlens/internal/model"
	"github.com/valyala/fastjson"
	"gopkg.in/yaml.v3"
)

const maxPayloadBytes = 8 << 20

// ErrNoDescriptions reports a source that answered with an empty mapping.
var ErrNoDescriptions = errors.New("no descriptions in source")

// HTTPSource fetches a JSON mapping of event ID to description.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource returns a source for url whose client gives up after timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = model.DefaultDescribeTimeout
	}
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: timeout}}
}

// Descriptions performs a single GET and decodes the payload. Accepted shapes
// are an object {"4624": "text"} or an array of objects carrying an id key
// (id, Id, event_id, EventID) and a text key (description, Description, text).
func (s *HTTPSource) Descriptions(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", s.URL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.URL, err)
	}
	return parsePayload(body)
}

var (
	idKeys   = []string{"id", "Id", "event_id", "EventID"}
	textKeys = []string{"description", "Description", "text"}
)

func parsePayload(body []byte) (map[string]string, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode descriptions: %w", err)
	}

	out := make(map[string]string)
	switch v.Type() {
	case fastjson.TypeObject:
		obj, _ := v.Object()
		obj.Visit(func(key []byte, val *fastjson.Value) {
			if val.Type() != fastjson.TypeString {
				return
			}
			if text := scalarText(val); text != "" {
				out[string(key)] = text
			}
		})
	case fastjson.TypeArray:
		items, _ := v.Array()
		for _, item := range items {
			if item.Type() != fastjson.TypeObject {
				continue
			}
			id := firstField(item, idKeys)
			text := firstField(item, textKeys)
			if id != "" && text != "" {
				out[id] = text
			}
		}
	default:
		return nil, fmt.Errorf("decode descriptions: unexpected %s payload", v.Type())
	}

	if len(out) == 0 {
		return nil, ErrNoDescriptions
	}
	return out, nil
}

func firstField(v *fastjson.Value, keys []string) string {
	for _, k := range keys {
		if f := v.Get(k); f != nil {
			if s := scalarText(f); s != "" {
				return s
			}
		}
	}
	return ""
}

func scalarText(v *fastjson.Value) string {
	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return strings.TrimSpace(string(b))
	case fastjson.TypeNumber:
		return v.String()
	}
	return ""
}

// FileSource reads a YAML document mapping event IDs to descriptions.
type FileSource struct {
	Path string
}

// Descriptions reads and decodes the file on every call; wrap it in a Cache.
func (s FileSource) Descriptions(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read descriptions: %w", err)
	}

	// Keys are usually bare numbers, so decode loosely and stringify.
	var raw map[interface{}]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		text, ok := v.(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		out[fmt.Sprint(k)] = strings.TrimSpace(text)
	}
	if len(out) == 0 {
		return nil, ErrNoDescriptions
	}
	return out, nil
}

// Static is an in-memory source.
type Static map[string]string

func (s Static) Descriptions(context.Context) (map[string]string, error) {
	if len(s) == 0 {
		return nil, ErrNoDescriptions
	}
	return s, nil
}

// NewSource picks the configured source: a local file wins over a URL.
// It returns nil when neither is set.
func NewSource(url, file string, timeout time.Duration) model.DescriptionSource {
	switch {
	case file != "":
		return FileSource{Path: file}
	case url != "":
		return NewHTTPSource(url, timeout)
	}
	return nil
}
