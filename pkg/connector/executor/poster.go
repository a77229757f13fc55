package executor

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-domo/pkg/json"
)

// DeveloperTokenHeader carries the Domo access token
const DeveloperTokenHeader = "X-DOMO-Developer-Token"

// Result is the outcome of one Post. Exactly one of JSON or Err is
// meaningful; JSON may also be nil for an empty 200 body.
type Result struct {
	Status int
	JSON   interface{}
	Raw    []byte
	Err    *errors.Error
}

// OK reports whether the request succeeded
func (r Result) OK() bool {
	return r.Err == nil
}

// Poster sends JSON bodies to one endpoint and classifies the outcome
type Poster struct {
	transport core.Transport
	url       string
	headers   map[string]string
	logger    *zap.Logger
}

// NewPoster creates a poster for url. The developer token header is only
// sent when accessToken is non-empty.
func NewPoster(transport core.Transport, url, accessToken string, logger *zap.Logger) *Poster {
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	if accessToken != "" {
		headers[DeveloperTokenHeader] = accessToken
	}
	return &Poster{
		transport: transport,
		url:       url,
		headers:   headers,
		logger:    logger,
	}
}

// URL returns the endpoint the poster targets
func (p *Poster) URL() string {
	return p.url
}

// Post serializes body, sends it and classifies the response. It never
// returns a Go error or panics; failures are carried in Result.Err with the
// response status attached.
func (p *Poster) Post(ctx context.Context, body interface{}) Result {
	payload, err := jsonpool.Marshal(body)
	if err != nil {
		return Result{Err: errors.Wrap(err, errors.ErrorTypeInternal, "Request exception: "+err.Error())}
	}

	resp, err := p.transport.Do(ctx, &core.Request{
		Method:  http.MethodPost,
		URL:     p.url,
		Headers: p.headers,
		Body:    payload,
	})
	if err != nil {
		return Result{Err: errors.Wrap(err, errors.ErrorTypeTransport, "Request exception: "+err.Error())}
	}

	res := Result{Status: resp.StatusCode, Raw: resp.Body}

	if resp.StatusCode != http.StatusOK {
		res.Err = errors.Newf(errors.ErrorTypeTransport, "HTTP %d", resp.StatusCode).WithStatus(resp.StatusCode)
		return res
	}

	if len(resp.Body) > 0 {
		parsed, err := jsonpool.Decode(resp.Body)
		if err != nil {
			res.Err = errors.Wrap(err, errors.ErrorTypeParse, "Invalid JSON: "+err.Error()).WithStatus(resp.StatusCode)
			return res
		}
		res.JSON = parsed
	}

	if messages := graphQLErrors(res.JSON); len(messages) > 0 {
		res.Err = errors.New(errors.ErrorTypeProtocol, "GraphQL: "+strings.Join(messages, "; ")).
			WithStatus(resp.StatusCode).
			WithDetail("errors", messages)
	}

	return res
}

// graphQLErrors returns the messages of a non-empty top-level errors array
func graphQLErrors(body interface{}) []string {
	obj, ok := body.(map[string]interface{})
	if !ok {
		return nil
	}
	list, ok := obj["errors"].([]interface{})
	if !ok || len(list) == 0 {
		return nil
	}

	messages := make([]string, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			messages = append(messages, fmt.Sprint(item))
			continue
		}
		if msg, ok := entry["message"].(string); ok {
			messages = append(messages, msg)
		} else {
			messages = append(messages, fmt.Sprint(entry["message"]))
		}
	}
	return messages
}
