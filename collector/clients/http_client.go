package clients

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/Luismorlan/postwall/utils"
	Logger "github.com/Luismorlan/postwall/utils/log"
)

const (
	DefaultRequestTimeout = 15 * time.Second

	// Upper bound of a response body we are willing to read.
	maxBodyBytes = 8 << 20

	maxLoggedBodyBytes = 512
)

var ErrRateLimited = errors.New("rate limited by provider")

// StatusError is returned for any non-2XX response other than 429.
type StatusError struct {
	StatusCode int
	Uri        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-200 http code %d from %s", e.StatusCode, e.Uri)
}

func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

type HttpClient struct {
	header  http.Header
	cookies []http.Cookie

	client *http.Client
}

func NewDefaultHttpClient() *HttpClient {
	return NewHttpClient(http.Header{}, []http.Cookie{}, DefaultRequestTimeout)
}

// Every request issued by the client is bounded by timeout, in addition to
// whatever deadline the caller's context carries.
func NewHttpClient(header http.Header, cookies []http.Cookie, timeout time.Duration) *HttpClient {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if header == nil {
		header = http.Header{}
	}
	return &HttpClient{header: header, cookies: cookies, client: &http.Client{Timeout: timeout}}
}

func (c *HttpClient) Get(ctx context.Context, uri string) ([]byte, error) {
	return c.GetWithQueryParams(ctx, uri, nil)
}

// This method takes in an additional map from query key to query value, which
// will be appended to query uri as ?${KEY}=${VALUE}
func (c *HttpClient) GetWithQueryParams(ctx context.Context, uri string, params map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to build request for %s", uri)
	}
	req.Header = c.header.Clone()
	query := req.URL.Query()
	for k, v := range params {
		query.Set(k, v)
	}
	req.URL.RawQuery = query.Encode()
	for i := range c.cookies {
		req.AddCookie(&c.cookies[i])
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request to %s failed", uri)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if IsNon200HttpResponse(res) {
		MaybeLogNon200HttpError(res)
		return nil, &StatusError{StatusCode: res.StatusCode, Uri: uri}
	}

	body, err := ioutil.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "fail to read response from %s", uri)
	}
	return body, nil
}

// Log http response if the error code is not 2XX
func MaybeLogNon200HttpError(res *http.Response) {
	if IsNon200HttpResponse(res) {
		Logger.Log.Errorf("non-200 http code: %d", res.StatusCode)
		LogHttpResponseBody(res)
	}
}

func IsNon200HttpResponse(res *http.Response) bool {
	return res.StatusCode < 200 || res.StatusCode >= 300
}

func LogHttpResponseBody(res *http.Response) {
	body, err := ioutil.ReadAll(io.LimitReader(res.Body, 4096))
	if err == nil {
		Logger.Log.Errorln("response body is: ", utils.Truncate(string(body), maxLoggedBodyBytes))
	}
}
