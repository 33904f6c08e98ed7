package whttp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"

	"github.com/fundingbot/grantscope/internal/utils"
)

// UserAgent identifies the crawler to site operators, as polite crawlers should.
const UserAgent = "Mozilla/5.0 (compatible; grantscope/1.0; +https://github.com/fundingbot/grantscope)"

const downloadChunkLimit = 64 << 20 // refuse to stream more than 64 MiB to disk

// Client wraps a retrying HTTP client with the politeness settings every
// caller in this codebase needs: a fixed User-Agent, a per-request timeout
// and a mandatory inter-request delay.
type Client struct {
	retry *retryablehttp.Client
	Delay time.Duration
}

// Response is the subset of an HTTP response the rest of the pipeline cares
// about. Body is fully read and the connection returned to the pool.
type Response struct {
	StatusCode  int
	Body        string
	ContentType string
	Length      int
	HTMLTitle   string
}

// NewClient builds a Client with the given per-request timeout and
// inter-request delay. Retries with backoff on connection errors and 5xx
// are handled inside retryablehttp; 429 responses are returned as-is.
func NewClient(timeout, delay time.Duration) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = log.New(io.Discard, "", 0)
	rc.RetryMax = 3
	rc.RetryWaitMin = 1 * time.Second
	rc.RetryWaitMax = 8 * time.Second
	rc.HTTPClient.Timeout = timeout
	// A 429 is a quota signal callers must see, not a transient failure to
	// retry away.
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return &Client{retry: rc, Delay: delay}
}

// SetProxy routes all requests through the given HTTP proxy. Mainly useful
// for debugging.
func (c *Client) SetProxy(proxy string) error {
	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %v", err)
	}
	c.retry.HTTPClient.Transport = &http.Transport{
		Proxy:           http.ProxyURL(proxyURL),
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return nil
}

func (c *Client) do(method, rawURL string, headers map[string]string) (*http.Response, error) {
	req, err := retryablehttp.NewRequest(method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Language", "en")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.retry.Do(req)
	if c.Delay > 0 {
		time.Sleep(c.Delay)
	}
	return resp, err
}

// Get fetches a URL and returns the fully-read response. A non-nil error
// means the URL is unreachable after all retries; callers are expected to
// log and skip, never abort.
func (c *Client) Get(rawURL string) (*Response, error) {
	return c.GetWithHeaders(rawURL, nil)
}

func (c *Client) GetWithHeaders(rawURL string, headers map[string]string) (*Response, error) {
	resp, err := c.do(http.MethodGet, rawURL, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	res := &Response{
		StatusCode:  resp.StatusCode,
		Body:        string(bodyBytes),
		ContentType: resp.Header.Get("Content-Type"),
	}
	res.Length = utf8.RuneCountInString(res.Body)
	if title, ok := getHTMLTitle(res.Body); ok {
		res.HTMLTitle = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
	}
	return res, nil
}

// Head probes a URL for existence. Used by the domain guesser, where any
// 2xx counts as "something lives there".
func (c *Client) Head(rawURL string) bool {
	resp, err := c.do(http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Download streams the body of rawURL into destDir and returns the local
// path. The filename is derived from the URL path and sanitized.
func (c *Client) Download(rawURL, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}

	resp, err := c.do(http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: HTTP %d", rawURL, resp.StatusCode)
	}

	name := "download.pdf"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}
	dest := filepath.Join(destDir, utils.SafeFilename(name))

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(resp.Body, downloadChunkLimit)); err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

func getHTMLTitle(requestBody string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(requestBody))
	if err != nil {
		return "", false
	}
	return traverse(doc)
}
