package htsget

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fluhus/ngstream/common"
)

// Ticket is the server's answer to a reads request: where to fetch the data
// blocks from.
type Ticket struct {
	Format string    `json:"format"`
	URLs   []DataURL `json:"urls"`
	MD5    string    `json:"md5"`
}

// DataURL is one block of a ticket.
type DataURL struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Class   string            `json:"class"` // "header", "body" or empty.
}

// Query holds the parameters of a ticket request.
type Query struct {
	Format string
	Class  string // Only "header" is valid.
	Window *Window
	MD5    string
	Tags   []string
	NoTags []string
}

// RequestURL returns the ticket request URL for base and q.
func RequestURL(base *url.URL, q Query) string {
	vals := base.Query()
	if q.Format != "" {
		vals.Set("format", strings.ToUpper(q.Format))
	}
	if q.Class != "" {
		vals.Set("class", q.Class)
	}
	if w := q.Window; w != nil && w.Chrom != "" {
		vals.Set("referenceName", w.Chrom)
		if w.End > 0 {
			vals.Set("start", strconv.Itoa(w.Start))
			vals.Set("end", strconv.Itoa(w.End))
		} else if w.Start > 0 {
			vals.Set("start", strconv.Itoa(w.Start))
		}
	}
	if q.MD5 != "" {
		vals.Set("referenceMD5", q.MD5)
	}
	if q.Tags != nil {
		vals.Set("tags", strings.Join(q.Tags, ","))
	}
	if q.NoTags != nil {
		vals.Set("notags", strings.Join(q.NoTags, ","))
	}
	u := *base
	u.RawQuery = vals.Encode()
	return u.String()
}

// Checks an HTTP response status.
func checkStatus(resp *http.Response, u string) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return common.AuthError(nil, "GET %s: %s", u, resp.Status)
	case resp.StatusCode/100 != 2:
		return common.ConnectionError(nil, "GET %s: %s", u, resp.Status)
	}
	return nil
}

// Sends a GET request with the given headers.
func get(ctx context.Context, client *http.Client, u string,
	headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, common.ConnectionError(err, "GET %s", u)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, common.ConnectionError(err, "GET %s", u)
	}
	if err := checkStatus(resp, u); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// FetchTicket requests a ticket. token, if not empty, is sent as a bearer
// token.
func FetchTicket(ctx context.Context, client *http.Client, u, token string,
) (*Ticket, error) {
	var headers map[string]string
	if token != "" {
		headers = map[string]string{"Authorization": "Bearer " + token}
	}
	resp, err := get(ctx, client, u, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var body struct {
		Htsget *Ticket `json:"htsget"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, common.FormatError(err, "decode ticket from %s", u)
	}
	if body.Htsget == nil {
		return nil, common.FormatError(nil, "ticket from %s has no htsget object", u)
	}
	return body.Htsget, nil
}

// Download writes the blocks of t to w in order. A block that sends no data
// for idle is aborted; 0 means no limit.
func (t *Ticket) Download(ctx context.Context, client *http.Client,
	idle time.Duration, w io.Writer) error {
	for _, d := range t.URLs {
		if err := d.Download(ctx, client, idle, w); err != nil {
			return err
		}
	}
	return nil
}

// Download writes the block's content to w. The download is aborted if no
// data arrives for idle; 0 means no limit.
func (d DataURL) Download(ctx context.Context, client *http.Client,
	idle time.Duration, w io.Writer) error {
	if rest, ok := strings.CutPrefix(d.URL, "data:"); ok {
		data, err := decodeDataURI(rest)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	u, err := url.Parse(d.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return common.ConnectionError(err, "unsupported block url %q", d.URL)
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	resp, err := get(ctx, client, d.URL, d.Headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var body io.Reader = resp.Body
	if idle > 0 {
		stalled := fmt.Errorf("no data for %v", idle)
		timer := time.AfterFunc(idle, func() { cancel(stalled) })
		timer.Stop()
		body = &idleReader{resp.Body, timer, idle}
	}
	n, err := io.Copy(w, body)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil && cause != context.Canceled {
			err = cause
		}
		return common.ConnectionError(err, "download %s", d.URL)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return common.FormatError(nil, "download %s: got %d bytes, want %d",
			d.URL, n, resp.ContentLength)
	}
	return nil
}

// Runs a timer only while blocked on a read, so that time spent by the
// consumer does not count.
type idleReader struct {
	r     io.Reader
	timer *time.Timer
	idle  time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	r.timer.Reset(r.idle)
	n, err := r.r.Read(p)
	r.timer.Stop()
	return n, err
}

// Decodes the part of a data URI after "data:".
func decodeDataURI(s string) ([]byte, error) {
	meta, data, ok := strings.Cut(s, ",")
	if !ok {
		return nil, common.FormatError(nil, "bad data uri")
	}
	if strings.HasSuffix(meta, ";base64") {
		b, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, common.FormatError(err, "bad data uri")
		}
		return b, nil
	}
	b, err := url.PathUnescape(data)
	if err != nil {
		return nil, common.FormatError(err, "bad data uri")
	}
	return []byte(b), nil
}

func (w Window) String() string {
	switch {
	case w.Chrom == "":
		return "*"
	case w.End == 0 && w.Start == 0:
		return w.Chrom
	case w.End == 0:
		return fmt.Sprintf("%s:%d-", w.Chrom, w.Start)
	}
	return fmt.Sprintf("%s:%d-%d", w.Chrom, w.Start, w.End)
}
