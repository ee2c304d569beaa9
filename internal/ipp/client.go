package ipp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/nantokaworks/ptouch-label/internal/shared/logger"
	"go.uber.org/zap"
)

// DefaultPort is the IANA-registered IPP port.
const DefaultPort = 631

// responseLimit caps how much of a reply we read. Printer responses are
// a few hundred bytes; anything near the limit is not IPP.
const responseLimit = 1 << 20

// Client は1台のプリンターに対するIPPクライアント。
type Client struct {
	Host           string
	Port           int
	RequestingUser string
	HTTPClient     *http.Client

	seq uint32
}

// JobOptions carries the per-job attributes sent with a Print-Job.
type JobOptions struct {
	JobName string
	Copies  int
}

// JobResult is the outcome of a submitted job.
type JobResult struct {
	JobID      int
	StatusCode uint16
}

// NewClient returns a client for the printer at host. A port of 0 means
// the default IPP port.
func NewClient(host string, port int) *Client {
	if port == 0 {
		port = DefaultPort
	}
	return &Client{
		Host:           host,
		Port:           port,
		RequestingUser: "ptouch-label",
		HTTPClient:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) endpoint() string {
	return "http://" + c.hostport() + "/ipp/print"
}

func (c *Client) printerURI() string {
	return "ipp://" + c.hostport() + "/ipp/print"
}

// hostport renders Host:Port with IPv6 literals bracketed.
func (c *Client) hostport() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// PrintJob submits one document as a Print-Job operation and returns the
// job the printer assigned. The document bytes pass through untouched.
func (c *Client) PrintJob(ctx context.Context, doc []byte, opts JobOptions) (*JobResult, error) {
	if len(doc) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	copies := opts.Copies
	if copies < 1 {
		copies = 1
	}
	jobName := opts.JobName
	if jobName == "" {
		jobName = "label"
	}

	req := newRequest(opPrintJob, c.nextRequestID())
	req.addString(tagURI, "printer-uri", c.printerURI())
	req.addString(tagName, "requesting-user-name", c.RequestingUser)
	req.addString(tagName, "job-name", jobName)
	req.addString(tagMimeMediaType, "document-format", "application/octet-stream")
	req.startJobAttributes()
	req.addInt(tagInteger, "copies", int32(copies))
	req.addString(tagKeyword, "sides", "one-sided")
	req.addInt(tagEnum, "orientation-requested", 4)

	logger.Debug("submitting print job",
		zap.String("printer", c.endpoint()),
		zap.String("job_name", jobName),
		zap.Int("copies", copies),
		zap.Int("document_bytes", len(doc)))

	resp, err := c.do(ctx, req.finish(doc))
	if err != nil {
		return nil, err
	}
	if !resp.StatusOK() {
		return nil, statusError(resp)
	}

	result := &JobResult{StatusCode: resp.StatusCode}
	if vs, ok := resp.Attributes["job-id"]; ok && len(vs) > 0 {
		result.JobID = vs[0].Int()
	}
	logger.Debug("print job accepted",
		zap.Int("job_id", result.JobID),
		zap.Uint16("status", result.StatusCode))
	return result, nil
}

// PrinterAttributes asks the printer for the requested attributes and
// returns every attribute of the reply, values rendered as strings.
func (c *Client) PrinterAttributes(ctx context.Context, requested []string) (map[string][]string, error) {
	req := newRequest(opGetPrinterAttributes, c.nextRequestID())
	req.addString(tagURI, "printer-uri", c.printerURI())
	req.addString(tagName, "requesting-user-name", c.RequestingUser)
	if len(requested) > 0 {
		req.addKeywords("requested-attributes", requested)
	}

	resp, err := c.do(ctx, req.finish(nil))
	if err != nil {
		return nil, err
	}
	if !resp.StatusOK() {
		return nil, statusError(resp)
	}

	attrs := make(map[string][]string, len(resp.Attributes))
	for name, vs := range resp.Attributes {
		ss := make([]string, 0, len(vs))
		for _, v := range vs {
			ss = append(ss, v.String())
		}
		attrs[name] = ss
	}
	return attrs, nil
}

// do posts one encoded request and parses the reply.
func (c *Client) do(ctx context.Context, payload []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/ipp")

	httpResp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ipp request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status %s", httpResp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, responseLimit))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	resp, err := parseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return resp, nil
}

func (c *Client) nextRequestID() uint32 {
	// request-id must be nonzero
	return atomic.AddUint32(&c.seq, 1)
}

// statusText covers the status codes label printers actually emit.
var statusText = map[uint16]string{
	0x0400: "client-error-bad-request",
	0x0401: "client-error-forbidden",
	0x0404: "client-error-not-possible",
	0x0406: "client-error-not-found",
	0x040A: "client-error-document-format-not-supported",
	0x0500: "server-error-internal-error",
	0x0501: "server-error-operation-not-supported",
	0x0507: "server-error-busy",
}

func statusError(resp *Response) error {
	name, ok := statusText[resp.StatusCode]
	if !ok {
		name = fmt.Sprintf("status 0x%04X", resp.StatusCode)
	}
	if msg := resp.StatusMessage(); msg != "" {
		return fmt.Errorf("printer rejected request: %s (%s)", name, msg)
	}
	return fmt.Errorf("printer rejected request: %s", name)
}
