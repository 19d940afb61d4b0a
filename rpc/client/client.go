package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/ValentinKolb/dDAP/rpc/common"
	"github.com/ValentinKolb/dDAP/rpc/server"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

// IDAPClient requests DAP objects from one or more servers
type IDAPClient interface {
	// FetchText returns the body of a DAS, DDS, DDX or version response
	FetchText(ctx context.Context, object common.ObjectType, dataset, constraint string) (string, error)

	// FetchData requests the data+metadata response of dataset and decodes
	// it. The returned dataset holds the values of the selected variables.
	FetchData(ctx context.Context, dataset, constraint string) (*dap.Dataset, error)

	// Close releases idle connections
	Close() error
}

// NewDAPClient creates a client for the servers listed in config
func NewDAPClient(config common.ClientConfig) (IDAPClient, error) {
	if len(config.Endpoints) == 0 {
		return nil, errors.New(errors.Internal, "a client needs at least one endpoint")
	}

	// Parse each server URL
	parsedURLs := make([]*url.URL, len(config.Endpoints))
	for i, endpoint := range config.Endpoints {
		parsedURL, err := url.Parse(strings.TrimSuffix(endpoint, "/"))
		if err != nil {
			return nil, errors.Wrapf(err, errors.Internal, "invalid endpoint %q", endpoint)
		}
		parsedURLs[i] = parsedURL
	}

	retries := config.RetryCount
	if retries < 1 {
		retries = 1
	}

	return &dapClient{
		serverURLs: parsedURLs,
		client: &http.Client{
			Timeout: time.Duration(config.TimeoutSecond) * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				// gzip bodies are decoded by server.ReadBody
				DisableCompression: true,
			},
		},
		retryCount:      retries,
		maxVectorLength: config.MaxVectorLength,
	}, nil
}

type dapClient struct {
	serverURLs      []*url.URL
	client          *http.Client
	counter         uint32
	retryCount      int
	maxVectorLength int
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IDAPClient)
// --------------------------------------------------------------------------

func (c *dapClient) FetchText(ctx context.Context, object common.ObjectType, dataset, constraint string) (string, error) {
	switch object {
	case common.ObjDAS, common.ObjDDS, common.ObjDDX, common.ObjVersion:
	default:
		return "", errors.Newf(errors.NotImplemented, "%s is not a text object", object)
	}

	resp, err := c.get(ctx, object, dataset, constraint, false)
	if err != nil {
		return "", err
	}
	defer c.closeBody(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.Internal, "could not read the response")
	}
	return string(body), nil
}

func (c *dapClient) FetchData(ctx context.Context, dataset, constraint string) (*dap.Dataset, error) {
	resp, err := c.get(ctx, common.ObjDataDDX, dataset, constraint, true)
	if err != nil {
		return nil, err
	}
	defer c.closeBody(resp)

	return server.ReadBody(textproto.MIMEHeader(resp.Header), resp.Body, c.maxVectorLength)
}

func (c *dapClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// objectSuffixes are the request suffixes of the object types
var objectSuffixes = map[common.ObjectType]string{
	common.ObjDAS:     "das",
	common.ObjDDS:     "dds",
	common.ObjData:    "dods",
	common.ObjDDX:     "ddx",
	common.ObjDataDDX: "dataddx",
	common.ObjVersion: "ver",
}

// get sends the request to the next server and returns the response if its
// status is 200. Other responses are turned into errors carrying the code
// that matches their status.
func (c *dapClient) get(ctx context.Context, object common.ObjectType, dataset, constraint string, gzip bool) (*http.Response, error) {
	// Select the next server via round-robin
	idx := atomic.AddUint32(&c.counter, 1) % uint32(len(c.serverURLs))
	requestURL := fmt.Sprintf("%s/%s.%s", c.serverURLs[idx].String(), dataset, objectSuffixes[object])
	if constraint != "" {
		requestURL += "?" + escapeConstraint(constraint)
	}

	var (
		resp *http.Response
		err  error
	)
	for i := 0; i < c.retryCount; i++ {
		var req *http.Request
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "could not create the request")
		}
		if gzip {
			req.Header.Set("Accept-Encoding", "gzip")
		}
		resp, err = c.client.Do(req)
		if err == nil || ctx.Err() != nil {
			break
		}
		Logger.Debugf("GET %s failed (attempt %d/%d): %v", requestURL, i+1, c.retryCount, err)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.Internal, "GET %s", requestURL)
	}

	if resp.StatusCode != http.StatusOK {
		defer c.closeBody(resp)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Newf(codeForStatus(resp.StatusCode), "server answered %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

func (c *dapClient) closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		Logger.Errorf("Failed to close response body: %v", err)
	}
}

// escapeConstraint percent-encodes the characters of a constraint that are
// not allowed in a query
func escapeConstraint(constraint string) string {
	return strings.NewReplacer(
		"%", "%25", " ", "%20", "\"", "%22", "#", "%23",
		"[", "%5B", "]", "%5D", "<", "%3C", ">", "%3E",
		"{", "%7B", "}", "%7D", "|", "%7C", "\\", "%5C", "^", "%5E",
	).Replace(constraint)
}

// codeForStatus maps the status of an error response to an error code
func codeForStatus(status int) errors.Code {
	switch status {
	case http.StatusBadRequest:
		return errors.MalformedExpr
	case http.StatusNotFound:
		return errors.NoSuchDataset
	case http.StatusNotImplemented:
		return errors.NotImplemented
	case http.StatusGatewayTimeout:
		return errors.Timeout
	default:
		return errors.Internal
	}
}
