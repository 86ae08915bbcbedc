package dlna

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	soapHTTPClientTimeout         = 10 * time.Second
	soapHTTPDialTimeout           = 5 * time.Second
	soapHTTPKeepAlive             = 30 * time.Second
	soapHTTPResponseHeaderTimeout = 5 * time.Second
	soapHTTPExpectContinueTimeout = 1 * time.Second
	soapHTTPIdleConnTimeout       = 90 * time.Second
)

var soapHTTPTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   soapHTTPDialTimeout,
		KeepAlive: soapHTTPKeepAlive,
	}).DialContext,
	ResponseHeaderTimeout: soapHTTPResponseHeaderTimeout,
	ExpectContinueTimeout: soapHTTPExpectContinueTimeout,
	IdleConnTimeout:       soapHTTPIdleConnTimeout,
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   soapHTTPClientTimeout,
		Transport: soapHTTPTransport,
	}
}

func newRetryableHTTPClient(retryMax int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.Logger = nil
	retryClient.HTTPClient = newHTTPClient()

	return retryClient.StandardClient()
}

// TransportInfo is the playback state half of a renderer status poll.
type TransportInfo struct {
	State string `xml:"Body>GetTransportInfoResponse>CurrentTransportState"`
}

// PositionInfo carries the current track's escaped DIDL-Lite metadata.
type PositionInfo struct {
	TrackMetaData string `xml:"Body>GetPositionInfoResponse>TrackMetaData"`
}

// TrackMetadata is the artist/title pair extracted from DIDL-Lite.
type TrackMetadata struct {
	Title  string
	Artist string
}

func parseTrackMetadata(didl string) TrackMetadata {
	var meta struct {
		Title  string `xml:"item>title"`
		Artist string `xml:"item>artist"`
	}

	// Renderers ship all sorts of broken DIDL; an unparsable blob just
	// means no metadata.
	_ = xml.Unmarshal([]byte(didl), &meta)

	return TrackMetadata{Title: meta.Title, Artist: meta.Artist}
}

func soapCall(ctx context.Context, client *http.Client, controlURL, action string, body []byte) ([]byte, error) {
	parsedURL, err := url.Parse(controlURL)
	if err != nil {
		return nil, fmt.Errorf("soapCall parse control URL error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, parsedURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("soapCall %s request error: %w", action, err)
	}

	req.Header = http.Header{
		"SOAPAction":   []string{`"urn:schemas-upnp-org:service:AVTransport:1#` + action + `"`},
		"content-type": []string{"text/xml"},
		"charset":      []string{"utf-8"},
		"Connection":   []string{"close"},
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("soapCall %s error: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("soapCall %s unexpected status: %s", action, resp.Status)
	}

	out := new(bytes.Buffer)
	if _, err := out.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("soapCall %s read error: %w", action, err)
	}

	return out.Bytes(), nil
}

// getTransportInfo queries the renderer's current transport state
// (PLAYING, PAUSED_PLAYBACK, STOPPED, ...).
func getTransportInfo(ctx context.Context, client *http.Client, controlURL string) (string, error) {
	body, err := getTransportInfoSoapBuild()
	if err != nil {
		return "", err
	}

	resp, err := soapCall(ctx, client, controlURL, "GetTransportInfo", body)
	if err != nil {
		return "", err
	}

	var info TransportInfo
	if err := xml.Unmarshal(resp, &info); err != nil {
		return "", fmt.Errorf("getTransportInfo unmarshal error: %w", err)
	}

	return info.State, nil
}

// getPositionInfo queries the renderer's current track metadata.
func getPositionInfo(ctx context.Context, client *http.Client, controlURL string) (TrackMetadata, error) {
	body, err := getPositionInfoSoapBuild()
	if err != nil {
		return TrackMetadata{}, err
	}

	resp, err := soapCall(ctx, client, controlURL, "GetPositionInfo", body)
	if err != nil {
		return TrackMetadata{}, err
	}

	var info PositionInfo
	if err := xml.Unmarshal(resp, &info); err != nil {
		return TrackMetadata{}, fmt.Errorf("getPositionInfo unmarshal error: %w", err)
	}

	return parseTrackMetadata(info.TrackMetaData), nil
}
