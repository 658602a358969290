package fdsn

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/liamtoney/narrow-band-least-squares/waveform"
)

// Errors returned by the IRIS client.
var (
	ErrStatus      = errors.New("fdsn: unexpected HTTP status")
	ErrNoChannels  = errors.New("fdsn: no channels matched")
	ErrBadMetadata = errors.New("fdsn: malformed station metadata")
)

// DefaultBaseURL is the IRIS web services root.
const DefaultBaseURL = "https://service.iris.edu"

const queryTimeLayout = "2006-01-02T15:04:05"

// Query identifies the channels and time range to fetch. The ? and *
// wildcards in the code fields pass through to the station service.
type Query struct {
	Network  string
	Station  string
	Location string
	Channel  string

	Start time.Time
	End   time.Time

	// RemoveResponse asks the timeseries service to demean the record
	// and correct for the instrument response, so samples arrive in
	// physical units instead of counts.
	RemoveResponse bool
}

// Channel is one channel epoch from the station service.
type Channel struct {
	Network  string
	Station  string
	Location string
	Channel  string

	Latitude   float64
	Longitude  float64
	SampleRate float64
}

// ID returns the canonical NET.STA.LOC.CHA identifier.
func (ch Channel) ID() string {
	return fmt.Sprintf("%s.%s.%s.%s", ch.Network, ch.Station, ch.Location, ch.Channel)
}

// Client talks to the IRIS fdsnws and irisws services.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for the given service root, or for IRIS when
// baseURL is empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	u := c.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fdsn: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fdsn: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s from %s", ErrStatus, resp.Status, u)
	}

	return resp, nil
}

func codeParams(net, sta, loc, cha string) url.Values {
	if loc == "" {
		loc = "--"
	}

	return url.Values{
		"net": {net},
		"sta": {sta},
		"loc": {loc},
		"cha": {cha},
	}
}

// Channels resolves the query's codes against the station service and
// returns the matching channel epochs with coordinates and sample rates.
func (c *Client) Channels(ctx context.Context, q Query) ([]Channel, error) {
	params := codeParams(q.Network, q.Station, q.Location, q.Channel)
	params.Set("starttime", q.Start.UTC().Format(queryTimeLayout))
	params.Set("endtime", q.End.UTC().Format(queryTimeLayout))
	params.Set("level", "channel")
	params.Set("format", "text")

	resp, err := c.get(ctx, "/fdsnws/station/1/query", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out []Channel
	seen := map[string]bool{}

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ch, err := parseChannelRow(line)
		if err != nil {
			return nil, err
		}

		// Multiple epochs of one channel collapse to the first row.
		if seen[ch.ID()] {
			continue
		}

		seen[ch.ID()] = true
		out = append(out, ch)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("fdsn: read metadata: %w", err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s.%s.%s.%s", ErrNoChannels, q.Network, q.Station, q.Location, q.Channel)
	}

	return out, nil
}

// parseChannelRow decodes one pipe-separated row of the station text
// format:
//
//	Net|Sta|Loc|Cha|Lat|Lon|Elev|Depth|Az|Dip|Sensor|Scale|ScaleFreq|ScaleUnits|SampleRate|Start|End
func parseChannelRow(line string) (Channel, error) {
	f := strings.Split(line, "|")
	if len(f) < 15 {
		return Channel{}, fmt.Errorf("%w: %d fields in %q", ErrBadMetadata, len(f), line)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(f[4]), 64)
	if err != nil {
		return Channel{}, fmt.Errorf("%w: latitude %q", ErrBadMetadata, f[4])
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(f[5]), 64)
	if err != nil {
		return Channel{}, fmt.Errorf("%w: longitude %q", ErrBadMetadata, f[5])
	}

	rate, err := strconv.ParseFloat(strings.TrimSpace(f[14]), 64)
	if err != nil {
		return Channel{}, fmt.Errorf("%w: sample rate %q", ErrBadMetadata, f[14])
	}

	return Channel{
		Network:    strings.TrimSpace(f[0]),
		Station:    strings.TrimSpace(f[1]),
		Location:   strings.TrimSpace(f[2]),
		Channel:    strings.TrimSpace(f[3]),
		Latitude:   lat,
		Longitude:  lon,
		SampleRate: rate,
	}, nil
}

// Waveforms fetches the samples for every channel the query matches. It
// resolves wildcards through the station service, then requests each
// channel from the timeseries service and attaches the element coordinates
// to the returned traces. Traces arrive in station-service order.
func (c *Client) Waveforms(ctx context.Context, q Query) (waveform.Stream, error) {
	channels, err := c.Channels(ctx, q)
	if err != nil {
		return nil, err
	}

	var st waveform.Stream
	for _, ch := range channels {
		traces, err := c.fetchChannel(ctx, ch, q)
		if err != nil {
			return nil, err
		}

		st = append(st, traces...)
	}

	return st, nil
}

func (c *Client) fetchChannel(ctx context.Context, ch Channel, q Query) (waveform.Stream, error) {
	params := codeParams(ch.Network, ch.Station, ch.Location, ch.Channel)
	params.Set("starttime", q.Start.UTC().Format(queryTimeLayout))
	params.Set("endtime", q.End.UTC().Format(queryTimeLayout))
	params.Set("format", "ascii")

	if q.RemoveResponse {
		params.Set("demean", "true")
		params.Set("correct", "true")
	}

	resp, err := c.get(ctx, "/irisws/timeseries/1/query", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	traces, err := waveform.ReadTimeSeries(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fdsn: %s: %w", ch.ID(), err)
	}

	for _, tr := range traces {
		if tr.Location == "--" {
			tr.Location = ""
		}

		tr.Latitude = ch.Latitude
		tr.Longitude = ch.Longitude
	}

	return traces, nil
}
