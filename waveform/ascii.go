package waveform

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Errors returned by the TIMESERIES codec.
var (
	ErrBadHeader         = errors.New("waveform: malformed TIMESERIES header")
	ErrUnsupportedFormat = errors.New("waveform: unsupported TIMESERIES sample format")
	ErrSampleCount       = errors.New("waveform: sample count does not match header")
	ErrNoData            = errors.New("waveform: no TIMESERIES block found")
)

const (
	headerPrefix = "TIMESERIES"
	timeLayout   = "2006-01-02T15:04:05.000000"
)

// ReadTimeSeries parses one or more TIMESERIES/SLIST ASCII blocks, the
// format returned by the IRIS timeseries service and used by local dump
// files. Each block is a header line
//
//	TIMESERIES NET_STA_LOC_CHA_Q, 24000 samples, 20 sps, 2018-12-19T01:45:00.000000, SLIST, FLOAT, COUNTS
//
// followed by whitespace-separated sample values on one or more lines.
// Sample values are parsed as float64 whether the header declares INTEGER
// or FLOAT. The declared sample count must match the samples present.
func ReadTimeSeries(r io.Reader) (Stream, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		st      Stream
		cur     *Trace
		declare int
	)

	flush := func() error {
		if cur == nil {
			return nil
		}

		if len(cur.Data) != declare {
			return fmt.Errorf("%w: %s declares %d, found %d",
				ErrSampleCount, cur.ID(), declare, len(cur.Data))
		}

		st = append(st, cur)
		cur = nil

		return nil
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, headerPrefix) {
			if err := flush(); err != nil {
				return nil, err
			}

			tr, n, err := parseHeader(line)
			if err != nil {
				return nil, err
			}

			cur = tr
			declare = n

			continue
		}

		if cur == nil {
			return nil, fmt.Errorf("%w: data before header: %q", ErrBadHeader, line)
		}

		for _, field := range strings.Fields(line) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("waveform: bad sample %q in %s: %w", field, cur.ID(), err)
			}

			cur.Data = append(cur.Data, v)
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("waveform: read: %w", err)
	}

	if err := flush(); err != nil {
		return nil, err
	}

	if len(st) == 0 {
		return nil, ErrNoData
	}

	return st, nil
}

// parseHeader decodes one TIMESERIES header line into an empty trace plus
// the declared sample count.
func parseHeader(line string) (*Trace, int, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return nil, 0, fmt.Errorf("%w: %q", ErrBadHeader, line)
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	source := strings.TrimSpace(strings.TrimPrefix(fields[0], headerPrefix))

	// NET_STA_LOC_CHA with an optional trailing quality code. An empty
	// location leaves consecutive underscores.
	parts := strings.Split(source, "_")
	if len(parts) < 4 {
		return nil, 0, fmt.Errorf("%w: source id %q", ErrBadHeader, source)
	}

	tr := &Trace{
		Network:  parts[0],
		Station:  parts[1],
		Location: parts[2],
		Channel:  parts[3],
	}

	var count int
	if _, err := fmt.Sscanf(fields[1], "%d samples", &count); err != nil || count < 0 {
		return nil, 0, fmt.Errorf("%w: sample count %q", ErrBadHeader, fields[1])
	}

	rateStr := strings.TrimSuffix(fields[2], " sps")

	rate, err := strconv.ParseFloat(strings.TrimSpace(rateStr), 64)
	if err != nil || rate <= 0 {
		return nil, 0, fmt.Errorf("%w: sample rate %q", ErrBadHeader, fields[2])
	}

	tr.SampleRate = rate

	start, err := parseTime(fields[3])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: start time %q", ErrBadHeader, fields[3])
	}

	tr.Start = start

	if fields[4] != "SLIST" {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, fields[4])
	}

	switch fields[5] {
	case "INTEGER", "FLOAT":
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, fields[5])
	}

	tr.Data = make([]float64, 0, count)

	return tr, count, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{timeLayout, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("waveform: unparseable time %q", s)
}

// WriteTimeSeries encodes the stream as concatenated TIMESERIES/SLIST
// blocks, one sample per line, FLOAT samples in counts.
func WriteTimeSeries(w io.Writer, st Stream) error {
	bw := bufio.NewWriter(w)

	for _, tr := range st {
		_, err := fmt.Fprintf(bw, "%s %s_%s_%s_%s, %d samples, %g sps, %s, SLIST, FLOAT, COUNTS\n",
			headerPrefix, tr.Network, tr.Station, tr.Location, tr.Channel,
			len(tr.Data), tr.SampleRate, tr.Start.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("waveform: write: %w", err)
		}

		for _, v := range tr.Data {
			if _, err := fmt.Fprintf(bw, "%g\n", v); err != nil {
				return fmt.Errorf("waveform: write: %w", err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("waveform: write: %w", err)
	}

	return nil
}
