package fdsn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const stationText = `#Network|Station|Location|Channel|Latitude|Longitude|Elevation|Depth|Azimuth|Dip|SensorDescription|Scale|ScaleFreq|ScaleUnits|SampleRate|StartTime|EndTime
IM|I53H1||BDF|64.8712|-146.8866|200.0|0.0|0.0|90.0|Chaparral 50A|6.5e8|1.0|Pa|20.0|2005-02-08T00:00:00|
IM|I53H2||BDF|64.8658|-146.8858|201.0|0.0|0.0|90.0|Chaparral 50A|6.5e8|1.0|Pa|20.0|2005-02-08T00:00:00|
IM|I53H2||BDF|64.8658|-146.8858|201.0|0.0|0.0|90.0|Chaparral 50A|6.5e8|1.0|Pa|20.0|2010-01-01T00:00:00|
`

func timeseriesBlock(sta string, scale float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TIMESERIES IM_%s_--_BDF_R, 6 samples, 20 sps, 2018-12-19T01:45:00.000000, SLIST, FLOAT, Pa\n", sta)

	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "%g\n", scale*float64(i))
	}

	return b.String()
}

// irisStub serves canned station metadata and per-station timeseries
// blocks, recording the timeseries query values it sees.
func irisStub(t *testing.T, queries *[]string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/fdsnws/station/1/query", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "text" || r.URL.Query().Get("level") != "channel" {
			http.Error(w, "bad query", http.StatusBadRequest)

			return
		}

		fmt.Fprint(w, stationText)
	})

	mux.HandleFunc("/irisws/timeseries/1/query", func(w http.ResponseWriter, r *http.Request) {
		*queries = append(*queries, r.URL.RawQuery)

		sta := r.URL.Query().Get("sta")

		scale := 1.0
		if sta == "I53H2" {
			scale = 2.0
		}

		fmt.Fprint(w, timeseriesBlock(sta, scale))
	})

	return httptest.NewServer(mux)
}

func testQuery() Query {
	start := time.Date(2018, 12, 19, 1, 45, 0, 0, time.UTC)

	return Query{
		Network:        "IM",
		Station:        "I53H?",
		Location:       "*",
		Channel:        "BDF",
		Start:          start,
		End:            start.Add(20 * time.Minute),
		RemoveResponse: true,
	}
}

func TestChannels(t *testing.T) {
	var queries []string

	srv := irisStub(t, &queries)
	defer srv.Close()

	chans, err := NewClient(srv.URL).Channels(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("Channels error: %v", err)
	}

	if len(chans) != 2 {
		t.Fatalf("channels = %d, want 2 (duplicate epoch must collapse)", len(chans))
	}

	if chans[0].Station != "I53H1" || chans[1].Station != "I53H2" {
		t.Fatalf("stations = %s, %s", chans[0].Station, chans[1].Station)
	}

	if chans[0].Latitude != 64.8712 || chans[0].Longitude != -146.8866 {
		t.Fatalf("bad coordinates: %+v", chans[0])
	}

	if chans[0].SampleRate != 20 {
		t.Fatalf("rate = %v, want 20", chans[0].SampleRate)
	}

	if chans[0].ID() != "IM.I53H1..BDF" {
		t.Fatalf("id = %q", chans[0].ID())
	}
}

func TestWaveforms(t *testing.T) {
	var queries []string

	srv := irisStub(t, &queries)
	defer srv.Close()

	st, err := NewClient(srv.URL).Waveforms(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("Waveforms error: %v", err)
	}

	if len(st) != 2 {
		t.Fatalf("traces = %d, want 2", len(st))
	}

	if st[0].ID() != "IM.I53H1..BDF" || st[1].ID() != "IM.I53H2..BDF" {
		t.Fatalf("ids = %v", st.IDs())
	}

	if st[0].Latitude != 64.8712 || st[1].Latitude != 64.8658 {
		t.Fatalf("coordinates not attached: %v, %v", st[0].Latitude, st[1].Latitude)
	}

	if st[1].Data[3] != 6 {
		t.Fatalf("sample = %v, want 6", st[1].Data[3])
	}

	if len(queries) != 2 {
		t.Fatalf("timeseries requests = %d, want 2", len(queries))
	}

	for _, q := range queries {
		if !strings.Contains(q, "demean=true") || !strings.Contains(q, "correct=true") {
			t.Fatalf("response removal params missing: %s", q)
		}

		if !strings.Contains(q, "loc=--") {
			t.Fatalf("blank location not sent as --: %s", q)
		}
	}
}

func TestWaveformsRawCounts(t *testing.T) {
	var queries []string

	srv := irisStub(t, &queries)
	defer srv.Close()

	q := testQuery()
	q.RemoveResponse = false

	if _, err := NewClient(srv.URL).Waveforms(context.Background(), q); err != nil {
		t.Fatalf("Waveforms error: %v", err)
	}

	for _, raw := range queries {
		if strings.Contains(raw, "correct=") || strings.Contains(raw, "demean=") {
			t.Fatalf("correction params sent without RemoveResponse: %s", raw)
		}
	}
}

func TestChannelsNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "#Network|Station|...")
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Channels(context.Background(), testQuery())
	if !errors.Is(err, ErrNoChannels) {
		t.Fatalf("err = %v, want ErrNoChannels", err)
	}
}

func TestChannelsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Channels(context.Background(), testQuery())
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}

	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("status missing from error: %v", err)
	}
}

func TestChannelsBadRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "IM|I53H1||BDF|not-a-number|LON")
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Channels(context.Background(), testQuery())
	if !errors.Is(err, ErrBadMetadata) {
		t.Fatalf("err = %v, want ErrBadMetadata", err)
	}
}

func TestWaveformsCanceledContext(t *testing.T) {
	var queries []string

	srv := irisStub(t, &queries)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewClient(srv.URL).Waveforms(ctx, testQuery()); err == nil {
		t.Fatal("expected error from canceled context")
	}
}
