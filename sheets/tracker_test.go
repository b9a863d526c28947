package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// fakeSheet is an in-memory spreadsheet behind a Sheets API shaped HTTP
// server, covering the value operations the tracker uses.
type fakeSheet struct {
	grid [][]string
}

type valueRangeBody struct {
	Values [][]interface{} `json:"values"`
}

func (f *fakeSheet) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, err := url.PathUnescape(r.URL.Path)
		require.NoError(t, err)

		const prefix = "/v4/spreadsheets/test-sheet/values/"
		require.Truef(t, strings.HasPrefix(path, prefix), "unexpected path %q", path)
		rng := strings.TrimPrefix(path, prefix)

		switch {
		case strings.HasSuffix(rng, ":append"):
			var body valueRangeBody
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			for _, row := range body.Values {
				f.grid = append(f.grid, toStrings(row))
			}
			writeJSON(w, map[string]interface{}{})
		case strings.HasSuffix(rng, ":clear"):
			f.grid = nil
			writeJSON(w, map[string]interface{}{})
		case r.Method == http.MethodPut:
			var body valueRangeBody
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Values, 1)
			col, row := parseCell(t, rng)
			f.set(row, col, toStrings(body.Values[0])[0])
			writeJSON(w, map[string]interface{}{})
		case r.Method == http.MethodGet:
			writeJSON(w, map[string]interface{}{"values": f.read(t, rng)})
		default:
			t.Errorf("unhandled request %s %s", r.Method, path)
			http.Error(w, "unhandled", http.StatusBadRequest)
		}
	})
}

func (f *fakeSheet) set(row, col int, value string) {
	for len(f.grid) < row {
		f.grid = append(f.grid, nil)
	}
	for len(f.grid[row-1]) <= col {
		f.grid[row-1] = append(f.grid[row-1], "")
	}
	f.grid[row-1][col] = value
}

// read serves the two range shapes the tracker requests: a single row
// ("1:1") and a column tail ("A2:A").
func (f *fakeSheet) read(t *testing.T, rng string) [][]interface{} {
	var out [][]interface{}
	if rng == "1:1" {
		if len(f.grid) > 0 {
			out = append(out, toInterfaces(f.grid[0]))
		}
		return out
	}

	parts := strings.SplitN(rng, ":", 2)
	require.Len(t, parts, 2, "unexpected range %q", rng)
	col := int(parts[0][0] - 'A')
	for i := 1; i < len(f.grid); i++ {
		row := f.grid[i]
		if col < len(row) {
			out = append(out, []interface{}{row[col]})
		} else {
			out = append(out, []interface{}{})
		}
	}
	return out
}

func parseCell(t *testing.T, rng string) (col, row int) {
	col = int(rng[0] - 'A')
	n, err := strconv.Atoi(rng[1:])
	require.NoError(t, err)
	return col, n
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		s, _ := v.(string)
		out[i] = s
	}
	return out
}

func toInterfaces(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestTracker(t *testing.T, fake *fakeSheet) *Tracker {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetOutput(&strings.Builder{})

	tracker, err := NewTracker(context.Background(), "test-sheet", log,
		option.WithEndpoint(srv.URL), option.WithoutAuthentication())
	require.NoError(t, err)

	// No pacing needed against the in-process fake.
	tracker.limiter = rate.NewLimiter(rate.Inf, 1)
	return tracker
}

func headerRow() []string {
	return append([]string(nil), Header...)
}

func TestEnsureHeader_EmptySheet(t *testing.T) {
	fake := &fakeSheet{}
	tracker := newTestTracker(t, fake)

	require.NoError(t, tracker.EnsureHeader(context.Background()))
	require.Len(t, fake.grid, 1)
	assert.Equal(t, headerRow(), fake.grid[0])
}

func TestEnsureHeader_AlreadyProvisioned(t *testing.T) {
	fake := &fakeSheet{grid: [][]string{headerRow(), {"Existing Video"}}}
	tracker := newTestTracker(t, fake)

	require.NoError(t, tracker.EnsureHeader(context.Background()))
	// Matching header leaves existing rows untouched.
	require.Len(t, fake.grid, 2)
	assert.Equal(t, "Existing Video", fake.grid[1][0])
}

func TestEnsureHeader_MismatchClearsSheet(t *testing.T) {
	fake := &fakeSheet{grid: [][]string{{"Wrong", "Header"}, {"Old Row"}}}
	tracker := newTestTracker(t, fake)

	require.NoError(t, tracker.EnsureHeader(context.Background()))
	require.Len(t, fake.grid, 1)
	assert.Equal(t, headerRow(), fake.grid[0])
}

func TestAppendAndFind(t *testing.T) {
	fake := &fakeSheet{grid: [][]string{headerRow()}}
	tracker := newTestTracker(t, fake)
	ctx := context.Background()

	require.NoError(t, tracker.Append(ctx, Row{
		Title:          "First Video",
		DownloadStatus: StatusPending,
		UploadStatus:   StatusPending,
	}))
	require.NoError(t, tracker.Append(ctx, Row{
		Title:          "Second Video",
		DownloadStatus: StatusPending,
		UploadStatus:   StatusPending,
	}))

	row, err := tracker.Find(ctx, "Second Video")
	require.NoError(t, err)
	assert.Equal(t, int64(3), row)

	_, err = tracker.Find(ctx, "Missing Video")
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestUpdateCell(t *testing.T) {
	fake := &fakeSheet{grid: [][]string{headerRow(), {"First Video", "", "", "", "", "", "", "", "Pending", "Pending"}}}
	tracker := newTestTracker(t, fake)
	ctx := context.Background()

	require.NoError(t, tracker.UpdateCell(ctx, 2, ColDownloadStatus, StatusCompleted))
	require.NoError(t, tracker.UpdateCell(ctx, 2, ColDriveFileID, "abc123"))

	assert.Equal(t, StatusCompleted, fake.grid[1][8])
	assert.Equal(t, "abc123", fake.grid[1][4])

	err := tracker.UpdateCell(ctx, 2, "Nonexistent", "x")
	var trackerErr *TrackerError
	assert.ErrorAs(t, err, &trackerErr)
}

func TestColumnValues(t *testing.T) {
	fake := &fakeSheet{grid: [][]string{
		headerRow(),
		{"Video A"},
		{"Video B"},
	}}
	tracker := newTestTracker(t, fake)

	values, err := tracker.ColumnValues(context.Background(), ColTitle)
	require.NoError(t, err)
	assert.Equal(t, []string{"Video A", "Video B"}, values)
}

func TestSheetsErrorClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &googleapi.Error{Code: 429}, true},
		{"server error", &googleapi.Error{Code: 500}, true},
		{"bad request", &googleapi.Error{Code: 400}, false},
		{"not found", &googleapi.Error{Code: 404}, false},
		{"context canceled", context.Canceled, false},
		{"network error", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sheetsErrorClassifier(tt.err))
		})
	}
}
