// Package sheets records one tracking row per processed video in a Google
// Sheets spreadsheet. Rows follow a fixed column schema provisioned at
// startup; lookups are linear scans over the title column, which bounds
// practical scale to a few thousand rows.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"ytvault/retry"
)

// Header is the fixed column schema, in sheet order.
var Header = []string{
	ColTitle,
	ColDescription,
	ColTags,
	ColCategory,
	ColDriveFileID,
	ColPlaylist,
	ColThumbnail,
	ColUploadDate,
	ColDownloadStatus,
	ColUploadStatus,
}

// Column names.
const (
	ColTitle          = "Title"
	ColDescription    = "Description"
	ColTags           = "Tags"
	ColCategory       = "Category"
	ColDriveFileID    = "Drive File ID"
	ColPlaylist       = "Playlist"
	ColThumbnail      = "Thumbnail"
	ColUploadDate     = "Upload Date"
	ColDownloadStatus = "Download Status"
	ColUploadStatus   = "Upload Status"
)

// Status values for the download and upload status columns.
const (
	StatusPending          = "Pending"
	StatusCompleted        = "Completed"
	StatusCompletedLocally = "Completed Locally"
)

// rateInterval spaces spreadsheet calls to stay inside the per-user quota.
const rateInterval = time.Second

// ErrRowNotFound indicates no row matched the lookup key.
var ErrRowNotFound = errors.New("sheets: row not found")

// TrackerError wraps spreadsheet failures with the operation that failed.
type TrackerError struct {
	Op  string
	Err error
}

func (e *TrackerError) Error() string {
	return fmt.Sprintf("sheets: %s: %v", e.Op, e.Err)
}

func (e *TrackerError) Unwrap() error { return e.Err }

// Row is one tracking record in schema order.
type Row struct {
	Title          string
	Description    string
	Tags           string
	Category       string
	DriveFileID    string
	Playlist       string
	Thumbnail      string
	UploadDate     string
	DownloadStatus string
	UploadStatus   string
}

func (r Row) values() []interface{} {
	return []interface{}{
		r.Title,
		r.Description,
		r.Tags,
		r.Category,
		r.DriveFileID,
		r.Playlist,
		r.Thumbnail,
		r.UploadDate,
		r.DownloadStatus,
		r.UploadStatus,
	}
}

// Tracker is a client for the tracking spreadsheet. All calls pass through a
// per-user rate limiter and retry transient API failures.
type Tracker struct {
	svc           *gsheets.Service
	spreadsheetID string
	limiter       *rate.Limiter
	retryCfg      retry.Config
	log           logrus.FieldLogger
}

// NewTracker creates a tracker for the given spreadsheet. Credentials and
// scopes come in as client options; tests substitute a fake endpoint the
// same way.
func NewTracker(ctx context.Context, spreadsheetID string, log logrus.FieldLogger, opts ...option.ClientOption) (*Tracker, error) {
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, &TrackerError{Op: "init", Err: err}
	}
	return &Tracker{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		// Sheets per-user write quota is 60 requests per minute.
		limiter:  rate.NewLimiter(rate.Every(rateInterval), 1),
		retryCfg: retry.DefaultConfig(),
		log:      log,
	}, nil
}

// EnsureHeader provisions the schema row. An empty first row gets the
// header written; a mismatched one clears the whole sheet and rewrites it.
func (t *Tracker) EnsureHeader(ctx context.Context) error {
	return t.call(ctx, "ensure header", func(ctx context.Context) error {
		resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, "1:1").Context(ctx).Do()
		if err != nil {
			return err
		}

		if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
			t.log.Info("sheets: writing header row")
			return t.appendValues(ctx, headerValues())
		}

		if headerMatches(resp.Values[0]) {
			return nil
		}

		// Mismatched schema resets the sheet. This drops every existing
		// row, matching the provisioning behavior this tool replaces.
		t.log.Warn("sheets: header mismatch, clearing sheet and rewriting header")
		if _, err := t.svc.Spreadsheets.Values.Clear(t.spreadsheetID, "A1:ZZ", &gsheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return err
		}
		return t.appendValues(ctx, headerValues())
	})
}

// Append adds one tracking row after the last non-empty row.
func (t *Tracker) Append(ctx context.Context, row Row) error {
	return t.call(ctx, "append row", func(ctx context.Context) error {
		return t.appendValues(ctx, row.values())
	})
}

// Find returns the 1-based sheet row whose title column equals title.
func (t *Tracker) Find(ctx context.Context, title string) (int64, error) {
	values, err := t.ColumnValues(ctx, ColTitle)
	if err != nil {
		return 0, err
	}
	for i, v := range values {
		if v == title {
			// +2: 1-based rows plus the header row.
			return int64(i + 2), nil
		}
	}
	return 0, &TrackerError{Op: "find row", Err: ErrRowNotFound}
}

// UpdateCell writes value into the named column of the given sheet row.
func (t *Tracker) UpdateCell(ctx context.Context, row int64, column, value string) error {
	idx, err := columnIndex(column)
	if err != nil {
		return &TrackerError{Op: "update cell", Err: err}
	}
	cell := fmt.Sprintf("%s%d", columnLetter(idx), row)

	return t.call(ctx, "update cell", func(ctx context.Context) error {
		vr := &gsheets.ValueRange{Values: [][]interface{}{{value}}}
		_, err := t.svc.Spreadsheets.Values.Update(t.spreadsheetID, cell, vr).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	})
}

// ColumnValues returns every data-row value of the named column, in sheet
// order, with empty cells as empty strings.
func (t *Tracker) ColumnValues(ctx context.Context, column string) ([]string, error) {
	idx, err := columnIndex(column)
	if err != nil {
		return nil, &TrackerError{Op: "read column", Err: err}
	}
	letter := columnLetter(idx)
	readRange := fmt.Sprintf("%s2:%s", letter, letter)

	var values []string
	err = t.call(ctx, "read column", func(ctx context.Context) error {
		resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, readRange).Context(ctx).Do()
		if err != nil {
			return err
		}
		values = values[:0]
		for _, row := range resp.Values {
			if len(row) == 0 {
				values = append(values, "")
				continue
			}
			s, _ := row[0].(string)
			values = append(values, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (t *Tracker) appendValues(ctx context.Context, vals []interface{}) error {
	vr := &gsheets.ValueRange{Values: [][]interface{}{vals}}
	_, err := t.svc.Spreadsheets.Values.Append(t.spreadsheetID, "A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// call applies rate limiting and retry around one spreadsheet operation.
func (t *Tracker) call(ctx context.Context, op string, fn func(context.Context) error) error {
	err := retry.Do(ctx, t.retryCfg, sheetsErrorClassifier, func(ctx context.Context) error {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
	if err != nil {
		return &TrackerError{Op: op, Err: err}
	}
	return nil
}

func headerValues() []interface{} {
	vals := make([]interface{}, len(Header))
	for i, h := range Header {
		vals[i] = h
	}
	return vals
}

func headerMatches(row []interface{}) bool {
	if len(row) != len(Header) {
		return false
	}
	for i, cell := range row {
		s, ok := cell.(string)
		if !ok || s != Header[i] {
			return false
		}
	}
	return true
}

func columnIndex(column string) (int, error) {
	for i, h := range Header {
		if h == column {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown column %q", column)
}

// columnLetter converts a zero-based column index to A1 notation.
// The schema fits comfortably within single letters.
func columnLetter(idx int) string {
	return string(rune('A' + idx))
}

// sheetsErrorClassifier retries rate-limit and server errors; other API
// errors are permanent.
func sheetsErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	// Network-level failures are worth retrying.
	return true
}
