package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"facturas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// maxSheetTitle is the longest tab name the Sheets API accepts.
const maxSheetTitle = 100

// Client writes summaries into new tabs of one spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ sheets.SummaryExporter = (*Client)(nil)

// Credentials selects the service account key. JSON wins over File.
type Credentials struct {
	JSON string
	File string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, spreadsheetID string, creds Credentials, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentialsJSON, err := creds.load()
	if err != nil {
		return nil, err
	}

	opts = append([]goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// NewWithService wraps an existing service, mainly for tests against a fake
// endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID}
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []byte(c.JSON), nil
	case strings.TrimSpace(c.File) != "":
		b, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// ExportSummary writes every table one under another into a tab named after
// the report, batch and filter. The tab is created on first export and
// cleared and overwritten on later ones, so retries and re-exports land in
// the same place. The returned reference is the tab title.
func (c *Client) ExportSummary(ctx context.Context, req sheets.ExportRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	title := sheetTitle(req.Title, req.BatchID, req.Filter)
	if err := c.prepareSheet(ctx, title); err != nil {
		return "", err
	}

	values := sheetValues(req)
	rng := fmt.Sprintf("%s!A1", quoteSheet(title))
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write values to %q: %w", title, err)
	}

	slog.InfoContext(ctx, "Summary exported to Google Sheets",
		"batch_id", req.BatchID,
		"sheet", title,
		"rows", len(values))
	return title, nil
}

// prepareSheet leaves an empty tab with the given title, adding it when the
// spreadsheet has none.
func (c *Client) prepareSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("list sheets: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoteSheet(title), &gsheet.ClearValuesRequest{}).
				Context(ctx).Do(); err != nil {
				return fmt.Errorf("clear sheet %q: %w", title, err)
			}
			return nil
		}
	}

	add := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, add).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	return nil
}

// sheetTitle combines the report title, the batch id prefix and the filter,
// trimmed to the API limit.
func sheetTitle(title, batchID, filter string) string {
	short := batchID
	if len(short) > 8 {
		short = short[:8]
	}
	out := strings.TrimSpace(title + " " + short)
	if filter = strings.TrimSpace(filter); filter != "" {
		out += " " + filter
	}
	for utf8.RuneCountInString(out) > maxSheetTitle {
		_, size := utf8.DecodeLastRuneInString(out)
		out = out[:len(out)-size]
	}
	return out
}

// sheetValues lays out each table as a title row, a header row and its data,
// separated by one blank row.
func sheetValues(req sheets.ExportRequest) [][]interface{} {
	var out [][]interface{}
	for i, t := range req.Tables {
		if i > 0 {
			out = append(out, []interface{}{})
		}
		out = append(out, []interface{}{t.Title})
		out = append(out, toInterfaces(t.Columns))
		for _, r := range t.Rows {
			out = append(out, toInterfaces(r))
		}
	}
	return out
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
