package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"quote/internal/core"
	ports "quote/internal/export"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	rosterSheet   string
	summarySheet  string
}

// Ensure interface conformance
var _ ports.RosterExporter = (*Client)(nil)

// NewFromEnv creates a Sheets exporter using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional sheet names: GOOGLE_ROSTER_SHEET_NAME (default "Roster"),
// GOOGLE_SUMMARY_SHEET_NAME (default "Summary").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	rosterSheet := strings.TrimSpace(os.Getenv("GOOGLE_ROSTER_SHEET_NAME"))
	if rosterSheet == "" {
		rosterSheet = "Roster"
	}
	summarySheet := strings.TrimSpace(os.Getenv("GOOGLE_SUMMARY_SHEET_NAME"))
	if summarySheet == "" {
		summarySheet = "Summary"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		rosterSheet:   rosterSheet,
		summarySheet:  summarySheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportRoster rewrites the roster and summary tabs from scratch. The
// spreadsheet is a mirror, so a full rewrite is always safe.
func (c *Client) ExportRoster(ctx context.Context, calendar []core.Period, status []core.MemberStanding, summary core.FinancialSummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	if err := c.writeRoster(ctx, calendar, status); err != nil {
		return err
	}
	if err := c.writeSummary(ctx, summary); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Exported roster to spreadsheet",
		"members", len(status), "sheet", c.rosterSheet)
	return nil
}

// writeRoster emits one row per member: standing columns first, then
// one paid/unpaid column per calendar period.
func (c *Client) writeRoster(ctx context.Context, calendar []core.Period, status []core.MemberStanding) error {
	header := []any{"Member", "Email", "Standing", "Paid", "Due", "Total paid"}
	for _, p := range calendar {
		header = append(header, p.Key())
	}

	rows := make([][]any, 0, len(status)+1)
	rows = append(rows, header)
	for _, ms := range status {
		row := []any{
			ms.Member.DisplayName(),
			ms.Member.Email,
			string(ms.Standing.Standing),
			ms.Standing.PaidCount,
			ms.Standing.DuePeriods,
			ms.Standing.TotalPaid.String(),
		}
		for _, p := range calendar {
			if ms.Member.Payments[p.Key()] {
				row = append(row, "✓")
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return c.rewriteSheet(ctx, c.rosterSheet, rows)
}

func (c *Client) writeSummary(ctx context.Context, summary core.FinancialSummary) error {
	rows := [][]any{
		{"Total collected", summary.TotalCollected.String()},
		{"Total withdrawn", summary.TotalWithdrawn.String()},
		{"Balance", summary.Balance.String()},
	}
	return c.rewriteSheet(ctx, c.summarySheet, rows)
}

func (c *Client) rewriteSheet(ctx context.Context, sheetName string, rows [][]any) error {
	clearRange := fmt.Sprintf("%s!A:Z", sheetName)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	writeRange := fmt.Sprintf("%s!A1", sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", writeRange, err)
	}
	return nil
}
