package google

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/sheets"
)

var _ sheets.Mirror = (*Client)(nil)

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client mirrors expenses into one sheet tab. Column A holds the expense id.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	// serializes find-then-write so two upserts of one id cannot both append
	mu      sync.Mutex
	sheetID *int64
}

// NewClient authenticates with service account credentials.
func NewClient(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Default()
	}
	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, goption.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newClient(svc, cfg, logger), nil
}

func newClient(svc *gsheet.Service, cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	name := cfg.SheetName
	if name == "" {
		name = "Expenses"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     name,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

// EnsureHeader writes the header row when the first cell is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rangeOf("A1:F1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]interface{}{toInterfaces(sheets.Header)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rangeOf("A1:F1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func (c *Client) Upsert(ctx context.Context, e core.ExpenseWithCategory) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.findRow(ctx, e.ID)
	if err != nil {
		return err
	}
	// RAW keeps user text such as "=IMPORTXML(...)" from being evaluated as a formula.
	vr := &gsheet.ValueRange{Values: [][]interface{}{rowValues(e)}}

	if row > 0 {
		rng := c.rangeOf(fmt.Sprintf("A%d:F%d", row, row))
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update row %d: %w", row, err)
		}
		c.logger.DebugContext(ctx, "Updated sheet row", log.FieldExpenseID, e.ID, "row", row)
		return nil
	}

	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rangeOf("A:F"), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	c.logger.DebugContext(ctx, "Appended sheet row", log.FieldExpenseID, e.ID)
	return nil
}

// Remove deletes the row for id; a missing row is not an error.
func (c *Client) Remove(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.findRow(ctx, id)
	if err != nil || row == 0 {
		return err
	}
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row - 1),
			EndIndex:   int64(row),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	c.logger.DebugContext(ctx, "Deleted sheet row", log.FieldExpenseID, id, "row", row)
	return nil
}

// findRow returns the 1-based row holding id, or 0.
func (c *Client) findRow(ctx context.Context, id int64) (int, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read id column: %w", err)
	}
	return rowOf(resp.Values, id), nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}

func (c *Client) rangeOf(cells string) string {
	return quoteSheet(c.sheetName) + "!" + cells
}

// quoteSheet quotes a tab name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func rowOf(values [][]interface{}, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, r := range values {
		if len(r) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(r[0])) == want {
			return i + 1
		}
	}
	return 0
}

// rowValues is sheets.Row with the id and amount as numbers.
func rowValues(e core.ExpenseWithCategory) []interface{} {
	row := toInterfaces(sheets.Row(e))
	row[0] = e.ID
	row[3] = e.Amount.Decimal().InexactFloat64()
	return row
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
