package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finance/internal/core"
	"finance/internal/log"
	ports "finance/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	budgetsSheet  string
	potsSheet     string
	logger        *log.Logger
}

// Ensure interface conformance
var (
	_ ports.Exporter       = (*Client)(nil)
	_ ports.SnapshotReader = (*Client)(nil)
)

// Config selects the spreadsheet and the service account used to write it.
// CredentialsJSON wins over CredentialsFile; with neither set,
// GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Config struct {
	SpreadsheetID   string
	BudgetsSheet    string
	PotsSheet       string
	CredentialsJSON string
	CredentialsFile string
}

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if cfg.BudgetsSheet == "" {
		cfg.BudgetsSheet = "Budgets"
	}
	if cfg.PotsSheet == "" {
		cfg.PotsSheet = "Pots"
	}

	logger = logger.WithComponent(log.ComponentSheets)
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		budgetsSheet:  cfg.BudgetsSheet,
		potsSheet:     cfg.PotsSheet,
		logger:        logger,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(cfg.CredentialsFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		var err error
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

	logger.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(credentialsJSON))
	return service, nil
}

func (c *Client) WriteBudgets(ctx context.Context, budgets []core.Budget) error {
	return c.replaceSheet(ctx, c.budgetsSheet, budgetRows(budgets))
}

func (c *Client) WritePots(ctx context.Context, pots []core.Pot) error {
	return c.replaceSheet(ctx, c.potsSheet, potRows(pots))
}

func (c *Client) ReadBudgets(ctx context.Context) ([]core.Budget, error) {
	values, err := c.readSheet(ctx, c.budgetsSheet)
	if err != nil {
		return nil, err
	}
	return parseBudgets(values)
}

func (c *Client) ReadPots(ctx context.Context) ([]core.Pot, error) {
	values, err := c.readSheet(ctx, c.potsSheet)
	if err != nil {
		return nil, err
	}
	return parsePots(values)
}

// replaceSheet clears the sheet and writes rows starting at A1.
func (c *Client) replaceSheet(ctx context.Context, sheet string, rows [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:Z", sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	dataRange := fmt.Sprintf("%s!A1", sheet)
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", dataRange, err)
	}

	c.logger.InfoContext(ctx, "Sheet snapshot written",
		"sheet", sheet,
		log.FieldCount, len(rows)-1,
		log.FieldOperation, log.OpExport)
	return nil
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:Z", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}
