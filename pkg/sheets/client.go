package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-dashboard-api/pkg/errors"
)

// Scopes requested for the service account. Read-only access is enough.
var Scopes = []string{
	gsheets.SpreadsheetsReadonlyScope,
	"https://www.googleapis.com/auth/drive.readonly",
}

const defaultFetchTimeout = 30 * time.Second

// ValuesReader reads every populated cell of one worksheet.
type ValuesReader interface {
	Values(ctx context.Context, spreadsheetID, sheetName string) ([][]interface{}, error)
}

// ReaderFactory builds a ValuesReader from a service-account JSON key.
type ReaderFactory func(ctx context.Context, credentials []byte) (ValuesReader, error)

// Config identifies the spreadsheet and credential sources.
type Config struct {
	SpreadsheetID      string
	CredentialsJSON    string
	ServiceAccountFile string
	Timeout            time.Duration
}

// Client fetches worksheets from one spreadsheet.
type Client struct {
	cfg       Config
	logger    *zap.Logger
	newReader ReaderFactory
	readFile  func(string) ([]byte, error)

	mu     sync.Mutex
	reader ValuesReader
}

// NewClient constructs a Client. A nil factory selects the Google Sheets API.
func NewClient(cfg Config, factory ReaderFactory, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultFetchTimeout
	}
	if factory == nil {
		factory = NewAPIReader
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: logger, newReader: factory, readFile: os.ReadFile}
}

// Fetch downloads the named worksheets in the order given. Worksheets that
// fail or hold no cells are skipped; the whole call is bounded by the
// configured timeout.
func (c *Client) Fetch(ctx context.Context, sheetNames []string) ([]models.RawSheet, error) {
	reader, err := c.valuesReader(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	results := make([]*models.RawSheet, len(sheetNames))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range sheetNames {
		i, name := i, name
		g.Go(func() error {
			values, err := reader.Values(gctx, c.cfg.SpreadsheetID, name)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(gctx.Err(), context.DeadlineExceeded) {
					return appErrors.WrapAs(appErrors.ErrFetchTimeout, err, "")
				}
				c.logger.Warn("worksheet fetch failed",
					zap.String("sheet", name),
					zap.Error(appErrors.WrapAs(appErrors.ErrSheetFetch, err, "")),
				)
				return nil
			}
			if len(values) == 0 {
				c.logger.Info("worksheet empty", zap.String("sheet", name))
				return nil
			}
			results[i] = &models.RawSheet{Name: name, Rows: stringify(values)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); errors.Is(err, context.DeadlineExceeded) {
		return nil, appErrors.WrapAs(appErrors.ErrFetchTimeout, err, "")
	}

	sheets := make([]models.RawSheet, 0, len(results))
	for _, s := range results {
		if s != nil {
			sheets = append(sheets, *s)
		}
	}
	return sheets, nil
}

// valuesReader resolves credentials on first use: the JSON blob first, then
// the service-account file. A failed resolution is retried on the next fetch.
func (c *Client) valuesReader(ctx context.Context) (ValuesReader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader != nil {
		return c.reader, nil
	}

	var attempts []string
	if blob := strings.TrimSpace(c.cfg.CredentialsJSON); blob != "" {
		reader, err := c.newReader(ctx, []byte(blob))
		if err == nil {
			c.reader = reader
			return reader, nil
		}
		c.logger.Warn("credentials from environment unusable", zap.Error(err))
		attempts = append(attempts, "environment: "+err.Error())
	}
	if path := c.cfg.ServiceAccountFile; path != "" {
		data, err := c.readFile(path)
		if err == nil {
			reader, rerr := c.newReader(ctx, data)
			if rerr == nil {
				c.reader = reader
				return reader, nil
			}
			err = rerr
		}
		c.logger.Warn("service account file unusable", zap.String("path", path), zap.Error(err))
		attempts = append(attempts, "file: "+err.Error())
	}
	if len(attempts) == 0 {
		return nil, appErrors.ErrAuth
	}
	return nil, appErrors.WrapAs(appErrors.ErrAuth, errors.New(strings.Join(attempts, "; ")), "")
}

// NewAPIReader builds a ValuesReader backed by the Sheets v4 API.
func NewAPIReader(_ context.Context, credentials []byte) (ValuesReader, error) {
	// Token refreshes outlive any single fetch, so the service is not tied to the caller's context.
	bg := context.Background()
	creds, err := google.CredentialsFromJSON(bg, credentials, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := gsheets.NewService(bg, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &apiReader{svc: svc}, nil
}

type apiReader struct {
	svc *gsheets.Service
}

func (r *apiReader) Values(ctx context.Context, spreadsheetID, sheetName string) ([][]interface{}, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(spreadsheetID, quoteSheet(sheetName)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func stringify(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		out := make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				out[j] = fmt.Sprint(cell)
			}
		}
		rows[i] = out
	}
	return rows
}
