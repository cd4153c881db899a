package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"KinneretSentinel/internal/model"
	"KinneretSentinel/internal/netutil"
)

const (
	DefaultBaseURL    = "https://data.gov.il"
	DefaultResourceID = "2de7b543-e13d-4e7e-b4c8-56071bc4d3c8"
	DefaultLimit      = 15
)

// GovILFetcher reads Kinneret survey records from the data.gov.il CKAN datastore API.
type GovILFetcher struct {
	BaseURL    string
	ResourceID string
	Limit      int
	Client     *http.Client
	validate   *validator.Validate
}

// NewGovILFetcher creates a fetcher with optional proxy support.
func NewGovILFetcher(baseURL, resourceID string, limit int, timeout time.Duration, proxyURL string) *GovILFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if resourceID == "" {
		resourceID = DefaultResourceID
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GovILFetcher{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ResourceID: resourceID,
		Limit:      limit,
		Client:     netutil.NewClient(proxyURL, timeout),
		validate:   validator.New(),
	}
}

func (f *GovILFetcher) Name() string { return "data.gov.il" }

// levelValue accepts the level either as a JSON number or as a string.
type levelValue string

func (l *levelValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = levelValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("level must be a number or string: %w", err)
	}
	*l = levelValue(n.String())
	return nil
}

type datastoreRecord struct {
	SurveyDate    string      `json:"Survey_Date" validate:"required"`
	KinneretLevel *levelValue `json:"Kinneret_Level" validate:"required"`
	ID            *int64      `json:"_id" validate:"required"`
}

type datastoreResponse struct {
	Success *bool `json:"success" validate:"required"`
	Result  *struct {
		Records []datastoreRecord `json:"records" validate:"required,dive"`
	} `json:"result" validate:"required"`
}

// Fetch requests the latest records and validates the response shape.
func (f *GovILFetcher) Fetch(ctx context.Context) ([]model.RawRecord, error) {
	q := url.Values{}
	q.Set("resource_id", f.ResourceID)
	q.Set("limit", strconv.Itoa(f.Limit))
	u := fmt.Sprintf("%s/api/3/action/datastore_search?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; KinneretSentinel)")
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("data.gov.il fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("data.gov.il read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("data.gov.il: status %d, body: %s", resp.StatusCode, string(body))
	}

	var ds datastoreResponse
	if err := json.Unmarshal(body, &ds); err != nil {
		return nil, fmt.Errorf("data.gov.il decode: %w", err)
	}
	if err := f.validate.Struct(&ds); err != nil {
		return nil, fmt.Errorf("data.gov.il invalid response: %w", err)
	}
	if !*ds.Success {
		return nil, errors.New("data.gov.il: request unsuccessful")
	}

	records := make([]model.RawRecord, 0, len(ds.Result.Records))
	for _, r := range ds.Result.Records {
		records = append(records, model.RawRecord{
			DateString: r.SurveyDate,
			Level:      string(*r.KinneretLevel),
			SourceID:   *r.ID,
		})
	}
	return records, nil
}
