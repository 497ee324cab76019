package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const defaultAirtableURL = "https://api.airtable.com/v0"

type AirtableConfig struct {
	BaseURL string // defaults to the public API
	BaseID  string
	Token   string
	// Views optionally pins a collection to a named view.
	Views   map[string]string
	Timeout time.Duration
}

// Airtable talks to the Airtable REST API.
type Airtable struct {
	http    *http.Client
	baseURL string
	baseID  string
	views   map[string]string
}

func NewAirtable(cfg AirtableConfig) (*Airtable, error) {
	if cfg.BaseID == "" {
		return nil, errors.New("airtable: base id required")
	}
	if cfg.Token == "" {
		return nil, errors.New("airtable: token required")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	h := oauth2.NewClient(context.Background(), ts)
	h.Timeout = cfg.Timeout
	if h.Timeout == 0 {
		h.Timeout = 15 * time.Second
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultAirtableURL
	}
	return &Airtable{http: h, baseURL: base, baseID: cfg.BaseID, views: cfg.Views}, nil
}

func (a *Airtable) tableURL(collection string) string {
	return a.baseURL + "/" + url.PathEscape(a.baseID) + "/" + url.PathEscape(collection)
}

func (a *Airtable) QueryByFilter(ctx context.Context, collection string, f Eq, maxRecords int) ([]Record, error) {
	q := url.Values{}
	q.Set("filterByFormula", f.Formula())
	if maxRecords > 0 {
		q.Set("maxRecords", strconv.Itoa(maxRecords))
	}
	return a.list(ctx, collection, q)
}

func (a *Airtable) QueryAll(ctx context.Context, collection string) ([]Record, error) {
	return a.list(ctx, collection, url.Values{})
}

func (a *Airtable) list(ctx context.Context, collection string, q url.Values) ([]Record, error) {
	if v := a.views[collection]; v != "" {
		q.Set("view", v)
	}
	q.Set("pageSize", "100")
	out := []Record{}
	for {
		u := a.tableURL(collection) + "?" + q.Encode()
		body, err := a.do(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "list %s", collection)
		}
		recs, err := parseRecords(gjson.GetBytes(body, "records"))
		if err != nil {
			return nil, errors.Wrapf(err, "list %s", collection)
		}
		out = append(out, recs...)
		offset := gjson.GetBytes(body, "offset").String()
		if offset == "" {
			return out, nil
		}
		q.Set("offset", offset)
	}
}

func (a *Airtable) UpdateRecord(ctx context.Context, collection, id string, fields map[string]any) (Record, error) {
	payload, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return Record{}, errors.Wrap(err, "encode fields")
	}
	body, err := a.do(ctx, http.MethodPatch, a.tableURL(collection)+"/"+url.PathEscape(id), payload)
	if err != nil {
		return Record{}, errors.Wrapf(err, "update %s/%s", collection, id)
	}
	return parseRecord(gjson.ParseBytes(body))
}

func (a *Airtable) CreateRecord(ctx context.Context, collection string, fields map[string]any) (Record, error) {
	payload, err := json.Marshal(map[string]any{
		"records": []map[string]any{{"fields": fields}},
	})
	if err != nil {
		return Record{}, errors.Wrap(err, "encode fields")
	}
	body, err := a.do(ctx, http.MethodPost, a.tableURL(collection), payload)
	if err != nil {
		return Record{}, errors.Wrapf(err, "create in %s", collection)
	}
	first := gjson.GetBytes(body, "records.0")
	if !first.Exists() {
		return Record{}, errors.Errorf("create in %s: empty response", collection)
	}
	return parseRecord(first)
}

func (a *Airtable) do(ctx context.Context, method, u string, payload []byte) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if res.StatusCode == http.StatusNotFound {
		return nil, ErrRecordNotFound
	}
	if res.StatusCode/100 != 2 {
		return nil, apiError(res.Status, body)
	}
	return body, nil
}

// apiError extracts {"error":{"type","message"}} or {"error":"TYPE"}.
func apiError(status string, body []byte) error {
	e := gjson.GetBytes(body, "error")
	switch {
	case e.IsObject():
		return errors.Errorf("airtable %s: %s: %s", status, e.Get("type").String(), e.Get("message").String())
	case e.Exists():
		return errors.Errorf("airtable %s: %s", status, e.String())
	}
	return errors.Errorf("airtable %s", status)
}

func parseRecords(arr gjson.Result) ([]Record, error) {
	out := []Record{}
	var perr error
	arr.ForEach(func(_, rec gjson.Result) bool {
		r, err := parseRecord(rec)
		if err != nil {
			perr = err
			return false
		}
		out = append(out, r)
		return true
	})
	return out, perr
}

func parseRecord(rec gjson.Result) (Record, error) {
	id := rec.Get("id").String()
	if id == "" {
		return Record{}, fmt.Errorf("record without id")
	}
	fields := map[string]any{}
	if m, ok := rec.Get("fields").Value().(map[string]interface{}); ok {
		fields = normalizeFields(m)
	}
	return Record{ID: id, Fields: fields}, nil
}
