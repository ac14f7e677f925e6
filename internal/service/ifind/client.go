package ifind

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	xhttp "MacroPull/pkg/http"
	xlogger "MacroPull/pkg/logger"
)

const quoteIndicators = "open,high,low,close,volume,amount,openInterest"

// Client implements drepo.VendorAPI against the iFinD-style HTTP API: every
// endpoint is a JSON POST carrying the access token in a header.
type Client struct {
	baseURL    string
	marketCode string // exchange code for the trading calendar
	tokens     drepo.Authenticator
	http       *xhttp.Client
	log        *xlogger.Logger
}

func NewClient(baseURL, marketCode string, tokens drepo.Authenticator, httpClient *xhttp.Client, log *xlogger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		marketCode: marketCode,
		tokens:     tokens,
		http:       httpClient,
		log:        log,
	}
}

// post sends one endpoint call with a valid credential attached. An expired
// credential triggers a single transparent re-authentication and one retry;
// a second failure is surfaced as-is.
func (c *Client) post(ctx context.Context, endpoint string, body any, env *envelope) error {
	cred, err := c.tokens.EnsureValid(ctx)
	if err != nil {
		return err
	}

	err = c.do(ctx, endpoint, cred, body, env)
	var expired *credentialExpiredError
	if !errors.As(err, &expired) {
		return err
	}

	c.log.Warn("credential expired mid-run, re-authenticating",
		xlogger.String("endpoint", endpoint))
	c.tokens.Invalidate()
	cred, err = c.tokens.EnsureValid(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, endpoint, cred, body, env)
}

func (c *Client) do(ctx context.Context, endpoint string, cred models.Credential, body any, env *envelope) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/" + endpoint,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"access_token": cred.AccessToken,
		},
		Body: body,
	}, env)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	return classify(endpoint, env)
}

// HistoryQuotes fetches daily or minute bars for the given instruments.
func (c *Client) HistoryQuotes(ctx context.Context, codes []string, gran models.Granularity, from, to string) (map[string][]models.SeriesPoint, error) {
	endpoint := "cmd_history_quotation"
	body := map[string]any{
		"codes":        strings.Join(codes, ","),
		"indicators":   quoteIndicators,
		"startdate":    from,
		"enddate":      to,
		"functionpara": map[string]string{"Fill": "Blank"},
	}
	if gran == models.GranularityMinute {
		// minute bars come from the high-frequency endpoint
		endpoint = "high_frequency"
		body = map[string]any{
			"codes":      strings.Join(codes, ","),
			"indicators": quoteIndicators,
			"starttime":  from,
			"endtime":    to,
		}
	}

	var env envelope
	if err := c.post(ctx, endpoint, body, &env); err != nil {
		return nil, err
	}
	if env.empty() {
		return nil, &EmptyResultError{Endpoint: endpoint}
	}

	out := make(map[string][]models.SeriesPoint, len(env.Tables))
	for i := range env.Tables {
		t := &env.Tables[i]
		if pts := t.points(); len(pts) > 0 {
			out[strings.ToUpper(t.ThsCode)] = pts
		}
	}
	if len(out) == 0 {
		return nil, &EmptyResultError{Endpoint: endpoint}
	}
	return out, nil
}

// RealtimeQuotes fetches the latest intraday snapshot per instrument. Only
// meaningful during trading sessions; outside them the vendor answers with a
// market-closed condition.
func (c *Client) RealtimeQuotes(ctx context.Context, codes []string) (map[string]models.RealtimeQuote, error) {
	body := map[string]any{
		"codes":      strings.Join(codes, ","),
		"indicators": "latest,open,high,low,volume,amount,openInterest,changeRatio",
	}
	var env envelope
	if err := c.post(ctx, "real_time_quotation", body, &env); err != nil {
		return nil, err
	}

	out := make(map[string]models.RealtimeQuote, len(env.Tables))
	for i := range env.Tables {
		if q, ok := env.Tables[i].quote(); ok {
			out[q.Code] = q
		}
	}
	if len(out) == 0 {
		return nil, &MarketClosedError{Msg: "no realtime rows returned"}
	}
	return out, nil
}

// HighFrequency fetches minute bars for one instrument over a time range
// ("2006-01-02 15:04:05" endpoints).
func (c *Client) HighFrequency(ctx context.Context, code string, start, end string) ([]models.SeriesPoint, error) {
	res, err := c.HistoryQuotes(ctx, []string{code}, models.GranularityMinute, start, end)
	if err != nil {
		return nil, err
	}
	return res[strings.ToUpper(code)], nil
}

// EDBSeries fetches one macro indicator from the quota-limited economic
// database endpoint.
func (c *Client) EDBSeries(ctx context.Context, indicator string, indicatorID, from, to string) ([]models.IndicatorObservation, error) {
	body := map[string]any{
		"indicators": indicatorID,
		"startdate":  from,
		"enddate":    to,
	}
	var env envelope
	if err := c.post(ctx, "edb_service", body, &env); err != nil {
		return nil, err
	}
	if env.empty() {
		return nil, &EmptyResultError{Endpoint: "edb_service"}
	}
	return env.Tables[0].observations(indicator, indicatorID), nil
}

// TradeDates returns the exchange's trading calendar for the range. Used to
// tell a legitimately empty range from a failed fetch.
func (c *Client) TradeDates(ctx context.Context, from, to string) ([]string, error) {
	body := map[string]any{
		"marketcode": c.marketCode,
		"functionpara": map[string]string{
			"dateType":   "0",
			"period":     "D",
			"dateFormat": "0",
			"output":     "sequencedate",
		},
		"startdate": from,
		"enddate":   to,
	}
	var env envelope
	if err := c.post(ctx, "get_trade_dates", body, &env); err != nil {
		return nil, err
	}
	if len(env.Tables) == 0 {
		return nil, nil
	}
	dates := make([]string, 0, len(env.Tables[0].Time))
	for _, d := range env.Tables[0].Time {
		dates = append(dates, normalizeDate(d))
	}
	return dates, nil
}

// DataUsage returns the account's raw data-consumption statistics. The shape
// is vendor-defined, so it passes through unparsed.
func (c *Client) DataUsage(ctx context.Context) (json.RawMessage, error) {
	cred, err := c.tokens.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}
	var raw []byte
	err = c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/data_statistics",
		Headers: map[string]string{
			"Content-Type": "application/json",
			"access_token": cred.AccessToken,
		},
		Body: map[string]any{},
	}, &raw)
	if err != nil {
		return nil, &TransportError{Endpoint: "data_statistics", Err: err}
	}
	return json.RawMessage(raw), nil
}

var _ drepo.VendorAPI = (*Client)(nil)
