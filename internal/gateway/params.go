package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9^.=\-]{1,16}$`)

// validate checks decoded query parameters. Initialized in init() with the
// custom "ticker" rule.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
		return tickerPattern.MatchString(fl.Field().String())
	})
}

type pricesParams struct {
	Tickers []string `validate:"required,min=1,max=20,dive,ticker"`
	Period  string   `validate:"max=8"`
}

type metricsParams struct {
	Ticker            string  `validate:"required,ticker"`
	StartDate         string  `validate:"required,max=32"`
	EndDate           string  `validate:"required,max=32"`
	InitialInvestment float64 `validate:"gte=0"`
}

type eventParams struct {
	Ticker string `validate:"required,ticker"`
	Year   int    `validate:"gte=0,lte=9999"`
}

type compareParams struct {
	Assets    []string `validate:"required,min=1,max=20,dive,ticker"`
	StartDate string   `validate:"required,max=32"`
	EndDate   string   `validate:"required,max=32"`
}

type quotesParams struct {
	IDs []string `validate:"max=20,dive,max=32"`
}

// simulateRequest is the JSON body of POST /simulate.
type simulateRequest struct {
	AssetWeights   map[string]float64 `json:"asset_weights" validate:"required,min=1,max=20,dive,keys,ticker,endkeys,gte=0"`
	InitialCapital float64            `json:"initial_capital" validate:"gte=0"`
	Period         string             `json:"period" validate:"max=8"`
}

type replayParams struct {
	Ticker string  `validate:"required,ticker"`
	Period string  `validate:"max=8"`
	Speed  float64 `validate:"gte=0,lte=1000"`
}

// splitList splits comma-separated values across repeated query keys.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// floatParam parses q[key], returning def when absent.
func floatParam(q url.Values, key string, def float64) (float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return f, nil
}

// checkParams validates p and renders the first failure as a readable message.
func checkParams(p any) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid %s: failed %q", strings.ToLower(fe.Field()), fe.Tag())
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
