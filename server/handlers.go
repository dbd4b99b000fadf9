package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/rustyeddy/smctrader/market"
	"github.com/rustyeddy/smctrader/smc"
)

// AnalyzeRequest runs a one-off analysis on caller supplied candles.
type AnalyzeRequest struct {
	Instrument string          `json:"instrument" default:"TEST_PAIR"`
	H4         []market.Candle `json:"h4_data" validate:"required"`
	H1         []market.Candle `json:"h1_data" validate:"required"`
}

type DebugInfo struct {
	H4SwingHighs int        `json:"h4_swing_highs"`
	H4SwingLows  int        `json:"h4_swing_lows"`
	H1SwingHighs int        `json:"h1_swing_highs"`
	H1SwingLows  int        `json:"h1_swing_lows"`
	H4Swings     smc.Swings `json:"h4_swings"`
	H1Swings     smc.Swings `json:"h1_swings"`
}

type AnalyzeResponse struct {
	Result smc.Outcome `json:"analysis_result"`
	Debug  DebugInfo   `json:"debug_info"`
	Status string      `json:"status"`
}

// ErrorResponse is the body of every 4xx/5xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.status.Snapshot())
}

// analyze runs a fresh engine, so it never touches live mitigation state.
func (s *Server) analyze(c echo.Context) error {
	req := &AnalyzeRequest{}
	if err := readAndValidate(c, req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, Analyze(req))
}

// Analyze runs a fresh engine over the request candles and reports the
// swings it found alongside the outcome.
func Analyze(req *AnalyzeRequest) AnalyzeResponse {
	out := smc.NewEngine(req.Instrument).Analyze(req.H4, req.H1)

	h4 := smc.DetectSwings(req.H4)
	h1 := smc.DetectSwings(req.H1)
	return AnalyzeResponse{
		Result: out,
		Debug: DebugInfo{
			H4SwingHighs: len(h4.Highs),
			H4SwingLows:  len(h4.Lows),
			H1SwingHighs: len(h1.Highs),
			H1SwingLows:  len(h1.Lows),
			H4Swings:     h4,
			H1Swings:     h1,
		},
		Status: "success",
	}
}

// readAndValidate binds the body, applies defaults and validates.
func readAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return fmt.Errorf("%v", he.Message)
		}
		return err
	}
	if err := defaults.Set(req); err != nil {
		return err
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fieldMessage(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	default:
		return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
	}
}
