package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/churn-predictor/internal/classifier"
	"github.com/jmehdipour/churn-predictor/internal/metrics"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const maxPredictBody = 1 << 16

// predictReq uses pointers so a missing field is told apart from a zero value.
// Frequency is decoded as a number and must be integral.
type predictReq struct {
	Frequency *float64 `json:"Frequency"`
	Monetary  *float64 `json:"Monetary"`
	Country   *string  `json:"Country"`
}

type fieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

func unprocessable(c echo.Context, errs ...fieldError) error {
	return c.JSON(http.StatusUnprocessableEntity, map[string]any{"error": "invalid input", "detail": errs})
}

func (r predictReq) validate() (model.ChurnInput, []fieldError) {
	var errs []fieldError
	var in model.ChurnInput

	switch {
	case r.Frequency == nil:
		errs = append(errs, fieldError{"Frequency", "field required"})
	case *r.Frequency != math.Trunc(*r.Frequency) || math.Abs(*r.Frequency) > math.MaxInt32:
		errs = append(errs, fieldError{"Frequency", "must be an integer"})
	default:
		in.Frequency = int(*r.Frequency)
	}

	if r.Monetary == nil {
		errs = append(errs, fieldError{"Monetary", "field required"})
	} else {
		in.Monetary = *r.Monetary
	}

	if r.Country == nil {
		errs = append(errs, fieldError{"Country", "field required"})
	} else {
		in.Country = *r.Country
	}
	return in, errs
}

func decodePredictReq(body io.Reader) (predictReq, error) {
	var req predictReq
	b, err := io.ReadAll(io.LimitReader(body, maxPredictBody))
	if err != nil {
		return req, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return req, errors.New("empty body")
	}
	err = json.Unmarshal(b, &req)
	return req, err
}

func predictHandler(m *classifier.Model, cache repository.PredictionCache) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := decodePredictReq(c.Request().Body)
		if err != nil {
			var te *json.UnmarshalTypeError
			if errors.As(err, &te) {
				return unprocessable(c, fieldError{te.Field, "wrong type, got " + te.Value})
			}
			return unprocessable(c, fieldError{"body", "invalid JSON"})
		}
		in, errs := req.validate()
		if len(errs) > 0 {
			return unprocessable(c, errs...)
		}

		if m == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Model is not loaded."})
		}

		ctx := c.Request().Context()
		key := cacheKey(m.Version, in)
		if cache != nil {
			label, ok, err := cache.Get(ctx, key)
			if err != nil {
				log.Warnf("prediction cache get: %v", err)
			} else if ok {
				metrics.PredictionCache.WithLabelValues("hit").Inc()
				metrics.PredictionsTotal.WithLabelValues(strconv.Itoa(label)).Inc()
				return c.JSON(http.StatusOK, model.PredictionResponse{Churn: label})
			}
			metrics.PredictionCache.WithLabelValues("miss").Inc()
		}

		label := m.Predict(in)
		metrics.PredictionsTotal.WithLabelValues(strconv.Itoa(label)).Inc()

		if cache != nil {
			if err := cache.Set(ctx, key, label); err != nil {
				log.Warnf("prediction cache set: %v", err)
			}
		}
		return c.JSON(http.StatusOK, model.PredictionResponse{Churn: label})
	}
}

func cacheKey(version string, in model.ChurnInput) string {
	return strings.Join([]string{
		version,
		strconv.Itoa(in.Frequency),
		strconv.FormatFloat(in.Monetary, 'g', -1, 64),
		in.Country,
	}, "|")
}
