package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/evilc0des/prop-bots/internal/backtest"
	"github.com/evilc0des/prop-bots/internal/logger"
	"github.com/evilc0des/prop-bots/internal/types"
)

type APITestSuite struct {
	suite.Suite
	server   *Server
	barsPath string
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (suite *APITestSuite) SetupTest() {
	suite.server = NewServer(DefaultConfig(), nil, logger.NewNopLogger())
	suite.barsPath = suite.writeBarsFile()
}

// writeBarsFile produces a ramp-up then ramp-down series long enough
// for the default 9/21 crossover to open and close a position.
func (suite *APITestSuite) writeBarsFile() string {
	path := filepath.Join(suite.T().TempDir(), "bars.csv")

	var buf bytes.Buffer
	buf.WriteString("timestamp,open,high,low,close,volume\n")
	start := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < 80; i++ {
		if i < 40 {
			price += 0.5
		} else {
			price -= 0.5
		}
		at := start.Add(time.Duration(i) * 5 * time.Minute)
		buf.WriteString(fmt.Sprintf("%s,%.2f,%.2f,%.2f,%.2f,100\n",
			at.Format(time.RFC3339), price, price+0.25, price-0.25, price))
	}

	suite.Require().NoError(os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func (suite *APITestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	suite.server.Router().ServeHTTP(recorder, req)
	return recorder
}

func (suite *APITestSuite) backtestRequest() BacktestRequest {
	return BacktestRequest{
		DataFile: suite.barsPath,
		Config: backtest.Config{
			Strategy:    "ma_crossover",
			RiskProfile: "topstep_50k",
			Instrument: types.Instrument{
				Symbol:     "ES",
				AssetClass: types.AssetClassFutures,
				TickSize:   decimal.NewFromFloat(0.25),
				TickValue:  decimal.NewFromFloat(12.5),
				Currency:   "USD",
			},
			InitialBalance: decimal.NewFromInt(50000),
		},
	}
}

func (suite *APITestSuite) TestHealth() {
	recorder := suite.do(http.MethodGet, "/health", nil)
	suite.Equal(http.StatusOK, recorder.Code)

	var body map[string]string
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &body))
	suite.Equal("ok", body["status"])
}

func (suite *APITestSuite) TestStrategies() {
	recorder := suite.do(http.MethodGet, "/strategies", nil)
	suite.Equal(http.StatusOK, recorder.Code)

	var body struct {
		Strategies []string `json:"strategies"`
	}
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &body))
	suite.Contains(body.Strategies, "ma_crossover")
	suite.Contains(body.Strategies, "donchian_breakout")
}

func (suite *APITestSuite) TestRiskProfiles() {
	recorder := suite.do(http.MethodGet, "/risk/profiles", nil)
	suite.Equal(http.StatusOK, recorder.Code)

	var body struct {
		Profiles []types.PropFirmProfile `json:"profiles"`
	}
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &body))

	names := make([]string, len(body.Profiles))
	for i, profile := range body.Profiles {
		names[i] = profile.Name
	}
	suite.Contains(names, "topstep_50k")
}

func (suite *APITestSuite) TestRunAndFetchBacktest() {
	recorder := suite.do(http.MethodPost, "/backtest", suite.backtestRequest())
	suite.Require().Equal(http.StatusOK, recorder.Code, recorder.Body.String())

	var result types.BacktestResult
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &result))
	suite.NotEmpty(result.ID)
	suite.Equal("ES", result.Instrument)
	suite.Len(result.EquityCurve, 80)

	fetched := suite.do(http.MethodGet, "/backtest/"+result.ID, nil)
	suite.Equal(http.StatusOK, fetched.Code)

	var again types.BacktestResult
	suite.Require().NoError(json.Unmarshal(fetched.Body.Bytes(), &again))
	suite.Equal(result.ID, again.ID)

	list := suite.do(http.MethodGet, "/backtest", nil)
	suite.Equal(http.StatusOK, list.Code)
	var ids struct {
		IDs []string `json:"ids"`
	}
	suite.Require().NoError(json.Unmarshal(list.Body.Bytes(), &ids))
	suite.Contains(ids.IDs, result.ID)
}

func (suite *APITestSuite) TestBacktestUnknownStrategy() {
	req := suite.backtestRequest()
	req.Config.Strategy = "nope"

	recorder := suite.do(http.MethodPost, "/backtest", req)
	suite.Equal(http.StatusBadRequest, recorder.Code)
}

func (suite *APITestSuite) TestBacktestMissingDataFile() {
	req := suite.backtestRequest()
	req.DataFile = ""

	recorder := suite.do(http.MethodPost, "/backtest", req)
	suite.Equal(http.StatusBadRequest, recorder.Code)
}

func (suite *APITestSuite) TestGetUnknownBacktest() {
	recorder := suite.do(http.MethodGet, "/backtest/does-not-exist", nil)
	suite.Equal(http.StatusNotFound, recorder.Code)
}
