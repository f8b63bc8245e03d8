package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shortly/internal/database"
	"github.com/vadimbarashkov/shortly/internal/models"
	"github.com/vadimbarashkov/shortly/internal/service"
)

const testBaseURL = "http://localhost:8000"

type MockURLService struct {
	mock.Mock
}

func (s *MockURLService) ShortenURL(ctx context.Context, rawURL string) (*models.URL, error) {
	args := s.Called(ctx, rawURL)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (s *MockURLService) ResolveShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	args := s.Called(ctx, shortCode)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (s *MockURLService) GetURLStats(ctx context.Context, shortCode string) (*models.URL, error) {
	args := s.Called(ctx, shortCode)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

type HandlersTestSuite struct {
	suite.Suite
	logger     *httplog.Logger
	urlSvcMock *MockURLService
	server     *httptest.Server
	e          *httpexpect.Expect
}

func (suite *HandlersTestSuite) SetupSuite() {
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
}

func (suite *HandlersTestSuite) SetupSubTest() {
	suite.urlSvcMock = new(MockURLService)
	router := NewRouter(suite.logger, suite.urlSvcMock, testBaseURL, "")
	suite.server = httptest.NewServer(router)
	suite.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  suite.server.URL,
		Reporter: httpexpect.NewAssertReporter(suite.T()),
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	})
}

func (suite *HandlersTestSuite) TearDownSubTest() {
	suite.urlSvcMock.AssertExpectations(suite.T())
	suite.server.Close()
}

func (suite *HandlersTestSuite) TestPing() {
	const path = "/api/ping"

	suite.Run("success", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong\n")
	})
}

func (suite *HandlersTestSuite) TestRoot() {
	suite.Run("json summary without static asset", func() {
		suite.e.GET("/").
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("message", "URL Shortening Service API").
			ContainsKey("version").
			Value("endpoints").Object().
			HasValue("shorten", "POST /api/shorten")
	})
}

func (suite *HandlersTestSuite) TestMetrics() {
	suite.Run("exposition format", func() {
		body := suite.e.GET("/metrics").
			Expect().
			Status(http.StatusOK).
			Body()

		body.Contains("url_shorten_requests_total")
		body.Contains("url_redirect_requests_total")
	})
}

func (suite *HandlersTestSuite) TestShortenURL() {
	const path = "/api/shorten"

	suite.Run("empty request body", func() {
		suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			ContainsKey("detail")
	})

	suite.Run("invalid request body", func() {
		suite.e.POST(path).
			WithJSON("invalid body").
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			ContainsKey("detail")
	})

	suite.Run("missing url field", func() {
		suite.e.POST(path).
			WithJSON(map[string]string{"url": ""}).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			Value("detail").String().Contains("Invalid URL format")
	})

	suite.Run("invalid url", func() {
		suite.urlSvcMock.
			On("ShortenURL", mock.Anything, "not-a-valid-url").
			Times(1).
			Return(nil, service.ErrInvalidURL)

		suite.e.POST(path).
			WithJSON(map[string]string{"url": "not-a-valid-url"}).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			Value("detail").String().Contains("Invalid URL format")

		suite.urlSvcMock.AssertNumberOfCalls(suite.T(), "ShortenURL", 1)
	})

	suite.Run("server error", func() {
		suite.urlSvcMock.
			On("ShortenURL", mock.Anything, "https://example.com").
			Times(1).
			Return(nil, errors.New("unknown error"))

		suite.e.POST(path).
			WithJSON(map[string]string{"url": "https://example.com"}).
			Expect().
			Status(http.StatusInternalServerError).
			HasContentType("application/json").
			JSON().Object().
			Value("detail").String().Contains("unknown error")

		suite.urlSvcMock.AssertNumberOfCalls(suite.T(), "ShortenURL", 1)
	})

	suite.Run("success", func() {
		createdAt := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

		suite.urlSvcMock.
			On("ShortenURL", mock.Anything, "example.com/x").
			Times(1).
			Return(&models.URL{
				ID:          1,
				ShortCode:   "abc123",
				OriginalURL: "https://example.com/x",
				CreatedAt:   createdAt,
			}, nil)

		suite.e.POST(path).
			WithJSON(map[string]string{"url": "example.com/x"}).
			Expect().
			Status(http.StatusCreated).
			HasContentType("application/json").
			JSON().Object().
			HasValue("short_url", testBaseURL+"/abc123").
			HasValue("original_url", "https://example.com/x").
			HasValue("short_code", "abc123").
			ContainsKey("created_at")

		suite.urlSvcMock.AssertNumberOfCalls(suite.T(), "ShortenURL", 1)
	})
}

func (suite *HandlersTestSuite) TestRedirect() {
	const path = "/%s"

	suite.Run("not found", func() {
		suite.urlSvcMock.
			On("ResolveShortCode", mock.Anything, "doesNotExist").
			Times(1).
			Return(nil, database.ErrURLNotFound)

		suite.e.GET(fmt.Sprintf(path, "doesNotExist")).
			Expect().
			Status(http.StatusNotFound).
			HasContentType("application/json").
			JSON().Object().
			Value("detail").String().Contains("doesNotExist")

		suite.urlSvcMock.AssertNumberOfCalls(suite.T(), "ResolveShortCode", 1)
	})

	suite.Run("server error", func() {
		suite.urlSvcMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Times(1).
			Return(nil, errors.New("unknown error"))

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusInternalServerError).
			HasContentType("application/json").
			JSON().Object().
			ContainsKey("detail")

		suite.urlSvcMock.AssertNumberOfCalls(suite.T(), "ResolveShortCode", 1)
	})

	suite.Run("success", func() {
		suite.urlSvcMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Times(1).
			Return(&models.URL{
				ShortCode:   "abc123",
				OriginalURL: "https://example.com/x",
			}, nil)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("https://example.com/x")

		suite.urlSvcMock.AssertNumberOfCalls(suite.T(), "ResolveShortCode", 1)
	})
}

func (suite *HandlersTestSuite) TestGetURLStats() {
	const path = "/api/stats/%s"

	suite.Run("not found", func() {
		suite.urlSvcMock.
			On("GetURLStats", mock.Anything, "abc123").
			Times(1).
			Return(nil, database.ErrURLNotFound)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusNotFound).
			HasContentType("application/json").
			JSON().Object().
			Value("detail").String().Contains("abc123")

		suite.urlSvcMock.AssertNumberOfCalls(suite.T(), "GetURLStats", 1)
	})

	suite.Run("server error", func() {
		suite.urlSvcMock.
			On("GetURLStats", mock.Anything, "abc123").
			Times(1).
			Return(nil, errors.New("unknown error"))

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusInternalServerError).
			HasContentType("application/json").
			JSON().Object().
			ContainsKey("detail")

		suite.urlSvcMock.AssertNumberOfCalls(suite.T(), "GetURLStats", 1)
	})

	suite.Run("success", func() {
		createdAt := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

		suite.urlSvcMock.
			On("GetURLStats", mock.Anything, "abc123").
			Times(1).
			Return(&models.URL{
				ID:          1,
				ShortCode:   "abc123",
				OriginalURL: "https://example.com/x",
				CreatedAt:   createdAt,
			}, nil)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("short_url", testBaseURL+"/abc123").
			HasValue("original_url", "https://example.com/x").
			HasValue("short_code", "abc123").
			ContainsKey("created_at")

		suite.urlSvcMock.AssertNumberOfCalls(suite.T(), "GetURLStats", 1)
	})
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
