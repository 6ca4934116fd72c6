//go:build unit

package api_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tablepilot/internal/handler/api"
	resdto "tablepilot/internal/handler/dto/response"
	"tablepilot/internal/pkg/errs"
	"tablepilot/internal/usecase/commands"
	"tablepilot/internal/usecase/queries"
	"tablepilot/tests/common/builder"
	"tablepilot/tests/common/httptest"
	commandsmock "tablepilot/tests/mock/commands"
	queriesmock "tablepilot/tests/mock/queries"
)

type ReservationHandlerTestSuite struct {
	suite.Suite
	router        *gin.Engine
	mockCtrl      *gomock.Controller
	mockDecisions *commandsmock.MockDecisionCommands
	mockQueries   *queriesmock.MockReservationQueries
	handler       *api.ReservationHandler
}

func (s *ReservationHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockDecisions = commandsmock.NewMockDecisionCommands(s.mockCtrl)
	s.mockQueries = queriesmock.NewMockReservationQueries(s.mockCtrl)
	s.handler = api.NewReservationHandler(s.mockDecisions, s.mockQueries)

	s.router.GET("/api/reservations", s.handler.ListReservations)
	s.router.GET("/api/reservations/:id", s.handler.GetReservation)
	s.router.POST("/api/reservations/:id/decision", s.handler.DecideReservation)
}

func (s *ReservationHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *ReservationHandlerTestSuite) buildView() *queries.ReservationView {
	res, err := builder.NewReservationBuilder().BuildDomain()
	s.Require().NoError(err)
	return queries.ViewFrom(res)
}

func (s *ReservationHandlerTestSuite) TestListReservations() {
	s.Run("一覧取得", func() {
		view := s.buildView()
		s.mockQueries.EXPECT().
			List(gomock.Any(), queries.ListFilter{}).
			Return([]*queries.ReservationView{view}, nil)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/reservations", nil)

		var response []*resdto.ReservationResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &response)
		httptest.AssertHeaders(s.T(), w, map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		})
		s.Require().Len(response, 1)
		s.Equal(view.ID, response[0].ID)
		s.Equal("pending", response[0].Status)
	})

	s.Run("ステータスと日付で絞り込み", func() {
		s.mockQueries.EXPECT().
			List(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, filter queries.ListFilter) ([]*queries.ReservationView, error) {
				s.Require().NotNil(filter.Status)
				s.Require().NotNil(filter.Date)
				s.Equal("pending", *filter.Status)
				s.Equal("2026-09-10", *filter.Date)
				return nil, nil
			})

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet,
			"/api/reservations?status=pending&date=2026-09-10", nil)

		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("不正なフィルタは422", func() {
		s.mockQueries.EXPECT().
			List(gomock.Any(), gomock.Any()).
			Return(nil, errs.Mark(errs.New("unknown status partying"), errs.ErrDomainValidation))

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet,
			"/api/reservations?status=partying", nil)

		httptest.AssertErrorResponse(s.T(), w, http.StatusUnprocessableEntity, "Invalid filter")
	})
}

func (s *ReservationHandlerTestSuite) TestGetReservation() {
	s.Run("取得成功", func() {
		view := s.buildView()
		s.mockQueries.EXPECT().
			Get(gomock.Any(), view.ID).
			Return(view, nil)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/reservations/"+view.ID.String(), nil)

		var response resdto.ReservationResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &response)
		s.Equal(view.ID, response.ID)
	})

	s.Run("存在しないIDは404", func() {
		id := uuid.New()
		s.mockQueries.EXPECT().
			Get(gomock.Any(), id).
			Return(nil, errs.Mark(errs.New("not found"), errs.ErrReservationNotFound))

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/reservations/"+id.String(), nil)

		httptest.AssertErrorResponse(s.T(), w, http.StatusNotFound, "not found")
	})

	s.Run("不正なID形式は400", func() {
		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/reservations/not-a-uuid", nil)

		httptest.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "Invalid reservation ID")
	})
}

func (s *ReservationHandlerTestSuite) TestDecideReservation() {
	decideBody := func(action string, version int64) map[string]any {
		return map[string]any{"action": action, "version": version}
	}

	s.Run("承認成功", func() {
		res, err := builder.NewReservationBuilder().WithStatus("confirmed").WithVersion(2).BuildDomain()
		s.Require().NoError(err)

		s.mockDecisions.EXPECT().
			Decide(gomock.Any(), res.ID(), int64(1), commands.ActionAccept).
			Return(&commands.DecisionResult{Reservation: res, NewVersion: 2}, nil)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost,
			"/api/reservations/"+res.ID().String()+"/decision", decideBody("accept", 1))

		var response resdto.ReservationResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &response)
		s.Equal("confirmed", response.Status)
		s.Equal(int64(2), response.Version)
	})

	s.Run("バージョン競合は409", func() {
		id := uuid.New()
		s.mockDecisions.EXPECT().
			Decide(gomock.Any(), id, int64(1), commands.ActionDecline).
			Return(nil, errs.Mark(errs.New("stale version"), errs.ErrVersionConflict))

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost,
			"/api/reservations/"+id.String()+"/decision", decideBody("decline", 1))

		httptest.AssertErrorResponse(s.T(), w, http.StatusConflict, "modified by another actor")
	})

	s.Run("確定済みへの決定は422", func() {
		id := uuid.New()
		s.mockDecisions.EXPECT().
			Decide(gomock.Any(), id, int64(2), commands.ActionAccept).
			Return(nil, errs.Mark(errs.New("finalized"), errs.ErrInvalidTransition))

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost,
			"/api/reservations/"+id.String()+"/decision", decideBody("accept", 2))

		httptest.AssertErrorResponse(s.T(), w, http.StatusUnprocessableEntity, "no longer pending")
	})

	s.Run("存在しないIDは404", func() {
		id := uuid.New()
		s.mockDecisions.EXPECT().
			Decide(gomock.Any(), id, int64(1), commands.ActionAccept).
			Return(nil, errs.Mark(errs.New("not found"), errs.ErrReservationNotFound))

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost,
			"/api/reservations/"+id.String()+"/decision", decideBody("accept", 1))

		httptest.AssertErrorResponse(s.T(), w, http.StatusNotFound, "not found")
	})

	s.Run("未知のアクションはバインドで400", func() {
		id := uuid.New()

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost,
			"/api/reservations/"+id.String()+"/decision", decideBody("cancel", 1))

		httptest.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "Invalid request")
	})

	s.Run("バージョンなしは400", func() {
		id := uuid.New()

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost,
			"/api/reservations/"+id.String()+"/decision", map[string]any{"action": "accept"})

		httptest.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "Invalid request")
	})
}

func TestReservationHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ReservationHandlerTestSuite))
}
