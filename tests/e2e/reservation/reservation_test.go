//go:build e2e

package reservation_test

import (
	"encoding/json"
	"net/http"
	stdhttptest "net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	resdto "tablepilot/internal/handler/dto/response"
	"tablepilot/tests/common/dbtest"
	"tablepilot/tests/common/httptest"
	"tablepilot/tests/e2e"
)

type ReservationE2ETestSuite struct {
	e2e.SharedSuite
	extractorStub *stdhttptest.Server
	// extractorAnswer is what the stubbed text-understanding service returns
	// for the next call.
	extractorAnswer string
}

func (s *ReservationE2ETestSuite) SetupSuite() {
	s.extractorAnswer = `{"name": "Marie Dupont", "date": "2026-09-10", "time": "19:30", "guests": 4}`
	s.extractorStub = stdhttptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"parts": []map[string]any{{"text": s.extractorAnswer}},
				}},
			},
		}
		_ = json.NewEncoder(w).Encode(response)
	}))
	s.ExtractorURL = s.extractorStub.URL

	s.SetupSharedSuite(s.T())
}

func (s *ReservationE2ETestSuite) TearDownSuite() {
	if s.extractorStub != nil {
		s.extractorStub.Close()
	}
}

func envelope(msgID, from, body string) map[string]any {
	return map[string]any{
		"object": "whatsapp_business_account",
		"entry": []map[string]any{{
			"changes": []map[string]any{{
				"field": "messages",
				"value": map[string]any{
					"messaging_product": "whatsapp",
					"messages": []map[string]any{{
						"id":   msgID,
						"from": from,
						"type": "text",
						"text": map[string]any{"body": body},
					}},
				},
			}},
		}},
	}
}

func (s *ReservationE2ETestSuite) listReservations(query string) []*resdto.ReservationResponse {
	w := httptest.PerformRequest(s.T(), s.Router, http.MethodGet, "/api/reservations"+query, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var reservations []*resdto.ReservationResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &reservations))
	return reservations
}

func (s *ReservationE2ETestSuite) TestWebhookVerification() {
	s.Run("正しいトークンでchallengeを返す", func() {
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodGet,
			"/webhook?hub.mode=subscribe&hub.verify_token=test_verify_token&hub.challenge=abc123", nil)

		s.Equal(http.StatusOK, w.Code)
		s.Equal("abc123", w.Body.String())
	})

	s.Run("誤ったトークンは403", func() {
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodGet,
			"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=abc123", nil)

		s.Equal(http.StatusForbidden, w.Code)
		s.Equal("Forbidden", w.Body.String())
	})
}

func (s *ReservationE2ETestSuite) TestIntakeFlow() {
	s.Run("メッセージ受信から決定まで", func() {
		// 1. Provider callback creates a pending reservation.
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, "/webhook",
			envelope("wamid.e2e.1", "+33612345678", "Bonjour, une table pour 4 le 10 septembre à 19h30, Marie Dupont"))
		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal("OK", w.Body.String())

		reservations := s.listReservations("")
		s.Require().Len(reservations, 1)
		created := reservations[0]
		s.Equal("pending", created.Status)
		s.Equal("Marie Dupont", *created.CustomerName)
		s.Equal("2026-09-10", *created.Date)
		s.Equal(4, *created.GuestCount)
		s.Equal(int64(1), created.Version)

		// 2. Provider retries the same message; no second reservation.
		w = httptest.PerformRequest(s.T(), s.Router, http.MethodPost, "/webhook",
			envelope("wamid.e2e.1", "+33612345678", "Bonjour, une table pour 4 le 10 septembre à 19h30, Marie Dupont"))
		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal("OK", w.Body.String())
		s.Len(s.listReservations(""), 1)

		// 3. Staff accepts with the observed version.
		w = httptest.PerformRequest(s.T(), s.Router, http.MethodPost,
			"/api/reservations/"+created.ID.String()+"/decision",
			map[string]any{"action": "accept", "version": 1})
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

		var decided resdto.ReservationResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &decided))
		s.Equal("confirmed", decided.Status)
		s.Equal(int64(2), decided.Version)

		// 4. A second decision with the stale version conflicts.
		w = httptest.PerformRequest(s.T(), s.Router, http.MethodPost,
			"/api/reservations/"+created.ID.String()+"/decision",
			map[string]any{"action": "decline", "version": 1})
		s.Equal(http.StatusConflict, w.Code)

		// 5. A decision against the terminal status is rejected.
		w = httptest.PerformRequest(s.T(), s.Router, http.MethodPost,
			"/api/reservations/"+created.ID.String()+"/decision",
			map[string]any{"action": "decline", "version": 2})
		s.Equal(http.StatusUnprocessableEntity, w.Code)

		// 6. The committed state survives through filters.
		s.Len(s.listReservations("?status=confirmed"), 1)
		s.Empty(s.listReservations("?status=pending"))
	})

	s.Run("決定はイベントレコードを残す", func() {
		id := dbtest.CreateTestReservation(s.T(), s.DB, "+33698765432", "seed-decision-1")

		w := httptest.PerformRequest(s.T(), s.Router, http.MethodPost,
			"/api/reservations/"+id.String()+"/decision",
			map[string]any{"action": "decline", "version": 1})
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

		var count int
		err := s.DB.QueryRow(s.T().Context(),
			"SELECT COUNT(*) FROM change_events WHERE entity_id = $1 AND operation = 'update' AND version = 2",
			id).Scan(&count)
		s.Require().NoError(err)
		s.Equal(1, count)
	})

	s.Run("メッセージなしのコールバック", func() {
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, "/webhook",
			map[string]any{"object": "whatsapp_business_account", "entry": []any{}})

		s.Equal(http.StatusOK, w.Code)
		s.Equal("No message", w.Body.String())
	})
}

func TestReservationE2ETestSuite(t *testing.T) {
	suite.Run(t, new(ReservationE2ETestSuite))
}
