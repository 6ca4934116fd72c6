//go:build unit

package reservation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablepilot/internal/domain/reservation"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestNewFromIntake(t *testing.T) {
	t.Run("全フィールド抽出成功", func(t *testing.T) {
		cand := reservation.CandidateFields{
			Name:   strPtr("Marie Dupont"),
			Date:   strPtr("2026-09-10"),
			Time:   strPtr("19:30"),
			Guests: intPtr(4),
		}

		res, err := reservation.NewFromIntake("+33612345678", reservation.SourceChat, cand, reservation.NewNote(""))
		require.NoError(t, err)

		assert.Equal(t, "Marie Dupont", *res.CustomerName())
		assert.Equal(t, "2026-09-10", res.Date().String())
		assert.Equal(t, "19:30", res.TimeOfDay().String())
		assert.Equal(t, 4, res.GuestCount().Value())
		assert.True(t, res.IsPending())
	})

	t.Run("部分抽出", func(t *testing.T) {
		cases := []struct {
			name string
			cand reservation.CandidateFields
		}{
			{name: "名前のみ", cand: reservation.CandidateFields{Name: strPtr("Marie")}},
			{name: "日付のみ", cand: reservation.CandidateFields{Date: strPtr("2026-09-10")}},
			{name: "人数のみ", cand: reservation.CandidateFields{Guests: intPtr(2)}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				res, err := reservation.NewFromIntake("+33612345678", reservation.SourceChat, tc.cand, reservation.NewNote(""))
				require.NoError(t, err)
				assert.True(t, res.IsPending())
			})
		}
	})

	t.Run("不正フィールドは未知に降格される", func(t *testing.T) {
		cand := reservation.CandidateFields{
			Name:   strPtr("Marie"),
			Date:   strPtr("not-a-date"),
			Time:   strPtr("25:99"),
			Guests: intPtr(0),
		}

		res, err := reservation.NewFromIntake("+33612345678", reservation.SourceChat, cand, reservation.NewNote(""))
		require.NoError(t, err, "名前が有効なら部分的な失敗は許容される")

		assert.Nil(t, res.Date())
		assert.Nil(t, res.TimeOfDay())
		assert.Nil(t, res.GuestCount())
		assert.Equal(t, "Marie", *res.CustomerName())
	})

	t.Run("全フィールド不使用で拒否", func(t *testing.T) {
		cand := reservation.CandidateFields{
			Date:   strPtr("not-a-date"),
			Guests: intPtr(-1),
		}

		_, err := reservation.NewFromIntake("+33612345678", reservation.SourceChat, cand, reservation.NewNote(""))
		require.ErrorIs(t, err, reservation.ErrNoUsableFields)
	})

	t.Run("電話番号なしで拒否", func(t *testing.T) {
		cand := reservation.CandidateFields{Name: strPtr("Marie")}

		_, err := reservation.NewFromIntake("", reservation.SourceChat, cand, reservation.NewNote(""))
		require.ErrorIs(t, err, reservation.ErrEmptyPhone)
	})

	t.Run("未知ソースは chat に寄せる", func(t *testing.T) {
		cand := reservation.CandidateFields{Name: strPtr("Marie")}

		res, err := reservation.NewFromIntake("+33612345678", reservation.Source("fax"), cand, reservation.NewNote(""))
		require.NoError(t, err)
		assert.Equal(t, reservation.SourceChat, res.Source())
	})
}
