package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

func TestTeamDiffs(t *testing.T) {
	room := types.RoomState{Seats: map[int]types.SeatView{
		1: {Name: "Alice", Roster: map[string]*types.CandidateData{
			"PG": {ID: "D01-g"}, "SG": {ID: "D03-g"}, "SF": nil, "PF": nil, "C": nil,
		}},
		2: {Name: "Bob", Roster: map[string]*types.CandidateData{
			"PG": {ID: "D02-g"}, "SG": nil, "SF": nil, "PF": nil, "C": nil,
		}},
	}}

	tests := []struct {
		name string
		msg  types.ClientMessage
		want []string
	}{
		{
			name: "nothing sent",
			msg:  types.ClientMessage{},
		},
		{
			name: "matching teams",
			msg: types.ClientMessage{
				Roster1: json.RawMessage(`{"PG":{"id":"D01-g"},"SG":{"id":"D03-g"},"SF":null}`),
				Roster2: json.RawMessage(`{"PG":{"id":"D02-g","name":"whatever"}}`),
				Names:   map[string]string{"1": "Alice", "2": "Bob"},
			},
		},
		{
			name: "swapped slot and renamed seat",
			msg: types.ClientMessage{
				Roster1: json.RawMessage(`{"PG":{"id":"D03-g"},"SG":{"id":"D01-g"}}`),
				Names:   map[string]string{"2": "Robert"},
			},
			want: []string{"roster1.PG", "roster1.SG", "names.2"},
		},
		{
			name: "extra pick and unreadable roster",
			msg: types.ClientMessage{
				Roster1: json.RawMessage(`[1,2,3]`),
				Roster2: json.RawMessage(`{"PG":{"id":"D02-g"},"C":{"id":"D09-f"}}`),
			},
			want: []string{"roster1", "roster2.C"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, teamDiffs(room, tt.msg))
		})
	}
}
