package lobby

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

const maxNameRunes = 24

var tokenCost = bcrypt.DefaultCost

// member is a seat's occupant. outbox is nil while disconnected.
type member struct {
	name      string
	clientID  string
	outbox    chan types.ServerMessage
	ready     bool
	tokenHash []byte
}

func (m *member) connected() bool { return m.outbox != nil }

func (m *member) checkToken(token string) bool {
	return token != "" && bcrypt.CompareHashAndPassword(m.tokenHash, []byte(token)) == nil
}

func newToken() (string, []byte, error) {
	b := make([]byte, 16)
	if _, err := crand.Read(b); err != nil {
		return "", nil, err
	}
	token := hex.EncodeToString(b)
	hash, err := bcrypt.GenerateFromPassword([]byte(token), tokenCost)
	if err != nil {
		return "", nil, err
	}
	return token, hash, nil
}

func normalizeName(name string, seat engine.Seat) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return fmt.Sprintf("Player %d", seat)
	}
	if r := []rune(name); len(r) > maxNameRunes {
		name = strings.TrimSpace(string(r[:maxNameRunes]))
	}
	return name
}

func (l *Lobby) member(seat engine.Seat) *member {
	if !seat.Valid() {
		return nil
	}
	return l.seats[seat-1]
}

func (l *Lobby) seatOf(clientID string) engine.Seat {
	if clientID == "" {
		return 0
	}
	for i, m := range l.seats {
		if m != nil && m.clientID == clientID {
			return engine.Seat(i + 1)
		}
	}
	return 0
}

func (l *Lobby) freeSeat() engine.Seat {
	for i, m := range l.seats {
		if m == nil {
			return engine.Seat(i + 1)
		}
	}
	return 0
}
