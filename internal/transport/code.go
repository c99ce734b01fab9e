package transport

import (
	"errors"
	"math/rand/v2"
	"strings"
)

const (
	roomCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890"
	roomCodeLen   = 6
	roomCodeTries = 25
)

var ErrNoRooms = errors.New("no free room code found")

// GenerateRoomCode picks a code of distinct characters that taken does not
// report as in use. A nil taken accepts the first code.
func GenerateRoomCode(taken func(string) bool) (string, error) {
	for range roomCodeTries {
		code := randomRoomCode()
		if taken == nil || !taken(code) {
			return code, nil
		}
	}
	return "", ErrNoRooms
}

func randomRoomCode() string {
	pool := []byte(roomCodeChars)
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return string(pool[:roomCodeLen])
}

// ValidRoomCode reports whether code could have come from GenerateRoomCode.
// Room codes become part of bus subjects, so nothing else is accepted.
func ValidRoomCode(code string) bool {
	if len(code) != roomCodeLen {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(roomCodeChars, c) {
			return false
		}
	}
	return true
}
